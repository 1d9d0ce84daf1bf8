package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"stampmeta/internal/batchjob"
	"stampmeta/internal/driver"
	"stampmeta/internal/imagefetch"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Submit the work queue as an asynchronous batch job",
}

var batchCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Render the batch request file, upload it, and start the job",
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := driver.ReadQueue(cfg.QueueFile)
		if err != nil {
			return err
		}

		service := batchjob.NewService(cfg.OpenAIBaseURL, cfg.Model, cfg.MaxTokens)
		fetcher := imagefetch.New(emojiEndpoint(cfg.TraqBaseURL))

		if err := service.WriteRequestsFile(cfg.RequestsFile, items, fetcher.PublicURL); err != nil {
			return err
		}
		fmt.Printf("wrote %d batch requests to %s\n", len(items), cfg.RequestsFile)

		info, err := service.Create(cmd.Context(), cfg.RequestsFile, cfg.BatchInfoFile)
		if err != nil {
			return err
		}
		fmt.Printf("batch id: %s (status: %s)\nbookkeeping saved to %s\n",
			info.BatchID, info.Status, cfg.BatchInfoFile)
		return nil
	},
}

var batchPollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Check the batch job and download results when finished",
	RunE: func(cmd *cobra.Command, args []string) error {
		service := batchjob.NewService(cfg.OpenAIBaseURL, cfg.Model, cfg.MaxTokens)

		info, err := service.Poll(cmd.Context(), cfg.BatchInfoFile)
		if err != nil {
			return err
		}
		fmt.Printf("batch %s status: %s (completed %d / failed %d / total %d)\n",
			info.BatchID, info.Status,
			info.RequestCounts.Completed, info.RequestCounts.Failed, info.RequestCounts.Total)
		return nil
	},
}

func init() {
	batchCmd.AddCommand(batchCreateCmd)
	batchCmd.AddCommand(batchPollCmd)
	rootCmd.AddCommand(batchCmd)
}
