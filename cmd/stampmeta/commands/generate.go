package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"stampmeta/internal/driver"
	"stampmeta/internal/gen"
	"stampmeta/internal/imagefetch"
	"stampmeta/internal/ledger"
)

var generateProgress bool

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the interactive generation pipeline over the work queue",
	Long: `Processes the work queue one stamp at a time: skips stamps already in
the output ledger, calls the generation service with the stamp image and
usage evidence, validates the reply, and appends each completed stamp to the
ledger. Safe to re-run after an abort; completed stamps are never redone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := driver.ReadQueue(cfg.QueueFile)
		if err != nil {
			return err
		}

		led, err := ledger.Open(cfg.LedgerFile)
		if err != nil {
			return err
		}
		defer led.Close()

		fetcher := imagefetch.New(emojiEndpoint(cfg.TraqBaseURL))
		client := gen.NewClient(gen.ClientParams{
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.Model,
			MaxTokens:  cfg.MaxTokens,
			MaxRetries: cfg.MaxRetries,
			Images:     fetcher,
			Usage:      gen.NewUsageTracker(cfg.UsageFile),
		})

		d := driver.New(client, led, driver.Options{
			MaxFormatRetries: cfg.MaxFormatRetries,
			ShowProgress:     generateProgress,
		})

		summary, err := d.Run(cmd.Context(), items)
		if err != nil {
			return err
		}

		fmt.Printf("processed: %d\nskipped:   %d\ntotal:     %d\n",
			summary.Processed, summary.Skipped, summary.Total)
		switch summary.Abort {
		case driver.AbortQuota:
			return fmt.Errorf("run aborted: generation quota exhausted, add credit and re-run")
		case driver.AbortOther:
			return fmt.Errorf("run aborted: non-recoverable generation error, see log")
		}
		return nil
	},
}

// emojiEndpoint derives the public emoji asset endpoint from the platform
// base URL.
func emojiEndpoint(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/api/1.0/public/emoji"
}

func init() {
	generateCmd.Flags().BoolVar(&generateProgress, "progress", true, "show a progress bar")
	rootCmd.AddCommand(generateCmd)
}
