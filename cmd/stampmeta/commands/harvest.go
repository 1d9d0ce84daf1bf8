package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"stampmeta/internal/harvest"
	"stampmeta/internal/stamps"
	"stampmeta/internal/traq"
	"stampmeta/internal/traqing"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Collect per-stamp usage messages from the two sources",
	Long: `Collects usage evidence for every stamp in the registry: body usages via
full-text search on the messaging API, reaction usages via the analytics API
resolved back to full messages. Writes one JSON file per stamp under the
body and reaction directories.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := stamps.LoadRegistry(cfg.StampsFile)
		if err != nil {
			return err
		}

		traqClient := traq.NewClient(cfg.TraqBaseURL, cfg.TraqToken)
		traqingClient := traqing.NewClient(cfg.TraqingBaseURL, cfg.TraqingAuthToken)

		harvester := harvest.New(traqClient, traqingClient, cfg.BodyDir, cfg.ReactionDir)

		stampList := registry.Stamps()
		slog.Info("starting harvest", "stamps", len(stampList))
		if err := harvester.Run(cmd.Context(), stampList); err != nil {
			return fmt.Errorf("harvest: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(harvestCmd)
}
