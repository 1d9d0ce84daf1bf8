package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"stampmeta/internal/driver"
	"stampmeta/internal/evidence"
	"stampmeta/internal/harvest"
	"stampmeta/internal/pipeline"
	"stampmeta/internal/stamps"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the generation work queue from harvested messages",
	Long: `Scans both harvest directories, filters each stamp's usage messages
(language, length bounds, cap of five per source), renders the generation
prompts, and writes the work queue consumed by 'generate' and 'batch create'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := stamps.LoadRegistry(cfg.StampsFile)
		if err != nil {
			return err
		}

		bodyByID, err := harvest.LoadDir(cfg.BodyDir)
		if err != nil {
			return err
		}
		reactionsByID, err := harvest.LoadDir(cfg.ReactionDir)
		if err != nil {
			return err
		}

		bounds := evidence.Bounds{MinLen: cfg.EvidenceMinLen, MaxLen: cfg.EvidenceMaxLen}
		items, err := pipeline.BuildQueue(registry, bounds, bodyByID, reactionsByID)
		if err != nil {
			return err
		}

		if err := driver.WriteQueue(cfg.QueueFile, items); err != nil {
			return err
		}
		slog.Info("wrote work queue", "path", cfg.QueueFile, "items", len(items))
		fmt.Printf("wrote %d queue items to %s\n", len(items), cfg.QueueFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
