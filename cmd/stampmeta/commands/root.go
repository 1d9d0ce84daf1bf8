package commands

import (
	"github.com/spf13/cobra"

	"stampmeta/internal/config"
)

var (
	envFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "stampmeta",
	Short: "Builds the stamp description and keyword dataset",
	Long: `stampmeta harvests real usage examples for every custom stamp of the
chat platform, feeds them together with the stamp image to a generation
service, and collects the validated descriptions and search keywords into a
resumable JSONL dataset.

Typical pipeline: harvest -> build -> generate (or batch create/poll) -> export.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(envFile)
		return err
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "path to an env file to load before reading configuration")
}
