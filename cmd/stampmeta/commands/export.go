package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stampmeta/internal/export"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export [results.jsonl]",
	Short: "Convert a results JSONL file to the platform import CSV",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := cfg.LedgerFile
		if len(args) == 1 {
			input = args[0]
		}

		count, err := export.ToCSV(input, exportOutput, cfg.ExportCreatorID, time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("exported %d rows: %s -> %s\n", count, input, exportOutput)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "output.csv", "path of the CSV file to write")
	rootCmd.AddCommand(exportCmd)
}
