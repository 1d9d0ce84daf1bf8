// Package export converts the results ledger into the CSV shape the chat
// platform imports stamp descriptions from.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"stampmeta/internal/ledger"
)

var header = []string{"stamp_id", "description", "creator_id", "created_at", "updated_at"}

// ToCSV reads a results JSONL file and writes the import CSV. Every row
// shares the fixed creator id and one export timestamp. Corrupt JSONL lines
// were already dropped by the ledger reader.
func ToCSV(inputPath, outputPath, creatorID string, now time.Time) (int, error) {
	if _, err := uuid.Parse(creatorID); err != nil {
		return 0, fmt.Errorf("creator id %q is not a uuid: %w", creatorID, err)
	}

	results, err := ledger.ReadAll(inputPath)
	if err != nil {
		return 0, err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", outputPath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return 0, fmt.Errorf("writing csv header: %w", err)
	}

	timestamp := now.Format(time.RFC3339)
	count := 0
	for _, res := range results {
		row := []string{res.ID, res.Description, creatorID, timestamp, timestamp}
		if err := w.Write(row); err != nil {
			return count, fmt.Errorf("writing csv row for %s: %w", res.ID, err)
		}
		count++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return count, fmt.Errorf("flushing csv: %w", err)
	}
	return count, nil
}
