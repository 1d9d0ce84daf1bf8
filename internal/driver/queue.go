package driver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"stampmeta/pkg/models"
)

// ReadQueue loads the work queue from a JSONL file. Malformed lines are
// skipped with a warning so one bad entry never blocks the run; a missing
// file is an error because there is nothing to do without input.
func ReadQueue(path string) ([]models.QueueItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening work queue %s: %w", path, err)
	}
	defer f.Close()

	var items []models.QueueItem
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var item models.QueueItem
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			slog.Warn("skipping malformed queue line", "path", path, "line", lineNo, "error", err)
			continue
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading work queue %s: %w", path, err)
	}
	return items, nil
}

// WriteQueue writes queue items as one JSON object per line.
func WriteQueue(path string, items []models.QueueItem) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating work queue %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("writing work queue %s: %w", path, err)
		}
	}
	return w.Flush()
}
