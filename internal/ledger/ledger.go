// Package ledger implements the append-only completion record that makes
// runs resumable. The ledger file is the durable source of truth: it is read
// in full at startup to build the resume set, and a flushed append is the
// commit point for each work item.
package ledger

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"stampmeta/pkg/models"
)

// NormalizeID reduces an identifier to its canonical string form. Ids are
// compared and stored only in this form to avoid type/whitespace mismatches
// between the queue and the ledger.
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}

// Ledger is a single-writer, append-only JSONL record of completed stamps.
type Ledger struct {
	path string
	file *os.File
	done map[string]struct{}
}

// Open loads the resume set from path (tolerating corrupt lines, which are
// skipped with a warning) and opens the file for appending. A missing file
// starts an empty ledger.
func Open(path string) (*Ledger, error) {
	done := make(map[string]struct{})

	if existing, err := os.Open(path); err == nil {
		scanner := bufio.NewScanner(existing)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var entry struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal([]byte(line), &entry); err != nil {
				slog.Warn("skipping corrupt ledger line", "path", path, "error", err)
				continue
			}
			if id := NormalizeID(entry.ID); id != "" {
				done[id] = struct{}{}
			}
		}
		scanErr := scanner.Err()
		existing.Close()
		if scanErr != nil {
			return nil, fmt.Errorf("reading ledger %s: %w", path, scanErr)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("opening ledger %s: %w", path, err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s for append: %w", path, err)
	}

	return &Ledger{path: path, file: file, done: done}, nil
}

// Contains reports whether id already has a ledger entry.
func (l *Ledger) Contains(id string) bool {
	_, ok := l.done[NormalizeID(id)]
	return ok
}

// Append records one completed result. The line is flushed to stable
// storage before the in-memory resume set is updated, so a crash between
// generation and append can only cause reprocessing, never a false "done".
// Appending an id that is already recorded is a no-op.
func (l *Ledger) Append(result models.GenerationResult) error {
	result.ID = NormalizeID(result.ID)
	if result.ID == "" {
		return errors.New("refusing to append ledger entry without id")
	}
	if _, ok := l.done[result.ID]; ok {
		slog.Warn("ledger already contains id, skipping append", "id", result.ID)
		return nil
	}

	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encoding ledger entry for %s: %w", result.ID, err)
	}

	if _, err := l.file.WriteString(buf.String()); err != nil {
		return fmt.Errorf("appending ledger entry for %s: %w", result.ID, err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("syncing ledger after %s: %w", result.ID, err)
	}

	l.done[result.ID] = struct{}{}
	return nil
}

// Len reports the size of the resume set.
func (l *Ledger) Len() int { return len(l.done) }

// Close closes the underlying file. The ledger must not be used afterwards.
func (l *Ledger) Close() error { return l.file.Close() }

// ReadAll parses every valid entry of a ledger file, in file order. Used by
// the export stage.
func ReadAll(path string) ([]models.GenerationResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", path, err)
	}
	defer f.Close()

	var out []models.GenerationResult
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry models.GenerationResult
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			slog.Warn("skipping corrupt ledger line", "path", path, "error", err)
			continue
		}
		out = append(out, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", path, err)
	}
	return out, nil
}
