// Package harvest collects per-stamp usage evidence from the two message
// sources and persists it as one JSON file per stamp, the layout the build
// stage consumes.
package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"stampmeta/internal/traq"
	"stampmeta/internal/traqing"
	"stampmeta/pkg/models"
)

type Harvester struct {
	traq        *traq.Client
	traqing     *traqing.Client
	bodyDir     string
	reactionDir string
}

func New(traqClient *traq.Client, traqingClient *traqing.Client, bodyDir, reactionDir string) *Harvester {
	return &Harvester{
		traq:        traqClient,
		traqing:     traqingClient,
		bodyDir:     bodyDir,
		reactionDir: reactionDir,
	}
}

// Run harvests evidence for every stamp, writing each stamp's files as soon
// as its data is complete so an interrupted harvest keeps its progress.
// Per-stamp failures are logged and skipped; the harvest continues.
func (h *Harvester) Run(ctx context.Context, stamps []models.Stamp) error {
	for _, dir := range []string{h.bodyDir, h.reactionDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating harvest dir %s: %w", dir, err)
		}
	}

	for _, stamp := range stamps {
		if stamp.ID == "" {
			slog.Warn("stamp without id, skipping", "name", stamp.Name)
			continue
		}

		if err := h.harvestStamp(ctx, stamp); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("harvest failed for stamp, continuing", "stamp_id", stamp.ID, "error", err)
		}
	}
	return nil
}

func (h *Harvester) harvestStamp(ctx context.Context, stamp models.Stamp) error {
	body, err := h.traq.SearchMessages(ctx, stamp.Name)
	if err != nil {
		return fmt.Errorf("body usages: %w", err)
	}
	if err := writeMessages(h.bodyDir, stamp.ID, body); err != nil {
		return err
	}

	usages, err := h.traqing.StampUsages(ctx, stamp.ID)
	if err != nil {
		return fmt.Errorf("reaction records: %w", err)
	}

	reactions := make([]models.PlatformMessage, 0, len(usages))
	for _, usage := range usages {
		msg, err := h.traq.GetMessage(ctx, usage.MessageID)
		if err != nil {
			slog.Warn("could not resolve reacted message", "message_id", usage.MessageID, "error", err)
			continue
		}
		reactions = append(reactions, msg)
	}
	if err := writeMessages(h.reactionDir, stamp.ID, reactions); err != nil {
		return err
	}

	slog.Info("harvested stamp", "stamp_id", stamp.ID, "body", len(body), "reactions", len(reactions))
	return nil
}

func writeMessages(dir, stampID string, msgs []models.PlatformMessage) error {
	if msgs == nil {
		msgs = []models.PlatformMessage{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encoding messages for %s: %w", stampID, err)
	}
	path := filepath.Join(dir, stampID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// LoadDir reads every per-stamp message file in dir into an id-to-messages
// map. Files may hold either a bare message array or {"messages": [...]};
// unreadable files are skipped with a warning. A missing directory yields an
// empty map so one absent source does not stop the build.
func LoadDir(dir string) (map[string][]models.PlatformMessage, error) {
	out := make(map[string][]models.PlatformMessage)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("harvest directory not found, treating as empty", "dir", dir)
			return out, nil
		}
		return nil, fmt.Errorf("reading harvest dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(name), ".json") {
			continue
		}
		stampID := strings.TrimSuffix(name, filepath.Ext(name))

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("could not read harvest file, skipping", "path", path, "error", err)
			continue
		}

		msgs, err := decodeMessages(data)
		if err != nil {
			slog.Warn("could not parse harvest file, skipping", "path", path, "error", err)
			continue
		}
		out[stampID] = msgs
	}
	return out, nil
}

func decodeMessages(data []byte) ([]models.PlatformMessage, error) {
	var msgs []models.PlatformMessage
	if err := json.Unmarshal(data, &msgs); err == nil {
		return msgs, nil
	}

	var wrapped struct {
		Messages []models.PlatformMessage `json:"messages"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Messages == nil {
		return nil, fmt.Errorf("neither a message array nor a messages object")
	}
	return wrapped.Messages, nil
}
