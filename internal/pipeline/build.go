// Package pipeline assembles work-queue items from harvested evidence.
package pipeline

import (
	"errors"
	"log/slog"
	"sort"

	"stampmeta/internal/evidence"
	"stampmeta/internal/prompt"
	"stampmeta/internal/stamps"
	"stampmeta/pkg/models"
)

// BuildQueue produces one queue item per stamp that appears in either
// harvest source. Evidence is filtered and formatted per source, names fall
// back to ids for stamps the registry does not know, and records without an
// id are skipped with a warning. Output is ordered by stamp id.
func BuildQueue(
	registry *stamps.Registry,
	bounds evidence.Bounds,
	bodyByID map[string][]models.PlatformMessage,
	reactionsByID map[string][]models.PlatformMessage,
) ([]models.QueueItem, error) {
	ids := make(map[string]struct{}, len(bodyByID)+len(reactionsByID))
	for id := range bodyByID {
		ids[id] = struct{}{}
	}
	for id := range reactionsByID {
		ids[id] = struct{}{}
	}
	if len(ids) == 0 {
		return nil, errors.New("no harvested stamps found in either source directory")
	}

	ordered := make([]string, 0, len(ids))
	for id := range ids {
		ordered = append(ordered, id)
	}
	sort.Strings(ordered)

	items := make([]models.QueueItem, 0, len(ordered))
	for _, id := range ordered {
		ev := models.StampEvidence{
			ID:             id,
			Name:           registry.Name(id),
			BodyUsages:     evidence.FormatMessages(bounds, bodyByID[id], registry),
			ReactionUsages: evidence.FormatMessages(bounds, reactionsByID[id], registry),
		}

		item, err := prompt.BuildQueueItem(ev)
		if err != nil {
			if errors.Is(err, prompt.ErrMissingID) {
				slog.Warn("stamp record without id, skipping")
				continue
			}
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
