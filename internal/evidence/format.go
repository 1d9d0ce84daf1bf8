package evidence

import (
	"stampmeta/internal/stamps"
	"stampmeta/pkg/models"
)

// FormatMessages filters raw platform messages and renders the survivors
// into the prompt-ready Message form. Reaction stamp ids are resolved to
// display names through the registry; unknown ids are dropped and duplicate
// names collapse to one, preserving first-seen order.
func FormatMessages(b Bounds, msgs []models.PlatformMessage, registry *stamps.Registry) []models.Message {
	var out []models.Message
	for _, msg := range msgs {
		if !b.Usable(msg.Content) {
			continue
		}
		out = append(out, models.Message{
			Content: msg.Content,
			Stamps:  reactionNames(msg.Stamps, registry),
		})
		if len(out) == MaxUsages {
			break
		}
	}
	return out
}

func reactionNames(reactions []models.MessageStamp, registry *stamps.Registry) []string {
	names := make([]string, 0, len(reactions))
	seen := make(map[string]struct{}, len(reactions))
	for _, r := range reactions {
		name, ok := registry.Lookup(r.StampID)
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
