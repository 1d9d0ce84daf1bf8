// Package stamps loads the master stamp registry and exposes it as an
// explicit read-only id-to-name mapping passed into the later stages.
package stamps

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/google/uuid"

	"stampmeta/pkg/models"
)

// Registry maps stamp id to display name.
type Registry struct {
	names map[string]string
}

// LoadRegistry reads a stamps.json registry file (array of {id, name}).
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading stamp registry %s: %w", path, err)
	}

	var entries []models.Stamp
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing stamp registry %s: %w", path, err)
	}

	names := make(map[string]string, len(entries))
	for _, s := range entries {
		if s.ID == "" {
			slog.Warn("registry entry without id, skipping", "name", s.Name)
			continue
		}
		if _, err := uuid.Parse(s.ID); err != nil {
			slog.Warn("registry entry with non-uuid id", "id", s.ID)
		}
		names[s.ID] = s.Name
	}
	return &Registry{names: names}, nil
}

// NewRegistry builds a registry from an in-memory mapping. Used in tests and
// by callers that already hold the stamp list.
func NewRegistry(names map[string]string) *Registry {
	copied := make(map[string]string, len(names))
	for id, name := range names {
		copied[id] = name
	}
	return &Registry{names: copied}
}

// Name returns the display name for id, falling back to the id itself when
// the registry has no entry.
func (r *Registry) Name(id string) string {
	if name, ok := r.names[id]; ok && name != "" {
		return name
	}
	return id
}

// Lookup returns the display name and whether the registry knows the id.
func (r *Registry) Lookup(id string) (string, bool) {
	name, ok := r.names[id]
	return name, ok
}

// Len reports the number of registry entries.
func (r *Registry) Len() int { return len(r.names) }

// Stamps returns all registry entries sorted by id for deterministic
// iteration.
func (r *Registry) Stamps() []models.Stamp {
	out := make([]models.Stamp, 0, len(r.names))
	for id, name := range r.names {
		out = append(out, models.Stamp{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
