// Package validate checks raw generation output against the required
// {description, keywords} schema. A syntactically successful API call can
// still yield semantically invalid content; those failures are reported as a
// typed error so the driver can re-generate rather than re-classify.
package validate

import (
	"bytes"
	"encoding/json"
	"strings"

	"stampmeta/pkg/models"
)

// FormatError describes why a generation output was rejected.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "invalid generation output: " + e.Reason
}

// Parse validates rawText and returns the result on success. It never
// returns partial data: any schema violation yields only a *FormatError.
func Parse(id, rawText string) (models.GenerationResult, error) {
	var payload struct {
		Description *string         `json:"description"`
		Keywords    json.RawMessage `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(rawText), &payload); err != nil {
		return models.GenerationResult{}, &FormatError{Reason: "not parseable as JSON: " + err.Error()}
	}

	if payload.Description == nil {
		return models.GenerationResult{}, &FormatError{Reason: "missing required field 'description'"}
	}
	if strings.Contains(*payload.Description, "\n") {
		return models.GenerationResult{}, &FormatError{Reason: "description contains a line break"}
	}

	if len(payload.Keywords) == 0 || bytes.Equal(payload.Keywords, []byte("null")) {
		return models.GenerationResult{}, &FormatError{Reason: "missing required field 'keywords'"}
	}
	var keywords []string
	if err := json.Unmarshal(payload.Keywords, &keywords); err != nil {
		return models.GenerationResult{}, &FormatError{Reason: "keywords is not a string array"}
	}

	return models.GenerationResult{
		ID:          id,
		Description: *payload.Description,
		Keywords:    NormalizeKeywords(keywords),
	}, nil
}

// NormalizeKeywords trims whitespace, drops empties, and removes duplicates
// case-insensitively, preserving first-seen order.
func NormalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		key := strings.ToLower(kw)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, kw)
	}
	return out
}
