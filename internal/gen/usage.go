package gen

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"

	openai "github.com/openai/openai-go"
)

// TokenUsage accumulates token counts for one model.
type TokenUsage struct {
	CompletionTokens int64 `json:"completion_tokens"`
	PromptTokens     int64 `json:"prompt_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// UsageTracker keeps per-model token totals and mirrors them to a JSON file
// after every recorded call, so a run that aborts still leaves an accurate
// spend record.
type UsageTracker struct {
	mu    sync.Mutex
	path  string
	usage map[string]*TokenUsage
}

func NewUsageTracker(path string) *UsageTracker {
	return &UsageTracker{
		path:  path,
		usage: make(map[string]*TokenUsage),
	}
}

func (t *UsageTracker) Record(model string, usage openai.CompletionUsage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tu, ok := t.usage[model]
	if !ok {
		tu = &TokenUsage{}
		t.usage[model] = tu
	}
	tu.CompletionTokens += usage.CompletionTokens
	tu.PromptTokens += usage.PromptTokens
	tu.TotalTokens += usage.TotalTokens

	f, err := os.Create(t.path)
	if err != nil {
		slog.Warn("failed to create usage file", "path", t.path, "error", err)
		return
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(t.usage); err != nil {
		slog.Warn("failed to write usage file", "path", t.path, "error", err)
	}
}

// Totals returns a copy of the accumulated counts.
func (t *UsageTracker) Totals() map[string]TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]TokenUsage, len(t.usage))
	for model, tu := range t.usage {
		out[model] = *tu
	}
	return out
}
