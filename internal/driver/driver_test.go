package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stampmeta/internal/gen"
	"stampmeta/internal/ledger"
	"stampmeta/pkg/models"
)

// scriptedGenerator returns canned responses (or errors) per call.
type scriptedGenerator struct {
	calls     int
	responses []any // string or error
}

func (g *scriptedGenerator) Generate(ctx context.Context, id, prompt string) (string, error) {
	if g.calls >= len(g.responses) {
		// repeat the last entry once the script runs out
		g.calls++
		last := g.responses[len(g.responses)-1]
		if err, ok := last.(error); ok {
			return "", err
		}
		return last.(string), nil
	}
	entry := g.responses[g.calls]
	g.calls++
	if err, ok := entry.(error); ok {
		return "", err
	}
	return entry.(string), nil
}

const validOutput = `{"description":"青い旗が揺れる絵文字です。","keywords":["旗","flag"]}`

func newTestDriver(t *testing.T, g Generator) (*Driver, *ledger.Ledger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "llm_output.jsonl")
	led, err := ledger.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { led.Close() })

	d := New(g, led, Options{})
	d.sleep = func(time.Duration) {}
	return d, led, path
}

func queue(ids ...string) []models.QueueItem {
	items := make([]models.QueueItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, models.QueueItem{ID: id, Prompt: "prompt for " + id})
	}
	return items
}

func TestRunProcessesAllItems(t *testing.T) {
	g := &scriptedGenerator{responses: []any{validOutput}}
	d, led, _ := newTestDriver(t, g)

	summary, err := d.Run(context.Background(), queue("a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 3, Skipped: 0, Total: 3, Abort: AbortNone}, summary)
	assert.True(t, led.Contains("a"))
	assert.True(t, led.Contains("b"))
	assert.True(t, led.Contains("c"))
}

func TestRunIdempotentResume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm_output.jsonl")

	first, err := ledger.Open(path)
	require.NoError(t, err)
	d1 := New(&scriptedGenerator{responses: []any{validOutput}}, first, Options{})
	d1.sleep = func(time.Duration) {}

	s1, err := d1.Run(context.Background(), queue("a", "b"))
	require.NoError(t, err)
	require.NoError(t, first.Close())
	assert.Equal(t, 2, s1.Processed)

	// A second run over the same queue and ledger must do nothing new.
	second, err := ledger.Open(path)
	require.NoError(t, err)
	defer second.Close()
	d2 := New(&scriptedGenerator{responses: []any{validOutput}}, second, Options{})
	d2.sleep = func(time.Duration) {}

	s2, err := d2.Run(context.Background(), queue("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, 0, s2.Processed)
	assert.Equal(t, s1.Processed, s2.Skipped)
}

func TestRunRecordsPlaceholderAfterFormatRetries(t *testing.T) {
	missingKeywords := `{"description":"キーワードを忘れました"}`
	g := &scriptedGenerator{responses: []any{missingKeywords}}
	d, _, path := newTestDriver(t, g)

	summary, err := d.Run(context.Background(), queue("a"))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, DefaultMaxFormatRetries, g.calls, "each format retry is a fresh generation")

	entries, err := ledger.ReadAll(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].ID)
	assert.True(t, entries[0].IsPlaceholder())
	assert.Equal(t, []string{"エラー", "形式不正"}, entries[0].Keywords)
}

func TestRunFormatRetryRecovers(t *testing.T) {
	g := &scriptedGenerator{responses: []any{
		`not json at all`,
		validOutput,
	}}
	d, _, path := newTestDriver(t, g)

	summary, err := d.Run(context.Background(), queue("a"))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 2, g.calls)

	entries, err := ledger.ReadAll(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].IsPlaceholder())
}

func TestRunAbortsOnQuota(t *testing.T) {
	g := &scriptedGenerator{responses: []any{
		validOutput,
		&gen.ClassifiedError{Kind: gen.FailureQuota, Err: assert.AnError},
	}}
	d, led, _ := newTestDriver(t, g)

	summary, err := d.Run(context.Background(), queue("a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, AbortQuota, summary.Abort)
	assert.Equal(t, 1, summary.Processed)
	assert.True(t, led.Contains("a"))
	assert.False(t, led.Contains("b"), "aborted item must not be recorded")
	assert.False(t, led.Contains("c"), "items after the abort are untouched")
}

func TestRunAbortsOnOtherError(t *testing.T) {
	g := &scriptedGenerator{responses: []any{
		&gen.ClassifiedError{Kind: gen.FailureOther, Err: assert.AnError},
	}}
	d, _, _ := newTestDriver(t, g)

	summary, err := d.Run(context.Background(), queue("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, AbortOther, summary.Abort)
	assert.Equal(t, 0, summary.Processed)
}

func TestRunExhaustedRateLimitAbortsRun(t *testing.T) {
	g := &scriptedGenerator{responses: []any{
		&gen.ClassifiedError{Kind: gen.FailureRateLimit, Err: assert.AnError},
	}}
	d, _, _ := newTestDriver(t, g)

	summary, err := d.Run(context.Background(), queue("a"))
	require.NoError(t, err)
	assert.Equal(t, AbortOther, summary.Abort)
}

func TestRunSkipsItemsWithoutID(t *testing.T) {
	g := &scriptedGenerator{responses: []any{validOutput}}
	d, _, _ := newTestDriver(t, g)

	items := []models.QueueItem{
		{ID: "", Prompt: "no id"},
		{ID: "a", Prompt: "fine"},
	}
	summary, err := d.Run(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 2, summary.Total)
}

func TestQueueRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm_input.jsonl")
	items := queue("a", "b")

	require.NoError(t, WriteQueue(path, items))
	got, err := ReadQueue(path)
	require.NoError(t, err)
	assert.Equal(t, items, got)
}

func TestReadQueueSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm_input.jsonl")
	content := `{"id":"a","prompt":"p"}
not json
{"id":"b","prompt":"q"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	got, err := ReadQueue(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestReadQueueMissingFile(t *testing.T) {
	_, err := ReadQueue(filepath.Join(t.TempDir(), "nope.jsonl"))
	require.Error(t, err)
}
