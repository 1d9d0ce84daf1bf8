package batchjob

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stampmeta/internal/prompt"
	"stampmeta/pkg/models"
)

func testImageURL(id string) string {
	return "https://example.com/emoji/" + id
}

func TestWriteRequestsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.jsonl")
	s := NewService("", "gpt-4.1-nano", 2000)

	items := []models.QueueItem{
		{ID: "stamp-1", Prompt: "first prompt"},
		{ID: "stamp-2", Prompt: "second prompt"},
	}
	require.NoError(t, s.WriteRequestsFile(path, items, testImageURL))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 4*1024*1024)
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 2)

	first := lines[0]
	assert.Equal(t, "stamp-1", first["custom_id"])
	assert.Equal(t, "POST", first["method"])
	assert.Equal(t, "/v1/chat/completions", first["url"])

	body := first["body"].(map[string]any)
	assert.Equal(t, "gpt-4.1-nano", body["model"])
	assert.Equal(t, float64(2000), body["max_tokens"])
	assert.Equal(t, false, body["stream"])

	format := body["response_format"].(map[string]any)
	assert.Equal(t, "json_object", format["type"])

	messages := body["messages"].([]any)
	require.Len(t, messages, 3)
	system := messages[0].(map[string]any)
	assert.Equal(t, "system", system["role"])
	assert.Equal(t, prompt.SystemInstruction, system["content"])
	developer := messages[1].(map[string]any)
	assert.Equal(t, "developer", developer["role"])

	user := messages[2].(map[string]any)
	assert.Equal(t, "user", user["role"])
	parts := user["content"].([]any)
	require.Len(t, parts, 2)
	text := parts[0].(map[string]any)
	assert.Equal(t, "text", text["type"])
	assert.Equal(t, "first prompt", text["text"])
	image := parts[1].(map[string]any)
	assert.Equal(t, "image_url", image["type"])
	assert.Equal(t, "https://example.com/emoji/stamp-1", image["image_url"].(map[string]any)["url"])

	assert.Equal(t, "stamp-2", lines[1]["custom_id"])
}

func TestCreateRecordsInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/files"):
			_, _ = w.Write([]byte(`{"id":"file-1","object":"file","bytes":42,"created_at":1700000000,"filename":"requests.jsonl","purpose":"batch"}`))
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/batches"):
			_, _ = w.Write([]byte(`{"id":"batch-1","object":"batch","endpoint":"/v1/chat/completions","input_file_id":"file-1","completion_window":"24h","status":"validating","created_at":1700000100}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	requestsPath := filepath.Join(dir, "requests.jsonl")
	infoPath := filepath.Join(dir, "batch_info.json")

	s := NewService(server.URL, "gpt-4.1-nano", 2000)
	require.NoError(t, s.WriteRequestsFile(requestsPath, []models.QueueItem{{ID: "a", Prompt: "p"}}, testImageURL))

	info, err := s.Create(context.Background(), requestsPath, infoPath)
	require.NoError(t, err)
	assert.Equal(t, "batch-1", info.BatchID)
	assert.Equal(t, "file-1", info.InputFileID)
	assert.Equal(t, "validating", info.Status)
	assert.Equal(t, int64(1700000100), info.ServiceCreatedAt)

	saved, err := ReadInfo(infoPath)
	require.NoError(t, err)
	assert.Equal(t, info.BatchID, saved.BatchID)
}

func TestPollInProgress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.True(t, strings.HasSuffix(r.URL.Path, "/batches/batch-1"))
		_, _ = w.Write([]byte(`{"id":"batch-1","object":"batch","endpoint":"/v1/chat/completions","input_file_id":"file-1","completion_window":"24h","status":"in_progress","created_at":1700000100,"request_counts":{"completed":3,"failed":0,"total":10}}`))
	}))
	defer server.Close()

	infoPath := filepath.Join(t.TempDir(), "batch_info.json")
	seed := &Info{BatchID: "batch-1", InputFileID: "file-1", Status: "validating"}
	require.NoError(t, writeInfo(infoPath, seed))

	s := NewService(server.URL, "gpt-4.1-nano", 2000)
	info, err := s.Poll(context.Background(), infoPath)
	require.NoError(t, err)
	assert.Equal(t, "in_progress", info.Status)
	assert.NotEmpty(t, info.LastChecked)
	assert.Equal(t, int64(3), info.RequestCounts.Completed)
	assert.Equal(t, int64(10), info.RequestCounts.Total)
}

func TestPollCompletedDownloadsResults(t *testing.T) {
	const resultsBody = `{"custom_id":"a","response":{"status_code":200}}` + "\n"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/batches/batch-1"):
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"batch-1","object":"batch","endpoint":"/v1/chat/completions","input_file_id":"file-1","completion_window":"24h","status":"completed","created_at":1700000100,"completed_at":1700003600,"output_file_id":"file-out","request_counts":{"completed":1,"failed":0,"total":1}}`))
		case strings.HasSuffix(r.URL.Path, "/files/file-out/content"):
			_, _ = w.Write([]byte(resultsBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	// results download lands in the working directory
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	infoPath := filepath.Join(dir, "batch_info.json")
	require.NoError(t, writeInfo(infoPath, &Info{BatchID: "batch-1", InputFileID: "file-1", Status: "in_progress"}))

	s := NewService(server.URL, "gpt-4.1-nano", 2000)
	info, err := s.Poll(context.Background(), infoPath)
	require.NoError(t, err)
	assert.Equal(t, "completed", info.Status)
	assert.Equal(t, "file-out", info.OutputFileID)
	assert.Equal(t, int64(1700003600), info.CompletedAt)

	data, err := os.ReadFile(filepath.Join(dir, "batch_results_batch-1.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, resultsBody, string(data))
}

func TestReadInfoErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadInfo(filepath.Join(dir, "missing.json"))
	require.Error(t, err)

	badJSON := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badJSON, []byte("not json"), 0644))
	_, err = ReadInfo(badJSON)
	require.Error(t, err)

	noID := filepath.Join(dir, "noid.json")
	require.NoError(t, os.WriteFile(noID, []byte(`{"status":"validating"}`), 0644))
	_, err = ReadInfo(noID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch_id")
}
