// Package batchjob wraps the asynchronous batch endpoint of the generation
// service: rendering the request file, creating a job, and polling it. These
// are thin request/response wrappers; all retry and resume logic lives in
// the interactive driver.
package batchjob

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"stampmeta/internal/prompt"
	"stampmeta/pkg/models"
)

// Info is the local bookkeeping file (batch_info.json) that links runs of
// the create and poll commands.
type Info struct {
	BatchID          string `json:"batch_id"`
	InputFileID      string `json:"input_file_id"`
	Status           string `json:"status"`
	CreatedAt        string `json:"created_at"`
	ServiceCreatedAt int64  `json:"service_created_at"`
	LastChecked      string `json:"last_checked,omitempty"`
	OutputFileID     string `json:"output_file_id,omitempty"`
	ErrorFileID      string `json:"error_file_id,omitempty"`
	CompletedAt      int64  `json:"completed_at,omitempty"`
	FailedAt         int64  `json:"failed_at,omitempty"`
	RequestCounts    struct {
		Completed int64 `json:"completed"`
		Failed    int64 `json:"failed"`
		Total     int64 `json:"total"`
	} `json:"request_counts"`
}

type Service struct {
	api       openai.Client
	model     string
	maxTokens int64
}

func NewService(baseURL, model string, maxTokens int64) *Service {
	var opts []option.RequestOption
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Service{api: openai.NewClient(opts...), model: model, maxTokens: maxTokens}
}

// WriteRequestsFile renders one batch request line per queue item. The batch
// input format is raw JSONL, so the body is rendered by hand rather than
// through the typed SDK params. Batch requests reference the remote image
// URL; inlining data URLs would blow up the upload.
func (s *Service) WriteRequestsFile(path string, items []models.QueueItem, imageURL func(id string) string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating requests file %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	for _, item := range items {
		line := map[string]any{
			"custom_id": item.ID,
			"method":    "POST",
			"url":       "/v1/chat/completions",
			"body": map[string]any{
				"model": s.model,
				"messages": []map[string]any{
					{"role": "system", "content": prompt.SystemInstruction},
					{"role": "developer", "content": prompt.DeveloperInstruction},
					{"role": "user", "content": []map[string]any{
						{"type": "text", "text": item.Prompt},
						{"type": "image_url", "image_url": map[string]any{"url": imageURL(item.ID)}},
					}},
				},
				"stream":          false,
				"response_format": map[string]any{"type": "json_object"},
				"max_tokens":      s.maxTokens,
			},
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("writing requests file %s: %w", path, err)
		}
	}
	return nil
}

// Create uploads the requests file and starts a 24h batch job, recording
// the resulting ids in infoPath.
func (s *Service) Create(ctx context.Context, requestsPath, infoPath string) (*Info, error) {
	f, err := os.Open(requestsPath)
	if err != nil {
		return nil, fmt.Errorf("opening requests file %s: %w", requestsPath, err)
	}
	defer f.Close()

	file, err := s.api.Files.New(ctx, openai.FileNewParams{
		File:    f,
		Purpose: openai.FilePurposeBatch,
	})
	if err != nil {
		return nil, fmt.Errorf("uploading batch input: %w", err)
	}
	slog.Info("uploaded batch input", "file_id", file.ID)

	batch, err := s.api.Batches.New(ctx, openai.BatchNewParams{
		InputFileID:      file.ID,
		Endpoint:         openai.BatchNewParamsEndpointV1ChatCompletions,
		CompletionWindow: openai.BatchNewParamsCompletionWindow24h,
	})
	if err != nil {
		return nil, fmt.Errorf("creating batch job: %w", err)
	}
	slog.Info("created batch job", "batch_id", batch.ID, "status", batch.Status)

	info := &Info{
		BatchID:          batch.ID,
		InputFileID:      file.ID,
		Status:           string(batch.Status),
		CreatedAt:        time.Now().Format(time.RFC3339),
		ServiceCreatedAt: batch.CreatedAt,
	}
	if err := writeInfo(infoPath, info); err != nil {
		return nil, err
	}
	return info, nil
}

// Poll checks the batch recorded in infoPath and downloads the output and
// error files once available. It updates infoPath with the latest status.
func (s *Service) Poll(ctx context.Context, infoPath string) (*Info, error) {
	info, err := ReadInfo(infoPath)
	if err != nil {
		return nil, err
	}

	batch, err := s.api.Batches.Get(ctx, info.BatchID)
	if err != nil {
		return nil, fmt.Errorf("retrieving batch %s: %w", info.BatchID, err)
	}

	info.Status = string(batch.Status)
	info.LastChecked = time.Now().Format(time.RFC3339)
	info.OutputFileID = batch.OutputFileID
	info.ErrorFileID = batch.ErrorFileID
	info.CompletedAt = batch.CompletedAt
	info.FailedAt = batch.FailedAt
	info.RequestCounts.Completed = batch.RequestCounts.Completed
	info.RequestCounts.Failed = batch.RequestCounts.Failed
	info.RequestCounts.Total = batch.RequestCounts.Total

	switch batch.Status {
	case openai.BatchStatusCompleted:
		slog.Info("batch completed", "batch_id", batch.ID)
		if batch.OutputFileID != "" {
			path := fmt.Sprintf("batch_results_%s.jsonl", batch.ID)
			if err := s.downloadFile(ctx, batch.OutputFileID, path); err != nil {
				return nil, err
			}
			slog.Info("saved batch results", "path", path)
		}
		if batch.ErrorFileID != "" {
			path := fmt.Sprintf("batch_errors_%s.jsonl", batch.ID)
			if err := s.downloadFile(ctx, batch.ErrorFileID, path); err != nil {
				return nil, err
			}
			slog.Info("saved batch errors", "path", path)
		}
	case openai.BatchStatusFailed:
		slog.Error("batch failed", "batch_id", batch.ID, "failed_at", batch.FailedAt)
		if batch.ErrorFileID != "" {
			path := fmt.Sprintf("batch_errors_%s.jsonl", batch.ID)
			if err := s.downloadFile(ctx, batch.ErrorFileID, path); err != nil {
				return nil, err
			}
			slog.Info("saved batch errors", "path", path)
		}
	default:
		slog.Info("batch still in progress", "batch_id", batch.ID, "status", batch.Status)
	}

	if err := writeInfo(infoPath, info); err != nil {
		return nil, err
	}
	return info, nil
}

func (s *Service) downloadFile(ctx context.Context, fileID, path string) error {
	res, err := s.api.Files.Content(ctx, fileID)
	if err != nil {
		return fmt.Errorf("downloading file %s: %w", fileID, err)
	}
	defer res.Body.Close()

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, res.Body); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadInfo loads the batch bookkeeping file.
func ReadInfo(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch info %s: %w", path, err)
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parsing batch info %s: %w", path, err)
	}
	if info.BatchID == "" {
		return nil, fmt.Errorf("batch info %s has no batch_id", path)
	}
	return &info, nil
}

func writeInfo(path string, info *Info) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding batch info: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing batch info %s: %w", path, err)
	}
	return nil
}
