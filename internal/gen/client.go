// Package gen issues generation requests to the remote LLM service and
// applies the differentiated retry policy: exponential backoff for rate
// limits, immediate abort for quota exhaustion and everything else.
package gen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"stampmeta/internal/prompt"
)

const (
	// DefaultMaxRetries bounds rate-limit retries per request.
	DefaultMaxRetries = 5

	// backoffBase is the first rate-limit wait; each retry doubles it
	// (60s, 120s, 240s, 480s, ...).
	backoffBase = 60 * time.Second

	requestTimeout = 120 * time.Second
)

// ImageSource resolves a stamp id to the image reference attached to its
// request (a data URL, or a remote URL as fallback).
type ImageSource interface {
	DataURL(ctx context.Context, id string) string
}

type Client struct {
	api        openai.Client
	model      string
	maxTokens  int64
	maxRetries int
	images     ImageSource
	usage      *UsageTracker

	// replaced in tests to observe the backoff schedule
	sleep func(time.Duration)
}

type ClientParams struct {
	BaseURL    string
	Model      string
	MaxTokens  int64
	MaxRetries int
	Images     ImageSource
	Usage      *UsageTracker
}

func NewClient(params ClientParams) *Client {
	var opts []option.RequestOption
	if params.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(params.BaseURL))
	}
	// The SDK retries internally by default; retry policy lives here so it
	// is disabled at the transport.
	opts = append(opts, option.WithMaxRetries(0))

	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	return &Client{
		api:        openai.NewClient(opts...),
		model:      params.Model,
		maxTokens:  params.MaxTokens,
		maxRetries: maxRetries,
		images:     params.Images,
		usage:      params.Usage,
		sleep:      time.Sleep,
	}
}

// Generate issues one generation request for a stamp, retrying only on rate
// limits. The returned error is always a *ClassifiedError.
func (c *Client) Generate(ctx context.Context, id, userPrompt string) (string, error) {
	imageURL := c.images.DataURL(ctx, id)

	params := openai.ChatCompletionNewParams{
		Model:          openai.ChatModel(c.model),
		Messages:       prompt.Messages(userPrompt, imageURL),
		MaxTokens:      openai.Int(c.maxTokens),
		ResponseFormat: prompt.ResponseFormat(),
	}

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		res, err := c.complete(ctx, params)
		if err == nil {
			if len(res.Choices) == 0 {
				return "", &ClassifiedError{Kind: FailureOther, Err: errors.New("response contains no choices")}
			}
			if c.usage != nil {
				c.usage.Record(c.model, res.Usage)
			}
			return res.Choices[0].Message.Content, nil
		}

		switch kind := Classify(err); kind {
		case FailureQuota:
			slog.Error("quota exhausted, not retrying", "stamp_id", id, "error", err)
			return "", &ClassifiedError{Kind: FailureQuota, Err: err}
		case FailureRateLimit:
			if attempt == c.maxRetries-1 {
				slog.Error("rate limit retries exhausted", "stamp_id", id, "attempts", c.maxRetries)
				return "", &ClassifiedError{Kind: FailureRateLimit, Err: fmt.Errorf("rate limit after %d attempts: %w", c.maxRetries, err)}
			}
			wait := backoffBase * (1 << attempt)
			slog.Warn("rate limited, backing off", "stamp_id", id, "wait", wait, "attempt", attempt+1)
			c.sleep(wait)
		default:
			slog.Error("generation request failed", "stamp_id", id, "error", err)
			return "", &ClassifiedError{Kind: FailureOther, Err: err}
		}
	}

	return "", &ClassifiedError{Kind: FailureOther, Err: errors.New("retry loop exited unexpectedly")}
}

func (c *Client) complete(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	callCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	return c.api.Chat.Completions.New(callCtx, params)
}
