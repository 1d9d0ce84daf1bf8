// Package traq is a client for the messaging platform API: full-text
// message search, message lookup, and the stamp registry.
package traq

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"stampmeta/pkg/models"
)

const (
	// PageSize is how many messages one search request returns.
	PageSize = 100

	// MaxMessages caps harvesting per stamp; the search endpoint rejects
	// offsets much beyond this anyway.
	MaxMessages = 10000

	// Search window. Wide open on purpose: usage evidence has no recency
	// requirement.
	searchAfter  = "2006-01-02T15:04:05Z"
	searchBefore = "2026-01-02T15:04:05Z"
)

type Client struct {
	http *resty.Client
}

func NewClient(baseURL, bearerToken string) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json")
	if bearerToken != "" {
		client.SetAuthToken(bearerToken)
	}
	return &Client{http: client}
}

type searchResponse struct {
	TotalHits int64                    `json:"totalHits"`
	Hits      []models.PlatformMessage `json:"hits"`
}

// SearchMessages returns human messages whose body contains the stamp used
// inline, i.e. the exact phrase ":name:". Results come in chronological
// order and pagination stops at MaxMessages.
func (c *Client) SearchMessages(ctx context.Context, stampName string) ([]models.PlatformMessage, error) {
	word := fmt.Sprintf("%q", ":"+stampName+":")

	var all []models.PlatformMessage
	for offset := 0; offset < MaxMessages; offset += PageSize {
		var page searchResponse
		res, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"word":   word,
				"after":  searchAfter,
				"before": searchBefore,
				"bot":    "false",
				"limit":  strconv.Itoa(PageSize),
				"offset": strconv.Itoa(offset),
				"sort":   "createdAt",
			}).
			SetResult(&page).
			Get("/api/v3/messages")
		if err != nil {
			return nil, fmt.Errorf("searching messages for %s: %w", stampName, err)
		}
		if !res.IsSuccess() {
			return nil, fmt.Errorf("searching messages for %s: status %d: %s", stampName, res.StatusCode(), res.String())
		}

		all = append(all, page.Hits...)
		if len(page.Hits) < PageSize {
			break
		}
	}
	return all, nil
}

// GetMessage fetches one message by id.
func (c *Client) GetMessage(ctx context.Context, messageID string) (models.PlatformMessage, error) {
	var msg models.PlatformMessage
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&msg).
		Get("/api/v3/messages/" + messageID)
	if err != nil {
		return models.PlatformMessage{}, fmt.Errorf("fetching message %s: %w", messageID, err)
	}
	if !res.IsSuccess() {
		return models.PlatformMessage{}, fmt.Errorf("fetching message %s: status %d", messageID, res.StatusCode())
	}
	return msg, nil
}

// ListStamps fetches the full stamp registry.
func (c *Client) ListStamps(ctx context.Context) ([]models.Stamp, error) {
	var stamps []models.Stamp
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&stamps).
		Get("/api/v3/stamps")
	if err != nil {
		return nil, fmt.Errorf("listing stamps: %w", err)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("listing stamps: status %d", res.StatusCode())
	}
	return stamps, nil
}
