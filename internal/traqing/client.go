// Package traqing is a client for the stamp analytics API, which records
// every reaction. It yields the message ids a stamp was attached to; the
// messaging API resolves those to full messages.
package traqing

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	PageSize   = 100
	MaxRecords = 10000

	recordsAfter  = "2006-01-02T15:00:00.000Z"
	recordsBefore = "2026-01-02T14:59:59.999Z"
)

// UsageRecord is one reaction aggregate grouped by message.
type UsageRecord struct {
	MessageID string `json:"message"`
	Count     int    `json:"count"`
}

type Client struct {
	http *resty.Client
}

// NewClient builds a client authenticated with the platform session cookie.
func NewClient(baseURL, authToken string) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json")
	if authToken != "" {
		client.SetCookie(&http.Cookie{Name: "traq-auth-token", Value: authToken})
	}
	return &Client{http: client}
}

// StampUsages returns the reaction records for one stamp, grouped by
// message, oldest first, bots excluded. Pagination stops at MaxRecords.
func (c *Client) StampUsages(ctx context.Context, stampID string) ([]UsageRecord, error) {
	var all []UsageRecord
	for offset := 0; offset < MaxRecords; offset += PageSize {
		var page []UsageRecord
		res, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"stampId": stampID,
				"isBot":   "false",
				"groupBy": "message",
				"orderBy": "date",
				"order":   "asc",
				"limit":   strconv.Itoa(PageSize),
				"offset":  strconv.Itoa(offset),
				"after":   recordsAfter,
				"before":  recordsBefore,
			}).
			SetResult(&page).
			Get("/api/stamps")
		if err != nil {
			return nil, fmt.Errorf("fetching usages for stamp %s: %w", stampID, err)
		}
		if !res.IsSuccess() {
			return nil, fmt.Errorf("fetching usages for stamp %s: status %d: %s", stampID, res.StatusCode(), res.String())
		}

		all = append(all, page...)
		if len(page) < PageSize {
			break
		}
	}
	return all, nil
}
