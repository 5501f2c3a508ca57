// Package video queries the external video-platform search API for
// game-related videos. It uses the same fetch treatment as the catalog
// client, with 403 as the only credential-rotating status.
package video

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/abdhe/game-catalog-proxy/pkg/fetch"
	"github.com/abdhe/game-catalog-proxy/pkg/keyring"
)

const (
	defaultBaseURL    = "https://www.googleapis.com/youtube/v3"
	defaultMaxResults = 10
)

// SearchParams are the typed filters for a video search.
type SearchParams struct {
	Query      string
	ChannelID  string
	Order      string // defaults to "relevance"
	MaxResults int    // defaults to 10
}

// SearchResult is the envelope returned by the search endpoint.
type SearchResult struct {
	Items []Item `json:"items"`
}

// Item is one video search hit.
type Item struct {
	ID      ItemID  `json:"id"`
	Snippet Snippet `json:"snippet"`
}

// ItemID carries the platform's video identifier.
type ItemID struct {
	VideoID string `json:"videoId"`
}

// Snippet is the display metadata for a video.
type Snippet struct {
	Title        string `json:"title"`
	ChannelTitle string `json:"channelTitle"`
	PublishedAt  string `json:"publishedAt"`
}

// Client answers video search queries.
type Client struct {
	baseURL string
	fetcher *fetch.Fetcher
	ring    *keyring.Ring
}

// NewClient creates a video client. baseURL may be empty for the default.
func NewClient(baseURL string, fetcher *fetch.Fetcher, ring *keyring.Ring) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{baseURL: baseURL, fetcher: fetcher, ring: ring}
}

// Search performs a video search. The cache key combines every
// result-affecting parameter.
func (c *Client) Search(ctx context.Context, p SearchParams) (*SearchResult, error) {
	if p.Order == "" {
		p.Order = "relevance"
	}
	if p.MaxResults <= 0 {
		p.MaxResults = defaultMaxResults
	}

	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("type", "video")
	q.Set("q", p.Query)
	q.Set("order", p.Order)
	q.Set("maxResults", strconv.Itoa(p.MaxResults))
	if p.ChannelID != "" {
		q.Set("channelId", p.ChannelID)
	}

	// The encoded query escapes and sorts every parameter, so two
	// different searches can never collapse onto one key.
	cacheKey := "videos_" + q.Encode()

	payload, err := c.fetcher.Fetch(ctx, c.baseURL+"/search?"+q.Encode(), cacheKey, c.ring)
	if err != nil {
		return nil, err
	}

	var out SearchResult
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, &fetch.ParseError{Err: err}
	}
	return &out, nil
}
