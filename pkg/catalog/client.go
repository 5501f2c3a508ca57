// Package catalog exposes typed query functions over the external
// game-catalog REST API. Each query is a pure mapping from parameters
// to a request URL and a deterministic cache key, delegated to a
// resilient fetcher.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/abdhe/game-catalog-proxy/pkg/fetch"
	"github.com/abdhe/game-catalog-proxy/pkg/keyring"
)

const (
	defaultBaseURL  = "https://api.rawg.io/api"
	defaultOrdering = "-rating"
	defaultPageSize = 20

	popularOrdering = "-released,-rating"
	popularPageSize = 10
	popularWindow   = 30 // days
)

const dateLayout = "2006-01-02"

// Config holds catalog client settings. Zero values pick the defaults
// above.
type Config struct {
	BaseURL  string
	Ordering string // default ordering for list queries
	PageSize int    // page size for list queries

	// Now supplies the clock for date-window queries. Defaults to
	// time.Now; tests pin it.
	Now func() time.Time
}

// Client answers catalog queries. List queries and detail lookups go
// through separate fetchers so each family keeps its own timeout.
type Client struct {
	baseURL  string
	ordering string
	pageSize int
	now      func() time.Time

	lists   *fetch.Fetcher
	details *fetch.Fetcher
	ring    *keyring.Ring
}

// NewClient creates a catalog client over the given fetchers and key ring.
func NewClient(cfg Config, lists, details *fetch.Fetcher, ring *keyring.Ring) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Ordering == "" {
		cfg.Ordering = defaultOrdering
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		ordering: cfg.Ordering,
		pageSize: cfg.PageSize,
		now:      cfg.Now,
		lists:    lists,
		details:  details,
		ring:     ring,
	}
}

// Popular returns the top-rated games released in the last windowDays
// days. The cache key depends only on the date pair, so every call made
// on the same day for the same window shares one cached envelope.
func (c *Client) Popular(ctx context.Context, windowDays int) (*GameList, error) {
	if windowDays <= 0 {
		windowDays = popularWindow
	}
	today := c.now().UTC()
	end := today.Format(dateLayout)
	start := today.AddDate(0, 0, -windowDays).Format(dateLayout)

	q := url.Values{}
	q.Set("dates", start+","+end)
	q.Set("ordering", popularOrdering)
	q.Set("page_size", strconv.Itoa(popularPageSize))

	cacheKey := fmt.Sprintf("popular_%s_%s", start, end)
	return fetchInto[GameList](ctx, c.lists, c.listURL("/games", q), cacheKey, c.ring)
}

// ByPlatform returns a page of games for one platform.
func (c *Client) ByPlatform(ctx context.Context, platformID, page int) (*GameList, error) {
	page = normalizePage(page)

	q := c.listQuery(page)
	q.Set("platforms", strconv.Itoa(platformID))

	cacheKey := fmt.Sprintf("platform_%d_page_%d", platformID, page)
	return fetchInto[GameList](ctx, c.lists, c.listURL("/games", q), cacheKey, c.ring)
}

// ByGenre returns a page of games for one genre.
func (c *Client) ByGenre(ctx context.Context, genreID, page int) (*GameList, error) {
	page = normalizePage(page)

	q := c.listQuery(page)
	q.Set("genres", strconv.Itoa(genreID))

	cacheKey := fmt.Sprintf("genre_%d_page_%d", genreID, page)
	return fetchInto[GameList](ctx, c.lists, c.listURL("/games", q), cacheKey, c.ring)
}

// Search returns a page of games matching a free-text query.
func (c *Client) Search(ctx context.Context, query string, page int) (*GameList, error) {
	page = normalizePage(page)

	q := c.listQuery(page)
	q.Set("search", query)

	cacheKey := fmt.Sprintf("search_%s_page_%d", query, page)
	return fetchInto[GameList](ctx, c.lists, c.listURL("/games", q), cacheKey, c.ring)
}

// Details returns the full record for one game. Detail lookups use the
// shorter-timeout fetcher.
func (c *Client) Details(ctx context.Context, gameID int) (*GameDetail, error) {
	u := fmt.Sprintf("%s/games/%d", c.baseURL, gameID)
	cacheKey := fmt.Sprintf("game_%d", gameID)
	return fetchInto[GameDetail](ctx, c.details, u, cacheKey, c.ring)
}

// Screenshots returns the screenshots attached to one game.
func (c *Client) Screenshots(ctx context.Context, gameID int) (*ScreenshotList, error) {
	u := fmt.Sprintf("%s/games/%d/screenshots", c.baseURL, gameID)
	cacheKey := fmt.Sprintf("screenshots_%d", gameID)
	return fetchInto[ScreenshotList](ctx, c.details, u, cacheKey, c.ring)
}

// Genres returns the full genre list.
func (c *Client) Genres(ctx context.Context) (*GenreList, error) {
	return fetchInto[GenreList](ctx, c.lists, c.baseURL+"/genres", "genres", c.ring)
}

// Platforms returns the full platform list.
func (c *Client) Platforms(ctx context.Context) (*PlatformList, error) {
	return fetchInto[PlatformList](ctx, c.lists, c.baseURL+"/platforms", "platforms", c.ring)
}

func (c *Client) listQuery(page int) url.Values {
	q := url.Values{}
	q.Set("ordering", c.ordering)
	q.Set("page_size", strconv.Itoa(c.pageSize))
	q.Set("page", strconv.Itoa(page))
	return q
}

func (c *Client) listURL(path string, q url.Values) string {
	return c.baseURL + path + "?" + q.Encode()
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// fetchInto delegates to the fetcher and decodes the raw payload into
// the typed envelope. The payload already passed a JSON validity check,
// so a decode failure here means the upstream shape changed.
func fetchInto[T any](ctx context.Context, f *fetch.Fetcher, rawURL, cacheKey string, ring *keyring.Ring) (*T, error) {
	payload, err := f.Fetch(ctx, rawURL, cacheKey, ring)
	if err != nil {
		return nil, err
	}

	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, &fetch.ParseError{Err: err}
	}
	return &out, nil
}
