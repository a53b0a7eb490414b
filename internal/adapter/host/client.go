// Package host is an HTTP client for a remote host scene service.
package host

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/weather-fx-panel/internal/scene"
)

// ErrIDChanged is returned when a mutator rewrites an item id.
var ErrIDChanged = errors.New("mutator changed an item id")

// Client implements scene.SelectionProvider, scene.ItemReader and
// scene.ItemWriter. Transactions are optimistic: items are read with their
// revision and written back with If-Match.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a client for the host service at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Selection returns the player's current selection.
func (c *Client) Selection(ctx context.Context) ([]string, error) {
	var resp selectionResponse
	if _, err := c.getJSON(ctx, c.baseURL+"/selection", &resp); err != nil {
		return nil, fmt.Errorf("get selection: %w", err)
	}
	return resp.Selection, nil
}

// Items returns a snapshot of the items with the given ids.
func (c *Client) Items(ctx context.Context, ids []string) ([]scene.Item, error) {
	items, _, err := c.items(ctx, ids)
	return items, err
}

// UpdateItems reads the items, applies mutate and writes them back. A
// concurrent change on the host fails the write with scene.ErrConflict.
func (c *Client) UpdateItems(ctx context.Context, ids []string, mutate scene.Mutator) error {
	items, revision, err := c.items(ctx, ids)
	if err != nil {
		return err
	}

	work := make([]*scene.Item, len(items))
	for i := range items {
		work[i] = &items[i]
	}
	before := make([]string, len(items))
	for i, it := range items {
		before[i] = it.ID
	}

	mutate(work)

	for i, it := range work {
		if it.ID != before[i] {
			return ErrIDChanged
		}
	}

	body, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/items", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if revision != "" {
		req.Header.Set("If-Match", revision)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("update items request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPreconditionFailed:
		return scene.ErrConflict
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("host API error: status %d: %s", resp.StatusCode, bytes.TrimSpace(b))
	}

	c.logger.Debug("host transaction committed", "items", len(items), "revision", revision)
	return nil
}

// CheckReadiness reports whether the host service answers.
func (c *Client) CheckReadiness(ctx context.Context) error {
	_, err := c.Selection(ctx)
	return err
}

func (c *Client) items(ctx context.Context, ids []string) ([]scene.Item, string, error) {
	if len(ids) == 0 {
		return nil, "", nil
	}
	params := url.Values{"id": ids}
	var items []scene.Item
	revision, err := c.getJSON(ctx, c.baseURL+"/items?"+params.Encode(), &items)
	if err != nil {
		return nil, "", fmt.Errorf("get items: %w", err)
	}
	return items, revision, nil
}

// getJSON decodes a GET response into v and returns its ETag.
func (c *Client) getJSON(ctx context.Context, fullURL string, v any) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("host API error: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return resp.Header.Get("ETag"), nil
}

// Host API response types.

type selectionResponse struct {
	Selection []string `json:"selection"`
}
