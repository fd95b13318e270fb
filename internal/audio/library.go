package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/reelworks/reeledit/pkg/schema"
)

// LibraryClient fetches the music catalog from the backing service.
type LibraryClient struct {
	baseURL string
	hc      *http.Client
}

// NewLibraryClient builds a client for the service at baseURL.
func NewLibraryClient(baseURL string) *LibraryClient {
	return &LibraryClient{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 15 * time.Second},
	}
}

// Biblioteca returns the full track catalog.
func (c *LibraryClient) Biblioteca(ctx context.Context) ([]schema.Track, error) {
	return c.fetch(ctx, "/api/Musica/biblioteca")
}

// Trending returns the trending subset of the catalog.
func (c *LibraryClient) Trending(ctx context.Context) ([]schema.Track, error) {
	return c.fetch(ctx, "/api/Musica/trending")
}

func (c *LibraryClient) fetch(ctx context.Context, path string) ([]schema.Track, error) {
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("build music library url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build music library request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch %s: status %d: %s", path, resp.StatusCode, body)
	}

	var tracks []schema.Track
	if err := json.NewDecoder(resp.Body).Decode(&tracks); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, err)
	}
	return tracks, nil
}
