package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultBaseURL is the public YouTube Data API v3 endpoint.
const DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

// Video is one search hit, trimmed to the fields the recommendation
// pipeline consumes.
type Video struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	VideoID     string `json:"videoId"`
}

// Client queries the YouTube Data API v3 for candidate videos.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Client. Pass an empty baseURL to use the public endpoint.
func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// searchResponse mirrors the slice of search.list we consume.
type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"snippet"`
	} `json:"items"`
}

// Search returns up to maxResults videos for the query.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Video, error) {
	if query == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search: unexpected status %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	videos := make([]Video, 0, len(result.Items))
	for _, item := range result.Items {
		if item.ID.VideoID == "" {
			continue
		}
		videos = append(videos, Video{
			Title:       item.Snippet.Title,
			Description: item.Snippet.Description,
			VideoID:     item.ID.VideoID,
		})
	}
	return videos, nil
}

const searchConcurrency = 4

// SearchMany searches several terms concurrently and returns the combined
// hits, deduplicated by video id, in term order then hit order. Used by the
// landing page flow to fill multiple category sections in one round trip.
func (c *Client) SearchMany(ctx context.Context, terms []string, perTerm int) ([]Video, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	results := make([][]Video, len(terms))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(searchConcurrency)

	for i, term := range terms {
		g.Go(func() error {
			videos, err := c.Search(gCtx, term, perTerm)
			if err != nil {
				return fmt.Errorf("searching %q: %w", term, err)
			}
			results[i] = videos
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var combined []Video
	seen := make(map[string]bool)
	for _, batch := range results {
		for _, v := range batch {
			if seen[v.VideoID] {
				continue
			}
			seen[v.VideoID] = true
			combined = append(combined, v)
		}
	}
	return combined, nil
}
