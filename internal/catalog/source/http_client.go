package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	pkgerrors "github.com/fanloremedia/fanlore/pkg/errors"
)

// Client fetches candidate records from the video metadata API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new video metadata source client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchPage retrieves one page of candidate records for a celebrity.
func (c *Client) FetchPage(ctx context.Context, celebritySlug, pageToken string, pageSize int) (*Page, error) {
	endpoint := fmt.Sprintf("%s/v1/celebrities/%s/videos", c.baseURL, url.PathEscape(celebritySlug))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	q := req.URL.Query()
	q.Set("api_key", c.apiKey)
	q.Set("page_size", fmt.Sprintf("%d", pageSize))
	if pageToken != "" {
		q.Set("page_token", pageToken)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, pkgerrors.Timeout("metadata source fetch timed out", err)
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return nil, pkgerrors.Timeout("metadata source fetch timed out", err)
		}
		return nil, pkgerrors.ExternalFetchFailure("metadata source request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.ExternalFetchFailure(
			fmt.Sprintf("metadata source returned status %d", resp.StatusCode), nil)
	}

	var page Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, pkgerrors.ExternalFetchFailure("decoding metadata source response", err)
	}

	return &page, nil
}
