// Package feed fetches and parses the external provider events feed.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ErrFeedUnavailable indicates the provider endpoint could not be
// fetched (transport failure or non-200 response).
var ErrFeedUnavailable = errors.New("feed unavailable")

// ClientOptions configures the feed client.
type ClientOptions struct {
	URL           string
	Timeout       time.Duration
	UserAgent     string
	RatePerSecond float64
	Burst         int
}

// Client fetches raw feed bytes from the provider endpoint. It does no
// parsing.
type Client struct {
	url        string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a feed client for the given provider endpoint.
func NewClient(opts ClientOptions) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Token-bucket limiter keeps scheduled and manually triggered
	// fetches within the provider's tolerated request rate.
	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	return &Client{
		url:       opts.URL,
		userAgent: opts.UserAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
	}
}

// Fetch performs a single GET against the provider endpoint and returns
// the raw response body. Any status other than 200 is a fetch failure.
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limit wait: %v", ErrFeedUnavailable, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrFeedUnavailable, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching feed: %v", ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: feed returned status %d", ErrFeedUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading feed body: %v", ErrFeedUnavailable, err)
	}

	return body, nil
}
