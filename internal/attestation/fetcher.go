package attestation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/metrics"
)

const (
	// DefaultBaseURL is the public syndication endpoint for posts.
	DefaultBaseURL = "https://cdn.syndication.twimg.com"

	// DefaultTimeout bounds a single fetch.
	DefaultTimeout = 10 * time.Second

	// maxBodySize caps how much of an untrusted response is read.
	maxBodySize = 1 << 20
)

// ErrFetchFailed wraps every failure to obtain post content.
var ErrFetchFailed = errors.New("could not fetch post")

// Fetcher retrieves the public text of a post by id.
type Fetcher interface {
	FetchContent(ctx context.Context, postID string) (string, error)
}

// HTTPFetcher fetches posts from the syndication API. Zero fields fall
// back to DefaultBaseURL, DefaultTimeout and a client bounded by the timeout.
type HTTPFetcher struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewHTTPFetcher creates a fetcher. Empty or zero arguments fall back to defaults.
func NewHTTPFetcher(baseURL string, timeout time.Duration) *HTTPFetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPFetcher{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Timeout:    timeout,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// FetchContent returns the post text. Transport errors, timeouts and
// non-2xx responses are all reported as ErrFetchFailed. A post without a
// text field yields an empty string.
func (f *HTTPFetcher) FetchContent(ctx context.Context, postID string) (text string, err error) {
	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.AttestationFetchDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}()

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	baseURL := strings.TrimRight(f.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	endpoint := fmt.Sprintf("%s/tweet-result?id=%s&token=a", baseURL, url.QueryEscape(postID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	client := f.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: upstream status %d", ErrFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: malformed response body", ErrFetchFailed)
	}

	return gjson.GetBytes(body, "text").String(), nil
}
