// Package fetcher retrieves raw result documents from the results API.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const DefaultUserAgent = "muniresults/1.0 (+https://resultados.tse.jus.br)"

// FetchError represents a failed retrieval of one result document
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Options configures a Client
type Options struct {
	// Timeout of each request; zero means no timeout.
	Timeout   time.Duration
	UserAgent string
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client fetches result documents over HTTP
type Client struct {
	http      *http.Client
	userAgent string
	logger    *zap.Logger
}

// New creates a new Client
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{http: hc, userAgent: ua, logger: logger}
}

// Fetch downloads the document at url and checks that it is well-formed JSON.
// Every failure is returned as a *FetchError.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	c.logger.Debug("fetched result document",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: errors.New("unexpected status code")}
	}
	if !json.Valid(body) {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: errors.New("malformed JSON body")}
	}
	return body, nil
}
