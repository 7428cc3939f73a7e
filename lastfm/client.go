// Package lastfm is a small client for the Last.fm web API methods used to
// build the correlation corpus and to fetch reference similarity rankings.
package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL       = "http://ws.audioscrobbler.com/2.0/"
	DefaultInterval      = 1500 * time.Millisecond
	DefaultMaxAttempts   = 4
	DefaultBackoff       = 2 * time.Second
	DefaultBackoffFactor = 2.0
	DefaultMaxBackoff    = 30 * time.Second
	DefaultTimeout       = 30 * time.Second
)

// ErrMissingAPIKey is returned when neither the config nor LASTFM_API_KEY
// provides a key.
var ErrMissingAPIKey = errors.New("lastfm: API key is required")

// Config provides configuration options for the client.
type Config struct {
	APIKey  string
	BaseURL string

	// Interval is the minimum pause between two requests.
	Interval time.Duration

	// MaxAttempts bounds the tries per request, the first one included.
	MaxAttempts   int
	Backoff       time.Duration
	BackoffFactor float64
	BackoffJitter float64
	MaxBackoff    time.Duration

	Timeout    time.Duration
	HTTPClient *http.Client
}

// DefaultConfig returns the pacing and retry settings used by the loader.
func DefaultConfig() Config {
	return Config{
		BaseURL:       DefaultBaseURL,
		Interval:      DefaultInterval,
		MaxAttempts:   DefaultMaxAttempts,
		Backoff:       DefaultBackoff,
		BackoffFactor: DefaultBackoffFactor,
		BackoffJitter: 0.1,
		MaxBackoff:    DefaultMaxBackoff,
		Timeout:       DefaultTimeout,
	}
}

// Client calls the Last.fm API. Requests are paced by a token bucket shared
// by all methods and retried with exponential backoff on transient failures.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client. Zero config fields take their defaults.
func NewClient(cfg Config) (*Client, error) {
	def := DefaultConfig()
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("LASTFM_API_KEY")
		if cfg.APIKey == "" {
			return nil, ErrMissingAPIKey
		}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Interval < 0 {
		cfg.Interval = 0
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = def.Backoff
	}
	if cfg.BackoffFactor < 1 {
		cfg.BackoffFactor = def.BackoffFactor
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}

	return &Client{
		cfg:     cfg,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// APIError is an error payload returned by the API.
type APIError struct {
	Code    int    `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lastfm: error %d: %s", e.Code, e.Message)
}

// Temporary reports whether retrying the request may succeed.
func (e *APIError) Temporary() bool {
	switch e.Code {
	case 8, 11, 16, 29: // operation failed, service offline, temporary error, rate limit
		return true
	}
	return false
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("lastfm: unexpected HTTP status %d", e.code)
}

func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	var stErr *statusError
	if errors.As(err, &stErr) {
		return stErr.code == http.StatusTooManyRequests || stErr.code >= 500
	}
	// Transport failures and malformed bodies
	return true
}

// call performs one API method with retries and decodes the body into out.
func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("method", method)
	q.Set("api_key", c.cfg.APIKey)
	q.Set("format", "json")
	reqURL := c.cfg.BaseURL + "?" + q.Encode()

	backoff := c.cfg.Backoff
	var err error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if werr := c.limiter.Wait(ctx); werr != nil {
			return errors.Wrap(werr, "rate limiter")
		}

		err = c.fetch(ctx, reqURL, out)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !retryable(err) || attempt == c.cfg.MaxAttempts {
			break
		}

		wait := backoff
		if c.cfg.BackoffJitter > 0 {
			wait += time.Duration(rand.Float64() * c.cfg.BackoffJitter * float64(backoff))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		backoff = min(time.Duration(float64(backoff)*c.cfg.BackoffFactor), c.cfg.MaxBackoff)
	}
	return errors.Wrapf(err, "%s failed", method)
}

func (c *Client) fetch(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	// Error payloads come with 200 as well as 4xx/5xx statuses.
	var apiErr APIError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != 0 {
		return &apiErr
	}
	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode}
	}

	return json.Unmarshal(body, out)
}
