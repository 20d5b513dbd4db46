// Package socrata provides a read-only client for the FMCSA carrier
// census dataset hosted on the Socrata open-data platform.
package socrata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// StatusError reports a non-success response from the catalog.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("socrata: upstream status %d", e.StatusCode)
}

// Config configures the catalog client.
type Config struct {
	BaseURL    string
	Dataset    string
	AppToken   string
	Timeout    time.Duration
	RatePerSec float64
}

// Client queries the carrier census dataset.
type Client struct {
	baseURL  string
	dataset  string
	appToken string
	http     *http.Client
	limiter  *rate.Limiter
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a catalog client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		// Socrata throttles tokenless clients aggressively; stay polite.
		perSec = 10
	}
	c := &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		dataset:  cfg.Dataset,
		appToken: cfg.AppToken,
		http:     &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(perSec), int(perSec)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search issues a paginated query against the dataset. limit and offset
// are passed through as-is; the catalog rejects out-of-range values
// itself. A non-empty q is translated to a $where clause by Where; an
// empty q omits the clause entirely.
//
// The body is returned as an opaque JSON value: this layer does not own
// the dataset schema and does not impose one.
func (c *Client) Search(ctx context.Context, q, limit, offset string) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "socrata: rate limiter wait")
	}

	u := fmt.Sprintf("%s/resource/%s.json?$limit=%s&$offset=%s", c.baseURL, c.dataset, queryEscape(limit), queryEscape(offset))
	if where := Where(q); where != "" {
		// The expression is pre-encoded except for its spaces.
		u += "&$where=" + strings.ReplaceAll(where, " ", "%20")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "socrata: create request")
	}
	if c.appToken != "" {
		req.Header.Set("X-App-Token", c.appToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "socrata: search")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "socrata: read body")
	}
	if !json.Valid(body) {
		return nil, eris.New("socrata: upstream body is not valid JSON")
	}
	return body, nil
}

// queryEscape escapes a raw pagination value for URL embedding without
// altering its meaning.
func queryEscape(v string) string {
	r := strings.NewReplacer(" ", "%20", "&", "%26", "#", "%23", "+", "%2B")
	return r.Replace(v)
}
