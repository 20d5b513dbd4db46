// Package vpic provides a client for the NHTSA vPIC batch VIN decoder.
package vpic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// maxSnippet bounds how much of an upstream error body is surfaced.
const maxSnippet = 800

// ResultKind tags the two shapes a successful decode can take.
type ResultKind string

const (
	// KindJSON means the upstream honored the JSON format request.
	KindJSON ResultKind = "json"
	// KindXML means the upstream ignored it and returned markup. This is
	// still a success at this layer; the caller decides what to do.
	KindXML ResultKind = "xml"
)

// BatchResult is the tagged outcome of a batch decode. Exactly one of
// JSON or XML is populated, per Kind.
type BatchResult struct {
	Kind ResultKind
	JSON json.RawMessage
	XML  string
}

// StatusError reports a non-success upstream status, carrying a truncated
// body snippet for diagnostics.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("vpic: upstream status %d", e.StatusCode)
}

// Config configures the decoder client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client calls the vPIC batch decode endpoint.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
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

// NewClient creates a decoder client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: timeout,
		// No Timeout on the http.Client itself: the per-call context
		// deadline below owns cancellation.
		http: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DecodeBatch decodes a batch of VINs in a single upstream round trip.
// The batch is sent as one form field joined by CRLF, which the vPIC
// batch protocol mandates. JSON output is requested three ways (form
// field, Accept header, query parameter) because the service has honored
// either signal inconsistently; if XML still comes back the result is
// returned as the XML variant rather than an error.
//
// The call is bounded by a hard timeout and actively cancelled on expiry.
func (c *Client) DecodeBatch(ctx context.Context, vins []string) (*BatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	form := url.Values{}
	form.Set("DATA", strings.Join(vins, "\r\n"))
	form.Set("format", "json")

	endpoint := c.baseURL + "/vehicles/DecodeVINValuesBatch/?format=json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "vpic: create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "vpic: decode batch")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "vpic: read body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), maxSnippet)}
	}

	ct := resp.Header.Get("Content-Type")
	if strings.Contains(ct, "application/json") {
		if !json.Valid(body) {
			return nil, eris.New("vpic: upstream body is not valid JSON")
		}
		return &BatchResult{Kind: KindJSON, JSON: body}, nil
	}
	return &BatchResult{Kind: KindXML, XML: string(body)}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
