// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the retrying HTTP client shared by every
// upstream adapter.
package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/literature-scout/pkg/types"
)

const (
	// DefaultMaxAttempts is the total number of attempts per request.
	DefaultMaxAttempts = 4

	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 40 * time.Second

	// maxErrorBody caps how much of a failed response body is kept.
	maxErrorBody = 512
)

// Backoff bounds. Tests override these to avoid real sleeps.
var (
	RetryBaseDelay = 80 * time.Millisecond
	RetryMaxDelay  = 3 * time.Second
)

// ErrMalformedResponse marks a 2xx response whose body could not be decoded.
// It is terminal: retrying would return the same bytes.
var ErrMalformedResponse = errors.New("malformed response")

// StatusError is returned for a non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s returned HTTP %d: %s", e.URL, e.StatusCode, e.Body)
}

// Transient reports whether the status is a server-side failure worth retrying.
func (e *StatusError) Transient() bool {
	return e.StatusCode >= 500 && e.StatusCode <= 599
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Request describes one logical call. The zero values of MaxAttempts and
// Timeout select the defaults.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Params url.Values

	// Body is sent verbatim on every attempt.
	Body        []byte
	ContentType string

	MaxAttempts int
	Timeout     time.Duration
}

// Client issues requests with bounded retry and exponential backoff.
// Attempts are strictly sequential and the client keeps no state between
// calls apart from its optional rate limiter.
type Client struct {
	HTTP      *http.Client
	UserAgent string

	// BaseDelay and MaxDelay override RetryBaseDelay and RetryMaxDelay when non-zero.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// MaxAttempts and Timeout apply when a Request leaves them unset.
	MaxAttempts int
	Timeout     time.Duration

	// Limiter, when set, is waited on before every attempt.
	Limiter *rate.Limiter

	// Sleep blocks between attempts. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

// NewClient builds a Client from configuration.
func NewClient(httpCfg types.HTTPConfig, retry types.RetryConfig) *Client {
	return &Client{
		HTTP:        &http.Client{},
		UserAgent:   httpCfg.UserAgent,
		BaseDelay:   retry.BaseDelay,
		MaxDelay:    retry.MaxDelay,
		MaxAttempts: retry.MaxAttempts,
		Timeout:     httpCfg.Timeout,
	}
}

// WithLimit returns a shallow copy of c that waits on a limiter allowing
// rps requests per second. A non-positive rps returns c unchanged.
func (c *Client) WithLimit(rps float64) *Client {
	if rps <= 0 {
		return c
	}
	cp := *c
	cp.Limiter = rate.NewLimiter(rate.Limit(rps), 1)
	return &cp
}

// Response is a successful reply.
type Response struct {
	Body   []byte
	Header http.Header
}

// Do executes req and returns the body of the first 2xx response.
// See Fetch for the retry rules.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	resp, err := c.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Fetch executes req and returns the first 2xx response with its headers.
//
// 5xx responses, network errors, and per-attempt timeouts are retried up
// to MaxAttempts total. Any other non-2xx status is returned at once as a
// *StatusError. The delay starts at the base delay, doubles after each
// failed attempt, and is capped at the max delay. After the final attempt
// the last failure is returned.
func (c *Client) Fetch(ctx context.Context, req Request) (*Response, error) {
	attempts := req.MaxAttempts
	if attempts <= 0 {
		attempts = c.MaxAttempts
	}
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	delay := c.baseDelay()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := c.attempt(ctx, req)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		if !isTransient(err) || attempt == attempts {
			break
		}

		c.sleep(delay)
		delay = min(delay*2, c.maxDelay())
	}
	return nil, lastErr
}

// RequestJSON executes req and decodes the 2xx body as JSON into v.
func (c *Client) RequestJSON(ctx context.Context, req Request, v any) error {
	body, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: decoding JSON from %s: %v", ErrMalformedResponse, req.URL, err)
	}
	return nil
}

// RequestXML executes req and decodes the 2xx body as XML into v.
func (c *Client) RequestXML(ctx context.Context, req Request, v any) error {
	body, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: decoding XML from %s: %v", ErrMalformedResponse, req.URL, err)
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, req Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.Timeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := req.URL
	if len(req.Params) > 0 {
		target += "?" + req.Params.Encode()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, method, target, body)
	if err != nil {
		return nil, &terminalError{fmt.Errorf("creating request: %w", err)}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	if c.UserAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.UserAgent)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, req.URL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", req.URL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := data
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: req.URL, Body: string(bytes.TrimSpace(snippet))}
	}
	return &Response{Body: data, Header: resp.Header}, nil
}

// terminalError wraps failures that happen before anything is sent.
type terminalError struct{ err error }

func (e *terminalError) Error() string { return e.err.Error() }
func (e *terminalError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var te *terminalError
	if errors.As(err, &te) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}
	// Transport failures and per-attempt deadlines.
	return true
}

func (c *Client) baseDelay() time.Duration {
	if c.BaseDelay > 0 {
		return c.BaseDelay
	}
	return RetryBaseDelay
}

func (c *Client) maxDelay() time.Duration {
	if c.MaxDelay > 0 {
		return c.MaxDelay
	}
	return RetryMaxDelay
}

func (c *Client) sleep(d time.Duration) {
	if c.Sleep != nil {
		c.Sleep(d)
		return
	}
	time.Sleep(d)
}
