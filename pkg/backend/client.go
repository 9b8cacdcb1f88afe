// Package backend talks to the CRM backend: record fetches for editing,
// form submissions and preview documents. Calls carry the caller's context
// and are never retried.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrForeignLink is returned for links that resolve outside the backend origin.
var ErrForeignLink = errors.New("backend: link outside backend origin")

// ErrBodyTooLarge is returned when a response exceeds the client's body limit.
var ErrBodyTooLarge = errors.New("backend: response body too large")

// DefaultMaxBodyBytes bounds response bodies unless WithMaxBodyBytes says otherwise.
const DefaultMaxBodyBytes = 8 << 20

// Error is a non-2xx backend response.
type Error struct {
	Method string
	URL    string
	Status int
	// Fields holds decoded validation messages keyed as the backend sent them.
	Fields map[string][]string
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend: %s %s: status %d", e.Method, e.URL, e.Status)
}

// IsValidation reports whether the backend rejected the payload itself.
func (e *Error) IsValidation() bool {
	return e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity
}

// AsError unwraps a *Error from err.
func AsError(err error) (*Error, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger failures are reported to.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxBodyBytes bounds how much of a response body is read.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

// Client calls backend endpoints relative to a base URL.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	logger  logrus.FieldLogger
	headers http.Header
	maxBody int64
}

// New builds a client. Relative endpoints resolve against baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("backend: parse base url: %w", err)
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	c := &Client{
		base:    base,
		http:    http.DefaultClient,
		timeout: 10 * time.Second,
		logger:  discard,
		headers: make(http.Header),
		maxBody: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Resolve turns an endpoint or link into an absolute URL. Links pointing at
// another scheme or host fail with ErrForeignLink so the configured headers
// never leave the backend origin.
func (c *Client) Resolve(ref string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("backend: parse %q: %w", ref, err)
	}
	target := c.base.ResolveReference(u)
	if !strings.EqualFold(target.Scheme, c.base.Scheme) || !strings.EqualFold(target.Host, c.base.Host) || target.User != nil {
		return "", fmt.Errorf("%w: %q", ErrForeignLink, ref)
	}
	return target.String(), nil
}

// RecordURL joins a record endpoint and id as "<endpoint>/<id>/".
func RecordURL(endpoint, id string) string {
	return strings.TrimSuffix(endpoint, "/") + "/" + url.PathEscape(strings.TrimSpace(id)) + "/"
}

// Record fetches a record for editing.
func (c *Client) Record(ctx context.Context, endpoint, id string) (map[string]any, error) {
	var record map[string]any
	if err := c.do(ctx, http.MethodGet, RecordURL(endpoint, id), nil, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// Submit posts a payload and decodes the response body, when any, into out.
func (c *Client) Submit(ctx context.Context, endpoint string, payload any, out any) error {
	return c.do(ctx, http.MethodPost, endpoint, payload, out)
}

// Fetch retrieves the raw JSON body of an arbitrary link.
func (c *Client) Fetch(ctx context.Context, link string) ([]byte, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, link, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, method, ref string, body any, out any) error {
	target, err := c.Resolve(ref)
	if err != nil {
		return err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: encode body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.logger.WithFields(logrus.Fields{"method": method, "url": target})
	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Error("backend request failed")
		return fmt.Errorf("backend: %s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return fmt.Errorf("backend: read %s: %w", target, err)
	}
	if int64(len(data)) > c.maxBody {
		log.WithField("limit", c.maxBody).Warn("backend response too large")
		return fmt.Errorf("%w: %s", ErrBodyTooLarge, target)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		berr := &Error{Method: method, URL: target, Status: resp.StatusCode, Body: string(data), Fields: decodeFieldErrors(data)}
		log.WithField("status", resp.StatusCode).Warn("backend rejected request")
		return berr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("backend: decode %s: %w", target, err)
	}
	return nil
}

// decodeFieldErrors reads {"field": ["msg"]} or {"field": "msg"} bodies.
// Nested {"errors": {...}} envelopes are unwrapped.
func decodeFieldErrors(data []byte) map[string][]string {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	if nested, ok := raw["errors"].(map[string]any); ok {
		raw = nested
	}
	out := make(map[string][]string)
	var walk func(prefix string, v any)
	walk = func(prefix string, v any) {
		switch val := v.(type) {
		case string:
			out[prefix] = append(out[prefix], val)
		case []any:
			for idx, item := range val {
				switch item.(type) {
				case string:
					walk(prefix, item)
				default:
					walk(fmt.Sprintf("%s.%d", prefix, idx), item)
				}
			}
		case map[string]any:
			for key, item := range val {
				next := key
				if prefix != "" {
					next = prefix + "." + key
				}
				walk(next, item)
			}
		}
	}
	for key, value := range raw {
		walk(key, value)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
