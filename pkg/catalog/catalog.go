// Package catalog fetches the option lists rich pickers are populated from.
// Lookups are cached per term for a TTL and concurrent lookups of the same
// term share one backend request.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-crmpanel/pkg/model"
)

// Catalog terms used by the panel.
const (
	TermRole     = "ROLE"
	TermLocation = "LOC"
	TermTag      = "TAG"
	TermSkill    = "SKL"
)

// Option is one catalog entry.
type Option struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// UnmarshalJSON accepts numeric and string ids.
func (o *Option) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    json.RawMessage `json:"id"`
		Title string          `json:"title"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Title = raw.Title
	id := strings.TrimSpace(string(raw.ID))
	if unquoted, err := unquote(id); err == nil {
		id = unquoted
	}
	if id == "null" {
		id = ""
	}
	o.ID = id
	return nil
}

func unquote(s string) (string, error) {
	var out string
	err := json.Unmarshal([]byte(s), &out)
	return out, err
}

// PickerItem is the {id, text} shape the picker widget consumes.
type PickerItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ToPicker maps catalog options to picker items.
func ToPicker(options []Option) []PickerItem {
	out := make([]PickerItem, 0, len(options))
	for _, opt := range options {
		out = append(out, PickerItem{ID: opt.ID, Text: opt.Title})
	}
	return out
}

// ToModel maps catalog options to form options.
func ToModel(options []Option) []model.Option {
	out := make([]model.Option, 0, len(options))
	for _, opt := range options {
		out = append(out, model.Option{ID: opt.ID, Label: opt.Title, Data: opt.ID})
	}
	return out
}

// Source resolves catalog terms.
type Source interface {
	Lookup(ctx context.Context, term string) ([]Option, error)
}

// SourceFunc adapts a function into a Source.
type SourceFunc func(ctx context.Context, term string) ([]Option, error)

// Lookup calls fn.
func (fn SourceFunc) Lookup(ctx context.Context, term string) ([]Option, error) {
	return fn(ctx, term)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTTL sets how long a term stays cached. Zero disables caching.
func WithTTL(ttl time.Duration) ClientOption {
	return func(c *Client) { c.ttl = ttl }
}

// WithLogger sets the client logger.
func WithLogger(l logrus.FieldLogger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTimeout bounds a single catalog fetch. The fetch is shared between
// concurrent callers and does not end when one of them gives up.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithClock overrides the time source used for cache expiry.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

type entry struct {
	options []Option
	expires time.Time
}

// Client queries the catalog endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	ttl      time.Duration
	timeout  time.Duration
	now      func() time.Time
	logger   logrus.FieldLogger

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]entry
}

// NewClient builds a client for the catalog endpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	c := &Client{
		endpoint: endpoint,
		http:     http.DefaultClient,
		ttl:      5 * time.Minute,
		timeout:  10 * time.Second,
		now:      time.Now,
		logger:   discard,
		cache:    make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the options for a term.
func (c *Client) Lookup(ctx context.Context, term string) ([]Option, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("catalog: term is required")
	}
	if cached, ok := c.cached(term); ok {
		return cached, nil
	}

	ch := c.group.DoChan(term, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		options, err := c.fetch(fetchCtx, term)
		if err != nil {
			return nil, err
		}
		c.store(term, options)
		return options, nil
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("catalog: lookup %s: %w", term, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		c.logger.WithFields(logrus.Fields{"term": term, "shared": res.Shared}).Debug("catalog lookup")
		return append([]Option(nil), res.Val.([]Option)...), nil
	}
}

// FetchMany looks up several terms concurrently. The first failure cancels
// the remaining lookups.
func (c *Client) FetchMany(ctx context.Context, terms []string) (map[string][]Option, error) {
	var mu sync.Mutex
	out := make(map[string][]Option, len(terms))
	g, gctx := errgroup.WithContext(ctx)
	for _, term := range terms {
		g.Go(func() error {
			options, err := c.Lookup(gctx, term)
			if err != nil {
				return err
			}
			mu.Lock()
			out[term] = options
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Invalidate drops a cached term, or every term when none is given.
func (c *Client) Invalidate(terms ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(terms) == 0 {
		c.cache = make(map[string]entry)
		return
	}
	for _, term := range terms {
		delete(c.cache, term)
	}
}

func (c *Client) cached(term string) ([]Option, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.cache[term]
	if !ok || c.now().After(e.expires) {
		return nil, false
	}
	return append([]Option(nil), e.options...), true
}

func (c *Client) store(term string, options []Option) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.cache[term] = entry{options: options, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *Client) fetch(ctx context.Context, term string) ([]Option, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", term)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch %s: %w", term, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("catalog: fetch %s: unexpected status %d", term, resp.StatusCode)
	}

	var options []Option
	if err := json.NewDecoder(resp.Body).Decode(&options); err != nil {
		return nil, fmt.Errorf("catalog: decode %s: %w", term, err)
	}
	return options, nil
}
