package navigation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-crmpanel/pkg/preview"
	"github.com/goliatone/go-crmpanel/pkg/session"
)

var (
	// ErrStale is returned when a newer load was issued for the same session
	// while this one was in flight. The response is discarded.
	ErrStale = errors.New("navigation: stale response")
	// ErrNoLink is returned by Drill for rows without a link.
	ErrNoLink = errors.New("navigation: no link")
	// ErrEmptyStack is returned by Back when there is nowhere to go.
	ErrEmptyStack = errors.New("navigation: stack is empty")
)

// Session keys.
const (
	StackKey   = "nav:stack"
	TokenKey   = "nav:token"
	CurrentKey = "nav:current"
)

// Fetcher loads a preview document.
type Fetcher interface {
	Fetch(ctx context.Context, link string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, link string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, link string) ([]byte, error) {
	return f(ctx, link)
}

// Renderer renders raw preview documents.
type Renderer interface {
	RenderJSON(raw []byte, opts ...preview.RenderOption) (preview.Result, error)
}

// View is what the HTTP layer sends back after a navigation.
type View struct {
	HTML        string   `json:"html"`
	GridIDs     []string `json:"grid_ids"`
	BackVisible bool     `json:"back_visible"`
	Current     string   `json:"current"`
	Depth       int      `json:"depth"`
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithLogger attaches a logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(n *Navigator) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithObserver registers a callback invoked after every load with the action
// name and outcome.
func WithObserver(fn func(action string, err error)) Option {
	return func(n *Navigator) {
		n.observe = fn
	}
}

// Navigator drives the preview pane for many sessions.
type Navigator struct {
	fetcher  Fetcher
	renderer Renderer
	store    session.Store
	logger   logrus.FieldLogger
	observe  func(action string, err error)
}

// New builds a Navigator.
func New(fetcher Fetcher, renderer Renderer, store session.Store, opts ...Option) *Navigator {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	n := &Navigator{
		fetcher:  fetcher,
		renderer: renderer,
		store:    store,
		logger:   discard,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n
}

// Open loads link from the outer page grid. The stack is cleared.
func (n *Navigator) Open(ctx context.Context, sid, link string) (View, error) {
	if link == "" {
		return View{}, ErrNoLink
	}
	token, err := n.issue(ctx, sid)
	if err != nil {
		return View{}, err
	}
	view, err := n.load(ctx, sid, token, link, NewStack())
	n.report("open", err)
	return view, err
}

// Drill loads link from a row inside the pane. The currently displayed link
// is pushed first; when current is empty the last loaded link is used.
func (n *Navigator) Drill(ctx context.Context, sid, current, link string) (View, error) {
	if link == "" {
		return View{}, ErrNoLink
	}
	token, err := n.issue(ctx, sid)
	if err != nil {
		return View{}, err
	}
	if current == "" {
		current, err = n.Current(ctx, sid)
		if err != nil {
			return View{}, err
		}
	}
	stack, err := n.Stack(ctx, sid)
	if err != nil {
		return View{}, err
	}
	stack.Push(current)
	view, err := n.load(ctx, sid, token, link, stack)
	n.report("drill", err)
	return view, err
}

// Back pops one entry and reloads it. The stored stack only shrinks once the
// reload succeeds.
func (n *Navigator) Back(ctx context.Context, sid string) (View, error) {
	stack, err := n.Stack(ctx, sid)
	if err != nil {
		return View{}, err
	}
	previous, ok := stack.Pop()
	if !ok {
		return View{}, ErrEmptyStack
	}
	token, err := n.issue(ctx, sid)
	if err != nil {
		return View{}, err
	}
	view, err := n.load(ctx, sid, token, previous, stack)
	n.report("back", err)
	return view, err
}

// Stack returns the stored stack for a session.
func (n *Navigator) Stack(ctx context.Context, sid string) (*Stack, error) {
	entries, err := n.store.List(ctx, sid, StackKey)
	if err != nil {
		return nil, fmt.Errorf("navigation: load stack: %w", err)
	}
	return NewStack(entries...), nil
}

// Current returns the last successfully loaded link, empty when none.
func (n *Navigator) Current(ctx context.Context, sid string) (string, error) {
	current, err := n.store.Get(ctx, sid, CurrentKey)
	if errors.Is(err, session.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("navigation: load current: %w", err)
	}
	return current, nil
}

func (n *Navigator) issue(ctx context.Context, sid string) (int64, error) {
	token, err := n.store.Incr(ctx, sid, TokenKey)
	if err != nil {
		return 0, fmt.Errorf("navigation: issue token: %w", err)
	}
	return token, nil
}

func (n *Navigator) latest(ctx context.Context, sid string) (int64, error) {
	raw, err := n.store.Get(ctx, sid, TokenKey)
	if err != nil {
		return 0, fmt.Errorf("navigation: read token: %w", err)
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (n *Navigator) saveStack(ctx context.Context, sid string, stack *Stack) error {
	if err := n.store.SetList(ctx, sid, StackKey, stack.Entries()); err != nil {
		return fmt.Errorf("navigation: save stack: %w", err)
	}
	return nil
}

// load fetches and renders link. The session keeps its previous stack and
// current link unless the load wins the token check and renders.
func (n *Navigator) load(ctx context.Context, sid string, token int64, link string, stack *Stack) (View, error) {
	raw, err := n.fetcher.Fetch(ctx, link)
	if err != nil {
		n.logger.WithError(err).WithField("link", link).Error("preview fetch failed")
		return View{}, fmt.Errorf("navigation: fetch %s: %w", link, err)
	}

	latest, err := n.latest(ctx, sid)
	if err != nil {
		return View{}, err
	}
	if latest != token {
		n.logger.WithFields(logrus.Fields{
			"link":   link,
			"token":  token,
			"latest": latest,
		}).Debug("dropping stale preview")
		return View{}, ErrStale
	}

	result, err := n.renderer.RenderJSON(raw)
	if err != nil {
		return View{}, fmt.Errorf("navigation: render %s: %w", link, err)
	}
	if err := n.saveStack(ctx, sid, stack); err != nil {
		return View{}, err
	}
	if err := n.store.Set(ctx, sid, CurrentKey, link); err != nil {
		return View{}, fmt.Errorf("navigation: save current: %w", err)
	}

	return View{
		HTML:        result.HTML,
		GridIDs:     result.GridIDs,
		BackVisible: stack.BackVisible(),
		Current:     link,
		Depth:       stack.Len(),
	}, nil
}

func (n *Navigator) report(action string, err error) {
	if n.observe != nil {
		n.observe(action, err)
	}
}
