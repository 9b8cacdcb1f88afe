package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-crmpanel/pkg/session"
)

// Sidebar states as persisted under MenuStateKey.
const (
	MenuStateKey = "menuState"
	MenuOpen     = "open"
	MenuClosed   = "closed"
)

// SidebarView tells the page which sidebar representation to show.
type SidebarView struct {
	Expanded       bool   `json:"expanded"`
	ExpandedClass  string `json:"expanded_class"`
	MinimizedClass string `json:"minimized_class"`
	State          string `json:"state"`
}

// Sidebar has an expanded and a minimized representation, exactly one of
// which is visible.
type Sidebar struct {
	store session.Store
}

// NewSidebar builds a Sidebar persisting its state in store.
func NewSidebar(store session.Store) *Sidebar {
	return &Sidebar{store: store}
}

// Load restores the persisted state, expanded when nothing was stored.
func (s *Sidebar) Load(ctx context.Context, sid string) (SidebarView, error) {
	state, err := s.store.Get(ctx, sid, MenuStateKey)
	if errors.Is(err, session.ErrNotFound) {
		return viewFor(true), nil
	}
	if err != nil {
		return SidebarView{}, fmt.Errorf("ui: load sidebar: %w", err)
	}
	return viewFor(state != MenuClosed), nil
}

// Toggle flips both representations and persists the new state.
func (s *Sidebar) Toggle(ctx context.Context, sid string) (SidebarView, error) {
	current, err := s.Load(ctx, sid)
	if err != nil {
		return SidebarView{}, err
	}
	next := viewFor(!current.Expanded)
	if err := s.store.Set(ctx, sid, MenuStateKey, next.State); err != nil {
		return SidebarView{}, fmt.Errorf("ui: save sidebar: %w", err)
	}
	return next, nil
}

// FollowMenuItem flips the representations for the page being navigated to
// without touching the persisted state.
func (s *Sidebar) FollowMenuItem(ctx context.Context, sid string) (SidebarView, error) {
	current, err := s.Load(ctx, sid)
	if err != nil {
		return SidebarView{}, err
	}
	return viewFor(!current.Expanded), nil
}

func viewFor(expanded bool) SidebarView {
	if expanded {
		return SidebarView{Expanded: true, MinimizedClass: HiddenClass, State: MenuOpen}
	}
	return SidebarView{Expanded: false, ExpandedClass: HiddenClass, State: MenuClosed}
}
