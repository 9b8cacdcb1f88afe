// Package session keeps per-browser state that must outlive a request: the
// preview navigation stack, drill-down request tokens and the sidebar flag.
package session

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get for unset keys.
var ErrNotFound = errors.New("session: key not found")

// Store holds string values and string lists scoped to a session id.
type Store interface {
	Get(ctx context.Context, sid, key string) (string, error)
	Set(ctx context.Context, sid, key, value string) error
	Delete(ctx context.Context, sid, key string) error
	// List returns the stored list, empty when unset.
	List(ctx context.Context, sid, key string) ([]string, error)
	// SetList replaces the stored list. An empty list deletes the key.
	SetList(ctx context.Context, sid, key string, values []string) error
	// Incr atomically increments a counter and returns the new value.
	Incr(ctx context.Context, sid, key string) (int64, error)
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether sid looks like an id issued by NewID.
func ValidID(sid string) bool {
	_, err := uuid.Parse(strings.TrimSpace(sid))
	return err == nil
}
