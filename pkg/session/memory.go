package session

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	values  map[string]string
	lists   map[string][]string
	touched time.Time
}

// MemoryStore is a process local Store. Sessions idle for longer than the
// TTL are dropped lazily.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*memoryEntry
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryTTL sets the idle expiry. Zero keeps sessions forever.
func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		s.ttl = ttl
	}
}

// WithMemoryClock overrides the clock used for expiry.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		now:      time.Now,
		sessions: make(map[string]*memoryEntry),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) entry(sid string, create bool) *memoryEntry {
	now := s.now()
	e, ok := s.sessions[sid]
	if ok && s.ttl > 0 && now.Sub(e.touched) > s.ttl {
		delete(s.sessions, sid)
		ok = false
	}
	if !ok {
		if !create {
			return nil
		}
		e = &memoryEntry{
			values: make(map[string]string),
			lists:  make(map[string][]string),
		}
		s.sessions[sid] = e
	}
	e.touched = now
	return e
}

func (s *MemoryStore) Get(_ context.Context, sid, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entry(sid, false)
	if e == nil {
		return "", ErrNotFound
	}
	v, ok := e.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) Set(_ context.Context, sid, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entry(sid, true).values[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sid, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e := s.entry(sid, false); e != nil {
		delete(e.values, key)
		delete(e.lists, key)
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context, sid, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entry(sid, false)
	if e == nil {
		return []string{}, nil
	}
	return append([]string{}, e.lists[key]...), nil
}

func (s *MemoryStore) SetList(_ context.Context, sid, key string, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entry(sid, true)
	if len(values) == 0 {
		delete(e.lists, key)
		return nil
	}
	e.lists[key] = append([]string{}, values...)
	return nil
}

func (s *MemoryStore) Incr(_ context.Context, sid, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entry(sid, true)
	var n int64
	if raw, ok := e.values[key]; ok {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, err
		}
		n = parsed
	}
	n++
	e.values[key] = strconv.FormatInt(n, 10)
	return n, nil
}

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
