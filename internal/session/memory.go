package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore holds session windows in process memory, one fixed-capacity
// ring per session. The zero history window (maxHistory <= 0) falls back to
// a single exchange so Context never grows without bound.
type MemoryStore struct {
	mu         sync.RWMutex
	maxHistory int
	sessions   map[string]*ring
}

type ring struct {
	buf   []Exchange
	start int
	count int
}

func NewMemoryStore(maxHistory int) *MemoryStore {
	if maxHistory <= 0 {
		maxHistory = 1
	}
	return &MemoryStore{
		maxHistory: maxHistory,
		sessions:   make(map[string]*ring),
	}
}

func (s *MemoryStore) Create(_ context.Context) (string, error) {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &ring{buf: make([]Exchange, s.maxHistory)}
	s.mu.Unlock()
	return id, nil
}

// Context renders the session's window. An unknown id reads back as an empty
// history, matching the lazy-create behavior of Append.
func (s *MemoryStore) Context(_ context.Context, sessionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.sessions[sessionID]
	if !ok {
		return "", nil
	}
	return FormatHistory(r.snapshot()), nil
}

// Append records an exchange, creating the session on first use so callers
// may supply their own session ids.
func (s *MemoryStore) Append(_ context.Context, sessionID string, query, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.sessions[sessionID]
	if !ok {
		r = &ring{buf: make([]Exchange, s.maxHistory)}
		s.sessions[sessionID] = r
	}
	r.push(Exchange{Query: query, Answer: answer})
	return nil
}

func (r *ring) push(ex Exchange) {
	if r.count < len(r.buf) {
		r.buf[(r.start+r.count)%len(r.buf)] = ex
		r.count++
		return
	}
	// Full window: overwrite the oldest slot and advance the start.
	r.buf[r.start] = ex
	r.start = (r.start + 1) % len(r.buf)
}

func (r *ring) snapshot() []Exchange {
	out := make([]Exchange, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(r.start+i)%len(r.buf)])
	}
	return out
}
