package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"coursechat/internal/vectorstore"
)

// Store is an in-memory vector store using brute-force cosine distance.
// It is the default backend and the one used by tests.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	dimension int
	order     []string
	points    map[string]vectorstore.Point
}

func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

func (s *Store) EnsureCollection(_ context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid collection dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = &collection{
			dimension: dimension,
			points:    make(map[string]vectorstore.Point),
		}
	}
	return nil
}

func (s *Store) Upsert(_ context.Context, name string, points []vectorstore.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("unknown collection %q", name)
	}
	for _, p := range points {
		if len(p.Vector) != col.dimension {
			return fmt.Errorf("vector dimension %d does not match collection %q (%d)", len(p.Vector), name, col.dimension)
		}
		if _, exists := col.points[p.ID]; !exists {
			col.order = append(col.order, p.ID)
		}
		col.points[p.ID] = p
	}
	return nil
}

func (s *Store) Query(_ context.Context, name string, vector []float32, k int, filter vectorstore.Filter) ([]vectorstore.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", name)
	}
	if k <= 0 {
		k = 5
	}

	matches := make([]vectorstore.Match, 0, len(col.points))
	for _, id := range col.order {
		p := col.points[id]
		if !vectorstore.MatchesFilter(p.Payload, filter) {
			continue
		}
		matches = append(matches, vectorstore.Match{
			ID:       p.ID,
			Distance: cosineDistance(vector, p.Vector),
			Payload:  p.Payload,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *Store) Get(_ context.Context, name, id string) (*vectorstore.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", name)
	}
	p, ok := col.points[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *Store) Count(_ context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[name]
	if !ok {
		return 0, nil
	}
	return len(col.points), nil
}

func (s *Store) Payloads(_ context.Context, name string, limit int) ([]map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[name]
	if !ok {
		return nil, nil
	}
	if limit <= 0 || limit > len(col.order) {
		limit = len(col.order)
	}
	payloads := make([]map[string]interface{}, 0, limit)
	for _, id := range col.order[:limit] {
		payloads = append(payloads, col.points[id].Payload)
	}
	return payloads, nil
}

func (s *Store) Clear(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.collections[name]; ok {
		col.order = nil
		col.points = make(map[string]vectorstore.Point)
	}
	return nil
}

func cosineDistance(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 1
	}
	return float32(1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)))
}
