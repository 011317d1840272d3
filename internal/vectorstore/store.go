package vectorstore

import "context"

// Point is one stored vector with retrievable payload metadata.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]interface{}
}

// Match is one nearest-neighbor hit. Distance is cosine distance; lower is
// closer, and results are returned in ascending distance order.
type Match struct {
	ID       string
	Distance float32
	Payload  map[string]interface{}
}

// Filter restricts a query to points whose payload fields equal the given
// values. Numeric values compare loosely (a stored 2 matches a float64 2).
type Filter map[string]interface{}

// Store is an opaque nearest-neighbor service over named collections.
type Store interface {
	EnsureCollection(ctx context.Context, collection string, dimension int) error
	Upsert(ctx context.Context, collection string, points []Point) error
	Query(ctx context.Context, collection string, vector []float32, k int, filter Filter) ([]Match, error)
	Get(ctx context.Context, collection, id string) (*Point, error)
	Count(ctx context.Context, collection string) (int, error)
	Payloads(ctx context.Context, collection string, limit int) ([]map[string]interface{}, error)
	Clear(ctx context.Context, collection string) error
}

// MatchesFilter reports whether a payload satisfies every filter clause.
func MatchesFilter(payload map[string]interface{}, filter Filter) bool {
	for key, want := range filter {
		got, ok := payload[key]
		if !ok || !looseEqual(got, want) {
			return false
		}
	}
	return true
}

func looseEqual(a, b interface{}) bool {
	if a == b {
		return true
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	return aok && bok && af == bf
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
