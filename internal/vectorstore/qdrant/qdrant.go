package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"coursechat/internal/vectorstore"
)

// pointNamespace derives deterministic Qdrant point ids from logical string
// ids, so repeated ingestion of the same chunk overwrites rather than
// duplicates. Qdrant accepts only uuid or unsigned-int point ids.
var pointNamespace = uuid.MustParse("9e0cb1f6-3a87-4bb0-9fd6-44a0c372f1da")

// Store is a minimal REST client to Qdrant. It assumes cosine distance and
// creates collections on demand.
type Store struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

func New(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Store{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *Store) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid collection dimension")
	}
	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	// 200 on create; conflict on an existing collection with the same schema is fine
	var out json.RawMessage
	err := s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", collection), body, &out)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return err
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, collection string, points []vectorstore.Point) error {
	if len(points) == 0 {
		return nil
	}
	qdrantPoints := make([]map[string]interface{}, len(points))
	for i, p := range points {
		payload := make(map[string]interface{}, len(p.Payload)+1)
		for k, v := range p.Payload {
			payload[k] = v
		}
		payload["_id"] = p.ID
		qdrantPoints[i] = map[string]interface{}{
			"id":      pointID(p.ID),
			"vector":  p.Vector,
			"payload": payload,
		}
	}
	body := map[string]interface{}{"points": qdrantPoints}
	return s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points?wait=true", collection), body, nil)
}

func (s *Store) Query(ctx context.Context, collection string, vector []float32, k int, filter vectorstore.Filter) ([]vectorstore.Match, error) {
	if k <= 0 {
		k = 5
	}
	req := map[string]interface{}{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if len(filter) > 0 {
		var must []map[string]interface{}
		for key, value := range filter {
			must = append(must, map[string]interface{}{
				"key":   key,
				"match": map[string]interface{}{"value": value},
			})
		}
		req["filter"] = map[string]interface{}{"must": must}
	}

	var resp struct {
		Result []struct {
			Score   float64                `json:"score"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", collection), req, &resp); err != nil {
		return nil, err
	}

	matches := make([]vectorstore.Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		id, _ := r.Payload["_id"].(string)
		matches = append(matches, vectorstore.Match{
			ID: id,
			// qdrant reports cosine similarity; callers expect distance
			Distance: float32(1 - r.Score),
			Payload:  r.Payload,
		})
	}
	return matches, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (*vectorstore.Point, error) {
	var resp struct {
		Result struct {
			Payload map[string]interface{} `json:"payload"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodGet, fmt.Sprintf("/collections/%s/points/%s", collection, pointID(id)), nil, &resp)
	if err != nil {
		if strings.Contains(err.Error(), "status 404") {
			return nil, nil
		}
		return nil, err
	}
	if resp.Result.Payload == nil {
		return nil, nil
	}
	return &vectorstore.Point{ID: id, Payload: resp.Result.Payload}, nil
}

func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/count", collection), map[string]interface{}{"exact": true}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// Payloads scrolls the whole collection, following the cursor across pages.
// A non-positive limit means no cap.
func (s *Store) Payloads(ctx context.Context, collection string, limit int) ([]map[string]interface{}, error) {
	const pageSize = 1000

	var payloads []map[string]interface{}
	var offset interface{}
	for {
		req := map[string]interface{}{
			"limit":        pageSize,
			"with_payload": true,
		}
		if offset != nil {
			req["offset"] = offset
		}
		var resp struct {
			Result struct {
				Points []struct {
					Payload map[string]interface{} `json:"payload"`
				} `json:"points"`
				NextPageOffset interface{} `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/scroll", collection), req, &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Result.Points {
			payloads = append(payloads, p.Payload)
			if limit > 0 && len(payloads) >= limit {
				return payloads[:limit], nil
			}
		}
		if resp.Result.NextPageOffset == nil || len(resp.Result.Points) == 0 {
			return payloads, nil
		}
		offset = resp.Result.NextPageOffset
	}
}

func (s *Store) Clear(ctx context.Context, collection string) error {
	body := map[string]interface{}{
		"filter": map[string]interface{}{},
	}
	return s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/delete?wait=true", collection), body, nil)
}

func (s *Store) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal qdrant request failed: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return fmt.Errorf("build qdrant request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read qdrant response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant response status %d: %s", resp.StatusCode, string(raw))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("parse qdrant json failed: %w", err)
		}
	}
	return nil
}

func pointID(id string) string {
	return uuid.NewSHA1(pointNamespace, []byte(id)).String()
}
