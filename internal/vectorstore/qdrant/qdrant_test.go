package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPayloads_FollowsScrollCursor(t *testing.T) {
	var offsets []interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/catalog/points/scroll" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode scroll request failed: %v", err)
		}
		offsets = append(offsets, req["offset"])

		// first page carries a cursor, second page ends the scroll
		if req["offset"] == nil {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"result": map[string]interface{}{
					"points": []map[string]interface{}{
						{"payload": map[string]interface{}{"title": "Course A"}},
						{"payload": map[string]interface{}{"title": "Course B"}},
					},
					"next_page_offset": "cursor-1",
				},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"result": map[string]interface{}{
				"points": []map[string]interface{}{
					{"payload": map[string]interface{}{"title": "Course C"}},
				},
				"next_page_offset": nil,
			},
		})
	}))
	defer server.Close()

	store := New(Config{URL: server.URL})
	payloads, err := store.Payloads(context.Background(), "catalog", 0)
	if err != nil {
		t.Fatalf("payloads failed: %v", err)
	}
	if len(payloads) != 3 {
		t.Fatalf("expected all pages collected, got %d payloads", len(payloads))
	}
	if payloads[2]["title"] != "Course C" {
		t.Fatalf("second page missing, got %v", payloads)
	}
	if len(offsets) != 2 || offsets[0] != nil || offsets[1] != "cursor-1" {
		t.Fatalf("cursor not threaded through requests: %v", offsets)
	}
}

func TestPayloads_HonorsLimitWithoutExtraPages(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		json.NewEncoder(w).Encode(map[string]interface{}{
			"result": map[string]interface{}{
				"points": []map[string]interface{}{
					{"payload": map[string]interface{}{"title": "Course A"}},
					{"payload": map[string]interface{}{"title": "Course B"}},
					{"payload": map[string]interface{}{"title": "Course C"}},
				},
				"next_page_offset": "cursor-1",
			},
		})
	}))
	defer server.Close()

	store := New(Config{URL: server.URL})
	payloads, err := store.Payloads(context.Background(), "catalog", 2)
	if err != nil {
		t.Fatalf("payloads failed: %v", err)
	}
	if len(payloads) != 2 {
		t.Fatalf("limit not applied, got %d payloads", len(payloads))
	}
	if requests != 1 {
		t.Fatalf("limit reached mid-page must not fetch another page, got %d requests", requests)
	}
}
