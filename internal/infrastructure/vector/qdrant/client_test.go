package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

func TestIndexChunksDeletesThenUpserts(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := New(server.URL, "chunks")
	doc := &domain.Document{ID: "doc-1", CollectionID: "notes", CreatedAt: time.Now()}
	chunks := []domain.Chunk{
		{Index: 0, Text: "a", Embedding: []float32{0.1, 0.2}},
		{Index: 1, Text: "b", Embedding: []float32{0.3, 0.4}},
	}

	if err := client.IndexChunks(context.Background(), doc, chunks); err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}

	want := []string{
		"PUT /collections/chunks",
		"POST /collections/chunks/points/delete",
		"PUT /collections/chunks/points",
	}
	if len(paths) != len(want) {
		t.Fatalf("expected %d calls, got %v", len(want), paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("call %d = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestSearchChunksPassesScoreThresholdAndFilters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["score_threshold"] != 0.9 {
			t.Fatalf("expected score_threshold 0.9, got %v", req["score_threshold"])
		}
		if req["filter"] == nil {
			t.Fatalf("expected filter in request")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{
					"score": 0.93,
					"payload": map[string]any{
						"document_id": "doc-1",
						"chunk_index": 2,
						"text":        "match",
					},
				},
			},
		})
	}))
	defer server.Close()

	client := New(server.URL, "chunks")
	hits, err := client.SearchChunks(context.Background(), []float32{0.1}, 5,
		domain.SearchFilter{CollectionID: "notes"}, 0.9)
	if err != nil {
		t.Fatalf("SearchChunks() error = %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].DocumentID != "doc-1" || hits[0].ChunkIndex != 2 || hits[0].Score != 0.93 {
		t.Fatalf("unexpected hit: %+v", hits[0])
	}
}
