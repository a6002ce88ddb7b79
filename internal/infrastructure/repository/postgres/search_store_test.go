package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

func newSearchStoreWithMock(t *testing.T) (*SearchStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &SearchStore{db: db}, mock, func() { _ = db.Close() }
}

func TestSearchChunksAppliesMinScoreAndFilters(t *testing.T) {
	store, mock, done := newSearchStoreWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"document_id", "chunk_index", "text", "score"}).
		AddRow("doc-1", 0, "high match", 0.95).
		AddRow("doc-2", 3, "close match", 0.91)

	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`1 - \(c\.embedding <=> \$1\) >= \$4`).
		WithArgs(sqlmock.AnyArg(), "notes", since, 0.9, 5).
		WillReturnRows(rows)

	hits, err := store.SearchChunks(context.Background(), []float32{0.1, 0.2}, 5,
		domain.SearchFilter{CollectionID: "notes", Since: since}, 0.9)
	if err != nil {
		t.Fatalf("SearchChunks() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	for _, hit := range hits {
		if hit.Score < 0.9 {
			t.Fatalf("hit below min score returned: %+v", hit)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchDocumentsAssigns1BasedRanks(t *testing.T) {
	store, mock, done := newSearchStoreWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"id", "score"}).
		AddRow("doc-7", 0.61).
		AddRow("doc-2", 0.43).
		AddRow("doc-9", 0.43)

	mock.ExpectQuery(`websearch_to_tsquery`).
		WithArgs("storage engine", 10).
		WillReturnRows(rows)

	hits, err := store.SearchDocuments(context.Background(), "storage engine", 10, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("SearchDocuments() error = %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	for i, hit := range hits {
		if hit.Rank != i+1 {
			t.Fatalf("hit %d has rank %d", i, hit.Rank)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
