package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

func newChunkStoreWithMock(t *testing.T) (*ChunkStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &ChunkStore{db: db}, mock, func() { _ = db.Close() }
}

func TestReplaceChunksCommitsFullGeneration(t *testing.T) {
	store, mock, done := newChunkStoreWithMock(t)
	defer done()

	chunks := []domain.Chunk{
		{Index: 0, Text: "first", TokenCount: 1, StartChar: 0, EndChar: 5, Embedding: []float32{0.1, 0.2}},
		{Index: 1, Text: "second", TokenCount: 1, StartChar: 5, EndChar: 11, Embedding: []float32{0.3, 0.4}},
	}

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(documentLockKey("doc-1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM chunks").
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	for range chunks {
		mock.ExpectExec("INSERT INTO chunks").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-1", string(domain.EmbeddingStatusCompleted), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.ReplaceChunks(context.Background(), "doc-1", chunks); err != nil {
		t.Fatalf("ReplaceChunks() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReplaceChunksRollsBackOnInsertFailure(t *testing.T) {
	store, mock, done := newChunkStoreWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(documentLockKey("doc-1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM chunks").
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO chunks").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.ReplaceChunks(context.Background(), "doc-1", []domain.Chunk{
		{Index: 0, Text: "x", TokenCount: 1, EndChar: 1},
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDocumentLockKeyIsStablePerDocument(t *testing.T) {
	if documentLockKey("doc-1") != documentLockKey("doc-1") {
		t.Fatalf("lock key not stable")
	}
	if documentLockKey("doc-1") == documentLockKey("doc-2") {
		t.Fatalf("distinct documents share a lock key")
	}
}
