package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

// SearchStore runs both retrieval legs against Postgres: cosine ANN over
// chunk embeddings (pgvector) and full-text ranking over the documents'
// generated tsvector column.
type SearchStore struct {
	db *sql.DB
}

func NewSearchStore(db *sql.DB) *SearchStore {
	return &SearchStore{db: db}
}

// SearchChunks ranks chunks by similarity = 1 - cosine_distance, descending.
// Filters are applied before ranking; rows below minScore are discarded.
// Ties resolve to the lower chunk_index, then the lower document id.
func (s *SearchStore) SearchChunks(
	ctx context.Context,
	queryVector []float32,
	limit int,
	filter domain.SearchFilter,
	minScore float64,
) ([]domain.ChunkHit, error) {
	if limit <= 0 {
		limit = 10
	}

	var sb strings.Builder
	args := []any{pgvector.NewVector(queryVector)}
	sb.WriteString(`
SELECT c.document_id, c.chunk_index, c.text, 1 - (c.embedding <=> $1) AS score
FROM chunks c
JOIN documents d ON d.id = c.document_id
WHERE c.embedding IS NOT NULL
`)
	if filter.CollectionID != "" {
		args = append(args, filter.CollectionID)
		fmt.Fprintf(&sb, "AND d.collection_id = $%d\n", len(args))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		fmt.Fprintf(&sb, "AND d.created_at >= $%d\n", len(args))
	}
	if minScore > 0 {
		args = append(args, minScore)
		fmt.Fprintf(&sb, "AND 1 - (c.embedding <=> $1) >= $%d\n", len(args))
	}
	args = append(args, limit)
	fmt.Fprintf(&sb, "ORDER BY c.embedding <=> $1 ASC, c.chunk_index ASC, c.document_id ASC\nLIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("vector search query: %w", err)
	}
	defer rows.Close()

	var out []domain.ChunkHit
	for rows.Next() {
		var hit domain.ChunkHit
		if err := rows.Scan(&hit.DocumentID, &hit.ChunkIndex, &hit.Text, &hit.Score); err != nil {
			return nil, fmt.Errorf("scan vector hit: %w", err)
		}
		out = append(out, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vector hits: %w", err)
	}
	return out, nil
}

// SearchDocuments ranks parents lexically with a 1-based rank and a raw
// ts_rank score. Ties resolve to the lower document id.
func (s *SearchStore) SearchDocuments(
	ctx context.Context,
	query string,
	limit int,
	filter domain.SearchFilter,
) ([]domain.DocumentHit, error) {
	if limit <= 0 {
		limit = 10
	}

	var sb strings.Builder
	args := []any{query}
	sb.WriteString(`
SELECT d.id, ts_rank(d.search_vector, q.tsq) AS score
FROM documents d, websearch_to_tsquery('english', $1) q(tsq)
WHERE d.search_vector @@ q.tsq
`)
	if filter.CollectionID != "" {
		args = append(args, filter.CollectionID)
		fmt.Fprintf(&sb, "AND d.collection_id = $%d\n", len(args))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		fmt.Fprintf(&sb, "AND d.created_at >= $%d\n", len(args))
	}
	args = append(args, limit)
	fmt.Fprintf(&sb, "ORDER BY score DESC, d.id ASC\nLIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("fts query: %w", err)
	}
	defer rows.Close()

	var out []domain.DocumentHit
	for rows.Next() {
		var hit domain.DocumentHit
		if err := rows.Scan(&hit.DocumentID, &hit.Score); err != nil {
			return nil, fmt.Errorf("scan fts hit: %w", err)
		}
		hit.Rank = len(out) + 1
		out = append(out, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fts hits: %w", err)
	}
	return out, nil
}

// NoopIndexer satisfies the vector-indexer port when pgvector is the
// backend: vectors are stored on the chunk rows themselves.
type NoopIndexer struct{}

func (NoopIndexer) IndexChunks(context.Context, *domain.Document, []domain.Chunk) error {
	return nil
}
