package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

type ChunkStore struct {
	db *sql.DB
}

func NewChunkStore(db *sql.DB) *ChunkStore {
	return &ChunkStore{db: db}
}

// ReplaceChunks swaps a parent's whole chunk set and marks it completed in
// one transaction. A per-parent advisory lock serializes concurrent attempts
// across processes: writers queue, and each commits a full generation, so
// readers never see a mixed or partial set.
func (s *ChunkStore) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chunk tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, documentLockKey(documentID)); err != nil {
		return fmt.Errorf("acquire document lock: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete previous chunks: %w", err)
	}

	now := time.Now().UTC()
	for _, chunk := range chunks {
		extraJSON, err := json.Marshal(extraOrEmpty(chunk.ExtraData))
		if err != nil {
			return fmt.Errorf("marshal extra_data for chunk %d: %w", chunk.Index, err)
		}
		var embedding any
		if chunk.Embedding != nil {
			embedding = pgvector.NewVector(chunk.Embedding)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO chunks (
	id, document_id, chunk_index, text, embedding, token_count, start_char, end_char, extra_data, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
			uuid.NewString(), documentID, chunk.Index, chunk.Text, embedding,
			chunk.TokenCount, chunk.StartChar, chunk.EndChar, extraJSON, now,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", chunk.Index, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
UPDATE documents
SET embedding_status = $2, embedding_error = '', updated_at = $3
WHERE id = $1
`, documentID, string(domain.EmbeddingStatusCompleted), now)
	if err != nil {
		return fmt.Errorf("mark document completed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunk tx: %w", err)
	}
	return nil
}

func (s *ChunkStore) ListByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, document_id, chunk_index, text, token_count, start_char, end_char, extra_data, created_at
FROM chunks
WHERE document_id = $1
ORDER BY chunk_index ASC
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var out []domain.Chunk
	for rows.Next() {
		var chunk domain.Chunk
		var extraRaw []byte
		err := rows.Scan(
			&chunk.ID, &chunk.DocumentID, &chunk.Index, &chunk.Text,
			&chunk.TokenCount, &chunk.StartChar, &chunk.EndChar, &extraRaw, &chunk.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if len(extraRaw) > 0 {
			if err := json.Unmarshal(extraRaw, &chunk.ExtraData); err != nil {
				return nil, fmt.Errorf("unmarshal extra_data: %w", err)
			}
		}
		out = append(out, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

func documentLockKey(documentID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(documentID))
	return int64(h.Sum64())
}

func extraOrEmpty(extra map[string]any) map[string]any {
	if extra == nil {
		return map[string]any{}
	}
	return extra
}
