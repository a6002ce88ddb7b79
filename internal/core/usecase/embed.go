package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/core/ports"
)

// maxStoredErrorLen bounds the failure message persisted on a document.
const maxStoredErrorLen = 500

// EmbedDocumentUseCase runs the embedding pipeline for one parent document:
// chunk, embed in provider-sized batches, replace the previous chunk
// generation atomically. Any failure leaves the previous generation intact
// and records a truncated failure message on the parent.
type EmbedDocumentUseCase struct {
	repo     ports.DocumentRepository
	chunker  ports.Chunker
	provider ports.EmbeddingProvider
	chunks   ports.ChunkStore
	indexer  ports.VectorIndexer
	logger   *slog.Logger

	maxTokens     int
	overlapTokens int
}

func NewEmbedDocumentUseCase(
	repo ports.DocumentRepository,
	chunker ports.Chunker,
	provider ports.EmbeddingProvider,
	chunks ports.ChunkStore,
	indexer ports.VectorIndexer,
	maxTokens, overlapTokens int,
	logger *slog.Logger,
) *EmbedDocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbedDocumentUseCase{
		repo:          repo,
		chunker:       chunker,
		provider:      provider,
		chunks:        chunks,
		indexer:       indexer,
		logger:        logger,
		maxTokens:     maxTokens,
		overlapTokens: overlapTokens,
	}
}

func (uc *EmbedDocumentUseCase) EmbedByID(ctx context.Context, documentID string) error {
	const op = "EmbedDocumentUseCase.EmbedByID"

	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("%s: load document: %w", op, err)
	}

	if err := uc.repo.UpdateEmbeddingStatus(ctx, doc.ID, domain.EmbeddingStatusPending, ""); err != nil {
		return fmt.Errorf("%s: mark pending: %w", op, err)
	}

	chunkSet, err := uc.buildChunkSet(ctx, doc)
	if err != nil {
		return uc.fail(ctx, op, doc.ID, err)
	}

	if err := uc.indexer.IndexChunks(ctx, doc, chunkSet); err != nil {
		return uc.fail(ctx, op, doc.ID, fmt.Errorf("index chunks: %w", err))
	}

	if err := uc.chunks.ReplaceChunks(ctx, doc.ID, chunkSet); err != nil {
		return uc.fail(ctx, op, doc.ID, fmt.Errorf("replace chunks: %w", err))
	}

	uc.logger.Info("document embedded",
		"document_id", doc.ID,
		"chunks", len(chunkSet),
		"provider", uc.provider.Name(),
	)
	return nil
}

func (uc *EmbedDocumentUseCase) buildChunkSet(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	chunks, err := uc.chunker.Chunk(doc.Content, uc.maxTokens, uc.overlapTokens)
	if err != nil {
		return nil, fmt.Errorf("chunk document: %w", err)
	}

	batchSize := uc.provider.Capabilities().MaxBatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	wantDim := uc.provider.Dimension()

	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			texts = append(texts, chunks[i].Text)
		}

		vectors, err := uc.provider.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}
		if len(vectors) != len(texts) {
			return nil, domain.WrapError(domain.ErrProviderFatal, "EmbedDocumentUseCase.buildChunkSet",
				fmt.Errorf("expected %d vectors, got %d", len(texts), len(vectors)))
		}

		for i, vec := range vectors {
			// Providers validate dimensions themselves, but third-party
			// implementations plug in here, so guard before persisting.
			if wantDim > 0 && len(vec) != wantDim {
				return nil, domain.WrapError(domain.ErrDimensionMismatch, "EmbedDocumentUseCase.buildChunkSet",
					fmt.Errorf("chunk %d: got dimension %d, want %d", start+i, len(vec), wantDim))
			}
			chunks[start+i].DocumentID = doc.ID
			chunks[start+i].Embedding = vec
		}
	}

	return chunks, nil
}

// fail records the failure on the parent before returning it. The previous
// chunk generation is untouched.
func (uc *EmbedDocumentUseCase) fail(ctx context.Context, op, documentID string, cause error) error {
	if err := uc.repo.UpdateEmbeddingStatus(ctx, documentID, domain.EmbeddingStatusFailed, truncateError(cause)); err != nil {
		uc.logger.Error("failed to record embedding failure",
			"document_id", documentID, "error", err)
		return fmt.Errorf("%s: %w; mark failed: %w", op, cause, err)
	}
	return fmt.Errorf("%s: %w", op, cause)
}

func truncateError(err error) string {
	msg := err.Error()
	if len(msg) > maxStoredErrorLen {
		return msg[:maxStoredErrorLen]
	}
	return msg
}
