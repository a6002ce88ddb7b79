package ports

import (
	"context"
	"io"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

// DocumentRepository persists and reads parent document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateEmbeddingStatus(ctx context.Context, id string, status domain.EmbeddingStatus, errMessage string) error
}

// ChunkStore persists chunk sets. ReplaceChunks swaps the whole set for one
// parent and marks the parent completed in a single transaction, serialized
// per parent so concurrent attempts never interleave generations.
type ChunkStore interface {
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error
	ListByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error)
}

// EmbeddingProvider turns text into fixed-dimension vectors.
type EmbeddingProvider interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Capabilities() domain.ProviderCapabilities
}

// VectorSearcher ranks stored chunks by cosine similarity to a query vector.
type VectorSearcher interface {
	SearchChunks(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter, minScore float64) ([]domain.ChunkHit, error)
}

// VectorIndexer mirrors a parent's chunk set into an external ANN index.
// Backends that rank directly over the chunk store use a no-op implementation.
type VectorIndexer interface {
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error
}

// LexicalSearcher ranks parent documents by full-text relevance. It is
// independent of the embedding provider and must never invoke it.
type LexicalSearcher interface {
	SearchDocuments(ctx context.Context, query string, limit int, filter domain.SearchFilter) ([]domain.DocumentHit, error)
}

// MessageQueue publishes/consumes embedding requests.
type MessageQueue interface {
	PublishEmbedRequested(ctx context.Context, documentID string) error
	SubscribeEmbedRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Chunker splits text into overlapping, offset-tracked windows.
type Chunker interface {
	Chunk(text string, maxTokens, overlapTokens int) ([]domain.Chunk, error)
}
