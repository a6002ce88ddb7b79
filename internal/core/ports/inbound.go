package ports

import (
	"context"
	"io"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType, collectionID, title string, body io.Reader) (*domain.Document, error)
	RequestReembed(ctx context.Context, documentID string) error
}

// DocumentEmbedder is the inbound contract for the asynchronous embedding pipeline.
type DocumentEmbedder interface {
	EmbedByID(ctx context.Context, documentID string) error
}

// SearchService is the inbound contract for hybrid retrieval.
type SearchService interface {
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)
}

// ProviderCatalog lists the embedding providers registered at startup.
type ProviderCatalog interface {
	List() []domain.ProviderInfo
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}
