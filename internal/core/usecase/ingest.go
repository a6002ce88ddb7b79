package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/core/ports"
)

// IngestDocumentUseCase accepts an uploaded file, extracts its text, records
// the parent document in pending state and hands embedding off to the queue.
type IngestDocumentUseCase struct {
	storage   ports.ObjectStorage
	repo      ports.DocumentRepository
	queue     ports.MessageQueue
	extractor ports.TextExtractor
	logger    *slog.Logger
}

func NewIngestDocumentUseCase(
	storage ports.ObjectStorage,
	repo ports.DocumentRepository,
	queue ports.MessageQueue,
	extractor ports.TextExtractor,
	logger *slog.Logger,
) *IngestDocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestDocumentUseCase{
		storage:   storage,
		repo:      repo,
		queue:     queue,
		extractor: extractor,
		logger:    logger,
	}
}

func (uc *IngestDocumentUseCase) Upload(ctx context.Context, filename, mimeType, collectionID, title string, body io.Reader) (*domain.Document, error) {
	const op = "IngestDocumentUseCase.Upload"

	if strings.TrimSpace(filename) == "" {
		return nil, domain.WrapError(domain.ErrValidation, op, fmt.Errorf("filename must not be empty"))
	}

	id := uuid.NewString()
	storageKey := id + "_" + sanitizeFilename(filename)
	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("%s: save upload: %w", op, err)
	}

	if title == "" {
		title = filename
	}
	now := time.Now().UTC()
	doc := &domain.Document{
		ID:           id,
		CollectionID: collectionID,
		Title:        title,
		MimeType:     mimeType,
		StoragePath:  storageKey,
		Status:       domain.EmbeddingStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("%s: extract text: %w", op, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrValidation, op,
			fmt.Errorf("document %q contains no extractable text", filename))
	}
	doc.Content = text

	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("%s: persist document: %w", op, err)
	}

	if err := uc.queue.PublishEmbedRequested(ctx, doc.ID); err != nil {
		// The document exists and can be re-embedded manually; surface the
		// failure but keep the record.
		uc.logger.Error("failed to publish embed request",
			"document_id", doc.ID, "error", err)
		return doc, fmt.Errorf("%s: publish embed request: %w", op, err)
	}

	uc.logger.Info("document uploaded",
		"document_id", doc.ID,
		"filename", filename,
		"mime_type", mimeType,
		"content_chars", len([]rune(text)),
	)
	return doc, nil
}

// RequestReembed re-queues an existing document for a fresh embedding pass.
func (uc *IngestDocumentUseCase) RequestReembed(ctx context.Context, documentID string) error {
	const op = "IngestDocumentUseCase.RequestReembed"

	if _, err := uc.repo.GetByID(ctx, documentID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := uc.queue.PublishEmbedRequested(ctx, documentID); err != nil {
		return fmt.Errorf("%s: publish embed request: %w", op, err)
	}
	return nil
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
