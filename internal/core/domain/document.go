package domain

import "time"

type EmbeddingStatus string

const (
	// EmbeddingStatusNone marks legacy documents that predate the pipeline.
	EmbeddingStatusNone      EmbeddingStatus = ""
	EmbeddingStatusPending   EmbeddingStatus = "pending"
	EmbeddingStatusCompleted EmbeddingStatus = "completed"
	EmbeddingStatusFailed    EmbeddingStatus = "failed"
)

type Document struct {
	ID           string          `json:"id"`
	CollectionID string          `json:"collection_id,omitempty"`
	Title        string          `json:"title,omitempty"`
	Summary      string          `json:"summary,omitempty"`
	Content      string          `json:"content,omitempty"`
	MimeType     string          `json:"mime_type,omitempty"`
	StoragePath  string          `json:"storage_path,omitempty"`
	Status       EmbeddingStatus `json:"embedding_status,omitempty"`
	Error        string          `json:"embedding_error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
