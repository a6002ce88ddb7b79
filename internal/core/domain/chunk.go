package domain

import "time"

// Chunk is a bounded, offset-tracked slice of a parent document's text.
// StartChar/EndChar are rune offsets into the parent content; Text is the
// exact substring they delimit, so citations can be mapped back verbatim.
type Chunk struct {
	ID         string         `json:"id,omitempty"`
	DocumentID string         `json:"document_id"`
	Index      int            `json:"chunk_index"`
	Text       string         `json:"text"`
	StartChar  int            `json:"start_char"`
	EndChar    int            `json:"end_char"`
	TokenCount int            `json:"token_count"`
	Embedding  []float32      `json:"-"`
	ExtraData  map[string]any `json:"extra_data,omitempty"`
	CreatedAt  time.Time      `json:"created_at,omitempty"`
}
