package domain

import "time"

type SearchMode string

const (
	SearchModeHybrid SearchMode = "hybrid"
	SearchModeVector SearchMode = "vector"
	SearchModeFTS    SearchMode = "fts"
)

// Retrieval method names reported in SearchResult.FoundBy.
const (
	MethodVector = "vector"
	MethodFTS    = "fts"
)

type SearchFilter struct {
	CollectionID string
	Since        time.Time
}

type SearchRequest struct {
	Query    string
	Limit    int
	Mode     SearchMode
	MinScore float64
	Filter   SearchFilter
}

// ChunkHit is one vector-search match: a chunk ranked by cosine similarity.
type ChunkHit struct {
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// DocumentHit is one full-text match: a parent ranked by lexical relevance.
type DocumentHit struct {
	DocumentID string  `json:"document_id"`
	Rank       int     `json:"rank"`
	Score      float64 `json:"score"`
}

type SearchResult struct {
	DocumentID    string     `json:"parent_id"`
	MatchedChunks []ChunkHit `json:"matched_chunks,omitempty"`
	FusedScore    float64    `json:"fused_score"`
	VectorRank    int        `json:"vector_rank,omitempty"`
	FTSRank       int        `json:"fts_rank,omitempty"`
	FoundBy       []string   `json:"found_by"`
}

type SearchResponse struct {
	Results     []SearchResult `json:"results"`
	TookMS      int64          `json:"took_ms"`
	Mode        SearchMode     `json:"mode"`
	Degraded    bool           `json:"degraded,omitempty"`
	VectorCount int            `json:"vector_count"`
	FTSCount    int            `json:"fts_count"`
}
