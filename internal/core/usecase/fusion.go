package usecase

import (
	"sort"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

const defaultRRFK = 60

// vectorCandidate is one parent in the vector ranking: its 1-based position
// is its index in the slice, BestScore is the raw similarity of its best
// chunk, Chunks are the matches belonging to it.
type vectorCandidate struct {
	DocumentID string
	BestScore  float64
	Chunks     []domain.ChunkHit
}

type fusionCandidate struct {
	documentID  string
	vectorRank  int // 1-based, 0 = not found by vector search
	ftsRank     int // 1-based, 0 = not found by full-text search
	vectorScore float64
	chunks      []domain.ChunkHit
}

// fuseRRF merges the two rankings with Reciprocal Rank Fusion:
//
//	score = vectorWeight/(k+Rv) + ftsWeight/(k+Rf)
//
// where a missing rank contributes 0. Equal scores order by: found by both
// methods first, then higher raw vector score, then lower document id.
func fuseRRF(vector []vectorCandidate, fts []domain.DocumentHit, vectorWeight, ftsWeight float64, k int) []domain.SearchResult {
	if k <= 0 {
		k = defaultRRFK
	}

	acc := make(map[string]*fusionCandidate, len(vector)+len(fts))
	ensure := func(id string) *fusionCandidate {
		if c, ok := acc[id]; ok {
			return c
		}
		c := &fusionCandidate{documentID: id}
		acc[id] = c
		return c
	}

	for i, vc := range vector {
		c := ensure(vc.DocumentID)
		c.vectorRank = i + 1
		c.vectorScore = vc.BestScore
		c.chunks = vc.Chunks
	}
	for _, hit := range fts {
		c := ensure(hit.DocumentID)
		c.ftsRank = hit.Rank
	}

	out := make([]domain.SearchResult, 0, len(acc))
	for _, c := range acc {
		var score float64
		var foundBy []string
		if c.vectorRank > 0 {
			score += vectorWeight / float64(k+c.vectorRank)
			foundBy = append(foundBy, domain.MethodVector)
		}
		if c.ftsRank > 0 {
			score += ftsWeight / float64(k+c.ftsRank)
			foundBy = append(foundBy, domain.MethodFTS)
		}
		out = append(out, domain.SearchResult{
			DocumentID:    c.documentID,
			MatchedChunks: c.chunks,
			FusedScore:    score,
			VectorRank:    c.vectorRank,
			FTSRank:       c.ftsRank,
			FoundBy:       foundBy,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		bothI := boolToInt(len(out[i].FoundBy) == 2)
		bothJ := boolToInt(len(out[j].FoundBy) == 2)
		if bothI != bothJ {
			return bothI > bothJ
		}
		scoreI := vectorScoreOf(out[i], acc)
		scoreJ := vectorScoreOf(out[j], acc)
		if scoreI != scoreJ {
			return scoreI > scoreJ
		}
		return out[i].DocumentID < out[j].DocumentID
	})

	return out
}

// groupVectorHits collapses ordered chunk hits into per-parent candidates,
// ranked by each parent's first (best) chunk.
func groupVectorHits(hits []domain.ChunkHit) []vectorCandidate {
	byDoc := make(map[string]int, len(hits))
	out := make([]vectorCandidate, 0, len(hits))
	for _, hit := range hits {
		idx, seen := byDoc[hit.DocumentID]
		if !seen {
			byDoc[hit.DocumentID] = len(out)
			out = append(out, vectorCandidate{
				DocumentID: hit.DocumentID,
				BestScore:  hit.Score,
			})
			idx = len(out) - 1
		}
		out[idx].Chunks = append(out[idx].Chunks, hit)
	}
	return out
}

// sortChunkHits enforces the vector ordering contract regardless of backend:
// score descending, then lower chunk index, then lower parent id.
func sortChunkHits(hits []domain.ChunkHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].ChunkIndex != hits[j].ChunkIndex {
			return hits[i].ChunkIndex < hits[j].ChunkIndex
		}
		return hits[i].DocumentID < hits[j].DocumentID
	})
}

func trimResults(results []domain.SearchResult, limit int) []domain.SearchResult {
	if limit <= 0 || len(results) <= limit {
		return results
	}
	return results[:limit]
}

func vectorScoreOf(result domain.SearchResult, acc map[string]*fusionCandidate) float64 {
	if c, ok := acc[result.DocumentID]; ok {
		return c.vectorScore
	}
	return 0
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
