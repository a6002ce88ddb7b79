package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/core/ports"
)

const (
	defaultSearchLimit    = 10
	defaultCandidateLimit = 30
	defaultVectorTimeout  = 3 * time.Second
	defaultFTSTimeout     = 2 * time.Second
	defaultVectorWeight   = 0.6
	defaultFTSWeight      = 0.4
)

// SearchConfig tunes the hybrid retrieval pipeline.
type SearchConfig struct {
	VectorTimeout  time.Duration
	FTSTimeout     time.Duration
	VectorWeight   float64
	FTSWeight      float64
	RRFK           int
	CandidateLimit int
}

func (c SearchConfig) withDefaults() SearchConfig {
	if c.VectorTimeout <= 0 {
		c.VectorTimeout = defaultVectorTimeout
	}
	if c.FTSTimeout <= 0 {
		c.FTSTimeout = defaultFTSTimeout
	}
	if c.VectorWeight <= 0 && c.FTSWeight <= 0 {
		c.VectorWeight = defaultVectorWeight
		c.FTSWeight = defaultFTSWeight
	}
	if c.RRFK <= 0 {
		c.RRFK = defaultRRFK
	}
	if c.CandidateLimit <= 0 {
		c.CandidateLimit = defaultCandidateLimit
	}
	return c
}

// SearchUseCase answers queries by vector similarity, full-text ranking, or
// a fusion of both. In hybrid mode both legs run concurrently and a single
// failed leg degrades the response instead of failing it.
type SearchUseCase struct {
	provider ports.EmbeddingProvider
	vector   ports.VectorSearcher
	lexical  ports.LexicalSearcher
	cfg      SearchConfig
	logger   *slog.Logger
}

func NewSearchUseCase(
	provider ports.EmbeddingProvider,
	vector ports.VectorSearcher,
	lexical ports.LexicalSearcher,
	cfg SearchConfig,
	logger *slog.Logger,
) *SearchUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchUseCase{
		provider: provider,
		vector:   vector,
		lexical:  lexical,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

func (uc *SearchUseCase) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	const op = "SearchUseCase.Search"

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrValidation, op, fmt.Errorf("query must not be empty"))
	}
	if req.MinScore < 0 || req.MinScore > 1 {
		return nil, domain.WrapError(domain.ErrValidation, op, fmt.Errorf("min_score %.3f out of [0,1]", req.MinScore))
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	mode := req.Mode
	if mode == "" {
		mode = domain.SearchModeHybrid
	}

	start := time.Now()

	var (
		resp *domain.SearchResponse
		err  error
	)
	switch mode {
	case domain.SearchModeVector:
		resp, err = uc.searchVectorOnly(ctx, query, limit, req)
	case domain.SearchModeFTS:
		resp, err = uc.searchFTSOnly(ctx, query, limit, req)
	case domain.SearchModeHybrid:
		resp, err = uc.searchHybrid(ctx, query, limit, req)
	default:
		return nil, domain.WrapError(domain.ErrValidation, op, fmt.Errorf("unknown search mode %q", mode))
	}
	if err != nil {
		return nil, err
	}

	resp.TookMS = time.Since(start).Milliseconds()
	return resp, nil
}

func (uc *SearchUseCase) searchVectorOnly(ctx context.Context, query string, limit int, req domain.SearchRequest) (*domain.SearchResponse, error) {
	candidates, hitCount, err := uc.vectorLeg(ctx, query, req)
	if err != nil {
		return nil, err
	}
	results := fuseRRF(candidates, nil, uc.cfg.VectorWeight, uc.cfg.FTSWeight, uc.cfg.RRFK)
	return &domain.SearchResponse{
		Results:     trimResults(results, limit),
		Mode:        domain.SearchModeVector,
		VectorCount: hitCount,
	}, nil
}

// searchFTSOnly never touches the embedding provider.
func (uc *SearchUseCase) searchFTSOnly(ctx context.Context, query string, limit int, req domain.SearchRequest) (*domain.SearchResponse, error) {
	hits, err := uc.ftsLeg(ctx, query, req)
	if err != nil {
		return nil, err
	}
	results := fuseRRF(nil, hits, uc.cfg.VectorWeight, uc.cfg.FTSWeight, uc.cfg.RRFK)
	return &domain.SearchResponse{
		Results:  trimResults(results, limit),
		Mode:     domain.SearchModeFTS,
		FTSCount: len(hits),
	}, nil
}

func (uc *SearchUseCase) searchHybrid(ctx context.Context, query string, limit int, req domain.SearchRequest) (*domain.SearchResponse, error) {
	const op = "SearchUseCase.searchHybrid"

	type vectorOutcome struct {
		candidates []vectorCandidate
		hits       int
		err        error
	}
	type ftsOutcome struct {
		hits []domain.DocumentHit
		err  error
	}

	vecCh := make(chan vectorOutcome, 1)
	ftsCh := make(chan ftsOutcome, 1)

	go func() {
		legCtx, cancel := context.WithTimeout(ctx, uc.cfg.VectorTimeout)
		defer cancel()
		candidates, hits, err := uc.vectorLeg(legCtx, query, req)
		vecCh <- vectorOutcome{candidates: candidates, hits: hits, err: err}
	}()
	go func() {
		legCtx, cancel := context.WithTimeout(ctx, uc.cfg.FTSTimeout)
		defer cancel()
		hits, err := uc.ftsLeg(legCtx, query, req)
		ftsCh <- ftsOutcome{hits: hits, err: err}
	}()

	vec := <-vecCh
	fts := <-ftsCh

	switch {
	case vec.err != nil && fts.err != nil:
		return nil, fmt.Errorf("%s: both methods failed: vector: %w; fts: %w", op, vec.err, fts.err)
	case vec.err != nil:
		uc.logger.Warn("vector search failed, degrading to fts", "error", vec.err)
		results := fuseRRF(nil, fts.hits, uc.cfg.VectorWeight, uc.cfg.FTSWeight, uc.cfg.RRFK)
		return &domain.SearchResponse{
			Results:  trimResults(results, limit),
			Mode:     domain.SearchModeFTS,
			Degraded: true,
			FTSCount: len(fts.hits),
		}, nil
	case fts.err != nil:
		uc.logger.Warn("fts search failed, degrading to vector", "error", fts.err)
		results := fuseRRF(vec.candidates, nil, uc.cfg.VectorWeight, uc.cfg.FTSWeight, uc.cfg.RRFK)
		return &domain.SearchResponse{
			Results:     trimResults(results, limit),
			Mode:        domain.SearchModeVector,
			Degraded:    true,
			VectorCount: vec.hits,
		}, nil
	}

	results := fuseRRF(vec.candidates, fts.hits, uc.cfg.VectorWeight, uc.cfg.FTSWeight, uc.cfg.RRFK)
	return &domain.SearchResponse{
		Results:     trimResults(results, limit),
		Mode:        domain.SearchModeHybrid,
		VectorCount: vec.hits,
		FTSCount:    len(fts.hits),
	}, nil
}

func (uc *SearchUseCase) vectorLeg(ctx context.Context, query string, req domain.SearchRequest) ([]vectorCandidate, int, error) {
	const op = "SearchUseCase.vectorLeg"

	vectors, err := uc.provider.Embed(ctx, []string{query})
	if err != nil {
		return nil, 0, fmt.Errorf("%s: embed query: %w", op, err)
	}
	if len(vectors) != 1 {
		return nil, 0, domain.WrapError(domain.ErrProviderFatal, op,
			fmt.Errorf("expected 1 query vector, got %d", len(vectors)))
	}

	hits, err := uc.vector.SearchChunks(ctx, vectors[0], uc.cfg.CandidateLimit, req.Filter, req.MinScore)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	sortChunkHits(hits)
	return groupVectorHits(hits), len(hits), nil
}

func (uc *SearchUseCase) ftsLeg(ctx context.Context, query string, req domain.SearchRequest) ([]domain.DocumentHit, error) {
	const op = "SearchUseCase.ftsLeg"

	hits, err := uc.lexical.SearchDocuments(ctx, query, uc.cfg.CandidateLimit, req.Filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return hits, nil
}
