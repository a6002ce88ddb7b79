// Package ollama implements the local embedding provider over the Ollama
// HTTP API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/core/ports"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/resilience"
)

const (
	providerName    = "ollama"
	defaultTimeout  = 120 * time.Second
	defaultBatchMax = 32
)

var _ ports.EmbeddingProvider = (*Provider)(nil)

type Options struct {
	// Dimension of the configured embed model, e.g. 768 for nomic-embed-text.
	Dimension int
	// MaxBatchSize caps texts per request (default 32).
	MaxBatchSize int
	// RateLimit caps embed requests per second; zero disables limiting.
	RateLimit rate.Limit
	RateBurst int
	Timeout   time.Duration
	Executor  *resilience.Executor
}

type Provider struct {
	baseURL    string
	model      string
	dimension  int
	maxBatch   int
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

func New(baseURL, model string, opts Options) *Provider {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxBatch := opts.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = defaultBatchMax
	}
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(opts.RateLimit, burst)
	}
	return &Provider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		dimension:  opts.Dimension,
		maxBatch:   maxBatch,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		executor:   opts.Executor,
	}
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Dimension() int { return p.dimension }

func (p *Provider) Capabilities() domain.ProviderCapabilities {
	return domain.ProviderCapabilities{
		IsLocal:        true,
		RequiresAPIKey: false,
		MaxBatchSize:   p.maxBatch,
	}
}

func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, domain.WrapError(domain.ErrValidation, "embed", errors.New("no texts to embed"))
	}

	var vectors [][]float32
	call := func(callCtx context.Context) error {
		var err error
		vectors, err = p.embedOnce(callCtx, texts)
		return err
	}

	var err error
	if p.executor != nil {
		err = p.executor.Execute(ctx, "ollama.embed", call, resilience.ClassifyDomainError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

func (p *Provider) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	reqBody, err := json.Marshal(map[string]any{
		"model": p.model,
		"input": texts,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embed body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embed", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.WrapError(domain.ErrProviderTransient, "ollama embed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, classifyStatus(resp)
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(response.Embeddings) != len(texts) {
		return nil, domain.WrapError(domain.ErrProviderFatal, "ollama embed",
			fmt.Errorf("vectors/texts mismatch: %d/%d", len(response.Embeddings), len(texts)))
	}
	for i, vec := range response.Embeddings {
		if len(vec) != p.dimension {
			return nil, domain.WrapError(domain.ErrDimensionMismatch, "ollama embed",
				fmt.Errorf("vector %d has length %d, expected %d", i, len(vec), p.dimension))
		}
	}
	return response.Embeddings, nil
}

func classifyStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	detail := strings.TrimSpace(string(body))
	statusErr := fmt.Errorf("status %s: %s", resp.Status, detail)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode >= 500:
		return domain.WrapError(domain.ErrProviderTransient, "ollama embed", statusErr)
	default:
		return domain.WrapError(domain.ErrProviderFatal, "ollama embed", statusErr)
	}
}
