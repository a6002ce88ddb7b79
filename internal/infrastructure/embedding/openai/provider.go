// Package openai implements the cloud embedding provider over the OpenAI
// embeddings API (or any compatible endpoint via BaseURL).
package openai

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
	providerName    = "openai"
	DefaultBaseURL  = "https://api.openai.com/v1"
	DefaultModel    = "text-embedding-3-small"
	defaultTimeout  = 60 * time.Second
	defaultBatchMax = 100
)

// Known dimensions per embedding model.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

var _ ports.EmbeddingProvider = (*Provider)(nil)

type Options struct {
	BaseURL string
	Model   string
	// Dimension overrides the model default (text-embedding-3-* only).
	Dimension    int
	MaxBatchSize int
	RateLimit    rate.Limit
	RateBurst    int
	Timeout      time.Duration
	Executor     *resilience.Executor
}

type Provider struct {
	apiKey     string
	baseURL    string
	model      string
	dimension  int
	maxBatch   int
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

func New(apiKey string, opts Options) (*Provider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "openai provider",
			errors.New("api key is required"))
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	dimension := opts.Dimension
	if dimension <= 0 {
		dimension = modelDimensions[model]
	}
	if dimension <= 0 {
		return nil, domain.WrapError(domain.ErrConfiguration, "openai provider",
			fmt.Errorf("unknown dimension for model %q", model))
	}
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
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		dimension:  dimension,
		maxBatch:   maxBatch,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		executor:   opts.Executor,
	}, nil
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Dimension() int { return p.dimension }

func (p *Provider) Capabilities() domain.ProviderCapabilities {
	return domain.ProviderCapabilities{
		IsLocal:        false,
		RequiresAPIKey: true,
		MaxBatchSize:   p.maxBatch,
	}
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
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
		err = p.executor.Execute(ctx, "openai.embed", call, resilience.ClassifyDomainError)
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

	request := embeddingRequest{Model: p.model, Input: texts}
	if strings.HasPrefix(p.model, "text-embedding-3") {
		request.Dimensions = p.dimension
	}
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal embeddings body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embeddings request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.WrapError(domain.ErrProviderTransient, "openai embed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, classifyStatus(resp)
	}

	var response embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode embeddings response: %w", err)
	}
	if len(response.Data) != len(texts) {
		return nil, domain.WrapError(domain.ErrProviderFatal, "openai embed",
			fmt.Errorf("vectors/texts mismatch: %d/%d", len(response.Data), len(texts)))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range response.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, domain.WrapError(domain.ErrProviderFatal, "openai embed",
				fmt.Errorf("embedding index %d out of range", item.Index))
		}
		if len(item.Embedding) != p.dimension {
			return nil, domain.WrapError(domain.ErrDimensionMismatch, "openai embed",
				fmt.Errorf("vector %d has length %d, expected %d", item.Index, len(item.Embedding), p.dimension))
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

func classifyStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	detail := strings.TrimSpace(string(body))
	statusErr := fmt.Errorf("status %s: %s", resp.Status, detail)

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return domain.WrapError(domain.ErrProviderFatal, "openai embed", statusErr)
	case resp.StatusCode == http.StatusTooManyRequests:
		if strings.Contains(detail, "insufficient_quota") {
			return domain.WrapError(domain.ErrProviderFatal, "openai embed", statusErr)
		}
		return domain.WrapError(domain.ErrProviderTransient, "openai embed", statusErr)
	case resp.StatusCode >= 500:
		return domain.WrapError(domain.ErrProviderTransient, "openai embed", statusErr)
	default:
		return domain.WrapError(domain.ErrProviderFatal, "openai embed", statusErr)
	}
}
