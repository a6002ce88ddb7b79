package embedding

import (
	"context"
	"testing"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

type stubProvider struct {
	name string
	dim  int
	caps domain.ProviderCapabilities
}

func (p *stubProvider) Name() string                              { return p.name }
func (p *stubProvider) Dimension() int                            { return p.dim }
func (p *stubProvider) Capabilities() domain.ProviderCapabilities { return p.caps }
func (p *stubProvider) Embed(context.Context, []string) ([][]float32, error) {
	return nil, nil
}

func TestRegistryGetUnknownProviderIsConfigurationError(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("missing"); !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRegistryRejectsDuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubProvider{name: "ollama", dim: 768}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(&stubProvider{name: "ollama", dim: 768}); !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error for duplicate, got %v", err)
	}
}

func TestRegistryListKeepsRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&stubProvider{name: "ollama", dim: 768, caps: domain.ProviderCapabilities{IsLocal: true, MaxBatchSize: 32}})
	_ = r.Register(&stubProvider{name: "openai", dim: 1536, caps: domain.ProviderCapabilities{RequiresAPIKey: true, MaxBatchSize: 100}})

	infos := r.List()
	if len(infos) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(infos))
	}
	if infos[0].Name != "ollama" || infos[1].Name != "openai" {
		t.Fatalf("unexpected order: %+v", infos)
	}
	if !infos[0].IsLocal || infos[0].RequiresAPIKey {
		t.Fatalf("unexpected ollama capabilities: %+v", infos[0])
	}
	if infos[1].Dimension != 1536 || !infos[1].RequiresAPIKey {
		t.Fatalf("unexpected openai info: %+v", infos[1])
	}
}
