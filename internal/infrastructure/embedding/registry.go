// Package embedding holds the provider registry and shared provider helpers.
// Providers are registered once at startup and handed to the pipeline and
// search services by injection; nothing resolves providers through globals.
package embedding

import (
	"fmt"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/core/ports"
)

type Registry struct {
	providers map[string]ports.EmbeddingProvider
	order     []string
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]ports.EmbeddingProvider)}
}

func (r *Registry) Register(p ports.EmbeddingProvider) error {
	name := p.Name()
	if name == "" {
		return domain.WrapError(domain.ErrConfiguration, "register provider",
			fmt.Errorf("provider name is empty"))
	}
	if _, exists := r.providers[name]; exists {
		return domain.WrapError(domain.ErrConfiguration, "register provider",
			fmt.Errorf("provider %q already registered", name))
	}
	r.providers[name] = p
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Get(name string) (ports.EmbeddingProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, domain.WrapError(domain.ErrConfiguration, "resolve provider",
			fmt.Errorf("unknown embedding provider %q", name))
	}
	return p, nil
}

// List reports providers in registration order.
func (r *Registry) List() []domain.ProviderInfo {
	out := make([]domain.ProviderInfo, 0, len(r.order))
	for _, name := range r.order {
		p := r.providers[name]
		caps := p.Capabilities()
		out = append(out, domain.ProviderInfo{
			Name:           name,
			Dimension:      p.Dimension(),
			IsLocal:        caps.IsLocal,
			RequiresAPIKey: caps.RequiresAPIKey,
		})
	}
	return out
}
