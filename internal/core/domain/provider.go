package domain

// ProviderCapabilities describe operational limits of an embedding provider.
type ProviderCapabilities struct {
	IsLocal        bool
	RequiresAPIKey bool
	MaxBatchSize   int
}

// ProviderInfo is the discovery view of a registered provider.
type ProviderInfo struct {
	Name           string `json:"name"`
	Dimension      int    `json:"dimension"`
	IsLocal        bool   `json:"is_local"`
	RequiresAPIKey bool   `json:"requires_api_key"`
}
