package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is fatal: unsupported backend, unknown provider.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation covers bad chunking or query parameters.
	ErrValidation = errors.New("validation error")
	// ErrProviderTransient marks retry-eligible provider failures (timeout, rate limit).
	ErrProviderTransient = errors.New("transient provider error")
	// ErrProviderFatal marks provider failures that must not be retried (auth, quota).
	ErrProviderFatal = errors.New("fatal provider error")
	// ErrDimensionMismatch: a vector whose length differs from the provider dimension.
	// Such vectors are never persisted.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrStorageUnavailable: the backend lacks vector or full-text capability.
	ErrStorageUnavailable = errors.New("storage backend unavailable")
	ErrNotFound           = errors.New("not found")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
