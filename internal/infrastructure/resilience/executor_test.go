package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

func testConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2.0,
		BreakerEnabled:      false,
	}
}

func TestExecuteRetriesTransientErrors(t *testing.T) {
	e := NewExecutor(testConfig())

	calls := 0
	err := e.Execute(context.Background(), "provider.embed", func(context.Context) error {
		calls++
		if calls < 3 {
			return domain.WrapError(domain.ErrProviderTransient, "embed", errors.New("rate limited"))
		}
		return nil
	}, nil)

	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestExecuteDoesNotRetryFatalErrors(t *testing.T) {
	e := NewExecutor(testConfig())

	calls := 0
	fatal := domain.WrapError(domain.ErrProviderFatal, "embed", errors.New("invalid api key"))
	err := e.Execute(context.Background(), "provider.embed", func(context.Context) error {
		calls++
		return fatal
	}, nil)

	if !domain.IsKind(err, domain.ErrProviderFatal) {
		t.Fatalf("expected fatal provider error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected single attempt for fatal error, got %d", calls)
	}
}

func TestExecuteStopsAtMaxAttempts(t *testing.T) {
	e := NewExecutor(testConfig())

	calls := 0
	err := e.Execute(context.Background(), "provider.embed", func(context.Context) error {
		calls++
		return domain.WrapError(domain.ErrProviderTransient, "embed", errors.New("timeout"))
	}, nil)

	if !domain.IsKind(err, domain.ErrProviderTransient) {
		t.Fatalf("expected transient error after exhausting retries, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestExecuteHonorsContextCancellation(t *testing.T) {
	e := NewExecutor(testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := e.Execute(ctx, "provider.embed", func(context.Context) error {
		calls++
		cancel()
		return domain.WrapError(domain.ErrProviderTransient, "embed", errors.New("timeout"))
	}, nil)

	if err == nil {
		t.Fatalf("expected error after cancellation")
	}
	if calls != 1 {
		t.Fatalf("expected no retries after cancellation, got %d attempts", calls)
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	cfg := testConfig()
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = time.Minute
	cfg.RetryMaxAttempts = 1
	e := NewExecutor(cfg)

	failing := func(context.Context) error {
		return errors.New("backend down")
	}
	for i := 0; i < 2; i++ {
		_ = e.Execute(context.Background(), "provider.embed", failing, nil)
	}

	err := e.Execute(context.Background(), "provider.embed", failing, nil)
	if !IsCircuitOpen(err) {
		t.Fatalf("expected open circuit, got %v", err)
	}
}
