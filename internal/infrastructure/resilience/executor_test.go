package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() Config {
	return Config{
		MaxAttempts:     3,
		InitialBackoff:  time.Millisecond,
		MaxBackoff:      2 * time.Millisecond,
		Multiplier:      2.0,
		BreakerDisabled: true,
	}
}

func transientClassifier(error) Class { return ClassTransient }

func TestDoRetriesTransientErrors(t *testing.T) {
	e := NewExecutor(fastConfig())

	calls := 0
	err := e.Do(context.Background(), "op", transientClassifier, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestDoStopsOnFatalError(t *testing.T) {
	e := NewExecutor(fastConfig())

	calls := 0
	fatal := errors.New("fatal")
	err := e.Do(context.Background(), "op", func(error) Class { return ClassFatal }, func(context.Context) error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("fatal error must not retry, got %d attempts", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	e := NewExecutor(fastConfig())

	calls := 0
	boom := errors.New("boom")
	err := e.Do(context.Background(), "op", transientClassifier, func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestDoRespectsCancelledContext(t *testing.T) {
	e := NewExecutor(fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := e.Do(ctx, "op", transientClassifier, func(context.Context) error {
		calls++
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("cancelled context must short-circuit, got %d calls", calls)
	}
}

func TestBreakerOpensAfterFailureRatio(t *testing.T) {
	cfg := fastConfig()
	cfg.BreakerDisabled = false
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.MaxAttempts = 1
	e := NewExecutor(cfg)

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		_ = e.Do(context.Background(), "flaky", func(error) Class { return ClassFatal }, func(context.Context) error {
			return boom
		})
	}

	err := e.Do(context.Background(), "flaky", func(error) Class { return ClassFatal }, func(context.Context) error {
		return nil
	})
	if !IsCircuitOpen(err) {
		t.Fatalf("expected open circuit, got %v", err)
	}
}

func TestRejectedErrorsDoNotTripBreaker(t *testing.T) {
	cfg := fastConfig()
	cfg.BreakerDisabled = false
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.MaxAttempts = 1
	e := NewExecutor(cfg)

	rejected := errors.New("bad request")
	for i := 0; i < 5; i++ {
		_ = e.Do(context.Background(), "picky", func(error) Class { return ClassRejected }, func(context.Context) error {
			return rejected
		})
	}

	err := e.Do(context.Background(), "picky", func(error) Class { return ClassRejected }, func(context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("rejected errors must not open the circuit, got %v", err)
	}
}
