package ai

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pranavk-10/GAP-Github/internal/adapter/observability"
	"github.com/pranavk-10/GAP-Github/internal/domain"
)

// ErrCircuitOpen is the cause reported while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker open")

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	// CircuitClosed lets every call through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls until the cooldown elapses.
	CircuitOpen
	// CircuitHalfOpen lets a single probe through.
	CircuitHalfOpen
)

// String returns a string representation of the circuit state
func (cs CircuitState) String() string {
	switch cs {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker opens after threshold consecutive failures and probes again
// once cooldown has elapsed.
type CircuitBreaker struct {
	mu        sync.Mutex
	name      string
	threshold int
	cooldown  time.Duration
	state     CircuitState
	failures  int
	openedAt  time.Time
	probing   bool
	now       func() time.Time
}

// NewCircuitBreaker creates a breaker for the named provider.
func NewCircuitBreaker(name string, threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold < 1 {
		threshold = 1
	}
	return &CircuitBreaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		state:     CircuitClosed,
		now:       time.Now,
	}
}

// Allow reports whether a call may proceed. In half-open state only one
// caller gets through until its outcome is recorded.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Sub(cb.openedAt) < cb.cooldown {
			return false
		}
		cb.setState(CircuitHalfOpen)
		cb.probing = true
		return true
	case CircuitHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	default:
		return false
	}
}

// RecordSuccess closes the circuit and resets the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.probing = false
	if cb.state != CircuitClosed {
		slog.Info("circuit breaker closed after successful probe", slog.String("provider", cb.name))
		cb.setState(CircuitClosed)
	}
}

// RecordFailure counts a failure; a failed probe reopens the circuit at once.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.probing = false
	if cb.state == CircuitHalfOpen || cb.failures >= cb.threshold {
		if cb.state != CircuitOpen {
			slog.Warn("circuit breaker opened",
				slog.String("provider", cb.name),
				slog.Int("failure_count", cb.failures),
				slog.Int("threshold", cb.threshold))
		}
		cb.openedAt = cb.now()
		cb.setState(CircuitOpen)
	}
}

// State returns the current circuit state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) setState(s CircuitState) {
	cb.state = s
	observability.SetBreakerState(cb.name, int(s))
}

// BreakerGenerator guards a generator with a CircuitBreaker.
type BreakerGenerator struct {
	next     domain.Generator
	breaker  *CircuitBreaker
	provider string
}

// NewBreakerGenerator wraps next. A threshold below 1 disables the breaker.
func NewBreakerGenerator(next domain.Generator, provider string, threshold int, cooldown time.Duration) *BreakerGenerator {
	g := &BreakerGenerator{next: next, provider: provider}
	if threshold > 0 {
		g.breaker = NewCircuitBreaker(provider, threshold, cooldown)
	}
	return g
}

// Breaker returns the underlying breaker, or nil when disabled.
func (g *BreakerGenerator) Breaker() *CircuitBreaker { return g.breaker }

// Generate fails fast with an *domain.UpstreamError while the circuit is open.
// Cancellation by the caller is not counted as a provider failure.
func (g *BreakerGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.breaker == nil {
		return g.next.Generate(ctx, prompt)
	}
	if !g.breaker.Allow() {
		return "", &domain.UpstreamError{Provider: g.provider, Err: ErrCircuitOpen}
	}
	out, err := g.next.Generate(ctx, prompt)
	switch {
	case err == nil:
		g.breaker.RecordSuccess()
	case errors.Is(err, context.Canceled):
		g.breaker.release()
	default:
		g.breaker.RecordFailure()
	}
	return out, err
}

// release ends a half-open probe without recording an outcome.
func (cb *CircuitBreaker) release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probing = false
}
