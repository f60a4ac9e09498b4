// Package episodes wires the authoritative episode count sources used by the
// ledger: a circuit-broken, rate-limited wrapper and an ordered fallback
// chain.
package episodes

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/ledger"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/logging"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/metrics"
)

// ErrRejected is returned while the circuit is open.
var ErrRejected = errors.New("episode count provider unavailable")

// ResilientOptions configures Resilient.
type ResilientOptions struct {
	Name string
	// FailureThreshold consecutive failures open the circuit.
	FailureThreshold int
	// FailureWindow resets the failure counts while the circuit is closed.
	FailureWindow time.Duration
	// Cooldown is how long the circuit stays open before a probe.
	Cooldown time.Duration
	// RatePerSecond <= 0 disables rate limiting.
	RatePerSecond float64
	Burst         int
	Logger        *logging.Logger
}

// ResilientCounter guards an EpisodeCounter with a circuit breaker and a
// rate limiter. Unknown shows do not count as provider failures.
type ResilientCounter struct {
	next    ledger.EpisodeCounter
	cb      *gobreaker.CircuitBreaker[ledger.Counts]
	limiter *rate.Limiter
	name    string
}

// Resilient wraps next.
func Resilient(next ledger.EpisodeCounter, opts ResilientOptions) *ResilientCounter {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.Name == "" {
		opts.Name = "episodes"
	}
	threshold := uint32(max(opts.FailureThreshold, 1))

	metrics.CircuitBreakerState.WithLabelValues(opts.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[ledger.Counts](gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Interval:    opts.FailureWindow,
		Timeout:     opts.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ledger.ErrUnknownShow) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			logger.Warn("episodes", "circuit breaker state changed",
				logging.F("name", name), logging.F("from", from.String()), logging.F("to", to.String()))
		},
	})

	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), max(opts.Burst, 1))
	}

	return &ResilientCounter{next: next, cb: cb, limiter: limiter, name: opts.Name}
}

func (r *ResilientCounter) EpisodeCounts(ctx context.Context, showID string) (ledger.Counts, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return ledger.Counts{}, err
		}
	}
	counts, err := r.cb.Execute(func() (ledger.Counts, error) {
		return r.next.EpisodeCounts(ctx, showID)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.EpisodeLookups.WithLabelValues(r.name, "rejected").Inc()
		return ledger.Counts{}, fmt.Errorf("%s: %w", r.name, ErrRejected)
	}
	return counts, err
}

// State reports the breaker state, for health output.
func (r *ResilientCounter) State() string {
	return r.cb.State().String()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
