package detector

import (
	"context"
	"errors"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/timeout"
	"go.uber.org/zap"
)

// Scorer scores a text for AI-generation likelihood.
type Scorer interface {
	Detect(ctx context.Context, text string) (float64, error)
}

// Guarded bounds every Scorer call with a timeout and a circuit breaker. Failures are
// reported as ok=false so the caller keeps its heuristic score.
type Guarded struct {
	scorer   Scorer
	executor failsafe.Executor[float64]
	logger   *zap.Logger
}

// NewGuarded wraps scorer. A zero limit defaults to two seconds.
func NewGuarded(scorer Scorer, limit time.Duration, logger *zap.Logger) *Guarded {
	if limit <= 0 {
		limit = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cb := circuitbreaker.NewBuilder[float64]().
		WithFailureThresholdRatio(5, 10).
		WithDelay(15 * time.Second).
		WithSuccessThreshold(1).
		OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
			logger.Warn("Detector circuit breaker state change",
				zap.String("from", stateName(event.OldState)),
				zap.String("to", stateName(event.NewState)))
		}).
		Build()

	return &Guarded{
		scorer:   scorer,
		executor: failsafe.With[float64](cb, timeout.New[float64](limit)),
		logger:   logger,
	}
}

// Score returns the model score and true, or 0 and false when the call failed, timed
// out or the breaker is open.
func (g *Guarded) Score(ctx context.Context, text string) (float64, bool) {
	score, err := g.executor.WithContext(ctx).GetWithExecution(func(exec failsafe.Execution[float64]) (float64, error) {
		return g.scorer.Detect(exec.Context(), text)
	})
	if err != nil {
		reason := "error"
		switch {
		case errors.Is(err, timeout.ErrExceeded):
			reason = "timeout"
		case errors.Is(err, circuitbreaker.ErrOpen):
			reason = "circuit_open"
		case errors.Is(err, context.Canceled):
			reason = "canceled"
		}
		g.logger.Warn("AI detector unavailable, using heuristic score",
			zap.String("reason", reason),
			zap.Error(err))
		return 0, false
	}
	return score, true
}

func stateName(state circuitbreaker.State) string {
	switch state {
	case circuitbreaker.OpenState:
		return "open"
	case circuitbreaker.HalfOpenState:
		return "half-open"
	default:
		return "closed"
	}
}
