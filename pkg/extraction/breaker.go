package extraction

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/chronicle-kb/chronicle/pkg/types"
)

// BreakerConfig tunes the circuit breaker around a remote extraction method.
type BreakerConfig struct {
	MaxRequests      uint32  `json:"max_requests" mapstructure:"max_requests"`
	IntervalSeconds  int     `json:"interval_seconds" mapstructure:"interval_seconds"`
	TimeoutSeconds   int     `json:"timeout_seconds" mapstructure:"timeout_seconds"`
	ReadyToTripRatio float64 `json:"ready_to_trip_ratio" mapstructure:"ready_to_trip_ratio"`
}

// DefaultBreakerConfig returns the stock breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      3,
		IntervalSeconds:  60,
		TimeoutSeconds:   30,
		ReadyToTripRatio: 0.6,
	}
}

// BreakerMethod wraps a Method with a circuit breaker so a failing remote
// extractor sheds load instead of stalling every ingest.
type BreakerMethod struct {
	method Method
	cb     *gobreaker.CircuitBreaker
}

// NewBreakerMethod wraps method with circuit breaking. A nil logger falls
// back to slog.Default.
func NewBreakerMethod(method Method, cfg BreakerConfig, logger *slog.Logger) *BreakerMethod {
	if logger == nil {
		logger = slog.Default()
	}
	settings := gobreaker.Settings{
		Name:        method.Name(),
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.IntervalSeconds) * time.Second,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= cfg.ReadyToTripRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("extraction circuit breaker state change",
				"method", name,
				"from", from.String(),
				"to", to.String())
		},
	}
	return &BreakerMethod{
		method: method,
		cb:     gobreaker.NewCircuitBreaker(settings),
	}
}

func (b *BreakerMethod) Name() string { return b.method.Name() }

func (b *BreakerMethod) Extract(ctx context.Context, text string, opts Options) (*types.Candidates, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.method.Extract(ctx, text, opts)
	})
	if err != nil {
		return nil, err
	}
	return result.(*types.Candidates), nil
}
