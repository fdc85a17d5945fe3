package middleware

import (
	"runtime/debug"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"hyprice/utils"
)

var (
	circuitBreaker *gobreaker.CircuitBreaker
	once           sync.Once
)

func breaker() *gobreaker.CircuitBreaker {
	once.Do(func() {
		circuitBreaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "upstream-breaker",
			MaxRequests: 3,
			Interval:    10 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				utils.Logger.Infow("Circuit breaker state changed",
					"name", name,
					"from", from.String(),
					"to", to.String())
			},
		})
	})
	return circuitBreaker
}

// WithCircuitBreaker runs fn through the shared upstream breaker, so a
// failing price API stops being hammered across all subscribers.
func WithCircuitBreaker(fn func() error) error {
	_, err := breaker().Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// RecoverGoroutine wraps a goroutine entry point so a panic is logged
// instead of killing the process.
func RecoverGoroutine(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			utils.Logger.Errorw("Panic recovered",
				"goroutine", name,
				"error", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}
