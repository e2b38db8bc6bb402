package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/pm25-dashboard/internal/airquality"
)

// BreakerConfig controls the circuit breaker guarding inference calls.
type BreakerConfig struct {
	// ConsecutiveFailures opens the breaker; 0 disables it.
	ConsecutiveFailures uint32
	// Cooldown is how long the breaker stays open before a probe call.
	Cooldown time.Duration
}

// Accessor serves point inference from a loaded artifact. It is immutable
// after construction and safe for concurrent use.
type Accessor struct {
	model   *compiled
	circuit *gobreaker.CircuitBreaker
}

// Load reads, validates and compiles the artifact at path. Any failure is a
// StartupError.
func Load(path string, bc BreakerConfig, logger *slog.Logger) (*Accessor, error) {
	a, err := ReadFile(path)
	if err != nil {
		return nil, &airquality.StartupError{Component: "model " + path, Err: err}
	}
	acc, err := New(a, bc, logger)
	if err != nil {
		return nil, &airquality.StartupError{Component: "model " + path, Err: err}
	}
	return acc, nil
}

// New compiles an in-memory artifact.
func New(a Artifact, bc BreakerConfig, logger *slog.Logger) (*Accessor, error) {
	c, err := a.compile()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	acc := &Accessor{model: c}
	if bc.ConsecutiveFailures > 0 {
		acc.circuit = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "model",
			MaxRequests: 1,
			Timeout:     bc.Cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= bc.ConsecutiveFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		})
	}
	return acc, nil
}

// Kind returns the artifact kind ("linear" or "forest").
func (a *Accessor) Kind() string {
	return a.model.kind
}

// Predict returns one prediction per row. Rows are in FeatureNames order.
// The call is attempted once; errors are ModelInferenceErrors.
func (a *Accessor) Predict(ctx context.Context, rows [][]float64) ([]float64, error) {
	if len(rows) == 0 {
		return nil, &airquality.ModelInferenceError{Err: errors.New("no input rows")}
	}
	for i, r := range rows {
		if len(r) != len(airquality.FeatureNames) {
			return nil, &airquality.ModelInferenceError{Err: fmt.Errorf("row %d has %d values, want %d", i, len(r), len(airquality.FeatureNames))}
		}
	}

	if a.circuit == nil {
		out, err := a.run(ctx, rows)
		if err != nil {
			return nil, &airquality.ModelInferenceError{Err: err}
		}
		return out, nil
	}

	result, err := a.circuit.Execute(func() (interface{}, error) {
		return a.run(ctx, rows)
	})
	if err != nil {
		return nil, &airquality.ModelInferenceError{Err: err}
	}
	out, ok := result.([]float64)
	if !ok {
		return nil, &airquality.ModelInferenceError{Err: errors.New("unexpected result type from circuit breaker")}
	}
	return out, nil
}

// run evaluates rows in a goroutine so the caller is released when ctx ends.
func (a *Accessor) run(ctx context.Context, rows [][]float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan []float64, 1)
	go func() {
		x := make([]float64, len(a.model.order))
		out := make([]float64, len(rows))
		for i, r := range rows {
			for j, src := range a.model.order {
				x[j] = r[src]
			}
			out[i] = a.model.reg.predict(x)
		}
		done <- out
	}()

	select {
	case out := <-done:
		return out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
