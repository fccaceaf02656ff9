package walkmap

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"
)

// Demo defaults for the simulated map backend
const (
	DefaultFailureRate = 0.05
	DefaultLatency     = 800 * time.Millisecond
)

// ErrMapLoad is returned by SimulatedSource when a load is made to fail
var ErrMapLoad = errors.New("failed to load map data")

// Source fetches map data for a metric
type Source interface {
	Fetch(ctx context.Context, params MapParams) (MapData, error)
}

// SourceFunc adapts a function to the Source interface
type SourceFunc func(ctx context.Context, params MapParams) (MapData, error)

// Fetch calls f(ctx, params)
func (f SourceFunc) Fetch(ctx context.Context, params MapParams) (MapData, error) {
	return f(ctx, params)
}

// SimulatedSource serves the static scores after a fixed latency and fails a
// configurable share of requests
type SimulatedSource struct {
	failureRate float64
	latency     time.Duration

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewSimulatedSource creates a source failing with probability failureRate.
// A negative latency falls back to DefaultLatency.
func NewSimulatedSource(failureRate float64, latency time.Duration) *SimulatedSource {
	if latency < 0 {
		latency = DefaultLatency
	}
	return &SimulatedSource{
		failureRate: failureRate,
		latency:     latency,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		now:         time.Now,
	}
}

// Fetch waits for the configured latency, then returns the metric's score or ErrMapLoad
func (s *SimulatedSource) Fetch(ctx context.Context, params MapParams) (MapData, error) {
	option, ok := lookupMetric(params.Metric)
	if !ok {
		return MapData{}, errors.New("unknown metric " + string(params.Metric))
	}

	s.mu.Lock()
	fail := s.rng.Float64() < s.failureRate
	s.mu.Unlock()

	timer := time.NewTimer(s.latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return MapData{}, ctx.Err()
	case <-timer.C:
	}

	if fail {
		return MapData{}, ErrMapLoad
	}
	return MapData{
		Metric:   option.Value,
		Label:    option.Label,
		Score:    option.Score,
		LoadedAt: s.now(),
	}, nil
}
