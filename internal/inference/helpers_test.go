package inference

import (
	"sync"
	"testing"

	"churn-detection/internal/customer"

	"github.com/stretchr/testify/require"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu          sync.Mutex
	predictions map[string]int
	failures    map[string]int
	cacheHits   map[string]int
	latencies   int
	scores      []float64
}

func newMockMetrics() *MockMetrics {
	return &MockMetrics{
		predictions: make(map[string]int),
		failures:    make(map[string]int),
		cacheHits:   make(map[string]int),
	}
}

func (m *MockMetrics) PredictionsInc(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions[model]++
}

func (m *MockMetrics) FailuresInc(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[model]++
}

func (m *MockMetrics) LatencyObserve(_ string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies++
}

func (m *MockMetrics) ScoresObserve(_ string, p float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = append(m.scores, p)
}

func (m *MockMetrics) CacheHitsInc(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHits[model]++
}

// stubPreprocessor counts calls and returns a fixed row or error.
type stubPreprocessor struct {
	calls int
	out   []float64
	err   error
}

func (s *stubPreprocessor) Transform(map[string]any) ([]float64, error) {
	s.calls++
	return s.out, s.err
}

func (s *stubPreprocessor) FeatureNames() []string { return nil }

type stubClassifier struct {
	label     int
	proba     []float64
	err       error
	probaErr  error
	threshold float64
}

func (s *stubClassifier) Predict([]float64) (int, error)           { return s.label, s.err }
func (s *stubClassifier) PredictProba([]float64) ([]float64, error) { return s.proba, s.probaErr }
func (s *stubClassifier) Threshold() float64                        { return s.threshold }
func (s *stubClassifier) Kind() string                              { return "stub" }

func mustRecord(t *testing.T, m map[string]any) customer.Record {
	t.Helper()
	rec, err := customer.FromMap(m)
	require.NoError(t, err)
	return rec
}
