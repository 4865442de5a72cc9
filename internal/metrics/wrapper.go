package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// PredictionWrapper adapts Metrics to the method set the inference service
// records through, keeping that package free of Prometheus types.
type PredictionWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *PredictionWrapper {
	return &PredictionWrapper{m: m}
}

func (w *PredictionWrapper) PredictionsInc(model string) {
	w.m.Predictions.WithLabelValues(model).Inc()
}

func (w *PredictionWrapper) FailuresInc(model string) {
	w.m.Failures.WithLabelValues(model).Inc()
}

func (w *PredictionWrapper) LatencyObserve(model string, seconds float64) {
	w.m.Latency.WithLabelValues(model).Observe(seconds)
}

func (w *PredictionWrapper) ScoresObserve(model string, probability float64) {
	w.m.PredictionScores.WithLabelValues(model).Observe(probability)
}

func (w *PredictionWrapper) CacheHitsInc(model string) {
	w.m.CacheHits.WithLabelValues(model).Inc()
}

func counterValue(c prometheus.Counter) float64 {
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		return 0
	}
	return pb.GetCounter().GetValue()
}
