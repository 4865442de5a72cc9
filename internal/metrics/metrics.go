// Package metrics provides Prometheus metrics collection for the churn
// prediction service. It defines the prediction, request and artifact metrics
// exposed via the Prometheus metrics endpoint for monitoring and alerting.
package metrics

import (
	"strconv"

	"churn-detection/internal/artifact"
	"churn-detection/internal/common"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "churn"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Prediction metrics, labelled by requested model id
	Predictions      *prometheus.CounterVec   // Total number of predictions returned
	Failures         *prometheus.CounterVec   // Total number of inference failures
	Latency          *prometheus.HistogramVec // Inference latency in seconds
	PredictionScores *prometheus.HistogramVec // Distribution of churn probabilities
	CacheHits        *prometheus.CounterVec   // Predictions answered from the cache

	// Request metrics
	Requests           *prometheus.CounterVec // HTTP requests by route and status code
	AuthFailures       prometheus.Counter     // Requests rejected for a missing or wrong API key
	ValidationFailures prometheus.Counter     // Requests rejected for an invalid customer record

	// Artifact metrics
	ArtifactInfo *prometheus.GaugeVec // Constant 1, labelled with artifact version and served-by id
	ArtifactAge  prometheus.Gauge     // Age of the forest artifact in seconds at load time
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Total number of churn predictions returned",
		}, []string{"model"}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_failures_total",
			Help:      "Total number of failed churn predictions",
		}, []string{"model"}),
		Latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_latency_seconds",
			Help:      "Churn inference latency in seconds",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"model"}),
		PredictionScores: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_scores",
			Help:      "Distribution of predicted churn probabilities",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}, []string{"model"}),
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_cache_hits_total",
			Help:      "Total number of predictions answered from the cache",
		}, []string{"model"}),
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		AuthFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Total number of requests rejected for an invalid API key",
		}),
		ValidationFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Total number of requests rejected for an invalid customer record",
		}),
		ArtifactInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "artifact_info",
			Help:      "Loaded artifacts, labelled with model id, served-by id, kind and version",
		}, []string{"model", "served_by", "kind", "version"}),
		ArtifactAge: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "artifact_age_seconds",
			Help:      "Age of the forest artifact in seconds when it was loaded",
		}),
	}
}

// ObserveRequest counts one HTTP request.
func (m *Metrics) ObserveRequest(route string, code int) {
	m.Requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// ErrorRate returns the ratio of failures to attempted predictions for model,
// or 0 if nothing has been recorded.
func (m *Metrics) ErrorRate(model string) float64 {
	ok := counterValue(m.Predictions.WithLabelValues(model))
	failed := counterValue(m.Failures.WithLabelValues(model))
	if ok+failed == 0 {
		return 0
	}
	return failed / (ok + failed)
}

// ObserveArtifacts publishes what the store loaded.
func (m *Metrics) ObserveArtifacts(info artifact.Info) {
	for id, a := range info.Models {
		m.ArtifactInfo.WithLabelValues(id, a.ServedBy, a.Kind, a.Metadata.Version).Set(1)
	}
	if forest, ok := info.Models[common.ModelForest]; ok && !forest.Metadata.TrainedAt.IsZero() {
		m.ArtifactAge.Set(info.LoadedAt.Sub(forest.Metadata.TrainedAt).Seconds())
	}
}
