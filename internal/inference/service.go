package inference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"churn-detection/internal/artifact"
	"churn-detection/internal/customer"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
)

// ErrUnknownModel is returned for a model id the store does not know.
var ErrUnknownModel = errors.New("unknown model")

// MetricsInterface defines metrics methods needed by the service
type MetricsInterface interface {
	PredictionsInc(model string)
	FailuresInc(model string)
	LatencyObserve(model string, seconds float64)
	ScoresObserve(model string, probability float64)
	CacheHitsInc(model string)
}

// Outcome is a Result together with how it was produced.
type Outcome struct {
	Result
	Model    string
	ServedBy string
	Cached   bool
}

// Service resolves model ids against a store and memoises results.
type Service struct {
	store   *artifact.Store
	metrics MetricsInterface
	cache   *lru.Cache[string, Result]
}

// NewService creates a service over store. metrics may be nil; a cacheSize of
// zero disables caching.
func NewService(store *artifact.Store, metrics MetricsInterface, cacheSize int) (*Service, error) {
	if store == nil {
		return nil, errors.New("artifact store is required")
	}
	if cacheSize < 0 {
		return nil, fmt.Errorf("cache size cannot be negative: %d", cacheSize)
	}

	s := &Service{store: store, metrics: metrics}
	if cacheSize > 0 {
		c, err := lru.New[string, Result](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create prediction cache: %w", err)
		}
		s.cache = c
	}
	return s, nil
}

// Store returns the underlying artifact store.
func (s *Service) Store() *artifact.Store {
	return s.store
}

// Predict scores rec with the classifier registered for modelID.
func (s *Service) Predict(ctx context.Context, modelID string, rec customer.Record) (Outcome, error) {
	m, ok := s.store.Model(modelID)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	out := Outcome{Model: modelID, ServedBy: m.ServedBy}
	key := m.ServedBy + "|" + rec.Key()

	if s.cache != nil {
		if res, ok := s.cache.Get(key); ok {
			if s.metrics != nil {
				s.metrics.CacheHitsInc(modelID)
				s.metrics.PredictionsInc(modelID)
			}
			out.Result = res
			out.Cached = true
			return out, nil
		}
	}

	start := time.Now()
	res, err := Predict(rec, s.store.Preprocessor(), m.Classifier)
	if s.metrics != nil {
		s.metrics.LatencyObserve(modelID, time.Since(start).Seconds())
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.FailuresInc(modelID)
		}
		log.Error().Err(err).Str("model", modelID).Str("served_by", m.ServedBy).Msg("prediction failed")
		return Outcome{}, err
	}

	if s.metrics != nil {
		s.metrics.PredictionsInc(modelID)
		s.metrics.ScoresObserve(modelID, res.ChurnProbability)
	}
	if s.cache != nil {
		s.cache.Add(key, res)
	}

	log.Debug().
		Str("model", modelID).
		Str("served_by", m.ServedBy).
		Bool("churn", res.ChurnPrediction).
		Float64("probability", res.ChurnProbability).
		Msg("prediction")

	out.Result = res
	return out, nil
}
