package inference

import (
	"context"
	"errors"
	"math"
	"testing"

	"churn-detection/internal/artifact"
	"churn-detection/internal/artifact/artifacttest"
	"churn-detection/internal/customer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func TestPredict_Fixtures(t *testing.T) {
	pre := artifacttest.Preprocessor()

	tests := []struct {
		name      string
		clf       artifact.Classifier
		row       map[string]any
		wantProba float64
		wantLabel bool
	}{
		{"forest low risk", artifacttest.Forest(), artifacttest.LowRisk(), (0.1 + 0.1 + 0.15) / 3, false},
		{"forest high risk", artifacttest.Forest(), artifacttest.HighRisk(), (0.65 + 0.4 + 0.6) / 3, true},
		{"boosted low risk", artifacttest.Boosted(), artifacttest.LowRisk(), sigmoid(-2.4), false},
		{"boosted high risk", artifacttest.Boosted(), artifacttest.HighRisk(), sigmoid(1.8), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Predict(mustRecord(t, tt.row), pre, tt.clf)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantProba, res.ChurnProbability, 1e-9)
			assert.Equal(t, tt.wantLabel, res.ChurnPrediction)
			assert.Equal(t, res.ChurnProbability > tt.clf.Threshold(), res.ChurnPrediction)
		})
	}
}

func TestPredict_Deterministic(t *testing.T) {
	pre := artifacttest.Preprocessor()
	clf := artifacttest.Forest()
	rec := mustRecord(t, artifacttest.HighRisk())

	first, err := Predict(rec, pre, clf)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		res, err := Predict(rec, pre, clf)
		require.NoError(t, err)
		assert.Equal(t, first, res)
	}
}

func TestPredict_LabelFollowsThreshold(t *testing.T) {
	pre := artifacttest.Preprocessor()

	// sweep ages across both sides of every split
	for age := 18; age <= 100; age += 7 {
		for _, active := range []int{0, 1} {
			row := artifacttest.HighRisk()
			row["Age"] = age
			row["IsActiveMember"] = active

			for _, clf := range []artifact.Classifier{artifacttest.Forest(), artifacttest.Boosted()} {
				res, err := Predict(mustRecord(t, row), pre, clf)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, res.ChurnProbability, 0.0)
				assert.LessOrEqual(t, res.ChurnProbability, 1.0)
				assert.Equal(t, res.ChurnProbability > clf.Threshold(), res.ChurnPrediction, "age=%d active=%d kind=%s", age, active, clf.Kind())
			}
		}
	}
}

func TestPredict_InvalidRecordNeverReachesArtifacts(t *testing.T) {
	svc, err := NewService(artifact.NewStore(&stubPreprocessor{}, &stubClassifier{}, nil), nil, 0)
	require.NoError(t, err)
	pre := svc.Store().Preprocessor().(*stubPreprocessor)

	for _, mutate := range []func(map[string]any){
		func(m map[string]any) { m["Age"] = 17 },
		func(m map[string]any) { m["NumOfProducts"] = 5 },
		func(m map[string]any) { m["Geography"] = "Italy" },
		func(m map[string]any) { delete(m, "Tenure") },
	} {
		row := artifacttest.LowRisk()
		mutate(row)

		rec, err := customer.FromMap(row)
		require.Error(t, err)
		_, ok := customer.AsValidationError(err)
		require.True(t, ok)
		assert.Equal(t, customer.Record{}, rec)
	}
	assert.Zero(t, pre.calls)

	// the stub classifier yields no probabilities
	_, err = svc.Predict(context.Background(), "forest", mustRecord(t, artifacttest.LowRisk()))
	require.Error(t, err)
	assert.Equal(t, 1, pre.calls)
}

func TestPredict_WrapsFailures(t *testing.T) {
	rec := mustRecord(t, artifacttest.LowRisk())
	cause := errors.New("found unknown category")

	tests := []struct {
		name    string
		pre     artifact.Preprocessor
		clf     artifact.Classifier
		wantMsg string
	}{
		{
			name:    "preprocessor error",
			pre:     &stubPreprocessor{err: cause},
			clf:     &stubClassifier{},
			wantMsg: "found unknown category",
		},
		{
			name:    "predict error",
			pre:     &stubPreprocessor{out: []float64{1}},
			clf:     &stubClassifier{err: errors.New("X has 1 features")},
			wantMsg: "X has 1 features",
		},
		{
			name:    "predict_proba error",
			pre:     &stubPreprocessor{out: []float64{1}},
			clf:     &stubClassifier{probaErr: errors.New("boom")},
			wantMsg: "boom",
		},
		{
			name:    "single class output",
			pre:     &stubPreprocessor{out: []float64{1}},
			clf:     &stubClassifier{proba: []float64{1}},
			wantMsg: "expected 2 class probabilities",
		},
		{
			name:    "nan probability",
			pre:     &stubPreprocessor{out: []float64{1}},
			clf:     &stubClassifier{proba: []float64{0, math.NaN()}},
			wantMsg: "outside [0, 1]",
		},
		{
			name:    "probability above one",
			pre:     &stubPreprocessor{out: []float64{1}},
			clf:     &stubClassifier{proba: []float64{-0.2, 1.2}},
			wantMsg: "outside [0, 1]",
		},
		{
			name:    "missing artifacts",
			pre:     nil,
			clf:     nil,
			wantMsg: "artifacts are not loaded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Predict(rec, tt.pre, tt.clf)
			require.Error(t, err)

			ie, ok := AsInferenceError(err)
			require.True(t, ok)
			assert.Contains(t, ie.Error(), tt.wantMsg)
		})
	}

	_, err := Predict(rec, &stubPreprocessor{err: cause}, &stubClassifier{})
	assert.ErrorIs(t, err, cause)
}
