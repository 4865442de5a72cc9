// Package artifacttest builds small, hand-fitted artifacts for tests.
//
// The preprocessor emits 13 features: six scaled numerics, the Geography and
// Gender one-hot blocks, then HasCrCard and IsActiveMember unchanged.
package artifacttest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"churn-detection/internal/artifact"
	"churn-detection/internal/common"
)

// Feature positions in the transformed row.
const (
	FeatAge           = 1
	FeatNumOfProducts = 4
	FeatGermany       = 7
	FeatActive        = 12
	NumFeatures       = 13
)

var trainedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func meta(version string) artifact.Metadata {
	return artifact.Metadata{
		Version:            version,
		TrainedAt:          trainedAt,
		ValidationAccuracy: 0.86,
		TrainingRows:       8000,
	}
}

// Preprocessor returns the fitted column transformer.
func Preprocessor() *artifact.ColumnTransformer {
	return &artifact.ColumnTransformer{
		Meta: meta("pre-1"),
		Numeric: []artifact.NumericColumn{
			{Column: "CreditScore", Mean: 650.5, Scale: 96.6},
			{Column: "Age", Mean: 38.9, Scale: 10.5},
			{Column: "Tenure", Mean: 5.0, Scale: 2.9},
			{Column: "Balance", Mean: 76485.9, Scale: 62394.3},
			{Column: "NumOfProducts", Mean: 1.53, Scale: 0.58},
			{Column: "EstimatedSalary", Mean: 100090.2, Scale: 57507.6},
		},
		Categorical: []artifact.CategoricalColumn{
			{Column: "Geography", Categories: []string{"France", "Germany", "Spain"}},
			{Column: "Gender", Categories: []string{"Female", "Male"}},
		},
		Passthrough: []string{"HasCrCard", "IsActiveMember"},
	}
}

func split(feature int, threshold float64, left, right int) artifact.Node {
	return artifact.Node{Feature: feature, Threshold: threshold, Left: left, Right: right}
}

func leaf(value ...float64) artifact.Node {
	return artifact.Node{Left: -1, Right: -1, Value: value}
}

// Forest returns a three-tree random forest.
//
// For LowRisk it yields (0.1 + 0.1 + 0.15) / 3, for HighRisk (0.65 + 0.4 + 0.6) / 3.
func Forest() *artifact.TreeEnsemble {
	return &artifact.TreeEnsemble{
		Meta:              meta("forest-1"),
		Type:              artifact.KindRandomForest,
		NFeatures:         NumFeatures,
		DecisionThreshold: 0.5,
		Trees: []artifact.Tree{
			{Nodes: []artifact.Node{
				split(FeatAge, 0.58, 1, 4),
				split(FeatNumOfProducts, 1.66, 2, 3),
				leaf(0.9, 0.1),
				leaf(0.3, 0.7),
				split(FeatActive, 0.5, 5, 6),
				leaf(0.35, 0.65),
				leaf(0.7, 0.3),
			}},
			{Nodes: []artifact.Node{
				split(FeatGermany, 0.5, 1, 2),
				split(FeatActive, 0.5, 3, 4),
				leaf(0.6, 0.4),
				leaf(0.75, 0.25),
				leaf(0.9, 0.1),
			}},
			{Nodes: []artifact.Node{
				split(FeatAge, 1.0, 1, 2),
				leaf(0.85, 0.15),
				leaf(0.4, 0.6),
			}},
		},
	}
}

// Boosted returns a four-tree gradient-boosted ensemble.
//
// For LowRisk the margin is -2.4, for HighRisk 1.8.
func Boosted() *artifact.TreeEnsemble {
	return &artifact.TreeEnsemble{
		Meta:              meta("xgb-1"),
		Type:              artifact.KindGradientBoosting,
		NFeatures:         NumFeatures,
		DecisionThreshold: 0.5,
		BaseScore:         -1.4,
		Trees: []artifact.Tree{
			{Nodes: []artifact.Node{split(FeatAge, 0.58, 1, 2), leaf(-0.3), leaf(0.9)}},
			{Nodes: []artifact.Node{split(FeatActive, 0.5, 1, 2), leaf(0.5), leaf(-0.4)}},
			{Nodes: []artifact.Node{split(FeatNumOfProducts, 1.66, 1, 2), leaf(-0.1), leaf(1.2)}},
			{Nodes: []artifact.Node{split(FeatGermany, 0.5, 1, 2), leaf(-0.2), leaf(0.6)}},
		},
	}
}

// LowRisk is the documented example customer.
func LowRisk() map[string]any {
	return map[string]any{
		"CreditScore":     650,
		"Geography":       "France",
		"Gender":          "Female",
		"Age":             35,
		"Tenure":          5,
		"Balance":         50000.0,
		"NumOfProducts":   2,
		"HasCrCard":       1,
		"IsActiveMember":  1,
		"EstimatedSalary": 60000.0,
	}
}

// HighRisk is an older, inactive German customer holding three products.
func HighRisk() map[string]any {
	return map[string]any{
		"CreditScore":     520,
		"Geography":       "Germany",
		"Gender":          "Male",
		"Age":             60,
		"Tenure":          2,
		"Balance":         120000.0,
		"NumOfProducts":   3,
		"HasCrCard":       0,
		"IsActiveMember":  0,
		"EstimatedSalary": 90000.0,
	}
}

// Write stores the fixtures as JSON under dir and returns their paths. The
// gradient-boosted artifact is only written when withBoosted is set; its path
// is returned either way.
func Write(t testing.TB, dir string, withBoosted bool) artifact.Paths {
	t.Helper()

	paths := artifact.Paths{
		Preprocessor: filepath.Join(dir, common.DefaultPreprocessorFile),
		Forest:       filepath.Join(dir, common.DefaultForestModelFile),
		XGBoost:      filepath.Join(dir, common.DefaultXGBoostModelFile),
	}
	WriteJSON(t, paths.Preprocessor, Preprocessor())
	WriteJSON(t, paths.Forest, Forest())
	if withBoosted {
		WriteJSON(t, paths.XGBoost, Boosted())
	}
	return paths
}

// WriteJSON marshals v to path.
func WriteJSON(t testing.TB, path string, v any) {
	t.Helper()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("marshal %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Store loads a store from freshly written fixtures.
func Store(t testing.TB, withBoosted bool) *artifact.Store {
	t.Helper()

	s, err := artifact.Load(Write(t, t.TempDir(), withBoosted))
	if err != nil {
		t.Fatalf("load artifacts: %v", err)
	}
	return s
}
