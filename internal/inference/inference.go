// Package inference turns a validated customer record into a churn
// prediction using the loaded preprocessor and classifier.
package inference

import (
	"errors"
	"fmt"
	"math"

	"churn-detection/internal/artifact"
	"churn-detection/internal/customer"
)

// Result is the outcome of one prediction.
type Result struct {
	ChurnPrediction  bool    `json:"churn_prediction"`
	ChurnProbability float64 `json:"churn_probability"`
}

// InferenceError wraps any failure raised by the preprocessor or classifier.
// Its message is the cause's message.
type InferenceError struct {
	Cause error
}

func (e *InferenceError) Error() string {
	if e.Cause == nil {
		return "inference failed"
	}
	return e.Cause.Error()
}

func (e *InferenceError) Unwrap() error {
	return e.Cause
}

// AsInferenceError reports whether err is or wraps an *InferenceError.
func AsInferenceError(err error) (*InferenceError, bool) {
	var ie *InferenceError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// Predict runs rec through pre and clf. The label comes from the classifier's
// own decision and the probability is the positive class of PredictProba.
func Predict(rec customer.Record, pre artifact.Preprocessor, clf artifact.Classifier) (Result, error) {
	if pre == nil || clf == nil {
		return Result{}, &InferenceError{Cause: errors.New("artifacts are not loaded")}
	}

	x, err := pre.Transform(rec.Map())
	if err != nil {
		return Result{}, &InferenceError{Cause: err}
	}

	label, err := clf.Predict(x)
	if err != nil {
		return Result{}, &InferenceError{Cause: err}
	}

	proba, err := clf.PredictProba(x)
	if err != nil {
		return Result{}, &InferenceError{Cause: err}
	}
	if len(proba) < 2 {
		return Result{}, &InferenceError{Cause: fmt.Errorf("expected 2 class probabilities, got %d", len(proba))}
	}

	p := proba[1]
	if math.IsNaN(p) || p < 0 || p > 1 {
		return Result{}, &InferenceError{Cause: fmt.Errorf("churn probability %v is outside [0, 1]", p)}
	}

	return Result{
		ChurnPrediction:  label == 1,
		ChurnProbability: p,
	}, nil
}
