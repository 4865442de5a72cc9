package artifact

import (
	"errors"
	"fmt"
	"math"
)

// Ensemble kinds as written by the export step.
const (
	KindRandomForest     = "random_forest"
	KindGradientBoosting = "gradient_boosting"
)

const defaultThreshold = 0.5

// Classifier produces a class label and class probabilities for one
// transformed feature vector.
type Classifier interface {
	Predict(x []float64) (int, error)
	PredictProba(x []float64) ([]float64, error)
	Threshold() float64
	Kind() string
}

// TreeEnsemble evaluates an exported random forest or gradient-boosted model.
//
// Random forest leaves hold the class distribution of their training samples;
// the probability is the mean of the normalised leaf distributions and splits
// send x[f] <= threshold left. Gradient-boosted leaves hold a margin in
// value[0]; the probability is sigmoid(base_score + sum of margins) and splits
// send x[f] < threshold left.
type TreeEnsemble struct {
	Meta              Metadata `json:"metadata"`
	Type              string   `json:"kind"`
	NFeatures         int      `json:"n_features"`
	DecisionThreshold float64  `json:"threshold"`
	BaseScore         float64  `json:"base_score"`
	Trees             []Tree   `json:"trees"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Node is a split when Left and Right are set, a leaf when both are -1.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value,omitempty"`
}

func (n Node) isLeaf() bool {
	return n.Left == -1 && n.Right == -1
}

// Validate checks the tree structure against the declared feature count.
func (e *TreeEnsemble) Validate() error {
	switch e.Type {
	case KindRandomForest, KindGradientBoosting:
	default:
		return fmt.Errorf("unsupported ensemble kind %q", e.Type)
	}
	if e.NFeatures <= 0 {
		return fmt.Errorf("n_features must be positive, got %d", e.NFeatures)
	}
	if e.DecisionThreshold < 0 || e.DecisionThreshold >= 1 {
		return fmt.Errorf("threshold must be in [0, 1), got %f", e.DecisionThreshold)
	}
	if len(e.Trees) == 0 {
		return errors.New("ensemble has no trees")
	}

	for ti, tree := range e.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", ti)
		}
		for ni, node := range tree.Nodes {
			if node.isLeaf() {
				if err := e.validateLeaf(node); err != nil {
					return fmt.Errorf("tree %d node %d: %w", ti, ni, err)
				}
				continue
			}
			if node.Feature < 0 || node.Feature >= e.NFeatures {
				return fmt.Errorf("tree %d node %d: feature index %d out of range", ti, ni, node.Feature)
			}
			// children always follow their parent in the exported layout
			if node.Left <= ni || node.Left >= len(tree.Nodes) || node.Right <= ni || node.Right >= len(tree.Nodes) {
				return fmt.Errorf("tree %d node %d: invalid children %d/%d", ti, ni, node.Left, node.Right)
			}
		}
	}
	return nil
}

func (e *TreeEnsemble) validateLeaf(node Node) error {
	if e.Type == KindGradientBoosting {
		if len(node.Value) < 1 {
			return errors.New("boosting leaf has no margin")
		}
		return nil
	}
	if len(node.Value) != 2 {
		return fmt.Errorf("forest leaf must hold 2 class weights, got %d", len(node.Value))
	}
	if node.Value[0] < 0 || node.Value[1] < 0 || node.Value[0]+node.Value[1] == 0 {
		return fmt.Errorf("forest leaf has invalid class weights %v", node.Value)
	}
	return nil
}

func (e *TreeEnsemble) Kind() string {
	return e.Type
}

// Threshold is the positive-class probability above which Predict returns 1.
func (e *TreeEnsemble) Threshold() float64 {
	if e.DecisionThreshold == 0 {
		return defaultThreshold
	}
	return e.DecisionThreshold
}

// PredictProba returns [P(stay), P(churn)].
func (e *TreeEnsemble) PredictProba(x []float64) ([]float64, error) {
	if len(x) != e.NFeatures {
		return nil, fmt.Errorf("X has %d features, but the classifier is expecting %d features as input", len(x), e.NFeatures)
	}

	var p float64
	switch e.Type {
	case KindGradientBoosting:
		margin := e.BaseScore
		for i := range e.Trees {
			leaf, err := e.Trees[i].leaf(x, true)
			if err != nil {
				return nil, fmt.Errorf("tree %d: %w", i, err)
			}
			margin += leaf.Value[0]
		}
		p = sigmoid(margin)
	default:
		var sum float64
		for i := range e.Trees {
			leaf, err := e.Trees[i].leaf(x, false)
			if err != nil {
				return nil, fmt.Errorf("tree %d: %w", i, err)
			}
			sum += leaf.Value[1] / (leaf.Value[0] + leaf.Value[1])
		}
		p = sum / float64(len(e.Trees))
	}

	return []float64{1 - p, p}, nil
}

// Predict returns 1 when the churn probability exceeds the threshold.
func (e *TreeEnsemble) Predict(x []float64) (int, error) {
	proba, err := e.PredictProba(x)
	if err != nil {
		return 0, err
	}
	if proba[1] > e.Threshold() {
		return 1, nil
	}
	return 0, nil
}

func (t *Tree) leaf(x []float64, strict bool) (Node, error) {
	idx := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		node := t.Nodes[idx]
		if node.isLeaf() {
			return node, nil
		}
		if node.Feature < 0 || node.Feature >= len(x) {
			return Node{}, errors.New("feature index out of range")
		}
		v := x[node.Feature]
		goLeft := v <= node.Threshold
		if strict {
			goLeft = v < node.Threshold
		}
		if goLeft {
			idx = node.Left
		} else {
			idx = node.Right
		}
		if idx < 0 || idx >= len(t.Nodes) {
			return Node{}, errors.New("invalid tree state")
		}
	}
	return Node{}, errors.New("tree traversal did not reach a leaf")
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
