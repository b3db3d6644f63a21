package prediction

import (
	"context"
	"fmt"
	"math"
)

// Scorer returns the probability that a label with the given features is a mistake.
type Scorer interface {
	Score(ctx context.Context, features []float32) (float64, error)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(ctx context.Context, features []float32) (float64, error)

// Score calls f.
func (f ScorerFunc) Score(ctx context.Context, features []float32) (float64, error) {
	return f(ctx, features)
}

// LinearScorer is a logistic regression over the feature vector.
type LinearScorer struct {
	weights []float64
	bias    float64
}

// NewLinearScorer creates a logistic scorer. weights must have FeatureCount entries.
func NewLinearScorer(weights []float64, bias float64) (*LinearScorer, error) {
	if len(weights) != FeatureCount {
		return nil, fmt.Errorf("linear scorer: got %d weights, want %d", len(weights), FeatureCount)
	}
	return &LinearScorer{weights: append([]float64(nil), weights...), bias: bias}, nil
}

// Score implements Scorer.
func (s *LinearScorer) Score(ctx context.Context, features []float32) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(features) != len(s.weights) {
		return 0, fmt.Errorf("linear scorer: got %d features, want %d", len(features), len(s.weights))
	}
	z := s.bias
	for i, f := range features {
		z += s.weights[i] * float64(f)
	}
	return 1.0 / (1.0 + math.Exp(-z)), nil
}
