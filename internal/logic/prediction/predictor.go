package prediction

import (
	"context"
	"fmt"

	"github.com/cjeanneret/svlabel/internal/debug"
	"github.com/cjeanneret/svlabel/internal/logic/label"
)

// DefaultThreshold is the score from which a label is flagged as a likely mistake.
const DefaultThreshold = 0.5

// Decision is the outcome of scoring one label.
type Decision struct {
	Score          float64 `json:"score"`
	ShowPopup      bool    `json:"show_popup"`
	CloseToCluster bool    `json:"close_to_cluster"`
}

// Predictor flags labels that look like common labeling mistakes.
type Predictor struct {
	scorer    Scorer
	clusters  *Clusters
	threshold float64
}

// NewPredictor creates a predictor. clusters may be nil; a threshold <= 0 uses DefaultThreshold.
func NewPredictor(scorer Scorer, clusters *Clusters, threshold float64) *Predictor {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if clusters == nil {
		clusters = NewClusters(nil)
	}
	return &Predictor{scorer: scorer, clusters: clusters, threshold: threshold}
}

// Threshold returns the popup threshold.
func (p *Predictor) Threshold() float64 {
	return p.threshold
}

// Evaluate scores a label input.
func (p *Predictor) Evaluate(ctx context.Context, in Input) (Decision, error) {
	if !Supported(in.LabelType) {
		return Decision{}, fmt.Errorf("%w: %s", ErrUnsupportedLabelType, in.LabelType)
	}
	if p.scorer == nil {
		return Decision{}, ErrNoScorer
	}

	near := p.clusters.IsCloseToCluster(in.Lat, in.Lng, in.LabelType)
	features, err := Features(in, near)
	if err != nil {
		return Decision{}, err
	}
	debug.Verbose("prediction features: %v", features)

	score, err := p.scorer.Score(ctx, features)
	if err != nil {
		return Decision{}, fmt.Errorf("score label: %w", err)
	}
	d := Decision{
		Score:          score,
		ShowPopup:      score >= p.threshold,
		CloseToCluster: near,
	}
	debug.Prediction(string(in.LabelType), d.Score, d.ShowPopup)
	return d, nil
}

// EvaluateLabel scores a label.
func (p *Predictor) EvaluateLabel(ctx context.Context, l *label.Label) (Decision, error) {
	if !Supported(l.Type()) {
		return Decision{}, fmt.Errorf("%w: %s", ErrUnsupportedLabelType, l.Type())
	}
	in, err := InputFromLabel(l)
	if err != nil {
		return Decision{}, err
	}
	return p.Evaluate(ctx, in)
}
