package prediction

import (
	"errors"
	"fmt"

	"github.com/cjeanneret/svlabel/internal/logic/label"
)

var (
	// ErrUnsupportedLabelType is returned for label types the model has no encoding for.
	ErrUnsupportedLabelType = errors.New("prediction: unsupported label type")
	// ErrNoScorer is returned when no scoring model is configured.
	ErrNoScorer = errors.New("prediction: no scorer configured")
)

// Feature vector layout.
const (
	distanceToRoad         = 0
	distanceToIntersection = 5

	baseFeatureCount = 7
	// FeatureCount is the length of the vector fed to a Scorer.
	FeatureCount = baseFeatureCount + 5 + 7

	// DefaultWayType is used when the street's OSM way type is unknown.
	DefaultWayType = "residential"
)

var labelTypeOneHot = map[label.Type][5]float32{
	label.CurbRamp:       {1, 0, 0, 0, 0},
	label.NoCurbRamp:     {0, 1, 0, 0, 0},
	label.NoSidewalk:     {0, 0, 1, 0, 0},
	label.Obstacle:       {0, 0, 0, 1, 0},
	label.SurfaceProblem: {0, 0, 0, 0, 1},
}

var wayTypeOneHot = map[string][7]float32{
	"living_street": {1, 0, 0, 0, 0, 0, 0},
	"primary":       {0, 1, 0, 0, 0, 0, 0},
	"residential":   {0, 0, 1, 0, 0, 0, 0},
	"secondary":     {0, 0, 0, 1, 0, 0, 0},
	"tertiary":      {0, 0, 0, 0, 1, 0, 0},
	"trunk":         {0, 0, 0, 0, 0, 1, 0},
	"unclassified":  {0, 0, 0, 0, 0, 0, 1},
}

// Supported reports whether labels of type t can be scored.
func Supported(t label.Type) bool {
	_, ok := labelTypeOneHot[t]
	return ok
}

// SupportedTypes lists the label types the model is trained on, in one-hot order.
func SupportedTypes() []label.Type {
	return []label.Type{label.CurbRamp, label.NoCurbRamp, label.NoSidewalk, label.Obstacle, label.SurfaceProblem}
}

// Input is what the model needs to know about a freshly placed label.
type Input struct {
	LabelType      label.Type
	Severity       *int
	Zoom           int
	Lat            float64
	Lng            float64
	TagCount       int
	HasDescription bool
	WayType        string // empty: DefaultWayType
}

// InputFromLabel builds the model input from a label, estimating its position if needed.
func InputFromLabel(l *label.Label) (Input, error) {
	est, err := l.LatLng()
	if err != nil {
		return Input{}, err
	}
	return Input{
		LabelType:      l.Type(),
		Severity:       l.Severity(),
		Zoom:           l.Snapshot().Pose.Zoom,
		Lat:            est.Lat,
		Lng:            est.Lng,
		TagCount:       len(l.TagIDs()),
		HasDescription: l.Description() != "",
	}, nil
}

// Features encodes in as the model's input vector.
func Features(in Input, closeToCluster bool) ([]float32, error) {
	typeHot, ok := labelTypeOneHot[in.LabelType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLabelType, in.LabelType)
	}
	wayType := in.WayType
	if wayType == "" {
		wayType = DefaultWayType
	}
	wayHot, ok := wayTypeOneHot[wayType]
	if !ok {
		wayHot = wayTypeOneHot[DefaultWayType]
	}

	var severity float32
	if in.Severity != nil {
		severity = float32(*in.Severity)
	}

	v := make([]float32, 0, FeatureCount)
	v = append(v,
		severity,
		float32(in.Zoom),
		boolFeature(closeToCluster),
		distanceToRoad,
		distanceToIntersection,
		float32(in.TagCount),
		boolFeature(in.HasDescription),
	)
	v = append(v, typeHot[:]...)
	v = append(v, wayHot[:]...)
	return v, nil
}

func boolFeature(b bool) float32 {
	if b {
		return 1
	}
	return 0
}
