package prediction

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/svlabel/internal/logic/geolocate"
	"github.com/cjeanneret/svlabel/internal/logic/geometry"
	"github.com/cjeanneret/svlabel/internal/logic/label"
)

const clustersJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-122.3321, 47.6062]}, "properties": {"labelType": "CurbRamp"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-122.3400, 47.6100]}, "properties": {"labelType": "Obstacle"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-122.3400, 47.6100]}, "properties": {"labelType": "Occlusion"}},
    {"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[0, 0], [1, 1]]}, "properties": {"labelType": "CurbRamp"}}
  ]
}`

func TestFeatures_Layout(t *testing.T) {
	sev := 3
	v, err := Features(Input{
		LabelType:      label.Obstacle,
		Severity:       &sev,
		Zoom:           2,
		TagCount:       4,
		HasDescription: true,
	}, true)
	require.NoError(t, err)
	require.Len(t, v, FeatureCount)

	want := []float32{
		3, 2, 1, 0, 5, 4, 1,
		0, 0, 0, 1, 0,
		0, 0, 1, 0, 0, 0, 0,
	}
	assert.Equal(t, want, v)
}

func TestFeatures_WayTypeAndDefaults(t *testing.T) {
	v, err := Features(Input{LabelType: label.CurbRamp, Zoom: 1, WayType: "trunk"}, false)
	require.NoError(t, err)
	assert.Equal(t, float32(0), v[0], "nil severity encodes as 0")
	assert.Equal(t, float32(0), v[2])
	assert.Equal(t, float32(1), v[7])
	assert.Equal(t, float32(1), v[12+5])

	v, err = Features(Input{LabelType: label.CurbRamp, WayType: "motorway"}, false)
	require.NoError(t, err)
	assert.Equal(t, float32(1), v[12+2], "unknown way type falls back to residential")
}

func TestFeatures_UnsupportedType(t *testing.T) {
	for _, typ := range []label.Type{label.Occlusion, label.Signal, label.Crosswalk, label.Other} {
		_, err := Features(Input{LabelType: typ}, false)
		assert.ErrorIs(t, err, ErrUnsupportedLabelType, typ)
	}
}

func TestSupportedTypes(t *testing.T) {
	for _, typ := range SupportedTypes() {
		assert.True(t, Supported(typ), typ)
	}
	assert.False(t, Supported(label.Signal))
}

func TestClusters_IsCloseToCluster(t *testing.T) {
	c, err := LoadClusters([]byte(clustersJSON), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len(label.CurbRamp))
	assert.Equal(t, 1, c.Len(label.Obstacle))
	assert.Equal(t, 0, c.Len(label.Occlusion))

	// ~1.1 m north of the curb ramp cluster.
	assert.True(t, c.IsCloseToCluster(47.60621, -122.3321, label.CurbRamp))
	// ~5.6 m: outside the curb ramp threshold (3.5 m), inside the obstacle one (10 m).
	assert.False(t, c.IsCloseToCluster(47.60625, -122.3321, label.CurbRamp))
	assert.True(t, c.IsCloseToCluster(47.61005, -122.3400, label.Obstacle))

	assert.False(t, c.IsCloseToCluster(47.6062, -122.3321, label.NoSidewalk), "no clusters of that type")

	km, ok := c.NearestKm(47.6062, -122.3321, label.CurbRamp)
	require.True(t, ok)
	assert.InDelta(t, 0, km, 1e-9)
}

func TestClusters_ThresholdOverride(t *testing.T) {
	c := NewClusters(map[label.Type]float64{label.CurbRamp: 0.01})
	assert.Equal(t, 0.01, c.Threshold(label.CurbRamp))
	assert.Equal(t, 0.0035, c.Threshold(label.NoCurbRamp))

	c.Add(label.CurbRamp, orb.Point{-122.3321, 47.6062})
	assert.True(t, c.IsCloseToCluster(47.60625, -122.3321, label.CurbRamp))
}

func TestLoadClusters_Invalid(t *testing.T) {
	_, err := LoadClusters([]byte(`{"type":`), nil)
	assert.Error(t, err)
}

func TestLoadClusters_SkipsMistypedLabelType(t *testing.T) {
	for name, props := range map[string]string{
		"number":  `{"labelType":3}`,
		"bool":    `{"labelType":true}`,
		"null":    `{"labelType":null}`,
		"missing": `{}`,
	} {
		t.Run(name, func(t *testing.T) {
			data := `{"type":"FeatureCollection","features":[
				{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":` + props + `},
				{"type":"Feature","geometry":{"type":"Point","coordinates":[1,1]},"properties":{"labelType":"Obstacle"}}
			]}`
			c, err := LoadClusters([]byte(data), nil)
			require.NoError(t, err)
			assert.Equal(t, 1, c.Len(label.Obstacle))
			for _, typ := range SupportedTypes() {
				if typ != label.Obstacle {
					assert.Equal(t, 0, c.Len(typ), typ)
				}
			}
		})
	}
}

func TestLoadClustersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clusters.geojson")
	require.NoError(t, os.WriteFile(path, []byte(clustersJSON), 0o644))

	c, err := LoadClustersFile(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len(label.CurbRamp))

	_, err = LoadClustersFile(filepath.Join(t.TempDir(), "missing.geojson"), nil)
	assert.Error(t, err)
}

func TestLinearScorer(t *testing.T) {
	_, err := NewLinearScorer([]float64{1, 2}, 0)
	assert.Error(t, err)

	s, err := NewLinearScorer(make([]float64, FeatureCount), 0)
	require.NoError(t, err)
	score, err := s.Score(context.Background(), make([]float32, FeatureCount))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, score, 1e-12)

	w := make([]float64, FeatureCount)
	w[0] = 2 // severity
	s, err = NewLinearScorer(w, -3)
	require.NoError(t, err)
	f := make([]float32, FeatureCount)
	f[0] = 3
	score, err = s.Score(context.Background(), f)
	require.NoError(t, err)
	assert.InDelta(t, 0.952574126822433, score, 1e-12) // sigmoid(3)

	_, err = s.Score(context.Background(), f[:3])
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Score(ctx, f)
	assert.ErrorIs(t, err, context.Canceled)
}

func fixedScorer(score float64) Scorer {
	return ScorerFunc(func(_ context.Context, features []float32) (float64, error) {
		if len(features) != FeatureCount {
			return 0, errors.New("bad feature count")
		}
		return score, nil
	})
}

func TestPredictor_Evaluate(t *testing.T) {
	ctx := context.Background()
	in := Input{LabelType: label.CurbRamp, Zoom: 1, Lat: 47.6062, Lng: -122.3321}

	cases := []struct {
		name  string
		score float64
		popup bool
	}{
		{"below", 0.49, false},
		{"at_threshold", 0.5, true},
		{"above", 0.9, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPredictor(fixedScorer(tc.score), nil, 0)
			d, err := p.Evaluate(ctx, in)
			require.NoError(t, err)
			assert.Equal(t, tc.score, d.Score)
			assert.Equal(t, tc.popup, d.ShowPopup)
			assert.False(t, d.CloseToCluster)
		})
	}
}

func TestPredictor_UsesClusters(t *testing.T) {
	c, err := LoadClusters([]byte(clustersJSON), nil)
	require.NoError(t, err)

	var seen []float32
	scorer := ScorerFunc(func(_ context.Context, f []float32) (float64, error) {
		seen = f
		return 0.1, nil
	})
	p := NewPredictor(scorer, c, 0.7)
	assert.Equal(t, 0.7, p.Threshold())

	d, err := p.Evaluate(context.Background(), Input{LabelType: label.CurbRamp, Lat: 47.6062, Lng: -122.3321})
	require.NoError(t, err)
	assert.True(t, d.CloseToCluster)
	require.Len(t, seen, FeatureCount)
	assert.Equal(t, float32(1), seen[2])
}

func TestPredictor_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewPredictor(nil, nil, 0).Evaluate(ctx, Input{LabelType: label.CurbRamp})
	assert.ErrorIs(t, err, ErrNoScorer)

	_, err = NewPredictor(fixedScorer(1), nil, 0).Evaluate(ctx, Input{LabelType: label.Occlusion})
	assert.ErrorIs(t, err, ErrUnsupportedLabelType)

	failing := ScorerFunc(func(context.Context, []float32) (float64, error) {
		return 0, errors.New("model exploded")
	})
	_, err = NewPredictor(failing, nil, 0).Evaluate(ctx, Input{LabelType: label.CurbRamp})
	assert.ErrorContains(t, err, "model exploded")
}

func TestPredictor_EvaluateLabel(t *testing.T) {
	sev := 2
	l, err := label.New(label.Params{
		Type:        label.NoCurbRamp,
		PanoID:      "pano",
		Severity:    &sev,
		Description: "blocked by a pole",
		TagIDs:      []int{1, 2},
		Snapshot: geolocate.Snapshot{
			CanvasPoint: geometry.CanvasPoint{X: 360, Y: 245},
			Canvas:      geometry.Canvas{Width: 720, Height: 480},
			Pose:        geometry.CameraPose{Heading: 10, Zoom: 3},
			PanoramaLat: 47.6062,
			PanoramaLng: -122.3321,
			SvImageY:    3328,
		},
	})
	require.NoError(t, err)

	var seen []float32
	p := NewPredictor(ScorerFunc(func(_ context.Context, f []float32) (float64, error) {
		seen = f
		return 0.8, nil
	}), nil, 0)

	d, err := p.EvaluateLabel(context.Background(), l)
	require.NoError(t, err)
	assert.True(t, d.ShowPopup)
	assert.Equal(t, []float32{2, 3, 0, 0, 5, 2, 1}, seen[:baseFeatureCount])
	assert.Equal(t, float32(1), seen[baseFeatureCount+1])
}
