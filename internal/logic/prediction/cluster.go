package prediction

import (
	"fmt"
	"math"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	"github.com/cjeanneret/svlabel/internal/debug"
	"github.com/cjeanneret/svlabel/internal/logic/label"
)

// DefaultThresholdsKm are the per-type distances under which a label counts as
// close to an existing cluster.
func DefaultThresholdsKm() map[label.Type]float64 {
	return map[label.Type]float64{
		label.CurbRamp:       0.0035,
		label.NoCurbRamp:     0.0035,
		label.SurfaceProblem: 0.01,
		label.Obstacle:       0.01,
		label.NoSidewalk:     0.01,
	}
}

// Clusters holds known label cluster centers per label type.
type Clusters struct {
	thresholds map[label.Type]float64
	points     map[label.Type][]orb.Point
}

// NewClusters creates an empty cluster set. Missing thresholds fall back to the defaults.
func NewClusters(thresholdsKm map[label.Type]float64) *Clusters {
	th := DefaultThresholdsKm()
	for t, v := range thresholdsKm {
		th[t] = v
	}
	return &Clusters{
		thresholds: th,
		points:     make(map[label.Type][]orb.Point),
	}
}

// Add records a cluster center (lng/lat) for a label type.
func (c *Clusters) Add(t label.Type, p orb.Point) {
	c.points[t] = append(c.points[t], p)
}

// Len returns the number of clusters known for a label type.
func (c *Clusters) Len(t label.Type) int {
	return len(c.points[t])
}

// Threshold returns the closeness threshold in km for a label type.
func (c *Clusters) Threshold(t label.Type) float64 {
	return c.thresholds[t]
}

// NearestKm returns the haversine distance in km to the nearest cluster of type t.
// ok is false when there are no clusters of that type.
func (c *Clusters) NearestKm(lat, lng float64, t label.Type) (km float64, ok bool) {
	pts := c.points[t]
	if len(pts) == 0 {
		return 0, false
	}
	from := orb.Point{lng, lat}
	best := math.Inf(1)
	for _, p := range pts {
		if d := geo.DistanceHaversine(from, p); d < best {
			best = d
		}
	}
	return best / 1000.0, true
}

// IsCloseToCluster reports whether (lat, lng) is nearer than the type's threshold
// to a known cluster. No clusters means not close.
func (c *Clusters) IsCloseToCluster(lat, lng float64, t label.Type) bool {
	km, ok := c.NearestKm(lat, lng, t)
	if !ok {
		return false
	}
	return km < c.thresholds[t]
}

// LoadClusters parses a GeoJSON FeatureCollection of Point features whose
// "labelType" property names the label type. Other features are skipped.
func LoadClusters(data []byte, thresholdsKm map[label.Type]float64) (*Clusters, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse clusters: %w", err)
	}
	c := NewClusters(thresholdsKm)
	skipped := 0
	for _, f := range fc.Features {
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			skipped++
			continue
		}
		name, ok := f.Properties["labelType"].(string)
		if !ok {
			skipped++
			continue
		}
		t, err := label.ParseType(name)
		if err != nil || !Supported(t) {
			skipped++
			continue
		}
		c.Add(t, p)
	}
	debug.Info("Loaded %d clusters (%d skipped)", len(fc.Features)-skipped, skipped)
	return c, nil
}

// LoadClustersFile reads clusters from a GeoJSON file.
func LoadClustersFile(path string, thresholdsKm map[label.Type]float64) (*Clusters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read clusters: %w", err)
	}
	return LoadClusters(data, thresholdsKm)
}
