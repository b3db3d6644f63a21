package geolocate

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/cjeanneret/svlabel/internal/debug"
	"github.com/cjeanneret/svlabel/internal/logic/geometry"
)

// Method tags how a label position was obtained.
type Method string

const (
	// MethodApproximation2 is the regression estimate computed on first access.
	MethodApproximation2 Method = "approximation2"
	// MethodCached marks a previously computed estimate returned again.
	MethodCached Method = "cached"
)

// Snapshot is everything captured when a label is placed. It is never mutated.
type Snapshot struct {
	CanvasPoint geometry.CanvasPoint `json:"canvas_point"` // original canvas coordinate
	Canvas      geometry.Canvas      `json:"canvas"`       // original canvas size
	Pose        geometry.CameraPose  `json:"pose"`         // original POV
	PanoramaLat float64              `json:"panorama_lat"`
	PanoramaLng float64              `json:"panorama_lng"`
	SvImageY    float64              `json:"sv_image_y"` // row in the full equirectangular panorama
}

// Validate checks the zoom level and rejects non-finite values.
func (s Snapshot) Validate() error {
	if err := geometry.ValidateZoom(s.Pose.Zoom); err != nil {
		return fmt.Errorf("%w: %d", ErrUnsupportedZoomLevel, s.Pose.Zoom)
	}
	for _, v := range []float64{
		s.CanvasPoint.X, s.CanvasPoint.Y, s.Pose.Heading, s.Pose.Pitch,
		s.PanoramaLat, s.PanoramaLng, s.SvImageY,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value", ErrInvalidSnapshot)
		}
	}
	return nil
}

// Estimate is an estimated label position.
type Estimate struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Method     Method  `json:"method"`
	HeadingDeg float64 `json:"heading_deg,omitempty"` // bearing from the panorama, not normalized
	DistanceKm float64 `json:"distance_km,omitempty"`
}

// Point returns the estimate as an orb point (lng, lat).
func (e Estimate) Point() orb.Point {
	return orb.Point{e.Lng, e.Lat}
}

// Compute estimates the latitude/longitude of a label from the panorama position,
// the pose it was placed at, and its pixel position. It is a pure function;
// callers that need a stable answer memoize it (see label.Label.LatLng).
func Compute(s Snapshot) (Estimate, error) {
	if err := s.Validate(); err != nil {
		return Estimate{}, err
	}
	c, err := CoefficientsFor(s.Pose.Zoom)
	if err != nil {
		return Estimate{}, err
	}

	headingDiff := c.HeadingDiff(s.CanvasPoint.X)
	distanceKm := c.DistanceMeters(s.SvImageY, s.CanvasPoint.Y) / 1000.0
	heading := s.Pose.Heading + headingDiff

	dest := Destination(s.PanoramaLat, s.PanoramaLng, distanceKm, heading)

	debug.Verbose("estimate: zoom=%d headingDiff=%.6f heading=%.6f distance=%.6fkm",
		s.Pose.Zoom, headingDiff, heading, distanceKm)

	return Estimate{
		Lat:        dest[1],
		Lng:        dest[0],
		Method:     MethodApproximation2,
		HeadingDeg: heading,
		DistanceKm: distanceKm,
	}, nil
}

// Destination returns the point reached from (lat, lng) after travelling
// distanceKm along a great circle with the given initial bearing (degrees,
// any real value). Spherical earth.
func Destination(lat, lng, distanceKm, bearing float64) orb.Point {
	return geo.PointAtBearingAndDistance(orb.Point{lng, lat}, bearing, distanceKm*1000.0)
}
