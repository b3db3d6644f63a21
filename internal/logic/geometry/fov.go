package geometry

import (
	"fmt"
	"math"
)

// FieldOfView returns the viewer's horizontal field of view in degrees for a zoom level.
// Formula (fitted against the Street View viewer):
//
//	zoom <= 2: FOV = 126.5 - zoom × 36.75      (linear descent)
//	zoom >  2: FOV = 195.93 / 1.92^zoom        (exponential decay)
//
// It is defined for any zoom, including the viewer's fractional levels.
func FieldOfView(zoom float64) float64 {
	if zoom <= 2 {
		return 126.5 - zoom*36.75
	}
	return 195.93 / math.Pow(1.92, zoom)
}

// FocalLength returns the pinhole focal length in pixels for a canvas width and FOV (degrees).
// Formula: f = 0.5 × width / tan(0.5 × FOV)
func FocalLength(canvasWidth, fovDeg float64) float64 {
	return 0.5 * canvasWidth / math.Tan(0.5*fovDeg*math.Pi/180.0)
}

// viewerZoom maps a label's zoom level to the zoom the embedded viewer must be
// set to for the same apparent scale. Determined experimentally.
var viewerZoom = map[int]float64{
	1: 1,
	2: 1.95,
	3: 2.95,
}

// ViewerZoom returns the viewer zoom for a calibrated label zoom level.
func ViewerZoom(zoom int) (float64, error) {
	z, ok := viewerZoom[zoom]
	if !ok {
		return 0, fmt.Errorf("viewer zoom: %w: %d", ErrUnsupportedZoom, zoom)
	}
	return z, nil
}
