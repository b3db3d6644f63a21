package geolocate

import (
	"errors"
	"fmt"

	"github.com/cjeanneret/svlabel/internal/logic/geometry"
)

// ErrUnsupportedZoomLevel is returned when no regression coefficients exist for a zoom level.
// It wraps geometry.ErrUnsupportedZoom, so either sentinel matches with errors.Is.
var ErrUnsupportedZoomLevel = fmt.Errorf("geolocate: %w", geometry.ErrUnsupportedZoom)

// ErrInvalidSnapshot is returned for snapshots carrying NaN or infinite values.
var ErrInvalidSnapshot = errors.New("geolocate: invalid snapshot")

// Coefficients are the per-zoom linear regression parameters that estimate a
// label's heading offset and distance from the panorama.
//
//	headingDiff = HeadingIntercept + HeadingCanvasXSlope × canvasX
//	distanceM   = DistanceIntercept + DistanceSvImageYSlope × svImageY + DistanceCanvasYSlope × canvasY
type Coefficients struct {
	HeadingIntercept      float64
	HeadingCanvasXSlope   float64
	DistanceIntercept     float64 // meters
	DistanceSvImageYSlope float64
	DistanceCanvasYSlope  float64
}

// Fitted offline against ground-truth labels; values must not drift.
var coefficients = map[int]Coefficients{
	1: {
		HeadingIntercept:      -51.2401711,
		HeadingCanvasXSlope:   0.1443374,
		DistanceIntercept:     18.6051843,
		DistanceSvImageYSlope: 0.0138947,
		DistanceCanvasYSlope:  0.0011023,
	},
	2: {
		HeadingIntercept:      -27.5267447,
		HeadingCanvasXSlope:   0.0784357,
		DistanceIntercept:     20.8794248,
		DistanceSvImageYSlope: 0.0184087,
		DistanceCanvasYSlope:  0.0022135,
	},
	3: {
		HeadingIntercept:      -13.5675945,
		HeadingCanvasXSlope:   0.0396061,
		DistanceIntercept:     25.2472682,
		DistanceSvImageYSlope: 0.0264216,
		DistanceCanvasYSlope:  0.0011071,
	},
}

// CoefficientsFor returns the regression parameters for a zoom level.
func CoefficientsFor(zoom int) (Coefficients, error) {
	c, ok := coefficients[zoom]
	if !ok {
		return Coefficients{}, fmt.Errorf("%w: %d", ErrUnsupportedZoomLevel, zoom)
	}
	return c, nil
}

// HeadingDiff returns the estimated heading offset (degrees) of a label from the view heading.
func (c Coefficients) HeadingDiff(canvasX float64) float64 {
	return c.HeadingIntercept + c.HeadingCanvasXSlope*canvasX
}

// DistanceMeters returns the estimated distance from the panorama, clamped at zero.
func (c Coefficients) DistanceMeters(svImageY, canvasY float64) float64 {
	d := c.DistanceIntercept + c.DistanceSvImageYSlope*svImageY + c.DistanceCanvasYSlope*canvasY
	if d < 0 {
		return 0
	}
	return d
}
