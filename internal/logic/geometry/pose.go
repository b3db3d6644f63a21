package geometry

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnsupportedZoom is returned for zoom levels outside the calibrated set {1, 2, 3}.
	ErrUnsupportedZoom = errors.New("unsupported zoom level")

	// ErrDegenerateProjection is returned when a canvas pixel cannot be turned
	// into a direction (zero canvas width, zero-length ray, NaN input).
	ErrDegenerateProjection = errors.New("degenerate projection input")
)

// Calibrated zoom levels. Regression coefficients and the viewer zoom table
// only exist for these.
const (
	MinZoom = 1
	MaxZoom = 3
)

// CameraPose is the view direction and scale of the panorama viewer at one instant.
type CameraPose struct {
	Heading float64 `json:"heading"` // degrees, clockwise from north
	Pitch   float64 `json:"pitch"`   // degrees, up from horizontal
	Zoom    int     `json:"zoom"`
}

// CanvasPoint is a pixel position on the viewer canvas.
type CanvasPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Canvas holds canvas dimensions in pixels.
type Canvas struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the pixel that maps back onto the view-center direction.
// The vertical +5 matches the offset applied in Project.
func (c Canvas) Center() CanvasPoint {
	return CanvasPoint{X: c.Width / 2, Y: c.Height/2 + verticalPixelOffset}
}

// ProjectionResult is the direction, in degrees, a canvas pixel looks along.
type ProjectionResult struct {
	Heading float64 `json:"heading"`
	Pitch   float64 `json:"pitch"`
}

// ValidateZoom checks that zoom is one of the calibrated levels.
func ValidateZoom(zoom int) error {
	if zoom < MinZoom || zoom > MaxZoom {
		return fmt.Errorf("%w: %d (want %d-%d)", ErrUnsupportedZoom, zoom, MinZoom, MaxZoom)
	}
	return nil
}

// NormalizeHeading maps any heading into [0, 360).
func NormalizeHeading(heading float64) float64 {
	h := math.Mod(heading, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}
