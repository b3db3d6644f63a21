package geometry

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// verticalPixelOffset compensates a fixed rendering offset of the viewer canvas.
// Empirical; keep as is.
const verticalPixelOffset = 5.0

// Project converts a canvas pixel, captured with the given canvas size and pose,
// into the heading/pitch of the ray it shows.
//
// The camera is a pinhole on the unit sphere: the view center sits at focal
// distance f along (heading, pitch), the canvas spans the plane through it with
// a right vector u and an up vector v, and the pixel offset from the canvas
// center is walked along that plane. sgn(cos(pitch)) flips u when looking past
// the zenith.
//
// Heading comes back from atan2 in (-180, 180]; pitch is not clamped.
func Project(p CanvasPoint, canvas Canvas, pose CameraPose) (ProjectionResult, error) {
	if canvas.Width <= 0 || math.IsNaN(canvas.Width) || math.IsInf(canvas.Width, 0) {
		return ProjectionResult{}, fmt.Errorf("%w: canvas width %g", ErrDegenerateProjection, canvas.Width)
	}

	fov := FieldOfView(float64(pose.Zoom))
	if fov <= 0 || fov >= 180 {
		return ProjectionResult{}, fmt.Errorf("%w: field of view %g at zoom %d", ErrDegenerateProjection, fov, pose.Zoom)
	}
	f := FocalLength(canvas.Width, fov)

	h0 := pose.Heading * math.Pi / 180.0
	p0 := pose.Pitch * math.Pi / 180.0

	center := r3.Vector{
		X: f * math.Cos(p0) * math.Sin(h0),
		Y: f * math.Cos(p0) * math.Cos(h0),
		Z: f * math.Sin(p0),
	}

	du := p.X - canvas.Width/2
	dv := canvas.Height/2 - (p.Y - verticalPixelOffset)

	s := sgn(math.Cos(p0))
	u := r3.Vector{
		X: s * math.Cos(h0),
		Y: -s * math.Sin(h0),
		Z: 0,
	}
	v := r3.Vector{
		X: -math.Sin(p0) * math.Sin(h0),
		Y: -math.Sin(p0) * math.Cos(h0),
		Z: math.Cos(p0),
	}

	ray := center.Add(u.Mul(du)).Add(v.Mul(dv))
	r := ray.Norm()
	if r == 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return ProjectionResult{}, fmt.Errorf("%w: ray length %g", ErrDegenerateProjection, r)
	}

	return ProjectionResult{
		Heading: math.Atan2(ray.X, ray.Y) * 180.0 / math.Pi,
		Pitch:   math.Asin(ray.Z/r) * 180.0 / math.Pi,
	}, nil
}

func sgn(x float64) float64 {
	if x >= 0 {
		return 1
	}
	return -1
}
