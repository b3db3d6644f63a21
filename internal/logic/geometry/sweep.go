package geometry

import (
	"fmt"
	"math"
)

// SweepPlan is the grid of viewer poses needed to look all the way around a
// panorama with a given overlap between neighbouring views.
type SweepPlan struct {
	Zoom        int
	Columns     int     // views around the horizon
	Rows        int     // views from top to bottom
	HeadingStep float64 // degrees between columns
	PitchStep   float64 // degrees between rows

	StartHeading float64 // heading of the first column
	TopPitch     float64 // pitch of the top row
}

// VerticalFieldOfView returns the vertical FOV in degrees for a horizontal FOV
// shown on canvas.
func VerticalFieldOfView(fovDeg float64, canvas Canvas) float64 {
	half := math.Tan(0.5 * fovDeg * math.Pi / 180.0)
	return 2 * math.Atan(half*canvas.Height/canvas.Width) * 180.0 / math.Pi
}

// PlanSweep computes the sweep starting at pose and covering 360° of heading and
// pitchRangeDeg of pitch centered on pose.Pitch. overlapPct is the share of each
// view repeated in the next one, in [0, 100).
func PlanSweep(canvas Canvas, pose CameraPose, overlapPct, pitchRangeDeg float64) (SweepPlan, error) {
	if err := ValidateZoom(pose.Zoom); err != nil {
		return SweepPlan{}, err
	}
	if canvas.Width <= 0 || canvas.Height <= 0 {
		return SweepPlan{}, fmt.Errorf("%w: canvas %gx%g", ErrDegenerateProjection, canvas.Width, canvas.Height)
	}
	if overlapPct < 0 || overlapPct >= 100 || math.IsNaN(overlapPct) {
		return SweepPlan{}, fmt.Errorf("overlap must be in [0, 100), got %g", overlapPct)
	}
	if pitchRangeDeg < 0 || pitchRangeDeg > 180 || math.IsNaN(pitchRangeDeg) {
		return SweepPlan{}, fmt.Errorf("pitch range must be in [0, 180], got %g", pitchRangeDeg)
	}

	hfov := FieldOfView(float64(pose.Zoom))
	vfov := VerticalFieldOfView(hfov, canvas)
	keep := 1 - overlapPct/100

	// Round up so the views cover the whole range, then spread them evenly.
	columns := int(math.Ceil(360 / (hfov * keep)))
	if columns < 1 {
		columns = 1
	}
	rows := 1
	if pitchRangeDeg > vfov {
		rows = int(math.Ceil((pitchRangeDeg-vfov)/(vfov*keep))) + 1
	}
	pitchStep := 0.0
	if rows > 1 {
		pitchStep = (pitchRangeDeg - vfov) / float64(rows-1)
	}

	return SweepPlan{
		Zoom:         pose.Zoom,
		Columns:      columns,
		Rows:         rows,
		HeadingStep:  360 / float64(columns),
		PitchStep:    pitchStep,
		StartHeading: NormalizeHeading(pose.Heading),
		TopPitch:     pose.Pitch + pitchStep*float64(rows-1)/2,
	}, nil
}

// Poses returns the plan's views in column order, serpentine:
// column 0 top to bottom, column 1 bottom to top, and so on.
func (p SweepPlan) Poses() []CameraPose {
	poses := make([]CameraPose, 0, p.Columns*p.Rows)
	for col := 0; col < p.Columns; col++ {
		heading := NormalizeHeading(p.StartHeading + float64(col)*p.HeadingStep)
		goingDown := col%2 == 0
		for i := 0; i < p.Rows; i++ {
			row := i
			if !goingDown {
				row = p.Rows - 1 - i
			}
			poses = append(poses, CameraPose{
				Heading: heading,
				Pitch:   p.TopPitch - float64(row)*p.PitchStep,
				Zoom:    p.Zoom,
			})
		}
	}
	return poses
}
