package geometry

import (
	"errors"
	"math"
	"testing"
)

var sweepCanvas = Canvas{Width: 720, Height: 480}

func TestVerticalFieldOfView(t *testing.T) {
	square := Canvas{Width: 500, Height: 500}
	if got := VerticalFieldOfView(90, square); math.Abs(got-90) > epsilon {
		t.Errorf("square canvas: got %v, want 90", got)
	}
	if got := VerticalFieldOfView(89.75, sweepCanvas); got >= 89.75 || got <= 0 {
		t.Errorf("landscape canvas: got %v, want in (0, 89.75)", got)
	}
}

func TestPlanSweep_SingleRow(t *testing.T) {
	plan, err := PlanSweep(sweepCanvas, CameraPose{Heading: 10, Pitch: -5, Zoom: 1}, 30, 0)
	if err != nil {
		t.Fatalf("PlanSweep: %v", err)
	}
	// 89.75° × 0.7 = 62.8° per view: 6 columns.
	if plan.Columns != 6 || math.Abs(plan.HeadingStep-60) > epsilon {
		t.Errorf("columns = %d step = %v, want 6 / 60", plan.Columns, plan.HeadingStep)
	}
	if plan.Rows != 1 || plan.PitchStep != 0 || plan.TopPitch != -5 {
		t.Errorf("rows = %d pitchStep = %v top = %v, want 1 / 0 / -5", plan.Rows, plan.PitchStep, plan.TopPitch)
	}

	poses := plan.Poses()
	if len(poses) != 6 {
		t.Fatalf("len(poses) = %d, want 6", len(poses))
	}
	if poses[5].Heading != 310 {
		t.Errorf("last heading = %v, want 310", poses[5].Heading)
	}
}

func TestPlanSweep_CoversWithOverlap(t *testing.T) {
	for zoom := MinZoom; zoom <= MaxZoom; zoom++ {
		for _, overlap := range []float64{0, 30, 50, 90} {
			plan, err := PlanSweep(sweepCanvas, CameraPose{Zoom: zoom}, overlap, 90)
			if err != nil {
				t.Fatalf("zoom %d overlap %v: %v", zoom, overlap, err)
			}
			hfov := FieldOfView(float64(zoom))
			vfov := VerticalFieldOfView(hfov, sweepCanvas)
			keep := 1 - overlap/100
			if plan.HeadingStep > hfov*keep+epsilon {
				t.Errorf("zoom %d overlap %v: heading step %v > %v", zoom, overlap, plan.HeadingStep, hfov*keep)
			}
			if plan.PitchStep > vfov*keep+epsilon {
				t.Errorf("zoom %d overlap %v: pitch step %v > %v", zoom, overlap, plan.PitchStep, vfov*keep)
			}
			if math.Abs(float64(plan.Columns)*plan.HeadingStep-360) > epsilon {
				t.Errorf("zoom %d overlap %v: columns do not span 360°", zoom, overlap)
			}
		}
	}
}

func TestPlanSweep_RowsCenteredOnPitch(t *testing.T) {
	pose := CameraPose{Heading: 0, Pitch: 10, Zoom: 1}
	plan, err := PlanSweep(sweepCanvas, pose, 30, 120)
	if err != nil {
		t.Fatalf("PlanSweep: %v", err)
	}
	if plan.Rows < 2 {
		t.Fatalf("rows = %d, want >= 2", plan.Rows)
	}
	bottom := plan.TopPitch - float64(plan.Rows-1)*plan.PitchStep
	if math.Abs((plan.TopPitch+bottom)/2-10) > epsilon {
		t.Errorf("rows centered on %v, want 10", (plan.TopPitch+bottom)/2)
	}
	vfov := VerticalFieldOfView(FieldOfView(1), sweepCanvas)
	if math.Abs((plan.TopPitch-bottom)+vfov-120) > epsilon {
		t.Errorf("top %v bottom %v do not span 120° with vfov %v", plan.TopPitch, bottom, vfov)
	}
}

func TestSweepPlan_PosesSerpentine(t *testing.T) {
	plan := SweepPlan{Zoom: 2, Columns: 3, Rows: 2, HeadingStep: 120, PitchStep: 20, StartHeading: 300, TopPitch: 10}
	want := []CameraPose{
		{Heading: 300, Pitch: 10, Zoom: 2},
		{Heading: 300, Pitch: -10, Zoom: 2},
		{Heading: 60, Pitch: -10, Zoom: 2},
		{Heading: 60, Pitch: 10, Zoom: 2},
		{Heading: 180, Pitch: 10, Zoom: 2},
		{Heading: 180, Pitch: -10, Zoom: 2},
	}
	got := plan.Poses()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i].Heading-want[i].Heading) > epsilon || math.Abs(got[i].Pitch-want[i].Pitch) > epsilon || got[i].Zoom != 2 {
			t.Errorf("pose %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestPlanSweep_NormalizesStartHeading(t *testing.T) {
	plan, err := PlanSweep(sweepCanvas, CameraPose{Heading: -90, Zoom: 3}, 0, 0)
	if err != nil {
		t.Fatalf("PlanSweep: %v", err)
	}
	if plan.StartHeading != 270 {
		t.Errorf("start heading = %v, want 270", plan.StartHeading)
	}
	for _, p := range plan.Poses() {
		if p.Heading < 0 || p.Heading >= 360 {
			t.Errorf("heading %v out of [0, 360)", p.Heading)
		}
	}
}

func TestPlanSweep_InvalidInputs(t *testing.T) {
	cases := []struct {
		name    string
		canvas  Canvas
		zoom    int
		overlap float64
		pitch   float64
	}{
		{"zoom_4", sweepCanvas, 4, 30, 0},
		{"zero_width", Canvas{Width: 0, Height: 480}, 1, 30, 0},
		{"zero_height", Canvas{Width: 720, Height: 0}, 1, 30, 0},
		{"overlap_100", sweepCanvas, 1, 100, 0},
		{"overlap_negative", sweepCanvas, 1, -1, 0},
		{"overlap_NaN", sweepCanvas, 1, math.NaN(), 0},
		{"pitch_range_too_large", sweepCanvas, 1, 30, 181},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := PlanSweep(tc.canvas, CameraPose{Zoom: tc.zoom}, tc.overlap, tc.pitch); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	_, err := PlanSweep(sweepCanvas, CameraPose{Zoom: 0}, 0, 0)
	if !errors.Is(err, ErrUnsupportedZoom) {
		t.Errorf("zoom 0: got %v, want ErrUnsupportedZoom", err)
	}
}
