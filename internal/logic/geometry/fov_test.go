package geometry

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-9 // tolerance for float comparisons (degrees)

func TestFieldOfView_LinearRegion(t *testing.T) {
	cases := []struct {
		name string
		zoom float64
		want float64
	}{
		{"zoom_0", 0, 126.5},
		{"zoom_1", 1, 126.5 - 36.75},
		{"zoom_2", 2, 126.5 - 2*36.75},
		{"zoom_1.95", 1.95, 126.5 - 1.95*36.75},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FieldOfView(tc.zoom)
			if math.Abs(got-tc.want) > epsilon {
				t.Errorf("FieldOfView(%v) = %v, want %v", tc.zoom, got, tc.want)
			}
		})
	}
}

func TestFieldOfView_ExponentialRegion(t *testing.T) {
	cases := []struct {
		name string
		zoom float64
	}{
		{"zoom_2.95", 2.95},
		{"zoom_3", 3},
		{"zoom_4", 4},
		{"zoom_5", 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			want := 195.93 / math.Pow(1.92, tc.zoom)
			got := FieldOfView(tc.zoom)
			if got != want {
				t.Errorf("FieldOfView(%v) = %v, want %v", tc.zoom, got, want)
			}
		})
	}
}

func TestFieldOfView_StrictlyDecreasing(t *testing.T) {
	prev := FieldOfView(1)
	for zoom := 2; zoom <= 5; zoom++ {
		cur := FieldOfView(float64(zoom))
		if cur >= prev {
			t.Errorf("FieldOfView(%d) = %v, should be < FieldOfView(%d) = %v", zoom, cur, zoom-1, prev)
		}
		prev = cur
	}
}

func TestFocalLength_QuarterTurn(t *testing.T) {
	// 90° FOV: the canvas half-width equals the focal length.
	got := FocalLength(640, 90)
	if math.Abs(got-320) > 1e-6 {
		t.Errorf("FocalLength(640, 90) = %v, want 320", got)
	}
}

func TestViewerZoom_Calibrated(t *testing.T) {
	cases := []struct {
		zoom int
		want float64
	}{
		{1, 1},
		{2, 1.95},
		{3, 2.95},
	}
	for _, tc := range cases {
		got, err := ViewerZoom(tc.zoom)
		if err != nil {
			t.Fatalf("ViewerZoom(%d): unexpected error: %v", tc.zoom, err)
		}
		if got != tc.want {
			t.Errorf("ViewerZoom(%d) = %v, want %v", tc.zoom, got, tc.want)
		}
	}
}

func TestViewerZoom_Unsupported(t *testing.T) {
	for _, zoom := range []int{0, 4, -1} {
		if _, err := ViewerZoom(zoom); !errors.Is(err, ErrUnsupportedZoom) {
			t.Errorf("ViewerZoom(%d) error = %v, want ErrUnsupportedZoom", zoom, err)
		}
	}
}

func TestValidateZoom(t *testing.T) {
	for _, zoom := range []int{1, 2, 3} {
		if err := ValidateZoom(zoom); err != nil {
			t.Errorf("ValidateZoom(%d) = %v, want nil", zoom, err)
		}
	}
	for _, zoom := range []int{0, 4, 10, -3} {
		if err := ValidateZoom(zoom); !errors.Is(err, ErrUnsupportedZoom) {
			t.Errorf("ValidateZoom(%d) = %v, want ErrUnsupportedZoom", zoom, err)
		}
	}
}

func TestNormalizeHeading(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{359.5, 359.5},
		{360, 0},
		{-90, 270},
		{725, 5},
		{-720, 0},
	}
	for _, tc := range cases {
		got := NormalizeHeading(tc.in)
		if math.Abs(got-tc.want) > epsilon {
			t.Errorf("NormalizeHeading(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
