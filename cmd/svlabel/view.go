package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cjeanneret/svlabel/internal/logic/geolocate"
	"github.com/cjeanneret/svlabel/internal/logic/geometry"
)

// viewFlags describe where a pixel sits on the viewer and how the viewer is oriented.
type viewFlags struct {
	x, y          float64
	width, height float64
	heading       float64
	pitch         float64
	zoom          int
}

func (f *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.x, "x", 0, "canvas x in pixels")
	cmd.Flags().Float64Var(&f.y, "y", 0, "canvas y in pixels")
	cmd.Flags().Float64Var(&f.width, "width", 0, "canvas width in pixels (0: from config)")
	cmd.Flags().Float64Var(&f.height, "height", 0, "canvas height in pixels (0: from config)")
	cmd.Flags().Float64Var(&f.heading, "heading", 0, "viewer heading in degrees")
	cmd.Flags().Float64Var(&f.pitch, "pitch", 0, "viewer pitch in degrees")
	cmd.Flags().IntVar(&f.zoom, "zoom", 1, "viewer zoom level (1-3)")
}

func (f *viewFlags) canvas() geometry.Canvas {
	w, h := cfg.CanvasSize()
	if f.width != 0 {
		w = f.width
	}
	if f.height != 0 {
		h = f.height
	}
	return geometry.Canvas{Width: w, Height: h}
}

func (f *viewFlags) pose() geometry.CameraPose {
	return geometry.CameraPose{Heading: f.heading, Pitch: f.pitch, Zoom: f.zoom}
}

var fovCmd = &cobra.Command{
	Use:   "fov",
	Short: "Print field of view and viewer zoom for each zoom level",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		width, _ := cfg.CanvasSize()
		out := cmd.OutOrStdout()
		for z := geometry.MinZoom; z <= geometry.MaxZoom; z++ {
			fov := geometry.FieldOfView(float64(z))
			vz, err := geometry.ViewerZoom(z)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "zoom %d  fov %s  viewer zoom %.2f  focal %.1f px\n",
				z, color.CyanString("%.2f°", fov), vz, geometry.FocalLength(width, fov))
		}
		return nil
	},
}

var projectFlags viewFlags

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Convert a canvas pixel to the heading and pitch it looks along",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := geometry.Project(
			geometry.CanvasPoint{X: projectFlags.x, Y: projectFlags.y},
			projectFlags.canvas(),
			projectFlags.pose(),
		)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "heading %s  pitch %s\n",
			color.CyanString("%.4f°", res.Heading), color.CyanString("%.4f°", res.Pitch))
		return nil
	},
}

var (
	estimateFlags viewFlags
	panoLat       float64
	panoLng       float64
	svImageY      float64
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate the map position of a label placed on a panorama",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		est, err := geolocate.Compute(geolocate.Snapshot{
			CanvasPoint: geometry.CanvasPoint{X: estimateFlags.x, Y: estimateFlags.y},
			Canvas:      estimateFlags.canvas(),
			Pose:        estimateFlags.pose(),
			PanoramaLat: panoLat,
			PanoramaLng: panoLng,
			SvImageY:    svImageY,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatEstimate(est))
		return nil
	},
}

var (
	sweepFlags   viewFlags
	sweepOverlap float64
	sweepPitch   float64
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Print the viewer poses that look all the way around a panorama",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := geometry.PlanSweep(sweepFlags.canvas(), sweepFlags.pose(), sweepOverlap, sweepPitch)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s views (%d columns × %d rows), heading step %.2f°, pitch step %.2f°\n",
			color.GreenString("%d", plan.Columns*plan.Rows), plan.Columns, plan.Rows, plan.HeadingStep, plan.PitchStep)
		for i, p := range plan.Poses() {
			fmt.Fprintf(out, "%3d  heading %7.2f°  pitch %6.2f°\n", i+1, p.Heading, p.Pitch)
		}
		return nil
	},
}

func init() {
	sweepFlags.register(sweepCmd)
	sweepCmd.Flags().Float64Var(&sweepOverlap, "overlap", 30, "overlap between neighbouring views in percent")
	sweepCmd.Flags().Float64Var(&sweepPitch, "pitch-range", 0, "pitch range to cover in degrees, centered on --pitch")

	projectFlags.register(projectCmd)
	estimateFlags.register(estimateCmd)
	estimateCmd.Flags().Float64Var(&panoLat, "pano-lat", 0, "panorama latitude")
	estimateCmd.Flags().Float64Var(&panoLng, "pano-lng", 0, "panorama longitude")
	estimateCmd.Flags().Float64Var(&svImageY, "sv-image-y", 0, "pixel row in the full panorama image")

	rootCmd.AddCommand(fovCmd, projectCmd, estimateCmd, sweepCmd)
}
