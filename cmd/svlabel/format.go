package main

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/cjeanneret/svlabel/internal/logic/geolocate"
	"github.com/cjeanneret/svlabel/internal/logic/label"
)

// formatEstimate formats a position estimate for terminal display.
func formatEstimate(est geolocate.Estimate) string {
	coords := fmt.Sprintf("(%.6f, %.6f)", est.Lat, est.Lng)
	return fmt.Sprintf("%s %s - heading %.2f°, %.1f m",
		color.CyanString(coords),
		color.New(color.Faint).Sprint(est.Method),
		est.HeadingDeg, est.DistanceKm*1000)
}

// formatLabel formats a stored label for terminal display.
func formatLabel(l *label.Label) string {
	est, err := l.LatLng()
	if err != nil {
		return fmt.Sprintf("%s %s - %s",
			color.GreenString(string(l.Type())),
			l.ID(),
			color.RedString(err.Error()))
	}
	sev := ""
	if s := l.Severity(); s != nil {
		sev = fmt.Sprintf(" severity %d", *s)
	}
	return fmt.Sprintf("%s %s on %s%s - %s (%s)",
		color.GreenString(string(l.Type())),
		color.New(color.Faint).Sprint(l.ID()),
		l.PanoID(),
		sev,
		color.CyanString("(%.6f, %.6f)", est.Lat, est.Lng),
		color.New(color.Faint).Sprint(l.CreatedAt().Format("Jan 2, 3:04 PM")))
}
