// Package signature converts raw pointer-drag samples into smoothed
// vector strokes and serializes them as self-contained SVG data URIs.
package signature

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Point is one sampled pointer position. T is the capture timestamp in
// milliseconds, used for velocity-adaptive stroke widths.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	T float64 `json:"t"`
}

// ParseRawPath reads a raw "M x y L x y L x y ..." command stream into an
// ordered point list. Unknown tokens are skipped.
func ParseRawPath(raw string) []Point {
	parts := strings.Fields(raw)
	var points []Point

	for i := 0; i < len(parts); {
		cmd := parts[i]
		if (cmd == "M" || cmd == "L") && i+2 < len(parts) {
			x, errX := strconv.ParseFloat(parts[i+1], 64)
			y, errY := strconv.ParseFloat(parts[i+2], 64)
			if errX == nil && errY == nil {
				points = append(points, Point{X: x, Y: y})
			}
			i += 3
			continue
		}
		i++
	}

	return points
}

// SmoothPath converts a point sequence into a quadratic Bézier path using
// the midpoint algorithm: curve endpoints are the midpoints of consecutive
// samples and the samples themselves are the control points, so the curve
// stays near every sample while remaining C1-continuous.
func SmoothPath(points []Point) string {
	switch len(points) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("M %s %s", coord(points[0].X), coord(points[0].Y))
	case 2:
		return fmt.Sprintf("M %s %s L %s %s",
			coord(points[0].X), coord(points[0].Y),
			coord(points[1].X), coord(points[1].Y))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "M %s %s", coord(points[0].X), coord(points[0].Y))

	// First segment: straight line to the midpoint of p0 and p1.
	fmt.Fprintf(&b, " L %s %s",
		coord((points[0].X+points[1].X)/2),
		coord((points[0].Y+points[1].Y)/2))

	for i := 1; i < len(points)-1; i++ {
		fmt.Fprintf(&b, " Q %s %s %s %s",
			coord(points[i].X), coord(points[i].Y),
			coord((points[i].X+points[i+1].X)/2),
			coord((points[i].Y+points[i+1].Y)/2))
	}

	last := points[len(points)-1]
	fmt.Fprintf(&b, " L %s %s", coord(last.X), coord(last.Y))

	return b.String()
}

// SmoothRawPath parses and smooths a raw command stream in one step.
func SmoothRawPath(raw string) string {
	return SmoothPath(ParseRawPath(raw))
}

// VelocityStrokeWidth maps the average drawing speed of a stroke to a
// width: fast movement thins the line, slow movement thickens it.
func VelocityStrokeWidth(points []Point) float64 {
	if len(points) < 2 {
		return 2.4
	}

	var totalDist, totalTime float64
	for i := 1; i < len(points); i++ {
		dx := points[i].X - points[i-1].X
		dy := points[i].Y - points[i-1].Y
		totalDist += math.Sqrt(dx*dx + dy*dy)
		totalTime += math.Max(points[i].T-points[i-1].T, 1)
	}

	avgVelocity := totalDist / math.Max(totalTime, 1)
	normalized := math.Min(math.Max(avgVelocity, 0.05), 3.0)
	ratio := 1 - (normalized-0.05)/2.95
	return math.Round((1.2+ratio*2.3)*10) / 10
}

// coord renders a coordinate rounded to one decimal place, without a
// trailing ".0" for whole values.
func coord(value float64) string {
	rounded := math.Round(value*10) / 10
	if rounded == math.Trunc(rounded) {
		return strconv.FormatFloat(rounded, 'f', -1, 64)
	}
	return strconv.FormatFloat(rounded, 'f', 1, 64)
}
