package signature

import (
	"strings"
	"testing"
)

func TestSmoothPathEmptyInput(t *testing.T) {
	if path := SmoothPath(nil); path != "" {
		t.Fatalf("expected empty path, got %q", path)
	}
}

func TestSmoothPathSinglePoint(t *testing.T) {
	path := SmoothPath([]Point{{X: 10.04, Y: 20.06}})
	if path != "M 10 20.1" {
		t.Fatalf("unexpected single-point path %q", path)
	}
}

func TestSmoothPathTwoPointsIsStraightLine(t *testing.T) {
	path := SmoothPath([]Point{{X: 0, Y: 0}, {X: 10, Y: 10}})
	if path != "M 0 0 L 10 10" {
		t.Fatalf("unexpected two-point path %q", path)
	}
}

func TestSmoothPathEmitsOneCurvePerInteriorPoint(t *testing.T) {
	points := []Point{
		{X: 0, Y: 0},
		{X: 10, Y: 10},
		{X: 20, Y: 0},
		{X: 30, Y: 10},
		{X: 40, Y: 0},
	}
	path := SmoothPath(points)

	if curves := strings.Count(path, "Q"); curves != len(points)-2 {
		t.Fatalf("expected %d quadratic segments, got %d in %q", len(points)-2, curves, path)
	}
	if !strings.HasPrefix(path, "M 0 0 L 5 5") {
		t.Fatalf("expected path to start at first sample and line to first midpoint: %q", path)
	}
	if !strings.HasSuffix(path, "L 40 0") {
		t.Fatalf("expected path to end at last sample: %q", path)
	}
}

func TestSmoothPathCurvesPassThroughMidpoints(t *testing.T) {
	points := []Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 20, Y: 10}}
	path := SmoothPath(points)

	// Control point is the sample, endpoint is the midpoint to the next
	// sample.
	if !strings.Contains(path, "Q 10 0 15 5") {
		t.Fatalf("expected midpoint curve segment in %q", path)
	}
}

func TestParseRawPathReadsCommandStream(t *testing.T) {
	points := ParseRawPath("M 1 2 L 3 4 L 5.5 6.5")
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	if points[2].X != 5.5 || points[2].Y != 6.5 {
		t.Fatalf("unexpected final point %+v", points[2])
	}
}

func TestParseRawPathSkipsMalformedTokens(t *testing.T) {
	points := ParseRawPath("M 1 2 Z L x y L 3 4")
	if len(points) != 2 {
		t.Fatalf("expected malformed tokens to be skipped, got %d points", len(points))
	}
	if points[1].X != 3 || points[1].Y != 4 {
		t.Fatalf("unexpected second point %+v", points[1])
	}
}

func TestSmoothRawPathRoundTrips(t *testing.T) {
	path := SmoothRawPath("M 0 0 L 10 10 L 20 0")
	if !strings.HasPrefix(path, "M 0 0 L 5 5 Q 10 10") {
		t.Fatalf("unexpected smoothed path %q", path)
	}
}

func TestVelocityStrokeWidthBounds(t *testing.T) {
	if width := VelocityStrokeWidth(nil); width != 2.4 {
		t.Fatalf("expected default width for empty stroke, got %v", width)
	}

	slow := []Point{{X: 0, Y: 0, T: 0}, {X: 1, Y: 0, T: 1000}}
	if width := VelocityStrokeWidth(slow); width != 3.5 {
		t.Fatalf("expected maximum width for slow stroke, got %v", width)
	}

	fast := []Point{{X: 0, Y: 0, T: 0}, {X: 500, Y: 0, T: 10}}
	if width := VelocityStrokeWidth(fast); width != 1.2 {
		t.Fatalf("expected minimum width for fast stroke, got %v", width)
	}
}

func TestCoordFormatting(t *testing.T) {
	tests := []struct {
		value    float64
		expected string
	}{
		{10, "10"},
		{10.04, "10"},
		{10.06, "10.1"},
		{-3.25, "-3.3"},
		{0, "0"},
	}
	for _, test := range tests {
		if got := coord(test.value); got != test.expected {
			t.Fatalf("coord(%v) = %q, expected %q", test.value, got, test.expected)
		}
	}
}
