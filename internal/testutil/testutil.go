// Package testutil provides shared test fixtures and assertions.
//
// This package centralises the turntable fixtures used across test files
// so the geometry of "a known circle with gaps" is built in exactly one
// place.
package testutil

import (
	"math"
	"testing"

	"github.com/banshee-data/orbit.report/internal/orbit"
)

// DefaultCircle is the fixture arc used by most integration tests: a 2m
// circle slightly off the coordinate origin, lying in the horizontal plane.
func DefaultCircle() orbit.Circle {
	return orbit.Circle{
		Center: orbit.Point{X: 0.5, Y: -0.25, Z: 1.2},
		Radius: 2.0,
		Normal: orbit.Point{Z: 1},
	}
}

// TurntableSequence builds a sequence of n evenly spaced records on the
// circle. Records whose index satisfies gapEvery (every gapEvery-th record,
// starting at gapEvery-1) are left uncalibrated with no pose; all others
// are StatusOriginal with an inward-looking reference orientation.
// gapEvery <= 0 disables gaps.
func TurntableSequence(t *testing.T, n int, gapEvery int, circle orbit.Circle, cfg orbit.Config) *orbit.Sequence {
	t.Helper()

	seq := &orbit.Sequence{Name: "turntable-fixture"}
	step := 2 * math.Pi / float64(n)
	for i := 0; i < n; i++ {
		rec := orbit.CameraRecord{Key: float64(i)}
		if gapEvery > 0 && i%gapEvery == gapEvery-1 {
			rec.Status = orbit.StatusUncalibrated
		} else {
			pos, err := orbit.AngleToPoint(float64(i)*step, circle, cfg)
			if err != nil {
				t.Fatalf("fixture position at index %d: %v", i, err)
			}
			ref, err := orbit.ReferenceOrientation(pos, circle, cfg)
			if err != nil {
				t.Fatalf("fixture orientation at index %d: %v", i, err)
			}
			rec.Position = &pos
			rec.Orientation = &ref
			rec.Status = orbit.StatusOriginal
		}
		seq.Records = append(seq.Records, rec)
	}
	return seq
}

// AssertPointClose fails unless got and want are within tol of each other.
func AssertPointClose(t *testing.T, got, want orbit.Point, tol float64) {
	t.Helper()
	if d := orbit.Distance(got, want); d > tol {
		t.Errorf("point = %+v, want %+v (distance %g > %g)", got, want, d, tol)
	}
}

// AssertAngleClose fails unless the short-arc difference between got and
// want is within tol radians. Angles that differ by full turns compare
// equal.
func AssertAngleClose(t *testing.T, got, want, tol float64) {
	t.Helper()
	if d := math.Abs(orbit.ShortArcDelta(want, got)); d > tol {
		t.Errorf("angle = %g rad, want %g rad (short-arc delta %g > %g)", got, want, d, tol)
	}
}
