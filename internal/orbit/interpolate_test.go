package orbit

import (
	"math"
	"testing"
)

func TestShortArcDelta(t *testing.T) {
	tests := []struct {
		name   string
		a1, a2 float64
		want   float64
	}{
		{"no gap", 1.0, 1.0, 0},
		{"small forward", 0.5, 1.0, 0.5},
		{"small backward", 1.0, 0.5, -0.5},
		{"short way backward across zero", 0, 3 * math.Pi / 2, -math.Pi / 2},
		{"short way forward across zero", 3 * math.Pi / 2, 0, math.Pi / 2},
		{"near full turn", 0.1, 2*math.Pi - 0.1, -0.2},
		{"exact half turn tie", 0, math.Pi, math.Pi},
		{"exact half turn tie reversed", math.Pi, 0, math.Pi},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShortArcDelta(tt.a1, tt.a2)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("ShortArcDelta(%v, %v) = %v, want %v", tt.a1, tt.a2, got, tt.want)
			}
			if got <= -math.Pi || got > math.Pi {
				t.Errorf("ShortArcDelta(%v, %v) = %v outside (-pi, pi]", tt.a1, tt.a2, got)
			}
		})
	}
}

func TestShortArcInterpolateMidpoint(t *testing.T) {
	cfg := DefaultConfig()
	circle := Circle{Center: Point{}, Radius: 1, Normal: Point{Z: 1}}

	theta, p, err := ShortArcInterpolate(0, 0, math.Pi/2, 10, 5, circle, cfg)
	if err != nil {
		t.Fatalf("ShortArcInterpolate: %v", err)
	}
	if math.Abs(theta-math.Pi/4) > 1e-12 {
		t.Errorf("theta = %v, want %v", theta, math.Pi/4)
	}
	want, _ := AngleToPoint(math.Pi/4, circle, cfg)
	if d := Distance(p, want); d > 1e-12 {
		t.Errorf("point off by %v", d)
	}
}

func TestShortArcInterpolateTakesShortWay(t *testing.T) {
	cfg := DefaultConfig()
	circle := Circle{Center: Point{}, Radius: 1, Normal: Point{Z: 1}}

	// Anchors at 0 and 3*pi/2: the short arc runs backward through
	// 2*pi - pi/4, not forward through 3*pi/4.
	theta, _, err := ShortArcInterpolate(0, 0, 3*math.Pi/2, 2, 1, circle, cfg)
	if err != nil {
		t.Fatalf("ShortArcInterpolate: %v", err)
	}
	want := NormalizeAngle(-math.Pi / 4)
	if math.Abs(theta-want) > 1e-12 {
		t.Errorf("theta = %v, want %v", theta, want)
	}
}

func TestShortArcInterpolateMonotonic(t *testing.T) {
	cfg := DefaultConfig()
	circle := Circle{Center: Point{}, Radius: 1, Normal: Point{Z: 1}}
	a1, a2 := 0.2, 5.8 // short arc crosses the 0/2pi seam going backward
	delta := ShortArcDelta(a1, a2)

	prev := a1
	for key := 1; key <= 9; key++ {
		theta, _, err := ShortArcInterpolate(a1, 0, a2, 10, float64(key), circle, cfg)
		if err != nil {
			t.Fatalf("key %d: %v", key, err)
		}
		step := ShortArcDelta(prev, theta)
		if step*delta < 0 {
			t.Errorf("key %d: step %v reverses direction of delta %v", key, step, delta)
		}
		if math.Abs(step) > math.Abs(delta) {
			t.Errorf("key %d: step %v larger than whole arc %v", key, step, delta)
		}
		prev = theta
	}
	// The walk must end at the second anchor.
	if d := math.Abs(ShortArcDelta(prev, a2)); d > math.Abs(delta)/10+1e-9 {
		t.Errorf("final angle %v not adjacent to anchor %v", prev, a2)
	}
}

func TestShortArcInterpolateNearEqualAnchors(t *testing.T) {
	cfg := DefaultConfig()
	circle := Circle{Center: Point{}, Radius: 1, Normal: Point{Z: 1}}

	// Anchor angles closer than AngleEpsilon: propagate the first angle
	// instead of interpolating across numeric noise.
	theta, _, err := ShortArcInterpolate(1.0, 0, 1.0+cfg.AngleEpsilon/2, 10, 7, circle, cfg)
	if err != nil {
		t.Fatalf("ShortArcInterpolate: %v", err)
	}
	if theta != 1.0 {
		t.Errorf("theta = %v, want first anchor angle 1.0", theta)
	}
}

func TestShortArcInterpolateRejectsOutsideSpan(t *testing.T) {
	cfg := DefaultConfig()
	circle := Circle{Center: Point{}, Radius: 1, Normal: Point{Z: 1}}

	if _, _, err := ShortArcInterpolate(0, 0, 1, 10, 11, circle, cfg); err == nil {
		t.Error("expected error for key beyond second anchor")
	}
	if _, _, err := ShortArcInterpolate(0, 0, 1, 10, -1, circle, cfg); err == nil {
		t.Error("expected error for key before first anchor")
	}
	if _, _, err := ShortArcInterpolate(0, 5, 1, 5, 5, circle, cfg); err == nil {
		t.Error("expected error for anchors sharing a key")
	}
}
