package orbit

import (
	"errors"
	"math"
	"testing"
)

// anchorSequence places calibrated records at the given key/angle pairs on
// the circle.
func anchorSequence(t *testing.T, circle Circle, keys, angles []float64, cfg Config) *Sequence {
	t.Helper()
	seq := &Sequence{}
	for i, key := range keys {
		p, err := AngleToPoint(angles[i], circle, cfg)
		if err != nil {
			t.Fatalf("AngleToPoint: %v", err)
		}
		seq.Records = append(seq.Records, calibratedRecord(key, p))
	}
	return seq
}

func TestEstimatePositionMidpoint(t *testing.T) {
	cfg := DefaultConfig()
	circle := Circle{Center: Point{}, Radius: 2, Normal: Point{Z: 1}}
	seq := anchorSequence(t, circle, []float64{0, 10}, []float64{0, math.Pi}, cfg)

	est, err := EstimatePosition(seq, circle, 5, cfg)
	if err != nil {
		t.Fatalf("EstimatePosition: %v", err)
	}
	if math.Abs(est.Angle-math.Pi/2) > 1e-9 {
		t.Errorf("angle = %v, want %v", est.Angle, math.Pi/2)
	}
	if est.Extrapolated {
		t.Error("midpoint estimate flagged as extrapolated")
	}
	if est.Confidence() != ConfidenceInterpolated {
		t.Errorf("confidence = %q, want %q", est.Confidence(), ConfidenceInterpolated)
	}
	want, _ := AngleToPoint(math.Pi/2, circle, cfg)
	if d := Distance(est.Position, want); d > 1e-9 {
		t.Errorf("position off by %v", d)
	}
}

func TestEstimatePositionConstantRate(t *testing.T) {
	cfg := DefaultConfig()
	circle := Circle{Center: Point{3, -1, 2}, Radius: 1.5, Normal: Point{1, 0, 1}.Normalized()}
	seq := anchorSequence(t, circle, []float64{0, 4, 8}, []float64{0.3, 1.1, 1.9}, cfg)

	// Keys between anchors map linearly onto the angular rate of 0.2/key.
	for _, tc := range []struct{ key, want float64 }{
		{1, 0.5}, {2, 0.7}, {5, 1.3}, {7, 1.7},
	} {
		est, err := EstimatePosition(seq, circle, tc.key, cfg)
		if err != nil {
			t.Fatalf("EstimatePosition(%v): %v", tc.key, err)
		}
		if math.Abs(ShortArcDelta(est.Angle, tc.want)) > 1e-9 {
			t.Errorf("key %v: angle = %v, want %v", tc.key, est.Angle, tc.want)
		}
	}
}

func TestEstimatePositionExtrapolates(t *testing.T) {
	cfg := DefaultConfig()
	circle := Circle{Center: Point{}, Radius: 2, Normal: Point{Z: 1}}
	seq := anchorSequence(t, circle, []float64{0, 10}, []float64{0, 1}, cfg)

	tests := []struct {
		name      string
		key       float64
		wantAngle float64
	}{
		{"beyond last anchor", 15, 1.5},
		{"before first anchor", -5, NormalizeAngle(-0.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, err := EstimatePosition(seq, circle, tt.key, cfg)
			if err != nil {
				t.Fatalf("EstimatePosition: %v", err)
			}
			if !est.Extrapolated {
				t.Error("estimate not flagged as extrapolated")
			}
			if est.Confidence() != ConfidenceExtrapolated {
				t.Errorf("confidence = %q, want %q", est.Confidence(), ConfidenceExtrapolated)
			}
			if math.Abs(ShortArcDelta(est.Angle, tt.wantAngle)) > 1e-9 {
				t.Errorf("angle = %v, want %v", est.Angle, tt.wantAngle)
			}
		})
	}
}

func TestEstimatePositionInsufficientAnchors(t *testing.T) {
	cfg := DefaultConfig()
	circle := Circle{Center: Point{}, Radius: 2, Normal: Point{Z: 1}}

	tests := []struct {
		name string
		seq  *Sequence
	}{
		{"no anchors", &Sequence{}},
		{"single anchor", anchorSequence(t, circle, []float64{3}, []float64{1}, cfg)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EstimatePosition(tt.seq, circle, 5, cfg)
			if !errors.Is(err, ErrInsufficientAnchors) {
				t.Errorf("EstimatePosition = %v, want ErrInsufficientAnchors", err)
			}
		})
	}
}

func TestAnchorsSkipUncalibrated(t *testing.T) {
	cfg := DefaultConfig()
	circle := Circle{Center: Point{}, Radius: 2, Normal: Point{Z: 1}}
	seq := anchorSequence(t, circle, []float64{0, 10}, []float64{0, 1}, cfg)
	seq.Records = append(seq.Records, CameraRecord{Key: 5, Status: StatusUncalibrated})
	est := &seq.Records[len(seq.Records)-1]
	p := Point{1, 1, 0}
	est.Position = &p
	est.Status = StatusEstimated // estimated values are not anchors either

	anchors := Anchors(seq, circle, cfg)
	if len(anchors) != 2 {
		t.Errorf("got %d anchors, want 2 (only calibrated records)", len(anchors))
	}
}
