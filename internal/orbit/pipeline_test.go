package orbit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// turntableSequence builds a 12-frame orbit with a constant angular rate.
// Frames listed in calibrated get ground-truth poses (reference
// orientation composed with rigOffset); the rest are uncalibrated.
func turntableSequence(t *testing.T, circle Circle, calibrated map[int]bool, rigOffset Quaternion, cfg Config) *Sequence {
	t.Helper()
	seq := &Sequence{SequenceID: "seq-test", Name: "turntable"}
	for i := 0; i < 12; i++ {
		rec := CameraRecord{Key: float64(i), Status: StatusUncalibrated}
		if calibrated[i] {
			theta := 2 * math.Pi * float64(i) / 12
			p, err := AngleToPoint(theta, circle, cfg)
			require.NoError(t, err)
			ref, err := ReferenceOrientation(p, circle, cfg)
			require.NoError(t, err)
			q := ref.Mul(rigOffset).Normalized()
			rec.Position = &p
			rec.Orientation = &q
			rec.Status = StatusOriginal
		}
		seq.Records = append(seq.Records, rec)
	}
	return seq
}

func TestRunFillsAllGaps(t *testing.T) {
	cfg := DefaultConfig()
	circle := Circle{Center: Point{1, 2, 0.5}, Radius: 2, Normal: Point{Z: 1}}
	rigOffset := FromAxisAngle(Point{Z: 1}, 5*math.Pi/180)
	calibrated := map[int]bool{0: true, 2: true, 5: true, 7: true, 10: true}
	seq := turntableSequence(t, circle, calibrated, rigOffset, cfg)

	res := Run(seq, cfg)

	require.False(t, res.Skipped, "run skipped: %v", res.Issues)
	require.NotNil(t, res.Circle)
	assert.InDelta(t, circle.Radius, res.Circle.Radius, 1e-6)
	assert.InDelta(t, 0, Distance(res.Circle.Center, circle.Center), 1e-6)

	require.NotNil(t, res.Offset, "orientation offset withheld: %v", res.Issues)
	assert.InDelta(t, 0, res.Offset.AngleTo(rigOffset), 1e-6)

	for i := range seq.Records {
		r := &seq.Records[i]
		require.NotNil(t, r.Position, "record %v has no position", r.Key)
		if calibrated[i] {
			assert.Equal(t, StatusOriginal, r.Status, "calibrated record %v changed status", r.Key)
			continue
		}
		assert.Equal(t, StatusEstimated, r.Status, "record %v", r.Key)
		require.NotNil(t, r.Orientation, "estimated record %v has no orientation", r.Key)

		// Constant angular rate means interpolation recovers the true
		// pose exactly (up to float noise).
		theta := 2 * math.Pi * float64(i) / 12
		want, err := AngleToPoint(theta, circle, cfg)
		require.NoError(t, err)
		assert.InDelta(t, 0, Distance(*r.Position, want), 1e-6, "record %v position", r.Key)
	}

	// Keys 1..9 sit between anchors, key 11 is beyond the last anchor.
	assert.Equal(t, ConfidenceInterpolated, seq.Records[3].Confidence)
	assert.Equal(t, ConfidenceExtrapolated, seq.Records[11].Confidence)
	assert.Equal(t, 6, res.Interpolated)
	assert.Equal(t, 1, res.Extrapolated)
	assert.Less(t, res.RMSE, 1e-9)
}

func TestRunIsDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	circle := Circle{Center: Point{}, Radius: 3, Normal: Point{0, 1, 2}.Normalized()}
	calibrated := map[int]bool{0: true, 3: true, 6: true, 9: true}

	a := turntableSequence(t, circle, calibrated, Identity(), cfg)
	b := turntableSequence(t, circle, calibrated, Identity(), cfg)
	Run(a, cfg)
	Run(b, cfg)

	for i := range a.Records {
		ra, rb := &a.Records[i], &b.Records[i]
		require.Equal(t, ra.Status, rb.Status)
		if ra.Position != nil {
			assert.Equal(t, *ra.Position, *rb.Position, "record %v", ra.Key)
		}
	}
}

func TestRunSkipsOnInsufficientGeometry(t *testing.T) {
	cfg := DefaultConfig()
	seq := &Sequence{SequenceID: "seq-line"}
	// Calibrated positions on a straight line: no plane, no circle.
	for i := 0; i < 4; i++ {
		seq.Records = append(seq.Records, calibratedRecord(float64(i), Point{float64(i), 0, 0}))
	}
	seq.Records = append(seq.Records, CameraRecord{Key: 10, Status: StatusUncalibrated})

	res := Run(seq, cfg)

	assert.True(t, res.Skipped)
	assert.NotEmpty(t, res.Issues)
	assert.Nil(t, res.Circle)
	// The uncalibrated record must be left untouched, not half-filled.
	assert.Nil(t, seq.Records[4].Position)
	assert.Equal(t, StatusUncalibrated, seq.Records[4].Status)
}

func TestRunSkipsOnDuplicateKeys(t *testing.T) {
	cfg := DefaultConfig()
	seq := &Sequence{Records: []CameraRecord{
		calibratedRecord(1, Point{1, 0, 0}),
		calibratedRecord(1, Point{0, 1, 0}),
	}}

	res := Run(seq, cfg)
	assert.True(t, res.Skipped)
	assert.NotEmpty(t, res.Issues)
}

func TestRunWithheldOrientationStillEstimatesPositions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxOrientationSpreadDeg = 5
	circle := Circle{Center: Point{}, Radius: 2, Normal: Point{Z: 1}}
	calibrated := map[int]bool{0: true, 3: true, 6: true, 9: true}
	seq := turntableSequence(t, circle, calibrated, Identity(), cfg)

	// Corrupt one calibrated orientation far beyond the spread gate.
	bad := seq.Records[6].Orientation.Mul(FromAxisAngle(Point{X: 1}, 60*math.Pi/180))
	seq.Records[6].Orientation = &bad

	res := Run(seq, cfg)

	require.False(t, res.Skipped)
	assert.Nil(t, res.Offset, "offset should be withheld")
	assert.NotEmpty(t, res.Issues)
	// Positions are still estimated; orientations stay empty because the
	// correction was withheld rather than silently averaged.
	for i := range seq.Records {
		r := &seq.Records[i]
		if !calibrated[i] {
			assert.NotNil(t, r.Position, "record %v", r.Key)
			assert.Nil(t, r.Orientation, "record %v", r.Key)
		}
	}
}

func TestRunRerunRecomputesEstimates(t *testing.T) {
	cfg := DefaultConfig()
	circle := Circle{Center: Point{}, Radius: 2, Normal: Point{Z: 1}}
	calibrated := map[int]bool{0: true, 4: true, 8: true}
	seq := turntableSequence(t, circle, calibrated, Identity(), cfg)

	Run(seq, cfg)
	first := *seq.Records[2].Position
	res := Run(seq, cfg)

	require.False(t, res.Skipped)
	assert.Equal(t, StatusEstimated, seq.Records[2].Status)
	assert.InDelta(t, 0, Distance(first, *seq.Records[2].Position), 1e-9,
		"estimates should be stable across reruns on unchanged input")
}

func TestMarkRecalibrated(t *testing.T) {
	cfg := DefaultConfig()
	circle := Circle{Center: Point{}, Radius: 2, Normal: Point{Z: 1}}
	calibrated := map[int]bool{0: true, 4: true, 8: true}
	seq := turntableSequence(t, circle, calibrated, Identity(), cfg)
	Run(seq, cfg)

	require.NoError(t, seq.MarkRecalibrated(2))
	assert.Equal(t, StatusVisuallyCalibrated, seq.Records[2].Status)
	assert.Empty(t, string(seq.Records[2].Confidence))

	// Ground truth records cannot be "recalibrated" again.
	assert.Error(t, seq.MarkRecalibrated(0))
	// Unknown keys are rejected.
	assert.Error(t, seq.MarkRecalibrated(99))
}
