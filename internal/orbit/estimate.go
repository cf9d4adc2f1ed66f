package orbit

import (
	"fmt"
	"sort"
)

// Anchor is a calibrated record reduced to its key and angular position on
// the fitted circle.
type Anchor struct {
	Key   float64
	Angle float64
}

// PositionEstimate is the result of estimating a single uncalibrated
// record's pose on the circle.
type PositionEstimate struct {
	Key      float64
	Angle    float64
	Position Point
	// Extrapolated is set when the target key lies outside the calibrated
	// key range and the nearest edge pair was projected instead; such
	// estimates carry lower confidence but are not errors.
	Extrapolated bool
}

// Confidence maps the estimate onto the record-level confidence flag.
func (e PositionEstimate) Confidence() EstimateConfidence {
	if e.Extrapolated {
		return ConfidenceExtrapolated
	}
	return ConfidenceInterpolated
}

// Anchors extracts the calibrated records of seq as (key, angle) anchors
// on the circle, sorted by key. Records whose angle is undefined (on the
// circle axis) are skipped.
func Anchors(seq *Sequence, c Circle, cfg Config) []Anchor {
	var anchors []Anchor
	for i := range seq.Records {
		r := &seq.Records[i]
		if !r.Calibrated() || r.Position == nil {
			continue
		}
		a, err := PointToAngle(*r.Position, c, cfg)
		if err != nil {
			continue
		}
		anchors = append(anchors, Anchor{Key: r.Key, Angle: a})
	}
	sort.Slice(anchors, func(i, j int) bool { return anchors[i].Key < anchors[j].Key })
	return anchors
}

// EstimatePosition estimates the pose of the record with the given key by
// mapping the key to an angular position: the two nearest calibrated
// anchors in key space define a linear key-to-angle rate (constant angular
// velocity), traversing the short arc between them.
//
// Keys outside the calibrated range use the nearest edge pair and report
// Extrapolated instead of failing. Fewer than two anchors cannot define an
// angular rate and return ErrInsufficientAnchors.
func EstimatePosition(seq *Sequence, c Circle, key float64, cfg Config) (PositionEstimate, error) {
	anchors := Anchors(seq, c, cfg)
	return estimateFromAnchors(anchors, c, key, cfg)
}

func estimateFromAnchors(anchors []Anchor, c Circle, key float64, cfg Config) (PositionEstimate, error) {
	if len(anchors) < 2 {
		return PositionEstimate{}, fmt.Errorf("%w: %d anchors, need 2 to infer angular rate", ErrInsufficientAnchors, len(anchors))
	}

	// Bracketing pair, or the nearest edge pair when out of range.
	i := sort.Search(len(anchors), func(i int) bool { return anchors[i].Key >= key })
	extrapolated := false
	var lo, hi Anchor
	switch {
	case i == 0:
		lo, hi = anchors[0], anchors[1]
		extrapolated = key < anchors[0].Key
	case i == len(anchors):
		lo, hi = anchors[len(anchors)-2], anchors[len(anchors)-1]
		extrapolated = true
	default:
		lo, hi = anchors[i-1], anchors[i]
	}

	if hi.Key == lo.Key {
		return PositionEstimate{}, fmt.Errorf("%w: anchors share key %v", ErrInsufficientAnchors, lo.Key)
	}

	delta := ShortArcDelta(lo.Angle, hi.Angle)
	frac := (key - lo.Key) / (hi.Key - lo.Key)
	theta := NormalizeAngle(lo.Angle + delta*frac)

	p, err := AngleToPoint(theta, c, cfg)
	if err != nil {
		return PositionEstimate{}, err
	}
	return PositionEstimate{Key: key, Angle: theta, Position: p, Extrapolated: extrapolated}, nil
}
