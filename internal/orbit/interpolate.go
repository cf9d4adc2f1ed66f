package orbit

import (
	"fmt"
	"math"
)

// ShortArcDelta returns the signed angular difference from a1 to a2
// normalized to (-pi, pi]: the "short arc", resolving the ambiguity
// between the clockwise and counter-clockwise path around the circle.
// Anchors at 0 and 3*pi/2 therefore yield -pi/2, not +3*pi/2.
//
// When the gap is exactly pi both arcs are equally short; the tie resolves
// to +pi (counter-clockwise). The normalization makes this deterministic:
// -pi is never returned.
func ShortArcDelta(a1, a2 float64) float64 {
	d := math.Mod(a2-a1, 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	} else if d <= -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

// ShortArcInterpolate fills a position between two calibrated anchors by
// interpolating linearly in angle along the short arc, proportional to the
// target key's fractional position between the anchor keys. The resulting
// angle is continuous and monotonic in the key between the two anchors.
//
// This is gap-filling only: the target key must lie within [k1, k2].
// Extrapolation beyond the anchors is EstimatePosition's job.
//
// When the anchors' angular difference is below cfg.AngleEpsilon the first
// anchor's angle is propagated unchanged, rather than interpolating across
// a span that is numerically zero.
func ShortArcInterpolate(a1, k1, a2, k2, key float64, c Circle, cfg Config) (float64, Point, error) {
	if k2 <= k1 {
		return 0, Point{}, fmt.Errorf("%w: anchor keys %v and %v do not span an interval", ErrInsufficientAnchors, k1, k2)
	}
	if key < k1 || key > k2 {
		return 0, Point{}, fmt.Errorf("target key %v outside anchor span [%v, %v]", key, k1, k2)
	}

	delta := ShortArcDelta(a1, a2)
	var theta float64
	if math.Abs(delta) < cfg.AngleEpsilon {
		theta = NormalizeAngle(a1)
	} else {
		frac := (key - k1) / (k2 - k1)
		theta = NormalizeAngle(a1 + delta*frac)
	}

	p, err := AngleToPoint(theta, c, cfg)
	if err != nil {
		return 0, Point{}, err
	}
	return theta, p, nil
}
