package orbit

import (
	"fmt"
	"math"
)

// Quaternion is a unit quaternion rotation (scalar-first). Orientations
// are held as quaternions internally; the photogrammetric Omega/Phi/Kappa
// angles are a pure projection used only at display and persistence
// boundaries, never for averaging.
type Quaternion struct {
	W, X, Y, Z float64
}

// quatNormTolerance is the squared norm below which a quaternion is reset
// to identity instead of being normalized.
const quatNormTolerance = 1e-12

// Identity returns the identity rotation.
func Identity() Quaternion { return Quaternion{W: 1} }

// Normalized returns q scaled to unit norm. Near-zero quaternions reset to
// identity rather than dividing by a vanishing norm.
func (q Quaternion) Normalized() Quaternion {
	n2 := q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z
	if n2 < quatNormTolerance {
		return Identity()
	}
	s := 1 / math.Sqrt(n2)
	return Quaternion{q.W * s, q.X * s, q.Y * s, q.Z * s}
}

// Mul returns the composition q*r (apply r first, then q).
func (q Quaternion) Mul(r Quaternion) Quaternion {
	return Quaternion{
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
	}
}

// Conjugate returns the inverse rotation of a unit quaternion.
func (q Quaternion) Conjugate() Quaternion {
	return Quaternion{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
}

// Dot returns the four-component dot product.
func (q Quaternion) Dot(r Quaternion) float64 {
	return q.W*r.W + q.X*r.X + q.Y*r.Y + q.Z*r.Z
}

// AngleTo returns the geodesic angle in radians between two unit
// quaternion rotations, in [0, pi]. The angle is computed from the chord
// between the hemisphere-aligned quaternions: acos of the dot product
// loses half the significant digits near zero, where the spread gate in
// EstimateOffset compares angles, while the chord form stays exact there.
// Identical rotations (including q vs -q) return exactly 0.
func (q Quaternion) AngleTo(r Quaternion) float64 {
	if q.Dot(r) < 0 {
		r = Quaternion{-r.W, -r.X, -r.Y, -r.Z}
	}
	d := Quaternion{q.W - r.W, q.X - r.X, q.Y - r.Y, q.Z - r.Z}
	half := math.Sqrt(d.Dot(d)) / 2
	if half > 1 {
		half = 1
	}
	return 4 * math.Asin(half)
}

// FromAxisAngle builds the rotation of angle radians about the given axis.
func FromAxisAngle(axis Point, angle float64) Quaternion {
	axis = axis.Normalized()
	s, c := math.Sincos(angle / 2)
	return Quaternion{W: c, X: axis.X * s, Y: axis.Y * s, Z: axis.Z * s}
}

// matrix returns the row-major 3x3 rotation matrix of q.
func (q Quaternion) matrix() [9]float64 {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	return [9]float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	}
}

// fromMatrix converts a row-major rotation matrix to a unit quaternion
// (Shepperd's method: branch on the largest diagonal term for stability).
func fromMatrix(m [9]float64) Quaternion {
	trace := m[0] + m[4] + m[8]
	var q Quaternion
	switch {
	case trace > 0:
		s := math.Sqrt(trace+1) * 2
		q = Quaternion{W: s / 4, X: (m[7] - m[5]) / s, Y: (m[2] - m[6]) / s, Z: (m[3] - m[1]) / s}
	case m[0] > m[4] && m[0] > m[8]:
		s := math.Sqrt(1+m[0]-m[4]-m[8]) * 2
		q = Quaternion{W: (m[7] - m[5]) / s, X: s / 4, Y: (m[1] + m[3]) / s, Z: (m[2] + m[6]) / s}
	case m[4] > m[8]:
		s := math.Sqrt(1+m[4]-m[0]-m[8]) * 2
		q = Quaternion{W: (m[2] - m[6]) / s, X: (m[1] + m[3]) / s, Y: s / 4, Z: (m[5] + m[7]) / s}
	default:
		s := math.Sqrt(1+m[8]-m[0]-m[4]) * 2
		q = Quaternion{W: (m[3] - m[1]) / s, X: (m[2] + m[6]) / s, Y: (m[5] + m[7]) / s, Z: s / 4}
	}
	return q.Normalized()
}

// FromOPK builds a rotation from photogrammetric Omega/Phi/Kappa angles in
// degrees: R = Rx(omega) * Ry(phi) * Rz(kappa).
func FromOPK(omegaDeg, phiDeg, kappaDeg float64) Quaternion {
	qx := FromAxisAngle(Point{X: 1}, omegaDeg*math.Pi/180)
	qy := FromAxisAngle(Point{Y: 1}, phiDeg*math.Pi/180)
	qz := FromAxisAngle(Point{Z: 1}, kappaDeg*math.Pi/180)
	return qx.Mul(qy).Mul(qz).Normalized()
}

// OPK projects the rotation to Omega/Phi/Kappa angles in degrees. Phi is
// clamped into [-90, 90]; at the gimbal singularity the decomposition puts
// the remaining rotation into kappa.
func (q Quaternion) OPK() (omegaDeg, phiDeg, kappaDeg float64) {
	m := q.matrix()
	sinPhi := m[2]
	if sinPhi > 1 {
		sinPhi = 1
	} else if sinPhi < -1 {
		sinPhi = -1
	}
	phi := math.Asin(sinPhi)
	var omega, kappa float64
	if math.Abs(sinPhi) < 1-1e-9 {
		omega = math.Atan2(-m[5], m[8])
		kappa = math.Atan2(-m[1], m[0])
	} else {
		omega = 0
		kappa = math.Atan2(m[3], m[4])
	}
	deg := 180 / math.Pi
	return omega * deg, phi * deg, kappa * deg
}

// ReferenceOrientation is the orientation implied by the configured
// convention for a camera at position p on the circle: the forward axis
// either points at the circle center or along the tangent of travel, with
// the circle normal as the up direction.
func ReferenceOrientation(p Point, c Circle, cfg Config) (Quaternion, error) {
	var forward Point
	switch cfg.Convention {
	case LookAlongTangent:
		radial := p.Sub(c.Center)
		forward = c.Normal.Cross(radial)
	case LookAtCenter, "":
		forward = c.Center.Sub(p)
	default:
		return Quaternion{}, fmt.Errorf("unknown orientation convention %q", cfg.Convention)
	}
	if forward.Norm() < cfg.RadiusEpsilon {
		return Quaternion{}, fmt.Errorf("%w: camera position coincides with circle center", ErrDegenerateCircle)
	}
	forward = forward.Normalized()
	right := c.Normal.Cross(forward).Normalized()
	up := forward.Cross(right)
	// Columns are the camera axes (right, up, forward) in world frame.
	return fromMatrix([9]float64{
		right.X, up.X, forward.X,
		right.Y, up.Y, forward.Y,
		right.Z, up.Z, forward.Z,
	}), nil
}

// EstimateOffset computes the systematic orientation offset of the rig:
// the circular mean of the residual rotations between each calibrated
// record's recorded orientation and the convention's reference orientation
// at that record's position. Averaging is done on quaternions with
// hemisphere alignment (chordal mean), not on per-component angles, so
// wraparound cannot bias the result.
//
// If any residual sits further than cfg.MaxOrientationSpreadDeg from the
// mean, the calibration is contradictory and ErrInconsistentOrientation is
// returned instead of an average that hides outliers.
func EstimateOffset(seq *Sequence, c Circle, cfg Config) (Quaternion, error) {
	var residuals []Quaternion
	for i := range seq.Records {
		r := &seq.Records[i]
		if !r.Calibrated() || r.Position == nil || r.Orientation == nil {
			continue
		}
		ref, err := ReferenceOrientation(*r.Position, c, cfg)
		if err != nil {
			continue
		}
		// recorded = ref * residual
		residuals = append(residuals, ref.Conjugate().Mul(*r.Orientation).Normalized())
	}
	if len(residuals) < 2 {
		return Quaternion{}, fmt.Errorf("%w: %d orientation samples", ErrInsufficientAnchors, len(residuals))
	}

	mean := quaternionMean(residuals)
	if mean == (Quaternion{}) {
		return Quaternion{}, fmt.Errorf("%w: residuals cancel out", ErrInconsistentOrientation)
	}

	maxSpread := 0.0
	for _, r := range residuals {
		if a := mean.AngleTo(r); a > maxSpread {
			maxSpread = a
		}
	}
	if maxSpread*180/math.Pi > cfg.MaxOrientationSpreadDeg {
		return Quaternion{}, fmt.Errorf("%w: residual spread %.2f deg exceeds %.2f deg",
			ErrInconsistentOrientation, maxSpread*180/math.Pi, cfg.MaxOrientationSpreadDeg)
	}
	return mean, nil
}

// Correction returns the rotation that removes the systematic offset:
// applying it after a recorded orientation yields the convention-ideal
// orientation. A uniform +5 degree offset produces a -5 degree correction.
func Correction(offset Quaternion) Quaternion {
	return offset.Conjugate()
}

// ApplyOffset seeds orientations for estimated records: the reference
// orientation at the record's estimated position composed with the rig's
// systematic offset, so estimated cameras carry the same mounting skew as
// the calibrated ones. Records without a position are left untouched.
func ApplyOffset(seq *Sequence, c Circle, offset Quaternion, cfg Config) {
	for i := range seq.Records {
		r := &seq.Records[i]
		if r.Status != StatusEstimated || r.Position == nil {
			continue
		}
		ref, err := ReferenceOrientation(*r.Position, c, cfg)
		if err != nil {
			continue
		}
		q := ref.Mul(offset).Normalized()
		r.Orientation = &q
	}
}

// quaternionMean is the chordal mean: align every sample to the first
// sample's hemisphere (q and -q are the same rotation), average the
// components, and renormalize. Returns the zero value when the samples
// cancel (antipodal pairs), which callers treat as inconsistent.
func quaternionMean(qs []Quaternion) Quaternion {
	var sum Quaternion
	first := qs[0]
	for _, q := range qs {
		if q.Dot(first) < 0 {
			q = Quaternion{-q.W, -q.X, -q.Y, -q.Z}
		}
		sum.W += q.W
		sum.X += q.X
		sum.Y += q.Y
		sum.Z += q.Z
	}
	n2 := sum.Dot(sum)
	if n2 < quatNormTolerance {
		return Quaternion{}
	}
	return sum.Normalized()
}
