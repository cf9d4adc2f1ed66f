package orbit

import "math"

// NormalizeAngle maps theta into the canonical range [0, 2*pi). Angles
// differing by a multiple of 2*pi normalize to the same representative.
func NormalizeAngle(theta float64) float64 {
	theta = math.Mod(theta, 2*math.Pi)
	if theta < 0 {
		theta += 2 * math.Pi
	}
	return theta
}

// planeBasis returns an orthonormal in-plane basis (u, v) for the plane
// with the given unit normal. The basis depends only on the normal, so
// angle zero is a fixed direction for a given circle regardless of how the
// circle was obtained.
func planeBasis(normal Point) (u, v Point) {
	// Reference axis least aligned with the normal keeps the cross
	// product well conditioned.
	ref := Point{Z: 1}
	if math.Abs(normal.Z) > 0.9 {
		ref = Point{X: 1}
	}
	u = ref.Cross(normal).Normalized()
	v = normal.Cross(u)
	return u, v
}

// AngleToPoint converts an angular position on the circle into a 3D
// coordinate. Pure and deterministic. Returns ErrDegenerateCircle when the
// radius is below cfg.RadiusEpsilon, since the mapping is undefined there.
func AngleToPoint(theta float64, c Circle, cfg Config) (Point, error) {
	if c.Radius < cfg.RadiusEpsilon {
		return Point{}, ErrDegenerateCircle
	}
	u, v := planeBasis(c.Normal)
	offset := u.Scale(math.Cos(theta)).Add(v.Scale(math.Sin(theta))).Scale(c.Radius)
	return c.Center.Add(offset), nil
}

// PointToAngle converts a 3D coordinate into its angular position on the
// circle, normalized to [0, 2*pi). The point is projected onto the circle
// plane first; points on (or near) the circle axis have no defined angle
// and return ErrDegenerateCircle.
func PointToAngle(p Point, c Circle, cfg Config) (float64, error) {
	if c.Radius < cfg.RadiusEpsilon {
		return 0, ErrDegenerateCircle
	}
	u, v := planeBasis(c.Normal)
	d := p.Sub(c.Center)
	du, dv := d.Dot(u), d.Dot(v)
	if math.Hypot(du, dv) < cfg.RadiusEpsilon {
		return 0, ErrDegenerateCircle
	}
	return NormalizeAngle(math.Atan2(dv, du)), nil
}
