package orbit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// FitCircle fits a circle to a set of calibrated 3D points.
//
// The plane of the circle is the best-fit plane of the points: the
// principal axis of minimal variance of the centered point cloud, found by
// SVD. The points are projected into that plane and a 2D circle is fitted
// by algebraic least squares (Kåsa), minimizing squared radial residuals.
//
// Failure modes, all epsilon-gated rather than silent NaN propagation:
//   - fewer than three points, or all points coincident: the planar fit is
//     underdetermined, ErrInsufficientGeometry
//   - collinear points (middle singular value vanishes relative to the
//     largest): ErrInsufficientGeometry
//   - fitted radius below cfg.RadiusEpsilon: ErrDegenerateCircle
//
// The fit is invariant to the order of the input points.
func FitCircle(points []Point, cfg Config) (Circle, error) {
	if len(points) < 3 {
		return Circle{}, fmt.Errorf("%w: need at least 3 points, got %d", ErrInsufficientGeometry, len(points))
	}

	var centroid Point
	for _, p := range points {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Scale(1 / float64(len(points)))

	// Plane fit: SVD of the centered n x 3 point matrix. The right
	// singular vector of the smallest singular value is the plane normal.
	data := make([]float64, 0, 3*len(points))
	for _, p := range points {
		d := p.Sub(centroid)
		data = append(data, d.X, d.Y, d.Z)
	}
	m := mat.NewDense(len(points), 3, data)

	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDThin) {
		return Circle{}, fmt.Errorf("%w: SVD did not converge", ErrInsufficientGeometry)
	}
	vals := svd.Values(nil)
	if vals[0] < cfg.RadiusEpsilon {
		return Circle{}, fmt.Errorf("%w: all points coincident", ErrInsufficientGeometry)
	}
	if vals[1] < cfg.CollinearityEpsilon*vals[0] {
		return Circle{}, fmt.Errorf("%w: points are collinear", ErrInsufficientGeometry)
	}

	var v mat.Dense
	svd.VTo(&v)
	normal := canonicalNormal(Point{X: v.At(0, 2), Y: v.At(1, 2), Z: v.At(2, 2)})

	// Project onto the plane using the same basis AngleToPoint will use,
	// so fitted angles and reconstructed coordinates agree.
	u, w := planeBasis(normal)
	type uv struct{ u, v float64 }
	plane := make([]uv, len(points))
	for i, p := range points {
		d := p.Sub(centroid)
		plane[i] = uv{d.Dot(u), d.Dot(w)}
	}

	// Kåsa fit: solve  2a*u + 2b*v + c = u^2 + v^2  in least squares.
	aData := make([]float64, 0, 3*len(plane))
	bData := make([]float64, 0, len(plane))
	for _, q := range plane {
		aData = append(aData, 2*q.u, 2*q.v, 1)
		bData = append(bData, q.u*q.u+q.v*q.v)
	}
	A := mat.NewDense(len(plane), 3, aData)
	b := mat.NewVecDense(len(plane), bData)

	var qr mat.QR
	qr.Factorize(A)
	var x mat.VecDense
	if err := qr.SolveVecTo(&x, false, b); err != nil {
		return Circle{}, fmt.Errorf("%w: circle fit ill-conditioned: %v", ErrInsufficientGeometry, err)
	}

	cu, cv, cc := x.AtVec(0), x.AtVec(1), x.AtVec(2)
	r2 := cc + cu*cu + cv*cv
	if r2 <= 0 || math.Sqrt(r2) < cfg.RadiusEpsilon {
		return Circle{}, fmt.Errorf("%w: fitted radius %g", ErrDegenerateCircle, math.Sqrt(math.Max(r2, 0)))
	}

	center := centroid.Add(u.Scale(cu)).Add(w.Scale(cv))
	return Circle{Center: center, Radius: math.Sqrt(r2), Normal: normal}, nil
}

// canonicalNormal fixes the sign of a plane normal deterministically: the
// component of largest magnitude is made positive. SVD is free to return
// either direction; without this, the fitted angle convention could flip
// between runs on permuted input.
func canonicalNormal(n Point) Point {
	n = n.Normalized()
	ax, ay, az := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	var lead float64
	switch {
	case az >= ax && az >= ay:
		lead = n.Z
	case ay >= ax:
		lead = n.Y
	default:
		lead = n.X
	}
	if lead < 0 {
		return n.Scale(-1)
	}
	return n
}

// RadialResiduals returns, for each point, its in-plane distance from the
// circle minus the radius. Residuals are in the same units as the input
// coordinates.
func RadialResiduals(points []Point, c Circle) []float64 {
	u, v := planeBasis(c.Normal)
	out := make([]float64, len(points))
	for i, p := range points {
		d := p.Sub(c.Center)
		out[i] = math.Hypot(d.Dot(u), d.Dot(v)) - c.Radius
	}
	return out
}
