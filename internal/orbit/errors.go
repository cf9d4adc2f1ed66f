package orbit

import "errors"

// Estimation failure conditions. All are reported per record or per
// sequence: a failure for one sequence must never abort a batch. Callers
// match with errors.Is.
var (
	// ErrDegenerateCircle: the fitted or supplied circle has a radius
	// below Config.RadiusEpsilon, so angular position is undefined.
	ErrDegenerateCircle = errors.New("degenerate circle: radius below epsilon")

	// ErrInsufficientGeometry: too few usable calibrated points, or the
	// points are collinear so no plane (and no circle) can be fitted.
	// The sequence's estimation is skipped, not crashed.
	ErrInsufficientGeometry = errors.New("insufficient geometry for circle fit")

	// ErrInsufficientAnchors: fewer than two calibrated anchors are
	// available to infer an angular rate for interpolation.
	ErrInsufficientAnchors = errors.New("insufficient calibrated anchors")

	// ErrInconsistentOrientation: calibrated orientation residuals
	// disagree by more than the configured spread; the correction is
	// withheld rather than averaging outliers away.
	ErrInconsistentOrientation = errors.New("inconsistent calibrated orientations")
)
