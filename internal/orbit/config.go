package orbit

// OrientationConvention selects the reference orientation used when
// comparing and seeding camera orientations on the arc.
type OrientationConvention string

const (
	// LookAtCenter: the camera forward axis points at the circle center.
	// This is the usual turntable arrangement.
	LookAtCenter OrientationConvention = "look_at_center"
	// LookAlongTangent: the camera forward axis follows the direction of
	// travel along the arc, as on an orbiting rig facing forward.
	LookAlongTangent OrientationConvention = "look_along_tangent"
)

// Config carries every threshold and epsilon the pipeline uses. There is
// no process-wide state: pass the same Config and the run is reproducible.
type Config struct {
	// RadiusEpsilon is the radius below which a circle is considered
	// degenerate and angle/coordinate mapping undefined (units of input
	// coordinates).
	RadiusEpsilon float64

	// AngleEpsilon is the angular difference (radians) below which two
	// anchor angles are treated as equal. Interpolation across such a
	// span propagates the first anchor's angle instead of dividing by a
	// near-zero delta.
	AngleEpsilon float64

	// CollinearityEpsilon bounds the ratio of the middle to largest
	// singular value of the centered point cloud. Below it the points are
	// treated as collinear and the planar fit is refused.
	CollinearityEpsilon float64

	// Tau is the spatial distance between consecutive calibrated records
	// above which a new cluster starts.
	Tau float64

	// MaxKeyGap is the key-space gap between consecutive calibrated
	// records above which a new cluster starts even if they are close in
	// space.
	MaxKeyGap float64

	// Convention selects the reference orientation model.
	Convention OrientationConvention

	// MaxOrientationSpreadDeg is the largest angular distance (degrees)
	// any single orientation residual may sit from the mean residual
	// before the correction is withheld as inconsistent.
	MaxOrientationSpreadDeg float64
}

// DefaultConfig returns defaults tuned for meter-scale capture rigs with
// frame-index keys.
func DefaultConfig() Config {
	return Config{
		RadiusEpsilon:           1e-6,
		AngleEpsilon:            1e-4,
		CollinearityEpsilon:     1e-6,
		Tau:                     0.5, // half a meter between neighbouring captures
		MaxKeyGap:               5,   // tolerate a few dropped frames inside a cluster
		Convention:              LookAtCenter,
		MaxOrientationSpreadDeg: 15,
	}
}
