package orbit

import "math"

// FitQuality grades how well the calibrated positions agree with the
// fitted circle.
type FitQuality string

const (
	// FitQualityExcellent indicates RMSE < 0.01m relative to the circle.
	FitQualityExcellent FitQuality = "excellent"
	// FitQualityGood indicates RMSE 0.01-0.05m - fine for estimation.
	FitQualityGood FitQuality = "good"
	// FitQualityFair indicates RMSE 0.05-0.15m - usable, review advised.
	FitQualityFair FitQuality = "fair"
	// FitQualityPoor indicates RMSE > 0.15m - recalibrate before trusting
	// estimated poses.
	FitQualityPoor FitQuality = "poor"
	// FitQualityUnknown indicates RMSE was not computed.
	FitQualityUnknown FitQuality = "unknown"
)

// Fit quality RMSE thresholds (same units as input coordinates).
const (
	RMSEThresholdExcellent = 0.01
	RMSEThresholdGood      = 0.05
	RMSEThresholdFair      = 0.15
)

// RadialRMSE returns the root mean square of the radial residuals of the
// points against the circle.
func RadialRMSE(points []Point, c Circle) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, r := range RadialResiduals(points, c) {
		sum += r * r
	}
	return math.Sqrt(sum / float64(len(points)))
}

// GradeFit maps an RMSE value onto a quality band.
func GradeFit(rmse float64) FitQuality {
	switch {
	case rmse == 0:
		return FitQualityUnknown
	case rmse < RMSEThresholdExcellent:
		return FitQualityExcellent
	case rmse < RMSEThresholdGood:
		return FitQualityGood
	case rmse < RMSEThresholdFair:
		return FitQualityFair
	default:
		return FitQualityPoor
	}
}

// String returns a human-readable description of the quality band.
func (q FitQuality) String() string {
	switch q {
	case FitQualityExcellent:
		return "excellent (RMSE < 0.01m)"
	case FitQualityGood:
		return "good (RMSE 0.01-0.05m)"
	case FitQualityFair:
		return "fair (RMSE 0.05-0.15m)"
	case FitQualityPoor:
		return "poor (RMSE > 0.15m)"
	case FitQualityUnknown:
		return "unknown (RMSE not computed)"
	default:
		return string(q)
	}
}
