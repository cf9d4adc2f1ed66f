package orbit

import (
	"fmt"
	"math"
	"sort"
)

// CalibrationStatus describes how trustworthy a record's pose is.
type CalibrationStatus string

const (
	// StatusOriginal marks ground truth straight from the capture rig.
	StatusOriginal CalibrationStatus = "original"
	// StatusVisuallyCalibrated marks records calibrated by manual review.
	StatusVisuallyCalibrated CalibrationStatus = "visually_calibrated"
	// StatusUncalibrated marks records with no trusted pose yet.
	StatusUncalibrated CalibrationStatus = "uncalibrated"
	// StatusEstimated marks records whose pose was filled in by the pipeline.
	// Estimated values are provisional and may be recomputed on every run.
	StatusEstimated CalibrationStatus = "estimated"
)

// Calibrated reports whether the status represents trusted ground truth.
func (s CalibrationStatus) Calibrated() bool {
	return s == StatusOriginal || s == StatusVisuallyCalibrated
}

// EstimateConfidence qualifies an estimated pose.
type EstimateConfidence string

const (
	// ConfidenceInterpolated: the record sits between two calibrated anchors.
	ConfidenceInterpolated EstimateConfidence = "interpolated"
	// ConfidenceExtrapolated: the record lies outside the calibrated key
	// range and was projected from the nearest edge pair. Lower confidence.
	ConfidenceExtrapolated EstimateConfidence = "extrapolated"
)

// Point is a position or direction in 3D Cartesian coordinates.
// Units are whatever the input coordinates use (typically meters).
type Point struct {
	X, Y, Z float64
}

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y, p.Z + q.Z} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y, p.Z - q.Z} }

// Scale returns p scaled by s.
func (p Point) Scale(s float64) Point { return Point{p.X * s, p.Y * s, p.Z * s} }

// Dot returns the dot product of p and q.
func (p Point) Dot(q Point) float64 { return p.X*q.X + p.Y*q.Y + p.Z*q.Z }

// Cross returns the cross product p x q.
func (p Point) Cross(q Point) Point {
	return Point{
		X: p.Y*q.Z - p.Z*q.Y,
		Y: p.Z*q.X - p.X*q.Z,
		Z: p.X*q.Y - p.Y*q.X,
	}
}

// Norm returns the Euclidean length of p.
func (p Point) Norm() float64 { return math.Sqrt(p.Dot(p)) }

// Normalized returns p scaled to unit length. The zero vector is returned
// unchanged; callers that care must check Norm first.
func (p Point) Normalized() Point {
	n := p.Norm()
	if n == 0 {
		return p
	}
	return p.Scale(1 / n)
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 { return a.Sub(b).Norm() }

// Circle is a circular arc model fitted to calibrated camera positions:
// a center, a radius, and the unit normal of the plane the arc lies in.
// It is derived data, recomputed whenever the calibrated set changes, and
// never persisted independently of the sequence that produced it.
type Circle struct {
	Center Point
	Radius float64
	Normal Point
}

// CameraRecord is one capture position in a sequence. Key is the ordering
// value (frame index or epoch timestamp). Position and Orientation are nil
// until the record is calibrated or estimated.
type CameraRecord struct {
	Key         float64
	Position    *Point
	Orientation *Quaternion
	Status      CalibrationStatus
	Confidence  EstimateConfidence
	// ClusterID is the contiguous calibration cluster this record was
	// assigned to, or -1 when unassigned. Populated by AssignClusters.
	ClusterID int
}

// Calibrated reports whether the record carries trusted ground truth.
func (r *CameraRecord) Calibrated() bool { return r.Status.Calibrated() }

// Sequence is an ordered, key-unique collection of camera records. It is
// the single mutable value passed through the pipeline.
type Sequence struct {
	SequenceID string
	Name       string
	Records    []CameraRecord
}

// SortRecords sorts records by key ascending. The pipeline sorts
// defensively before every run so callers may append in any order.
func (s *Sequence) SortRecords() {
	sort.SliceStable(s.Records, func(i, j int) bool {
		return s.Records[i].Key < s.Records[j].Key
	})
}

// Validate checks the sequence invariants: keys strictly ascending after
// sort, and calibrated records carrying both position and orientation.
func (s *Sequence) Validate() error {
	for i := range s.Records {
		r := &s.Records[i]
		if i > 0 && r.Key == s.Records[i-1].Key {
			return fmt.Errorf("duplicate key %v", r.Key)
		}
		if i > 0 && r.Key < s.Records[i-1].Key {
			return fmt.Errorf("records not sorted at key %v", r.Key)
		}
		if r.Calibrated() && (r.Position == nil || r.Orientation == nil) {
			return fmt.Errorf("calibrated record %v missing position or orientation", r.Key)
		}
	}
	return nil
}

// CalibratedIndices returns the indices of calibrated records in key order.
func (s *Sequence) CalibratedIndices() []int {
	var out []int
	for i := range s.Records {
		if s.Records[i].Calibrated() {
			out = append(out, i)
		}
	}
	return out
}

// CalibratedPositions returns the positions of all calibrated records.
func (s *Sequence) CalibratedPositions() []Point {
	var out []Point
	for i := range s.Records {
		if r := &s.Records[i]; r.Calibrated() && r.Position != nil {
			out = append(out, *r.Position)
		}
	}
	return out
}

// Record returns the record with the given key, or nil.
func (s *Sequence) Record(key float64) *CameraRecord {
	for i := range s.Records {
		if s.Records[i].Key == key {
			return &s.Records[i]
		}
	}
	return nil
}

// MarkRecalibrated promotes an estimated record to visually calibrated
// ground truth. This is the only path by which a non-calibrated record
// becomes calibrated; the pipeline itself never upgrades or downgrades
// calibration status.
func (s *Sequence) MarkRecalibrated(key float64) error {
	r := s.Record(key)
	if r == nil {
		return fmt.Errorf("no record with key %v", key)
	}
	if r.Status != StatusEstimated {
		return fmt.Errorf("record %v has status %q, only estimated records can be recalibrated", key, r.Status)
	}
	if r.Position == nil || r.Orientation == nil {
		return fmt.Errorf("record %v has no pose to promote", key)
	}
	r.Status = StatusVisuallyCalibrated
	r.Confidence = ""
	return nil
}
