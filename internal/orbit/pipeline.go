package orbit

import (
	"fmt"
	"log"
)

// RunResult reports the outcome of one pipeline run over one sequence.
// Geometry failures are recorded in Issues and flagged with Skipped; they
// never panic and never abort a batch of sequences.
type RunResult struct {
	SequenceID string
	// Circle is the final fitted arc, nil when the fit failed.
	Circle *Circle
	// RMSE of the calibrated positions against the circle, and its grade.
	RMSE    float64
	Quality FitQuality
	// Offset is the systematic orientation offset of the rig, nil when
	// withheld (inconsistent or too few samples).
	Offset *Quaternion
	// Clusters assigned, and cluster corrections applied.
	Clusters []Cluster
	Shifts   []ClusterShift
	// Counts of records filled in by this run.
	Interpolated int
	Extrapolated int
	// Issues lists per-sequence and per-record problems encountered.
	Issues []string
	// Skipped is set when estimation for the whole sequence was abandoned
	// (for example, no circle could be fitted).
	Skipped bool
}

// Run executes the full estimation pipeline over one sequence in place:
//
//	cluster correction -> circle fit -> orientation offset -> gap filling
//
// Calibrated records are only ever moved by the cluster correction;
// uncalibrated records receive estimated poses and become StatusEstimated.
// Records that were already estimated are recomputed, since estimates are
// provisional. The sequence is sorted by key as a side effect.
func Run(seq *Sequence, cfg Config) RunResult {
	res := RunResult{Skipped: true}
	if seq == nil {
		res.Issues = append(res.Issues, "nil sequence")
		return res
	}
	res.SequenceID = seq.SequenceID

	seq.SortRecords()
	if err := seq.Validate(); err != nil {
		res.Issues = append(res.Issues, fmt.Sprintf("invalid sequence: %v", err))
		return res
	}

	// Preliminary fit over the raw calibrated points gives the cluster
	// correction a target arc.
	circle, err := FitCircle(seq.CalibratedPositions(), cfg)
	if err != nil {
		res.Issues = append(res.Issues, fmt.Sprintf("circle fit: %v", err))
		return res
	}

	res.Clusters = AssignClusters(seq, cfg)
	res.Shifts = CalibrateClusters(seq, res.Clusters, circle, cfg)

	// The calibrated set changed, so the circle is recomputed.
	if len(res.Shifts) > 0 {
		refit, err := FitCircle(seq.CalibratedPositions(), cfg)
		if err != nil {
			// Should not happen on corrected data; keep the first fit.
			res.Issues = append(res.Issues, fmt.Sprintf("refit after cluster correction: %v", err))
		} else {
			circle = refit
		}
	}
	res.Circle = &circle
	res.Skipped = false

	res.RMSE = RadialRMSE(seq.CalibratedPositions(), circle)
	res.Quality = GradeFit(res.RMSE)

	offset, err := EstimateOffset(seq, circle, cfg)
	if err != nil {
		res.Issues = append(res.Issues, fmt.Sprintf("orientation offset withheld: %v", err))
	} else {
		res.Offset = &offset
	}

	fillGaps(seq, circle, &res, cfg)

	if res.Offset != nil {
		ApplyOffset(seq, circle, *res.Offset, cfg)
	}

	log.Printf("[pipeline] sequence %s: %d interpolated, %d extrapolated, quality %s, %d issue(s)",
		seq.SequenceID, res.Interpolated, res.Extrapolated, res.Quality, len(res.Issues))
	return res
}

// fillGaps writes estimated positions into every non-calibrated record.
// Interior gaps between two calibrated anchors interpolate along the short
// arc; records outside the calibrated key range are extrapolated from the
// nearest edge pair and flagged with lower confidence.
func fillGaps(seq *Sequence, circle Circle, res *RunResult, cfg Config) {
	anchors := Anchors(seq, circle, cfg)
	if len(anchors) < 2 {
		res.Issues = append(res.Issues, fmt.Sprintf("gap filling skipped: %d anchors", len(anchors)))
		return
	}
	firstKey := anchors[0].Key
	lastKey := anchors[len(anchors)-1].Key

	for i := range seq.Records {
		r := &seq.Records[i]
		if r.Calibrated() {
			continue
		}

		var p Point
		var conf EstimateConfidence
		if r.Key > firstKey && r.Key < lastKey {
			lo, hi := bracketAnchors(anchors, r.Key)
			_, filled, err := ShortArcInterpolate(lo.Angle, lo.Key, hi.Angle, hi.Key, r.Key, circle, cfg)
			if err != nil {
				res.Issues = append(res.Issues, fmt.Sprintf("record %v: %v", r.Key, err))
				continue
			}
			p = filled
			conf = ConfidenceInterpolated
			res.Interpolated++
		} else {
			est, err := estimateFromAnchors(anchors, circle, r.Key, cfg)
			if err != nil {
				res.Issues = append(res.Issues, fmt.Sprintf("record %v: %v", r.Key, err))
				continue
			}
			p = est.Position
			conf = est.Confidence()
			if est.Extrapolated {
				res.Extrapolated++
			} else {
				res.Interpolated++
			}
		}

		pos := p
		r.Position = &pos
		r.Status = StatusEstimated
		r.Confidence = conf
	}
}

// bracketAnchors returns the pair of consecutive anchors whose keys
// enclose key. Callers guarantee key is strictly inside the anchor range.
func bracketAnchors(anchors []Anchor, key float64) (lo, hi Anchor) {
	for i := 1; i < len(anchors); i++ {
		if anchors[i].Key >= key {
			return anchors[i-1], anchors[i]
		}
	}
	return anchors[len(anchors)-2], anchors[len(anchors)-1]
}
