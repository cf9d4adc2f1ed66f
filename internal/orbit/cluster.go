package orbit

import "math"

// Cluster is a contiguous run of calibrated records that are close
// together both in space and in key order.
type Cluster struct {
	ID int
	// Indices into Sequence.Records, in key order.
	Indices []int
	// Centroid of the member positions at assignment time.
	Centroid Point
}

// ClusterShift describes the correction applied to one cluster.
type ClusterShift struct {
	ClusterID int
	// Distance from the cluster centroid to the fitted circle before the
	// correction.
	Distance float64
	// Shift applied rigidly to every member position.
	Shift Point
}

// AssignClusters walks the calibrated records in key order and groups them
// into contiguous clusters. A new cluster starts whenever the spatial
// distance between consecutive calibrated records exceeds cfg.Tau or their
// key gap exceeds cfg.MaxKeyGap. Every calibrated record's ClusterID is
// set; all other records get ClusterID -1.
func AssignClusters(seq *Sequence, cfg Config) []Cluster {
	for i := range seq.Records {
		seq.Records[i].ClusterID = -1
	}

	var clusters []Cluster
	var current *Cluster
	var prevIdx = -1

	for _, idx := range seq.CalibratedIndices() {
		r := &seq.Records[idx]
		if r.Position == nil {
			continue
		}
		newCluster := current == nil
		if !newCluster {
			prev := &seq.Records[prevIdx]
			if Distance(*prev.Position, *r.Position) > cfg.Tau || r.Key-prev.Key > cfg.MaxKeyGap {
				newCluster = true
			}
		}
		if newCluster {
			clusters = append(clusters, Cluster{ID: len(clusters)})
			current = &clusters[len(clusters)-1]
		}
		current.Indices = append(current.Indices, idx)
		r.ClusterID = current.ID
		prevIdx = idx
	}

	for ci := range clusters {
		c := &clusters[ci]
		var sum Point
		for _, idx := range c.Indices {
			sum = sum.Add(*seq.Records[idx].Position)
		}
		c.Centroid = sum.Scale(1 / float64(len(c.Indices)))
	}
	return clusters
}

// CalibrateClusters shifts each cluster rigidly toward the fitted circle,
// removing small systematic drift while preserving the large-scale
// pattern. The shift is the offset from the cluster centroid to its
// closest point on the circle, blended by weight Tau/(Tau+d) where d is
// the centroid-to-circle distance: drift much smaller than Tau is removed
// almost entirely, while clusters far off the circle move proportionally
// less. Because the residual drift after one pass is d^2/(Tau+d), a second
// pass over already-corrected data changes positions only negligibly.
func CalibrateClusters(seq *Sequence, clusters []Cluster, circle Circle, cfg Config) []ClusterShift {
	shifts := make([]ClusterShift, 0, len(clusters))
	for _, c := range clusters {
		target, ok := closestOnCircle(c.Centroid, circle, cfg)
		if !ok {
			// Centroid on the circle axis: no unique closest point.
			continue
		}
		offset := target.Sub(c.Centroid)
		d := offset.Norm()
		if d == 0 {
			continue
		}
		w := cfg.Tau / (cfg.Tau + d)
		shift := offset.Scale(w)
		for _, idx := range c.Indices {
			p := seq.Records[idx].Position.Add(shift)
			seq.Records[idx].Position = &p
		}
		shifts = append(shifts, ClusterShift{ClusterID: c.ID, Distance: d, Shift: shift})
	}
	return shifts
}

// closestOnCircle projects p onto the circle plane and scales the radial
// direction to the radius. Returns ok=false when p sits on the circle
// axis, where every point of the circle is equally close.
func closestOnCircle(p Point, c Circle, cfg Config) (Point, bool) {
	u, v := planeBasis(c.Normal)
	d := p.Sub(c.Center)
	du, dv := d.Dot(u), d.Dot(v)
	r := math.Hypot(du, dv)
	if r < cfg.RadiusEpsilon {
		return Point{}, false
	}
	scale := c.Radius / r
	return c.Center.Add(u.Scale(du * scale)).Add(v.Scale(dv * scale)), true
}
