// Package orbit estimates and corrects 3D camera poses for capture
// sequences that move along a roughly circular trajectory, such as a
// turntable or an orbiting rig.
//
// The package is a pure library: it operates on an in-memory Sequence of
// camera records, writes estimated values into uncalibrated records, and
// returns per-sequence status rather than performing any I/O of its own.
// Persistence lives in storage/sqlite and the review surface in monitor;
// both are callers of this package.
//
// The estimation pipeline is:
//
//  1. Group calibrated records into contiguous clusters and remove local
//     drift (cluster.go)
//  2. Fit a circle to the cleaned calibrated positions (circle.go)
//  3. Estimate the systematic orientation offset (orientation.go)
//  4. Fill interior gaps along the short arc (interpolate.go) and edge
//     gaps by angular-rate extrapolation (estimate.go)
//
// All components are deterministic: the same Sequence and Config always
// produce the same output.
package orbit
