// Package geo projects local Cartesian camera positions into geographic
// coordinates and exports sequences in the Pix4D CSV layout. The
// projection is a small-area approximation: a degree of latitude is
// treated as a fixed number of meters, which is plenty for a capture rig
// a few meters across.
package geo

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/orbit.report/internal/orbit"
)

// MetersPerDegree is the approximate length of one degree of latitude.
const MetersPerDegree = 111000.0

// DefaultScaleFactor is used when no radius is available to derive one.
const DefaultScaleFactor = 1e-5

// Default positional accuracy estimates written to Pix4D exports, in
// meters.
const (
	DefaultSigmaHoriz = 1.0
	DefaultSigmaVert  = 0.3
)

// Origin anchors the local coordinate frame at a geographic point.
type Origin struct {
	Lat float64
	Lon float64
}

// ScaleFactor derives the meters-to-degrees conversion from the fitted
// circle radius. A non-positive radius falls back to DefaultScaleFactor.
func ScaleFactor(radiusMeters float64) float64 {
	if radiusMeters <= 0 {
		return DefaultScaleFactor
	}
	return radiusMeters / MetersPerDegree
}

// ToLatLon converts local X/Y offsets to latitude and longitude around the
// origin: Y moves north-south, X east-west.
func ToLatLon(x, y float64, origin Origin, scale float64) (lat, lon float64) {
	return origin.Lat + y*scale, origin.Lon + x*scale
}

// ExportPix4D writes the sequence as a Pix4D-compatible CSV. Records
// without a position are skipped; orientation columns fall back to zero
// when a record has no orientation. Lat/lon columns are derived from the
// circle radius and origin.
func ExportPix4D(w io.Writer, seq *orbit.Sequence, circle orbit.Circle, origin Origin) error {
	cw := csv.NewWriter(w)
	header := []string{
		"#Image", "X", "Y", "Z",
		"Omega", "Phi", "Kappa",
		"SigmaHoriz", "SigmaVert",
		"Latitude", "Longitude",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	scale := ScaleFactor(circle.Radius)
	for i := range seq.Records {
		r := &seq.Records[i]
		if r.Position == nil {
			continue
		}
		var omega, phi, kappa float64
		if r.Orientation != nil {
			omega, phi, kappa = r.Orientation.OPK()
		}
		lat, lon := ToLatLon(r.Position.X, r.Position.Y, origin, scale)
		row := []string{
			fmt.Sprintf("%s_%g", seq.Name, r.Key),
			formatFloat(r.Position.X),
			formatFloat(r.Position.Y),
			formatFloat(r.Position.Z),
			formatFloat(omega),
			formatFloat(phi),
			formatFloat(kappa),
			formatFloat(DefaultSigmaHoriz),
			formatFloat(DefaultSigmaVert),
			formatFloat(lat),
			formatFloat(lon),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %v: %w", r.Key, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
