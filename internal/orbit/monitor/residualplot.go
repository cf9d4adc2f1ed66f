package monitor

import (
	"fmt"
	"image/color"
	"math"
	"net/http"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/orbit.report/internal/orbit"
)

var residualColors = map[orbit.CalibrationStatus]color.Color{
	orbit.StatusOriginal:           color.RGBA{R: 255, G: 82, B: 82, A: 255},
	orbit.StatusVisuallyCalibrated: color.RGBA{R: 33, G: 150, B: 243, A: 255},
	orbit.StatusEstimated:          color.RGBA{R: 76, G: 175, B: 80, A: 255},
}

// handleResidualPlot renders a PNG of radial residuals against angular
// position. Calibrated points scattered far from the zero line indicate a
// camera the operator moved off the rig circle; estimated points always
// sit on the line.
// Query params:
//
//	sequence_id (required)
func (ws *WebServer) handleResidualPlot(w http.ResponseWriter, r *http.Request) {
	seq, ok := ws.loadSequence(w, r)
	if !ok {
		return
	}

	circle, err := orbit.FitCircle(seq.CalibratedPositions(), ws.cfg)
	if err != nil {
		ws.writeJSONError(w, http.StatusUnprocessableEntity, fmt.Sprintf("circle fit: %v", err))
		return
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Radial residuals - %s (r=%.3fm)", seq.Name, circle.Radius)
	p.X.Label.Text = "Angular position (deg)"
	p.Y.Label.Text = "Residual (m)"
	p.X.Min, p.X.Max = 0, 360

	byStatus := map[orbit.CalibrationStatus]plotter.XYs{}
	for i := range seq.Records {
		rec := &seq.Records[i]
		if rec.Position == nil {
			continue
		}
		theta, err := orbit.PointToAngle(*rec.Position, circle, ws.cfg)
		if err != nil {
			continue
		}
		res := orbit.RadialResiduals([]orbit.Point{*rec.Position}, circle)[0]
		byStatus[rec.Status] = append(byStatus[rec.Status], plotter.XY{X: theta * 180 / math.Pi, Y: res})
	}

	if len(byStatus) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no positioned records to plot")
		return
	}

	zero := plotter.XYs{{X: 0, Y: 0}, {X: 360, Y: 0}}
	zeroLine, err := plotter.NewLine(zero)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("build zero line: %v", err))
		return
	}
	zeroLine.Color = color.Gray{Y: 160}
	zeroLine.Width = vg.Points(1)
	p.Add(zeroLine)

	for _, status := range []orbit.CalibrationStatus{orbit.StatusOriginal, orbit.StatusVisuallyCalibrated, orbit.StatusEstimated} {
		pts := byStatus[status]
		if len(pts) == 0 {
			continue
		}
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("build scatter: %v", err))
			return
		}
		scatter.GlyphStyle.Color = residualColors[status]
		scatter.GlyphStyle.Radius = vg.Points(3)
		p.Add(scatter)
		p.Legend.Add(string(status), scatter)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	writer, err := p.WriterTo(10*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render plot: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := writer.WriteTo(w); err != nil {
		// Client likely disconnected mid-stream; nothing to recover.
		return
	}
}
