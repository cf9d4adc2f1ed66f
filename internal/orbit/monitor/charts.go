package monitor

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/orbit.report/internal/orbit"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// statusColors match the review convention: captured poses red, manually
// repaired poses blue, pipeline estimates green.
var statusColors = map[orbit.CalibrationStatus]string{
	orbit.StatusOriginal:           "#ff5252",
	orbit.StatusVisuallyCalibrated: "#2196f3",
	orbit.StatusEstimated:          "#4caf50",
	orbit.StatusUncalibrated:       "#9e9e9e",
}

// orientationSample is one plotted pose: angular position on the circle
// plus the three rotation angles.
type orientationSample struct {
	status   orbit.CalibrationStatus
	angleDeg float64
	omega    float64
	phi      float64
	kappa    float64
}

// handleOrientationChart renders three stacked scatter charts (HTML) of
// Omega/Phi/Kappa against angular position, one series per calibration
// status. This is the review view for spotting rig-mount skew: a healthy
// sequence shows each angle varying smoothly with position and the
// estimated series tracking the calibrated ones.
// Query params:
//   - sequence_id (required)
//   - max_points (optional; default 8000) to reduce payload size
func (ws *WebServer) handleOrientationChart(w http.ResponseWriter, r *http.Request) {
	seq, ok := ws.loadSequence(w, r)
	if !ok {
		return
	}

	maxPoints := 8000
	if mp := r.URL.Query().Get("max_points"); mp != "" {
		if v, err := strconv.Atoi(mp); err == nil && v > 100 && v <= 50000 {
			maxPoints = v
		}
	}

	circle, err := orbit.FitCircle(seq.CalibratedPositions(), ws.cfg)
	if err != nil {
		ws.writeJSONError(w, http.StatusUnprocessableEntity, fmt.Sprintf("circle fit: %v", err))
		return
	}

	samples := orientationSamples(seq, circle, ws.cfg)
	if len(samples) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no oriented records to plot")
		return
	}

	// Downsample by stride to stay within maxPoints
	stride := 1
	if len(samples) > maxPoints {
		stride = int(math.Ceil(float64(len(samples)) / float64(maxPoints)))
	}

	byStatus := map[orbit.CalibrationStatus][]orientationSample{}
	for i := 0; i < len(samples); i += stride {
		s := samples[i]
		byStatus[s.status] = append(byStatus[s.status], s)
	}

	subtitle := fmt.Sprintf("sequence=%s points=%d stride=%d", seq.Name, len(samples), stride)
	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(
		orientationScatter("Omega (deg)", subtitle, byStatus, func(s orientationSample) float64 { return s.omega }),
		orientationScatter("Phi (deg)", subtitle, byStatus, func(s orientationSample) float64 { return s.phi }),
		orientationScatter("Kappa (deg)", subtitle, byStatus, func(s orientationSample) float64 { return s.kappa }),
	)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// orientationSamples projects every oriented record onto the circle and
// extracts its rotation angles. Records without a position or orientation
// are skipped, as are positions on the circle axis where the angular
// position is undefined.
func orientationSamples(seq *orbit.Sequence, circle orbit.Circle, cfg orbit.Config) []orientationSample {
	var out []orientationSample
	for i := range seq.Records {
		rec := &seq.Records[i]
		if rec.Position == nil || rec.Orientation == nil {
			continue
		}
		theta, err := orbit.PointToAngle(*rec.Position, circle, cfg)
		if err != nil {
			continue
		}
		omega, phi, kappa := rec.Orientation.OPK()
		out = append(out, orientationSample{
			status:   rec.Status,
			angleDeg: theta * 180 / math.Pi,
			omega:    omega,
			phi:      phi,
			kappa:    kappa,
		})
	}
	return out
}

// orientationScatter builds one of the stacked charts: the chosen rotation
// angle against angular position, one colored series per status.
func orientationScatter(title, subtitle string, byStatus map[orbit.CalibrationStatus][]orientationSample, value func(orientationSample) float64) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "340px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: 360, Name: "Angular position (deg)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: title, NameLocation: "middle", NameGap: 40}),
	)

	// Fixed series order keeps the legend stable across renders.
	order := []orbit.CalibrationStatus{
		orbit.StatusOriginal,
		orbit.StatusVisuallyCalibrated,
		orbit.StatusEstimated,
		orbit.StatusUncalibrated,
	}
	for _, status := range order {
		samples := byStatus[status]
		if len(samples) == 0 {
			continue
		}
		data := make([]opts.ScatterData, 0, len(samples))
		for _, s := range samples {
			data = append(data, opts.ScatterData{Value: []interface{}{s.angleDeg, value(s)}})
		}
		scatter.AddSeries(string(status), data,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: statusColors[status]}),
		)
	}
	return scatter
}
