package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/orbit.report/internal/orbit"
	"github.com/banshee-data/orbit.report/internal/orbit/geo"
	"github.com/banshee-data/orbit.report/internal/orbit/storage/sqlite"
)

// WebServer handles the HTTP interface for reviewing capture sequences and
// triggering calibration runs.
type WebServer struct {
	address   string
	server    *http.Server
	sequences *sqlite.SequenceStore
	runs      *sqlite.RunStore
	cfg       orbit.Config
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address   string
	Sequences *sqlite.SequenceStore
	Runs      *sqlite.RunStore
	Pipeline  orbit.Config
}

// NewWebServer creates a new web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address:   config.Address,
		sequences: config.Sequences,
		runs:      config.Runs,
		cfg:       config.Pipeline,
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}

	return ws
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[monitor] encode response: %v", err)
	}
}

// Start begins the HTTP server in a goroutine and handles graceful shutdown.
func (ws *WebServer) Start(ctx context.Context) error {
	// Start server in a goroutine so it doesn't block
	go func() {
		log.Printf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for context cancellation to shut down server
	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
	return nil
}

// setupRoutes configures the HTTP routes and handlers.
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/sequences", ws.handleListSequences)
	mux.HandleFunc("/api/sequence", ws.handleGetSequence)
	mux.HandleFunc("/api/calibrate", ws.handleCalibrate)
	mux.HandleFunc("/api/runs", ws.handleListRuns)
	mux.HandleFunc("/api/export/pix4d", ws.handleExportPix4D)
	mux.HandleFunc("/charts/orientation", ws.handleOrientationChart)
	mux.HandleFunc("/charts/residuals", ws.handleResidualPlot)

	return mux
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, map[string]string{"status": "ok"})
}

// handleListSequences returns summaries of all stored sequences.
func (ws *WebServer) handleListSequences(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	infos, err := ws.sequences.ListSequences()
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list sequences: %v", err))
		return
	}
	ws.writeJSON(w, infos)
}

// handleGetSequence returns one sequence with its records.
// Query params:
//
//	sequence_id (required)
func (ws *WebServer) handleGetSequence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	seq, ok := ws.loadSequence(w, r)
	if !ok {
		return
	}
	ws.writeJSON(w, seq)
}

// handleCalibrate runs the calibration pipeline on a stored sequence,
// persists the filled records, and records an audit row.
// Query params:
//
//	sequence_id (required)
func (ws *WebServer) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	seq, ok := ws.loadSequence(w, r)
	if !ok {
		return
	}

	res := orbit.Run(seq, ws.cfg)
	if !res.Skipped {
		if err := ws.sequences.SaveRecords(seq); err != nil {
			ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("save records: %v", err))
			return
		}
	}
	runID, err := ws.runs.InsertRun(&res)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("record run: %v", err))
		return
	}

	ws.writeJSON(w, map[string]interface{}{
		"run_id": runID,
		"result": res,
	})
}

// handleListRuns returns the calibration runs for a sequence, newest first.
// Query params:
//
//	sequence_id (required)
func (ws *WebServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	sequenceID := r.URL.Query().Get("sequence_id")
	if sequenceID == "" {
		ws.writeJSONError(w, http.StatusBadRequest, "missing 'sequence_id' parameter")
		return
	}
	runs, err := ws.runs.ListRuns(sequenceID)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list runs: %v", err))
		return
	}
	ws.writeJSON(w, runs)
}

// handleExportPix4D streams the sequence as a Pix4D-style geolocation CSV.
// Query params:
//
//	sequence_id (required)
//	lat, lon (optional; geodetic origin for the synthetic coordinates)
func (ws *WebServer) handleExportPix4D(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	seq, ok := ws.loadSequence(w, r)
	if !ok {
		return
	}

	circle, err := orbit.FitCircle(seq.CalibratedPositions(), ws.cfg)
	if err != nil {
		ws.writeJSONError(w, http.StatusUnprocessableEntity, fmt.Sprintf("circle fit: %v", err))
		return
	}

	origin := geo.Origin{}
	if v := r.URL.Query().Get("lat"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			origin.Lat = parsed
		}
	}
	if v := r.URL.Query().Get("lon"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			origin.Lon = parsed
		}
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", seq.Name+"_pix4d.csv"))
	if err := geo.ExportPix4D(w, seq, circle, origin); err != nil {
		log.Printf("[monitor] pix4d export: %v", err)
	}
}

// loadSequence resolves the sequence_id query parameter and fetches the
// sequence, writing the error response itself on failure.
func (ws *WebServer) loadSequence(w http.ResponseWriter, r *http.Request) (*orbit.Sequence, bool) {
	sequenceID := r.URL.Query().Get("sequence_id")
	if sequenceID == "" {
		ws.writeJSONError(w, http.StatusBadRequest, "missing 'sequence_id' parameter")
		return nil, false
	}
	seq, err := ws.sequences.GetSequence(sequenceID)
	if err != nil {
		ws.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("get sequence: %v", err))
		return nil, false
	}
	return seq, true
}
