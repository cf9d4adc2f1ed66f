package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/orbit.report/internal/orbit"
)

// CalibrationRun is an audit row for a single pipeline execution.
type CalibrationRun struct {
	RunID        string           `json:"run_id"`
	SequenceID   string           `json:"sequence_id"`
	Circle       *orbit.Circle    `json:"circle,omitempty"`
	RMSE         float64          `json:"rmse"`
	Quality      orbit.FitQuality `json:"quality"`
	Interpolated int              `json:"interpolated"`
	Extrapolated int              `json:"extrapolated"`
	Skipped      bool             `json:"skipped"`
	Issues       []string         `json:"issues,omitempty"`
	CreatedAtNs  int64            `json:"created_at_ns"`
}

// RunStore records calibration run outcomes for later review.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a RunStore backed by the given database.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db.DB}
}

// InsertRun stores the outcome of a pipeline run and returns its run ID.
func (s *RunStore) InsertRun(res *orbit.RunResult) (string, error) {
	runID := uuid.New().String()

	var cx, cy, cz, radius, nx, ny, nz *float64
	if res.Circle != nil {
		cx, cy, cz = &res.Circle.Center.X, &res.Circle.Center.Y, &res.Circle.Center.Z
		radius = &res.Circle.Radius
		nx, ny, nz = &res.Circle.Normal.X, &res.Circle.Normal.Y, &res.Circle.Normal.Z
	}

	var issuesJSON interface{}
	if len(res.Issues) > 0 {
		b, err := json.Marshal(res.Issues)
		if err != nil {
			return "", fmt.Errorf("marshal issues: %w", err)
		}
		issuesJSON = string(b)
	}

	_, err := s.db.Exec(`
		INSERT INTO calibration_runs (
			run_id, sequence_id,
			center_x, center_y, center_z, radius, normal_x, normal_y, normal_z,
			rmse, quality, interpolated_count, extrapolated_count, skipped,
			issues_json, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID, res.SequenceID,
		nullFloat(cx), nullFloat(cy), nullFloat(cz), nullFloat(radius),
		nullFloat(nx), nullFloat(ny), nullFloat(nz),
		res.RMSE, string(res.Quality), res.Interpolated, res.Extrapolated, res.Skipped,
		issuesJSON, time.Now().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return runID, nil
}

// ListRuns returns the runs for a sequence, newest first.
func (s *RunStore) ListRuns(sequenceID string) ([]CalibrationRun, error) {
	rows, err := s.db.Query(`
		SELECT run_id, sequence_id,
		       center_x, center_y, center_z, radius, normal_x, normal_y, normal_z,
		       rmse, quality, interpolated_count, extrapolated_count, skipped,
		       issues_json, created_at_ns
		FROM calibration_runs
		WHERE sequence_id = ?
		ORDER BY created_at_ns DESC
	`, sequenceID)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []CalibrationRun
	for rows.Next() {
		var run CalibrationRun
		var cx, cy, cz, radius, nx, ny, nz sql.NullFloat64
		var quality, issuesJSON sql.NullString
		if err := rows.Scan(
			&run.RunID, &run.SequenceID,
			&cx, &cy, &cz, &radius, &nx, &ny, &nz,
			&run.RMSE, &quality, &run.Interpolated, &run.Extrapolated, &run.Skipped,
			&issuesJSON, &run.CreatedAtNs,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if cx.Valid && radius.Valid {
			run.Circle = &orbit.Circle{
				Center: orbit.Point{X: cx.Float64, Y: cy.Float64, Z: cz.Float64},
				Radius: radius.Float64,
				Normal: orbit.Point{X: nx.Float64, Y: ny.Float64, Z: nz.Float64},
			}
		}
		if quality.Valid {
			run.Quality = orbit.FitQuality(quality.String)
		}
		if issuesJSON.Valid {
			if err := json.Unmarshal([]byte(issuesJSON.String), &run.Issues); err != nil {
				return nil, fmt.Errorf("unmarshal issues: %w", err)
			}
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}
