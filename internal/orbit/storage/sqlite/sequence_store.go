package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/orbit.report/internal/orbit"
)

// SequenceInfo summarizes a stored sequence for listings.
type SequenceInfo struct {
	SequenceID  string `json:"sequence_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Records     int    `json:"records"`
	CreatedAtNs int64  `json:"created_at_ns"`
}

// SequenceStore persists capture sequences and their camera records.
// Orientations are stored as Omega/Phi/Kappa degrees, the representation
// the exchange formats use; they are converted back to quaternions on
// load.
type SequenceStore struct {
	db *sql.DB
}

// NewSequenceStore creates a SequenceStore backed by the given database.
func NewSequenceStore(db *DB) *SequenceStore {
	return &SequenceStore{db: db.DB}
}

// InsertSequence creates a sequence and its records. If seq.SequenceID is
// empty, a new UUID is generated and written back.
func (s *SequenceStore) InsertSequence(seq *orbit.Sequence, description string) error {
	if seq.SequenceID == "" {
		seq.SequenceID = uuid.New().String()
	}

	_, err := s.db.Exec(`
		INSERT INTO sequences (sequence_id, name, description, created_at_ns)
		VALUES (?, ?, ?, ?)
	`, seq.SequenceID, seq.Name, nullString(description), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("insert sequence: %w", err)
	}

	return s.SaveRecords(seq)
}

// SaveRecords upserts every camera record of the sequence.
func (s *SequenceStore) SaveRecords(seq *orbit.Sequence) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save records: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO camera_records (
			sequence_id, record_key, x, y, z, omega, phi, kappa, status, confidence
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare record upsert: %w", err)
	}
	defer stmt.Close()

	for i := range seq.Records {
		r := &seq.Records[i]
		var x, y, z, omega, phi, kappa *float64
		if r.Position != nil {
			x, y, z = &r.Position.X, &r.Position.Y, &r.Position.Z
		}
		if r.Orientation != nil {
			o, p, k := r.Orientation.OPK()
			omega, phi, kappa = &o, &p, &k
		}
		_, err := stmt.Exec(
			seq.SequenceID, r.Key,
			nullFloat(x), nullFloat(y), nullFloat(z),
			nullFloat(omega), nullFloat(phi), nullFloat(kappa),
			string(r.Status), nullString(string(r.Confidence)),
		)
		if err != nil {
			return fmt.Errorf("upsert record %v: %w", r.Key, err)
		}
	}

	if _, err := tx.Exec(`UPDATE sequences SET updated_at_ns = ? WHERE sequence_id = ?`,
		time.Now().UnixNano(), seq.SequenceID); err != nil {
		return fmt.Errorf("touch sequence: %w", err)
	}
	return tx.Commit()
}

// GetSequence loads a sequence with its records in key order.
func (s *SequenceStore) GetSequence(sequenceID string) (*orbit.Sequence, error) {
	seq := &orbit.Sequence{SequenceID: sequenceID}
	err := s.db.QueryRow(`SELECT name FROM sequences WHERE sequence_id = ?`, sequenceID).
		Scan(&seq.Name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sequence not found: %s", sequenceID)
	}
	if err != nil {
		return nil, fmt.Errorf("get sequence: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT record_key, x, y, z, omega, phi, kappa, status, confidence
		FROM camera_records
		WHERE sequence_id = ?
		ORDER BY record_key
	`, sequenceID)
	if err != nil {
		return nil, fmt.Errorf("get records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec orbit.CameraRecord
		var x, y, z, omega, phi, kappa sql.NullFloat64
		var status string
		var confidence sql.NullString
		if err := rows.Scan(&rec.Key, &x, &y, &z, &omega, &phi, &kappa, &status, &confidence); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if x.Valid && y.Valid && z.Valid {
			p := orbit.Point{X: x.Float64, Y: y.Float64, Z: z.Float64}
			rec.Position = &p
		}
		if omega.Valid && phi.Valid && kappa.Valid {
			q := orbit.FromOPK(omega.Float64, phi.Float64, kappa.Float64)
			rec.Orientation = &q
		}
		rec.Status = orbit.CalibrationStatus(status)
		if confidence.Valid {
			rec.Confidence = orbit.EstimateConfidence(confidence.String)
		}
		seq.Records = append(seq.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return seq, nil
}

// ListSequences returns summaries of all stored sequences, newest first.
func (s *SequenceStore) ListSequences() ([]SequenceInfo, error) {
	rows, err := s.db.Query(`
		SELECT s.sequence_id, s.name, s.description, s.created_at_ns,
		       (SELECT COUNT(*) FROM camera_records r WHERE r.sequence_id = s.sequence_id)
		FROM sequences s
		ORDER BY s.created_at_ns DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sequences: %w", err)
	}
	defer rows.Close()

	var out []SequenceInfo
	for rows.Next() {
		var info SequenceInfo
		var description sql.NullString
		if err := rows.Scan(&info.SequenceID, &info.Name, &description, &info.CreatedAtNs, &info.Records); err != nil {
			return nil, fmt.Errorf("scan sequence: %w", err)
		}
		if description.Valid {
			info.Description = description.String
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sequences: %w", err)
	}
	return out, nil
}
