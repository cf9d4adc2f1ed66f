package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/orbit.report/internal/orbit"
)

// testDB opens a fresh database in a temp dir and applies all migrations.
func testDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "orbit_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.MigrateUp("../../../../migrations"))
	return db
}

func testSequence() *orbit.Sequence {
	pos := func(x, y, z float64) *orbit.Point {
		return &orbit.Point{X: x, Y: y, Z: z}
	}
	quat := func(omega, phi, kappa float64) *orbit.Quaternion {
		q := orbit.FromOPK(omega, phi, kappa)
		return &q
	}
	return &orbit.Sequence{
		Name: "bench-scan",
		Records: []orbit.CameraRecord{
			{Key: 0, Position: pos(2, 0, 1), Orientation: quat(0, 0, 90), Status: orbit.StatusOriginal},
			{Key: 1, Status: orbit.StatusUncalibrated},
			{Key: 2, Position: pos(-2, 0, 1), Orientation: quat(5, -3, 270), Status: orbit.StatusVisuallyCalibrated},
		},
	}
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.MigrateUp("../../../../migrations"))

	version, dirty, err := db.MigrateVersion("../../../../migrations")
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)
}

func TestSequenceRoundTrip(t *testing.T) {
	db := testDB(t)
	store := NewSequenceStore(db)

	seq := testSequence()
	require.NoError(t, store.InsertSequence(seq, "turntable session"))
	require.NotEmpty(t, seq.SequenceID, "InsertSequence should assign an ID")

	got, err := store.GetSequence(seq.SequenceID)
	require.NoError(t, err)

	assert.Equal(t, seq.Name, got.Name)
	require.Len(t, got.Records, 3)

	first := got.Records[0]
	assert.Equal(t, 0.0, first.Key)
	assert.Equal(t, orbit.StatusOriginal, first.Status)
	require.NotNil(t, first.Position)
	assert.InDelta(t, 2.0, first.Position.X, 1e-9)
	require.NotNil(t, first.Orientation)
	omega, phi, kappa := first.Orientation.OPK()
	assert.InDelta(t, 0.0, omega, 1e-6)
	assert.InDelta(t, 0.0, phi, 1e-6)
	assert.InDelta(t, 90.0, kappa, 1e-6)

	// The uncalibrated record has no pose at all.
	second := got.Records[1]
	assert.Equal(t, orbit.StatusUncalibrated, second.Status)
	assert.Nil(t, second.Position)
	assert.Nil(t, second.Orientation)
}

func TestGetSequenceNotFound(t *testing.T) {
	db := testDB(t)
	store := NewSequenceStore(db)

	_, err := store.GetSequence("no-such-sequence")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSaveRecordsUpserts(t *testing.T) {
	db := testDB(t)
	store := NewSequenceStore(db)

	seq := testSequence()
	require.NoError(t, store.InsertSequence(seq, ""))

	// Fill the gap record the way the pipeline would, then save again.
	seq.Records[1].Position = &orbit.Point{X: 0, Y: 2, Z: 1}
	seq.Records[1].Status = orbit.StatusEstimated
	seq.Records[1].Confidence = orbit.ConfidenceInterpolated
	require.NoError(t, store.SaveRecords(seq))

	got, err := store.GetSequence(seq.SequenceID)
	require.NoError(t, err)
	require.Len(t, got.Records, 3, "upsert must not duplicate rows")

	filled := got.Records[1]
	assert.Equal(t, orbit.StatusEstimated, filled.Status)
	assert.Equal(t, orbit.ConfidenceInterpolated, filled.Confidence)
	require.NotNil(t, filled.Position)
	assert.InDelta(t, 2.0, filled.Position.Y, 1e-9)
}

func TestListSequences(t *testing.T) {
	db := testDB(t)
	store := NewSequenceStore(db)

	first := &orbit.Sequence{Name: "first"}
	require.NoError(t, store.InsertSequence(first, "described"))
	second := testSequence()
	require.NoError(t, store.InsertSequence(second, ""))

	infos, err := store.ListSequences()
	require.NoError(t, err)
	require.Len(t, infos, 2)

	byID := map[string]SequenceInfo{}
	for _, info := range infos {
		byID[info.SequenceID] = info
	}
	assert.Equal(t, 0, byID[first.SequenceID].Records)
	assert.Equal(t, "described", byID[first.SequenceID].Description)
	assert.Equal(t, 3, byID[second.SequenceID].Records)
	assert.Empty(t, byID[second.SequenceID].Description)
}

func TestRunStoreRoundTrip(t *testing.T) {
	db := testDB(t)
	seqStore := NewSequenceStore(db)
	runStore := NewRunStore(db)

	seq := testSequence()
	require.NoError(t, seqStore.InsertSequence(seq, ""))

	res := &orbit.RunResult{
		SequenceID: seq.SequenceID,
		Circle: &orbit.Circle{
			Center: orbit.Point{X: 0.1, Y: -0.2, Z: 1},
			Radius: 2.0,
			Normal: orbit.Point{Z: 1},
		},
		RMSE:         0.012,
		Quality:      orbit.FitQualityGood,
		Interpolated: 1,
		Issues:       []string{"orientation offset withheld: insufficient anchors"},
	}
	runID, err := runStore.InsertRun(res)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	runs, err := runStore.ListRuns(seq.SequenceID)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run := runs[0]
	assert.Equal(t, runID, run.RunID)
	require.NotNil(t, run.Circle)
	assert.InDelta(t, 2.0, run.Circle.Radius, 1e-9)
	assert.InDelta(t, -0.2, run.Circle.Center.Y, 1e-9)
	assert.Equal(t, orbit.FitQualityGood, run.Quality)
	assert.InDelta(t, 0.012, run.RMSE, 1e-9)
	assert.Equal(t, 1, run.Interpolated)
	assert.False(t, run.Skipped)
	assert.Equal(t, res.Issues, run.Issues)
}

func TestRunStoreSkippedRun(t *testing.T) {
	db := testDB(t)
	seqStore := NewSequenceStore(db)
	runStore := NewRunStore(db)

	seq := &orbit.Sequence{Name: "degenerate"}
	require.NoError(t, seqStore.InsertSequence(seq, ""))

	res := &orbit.RunResult{
		SequenceID: seq.SequenceID,
		Skipped:    true,
		Issues:     []string{"circle fit: points are collinear"},
	}
	_, err := runStore.InsertRun(res)
	require.NoError(t, err)

	runs, err := runStore.ListRuns(seq.SequenceID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Skipped)
	assert.Nil(t, runs[0].Circle)
	assert.Zero(t, runs[0].RMSE)
}
