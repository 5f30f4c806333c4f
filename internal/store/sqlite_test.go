package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/urban-morph/internal/export"
	"github.com/sells-group/urban-morph/internal/indicator"
	"github.com/sells-group/urban-morph/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_RunLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "bj")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "bj", got.City)
	assert.Equal(t, model.RunStatusRunning, got.Status)
	assert.Nil(t, got.Stats)

	stats := model.RunStats{Regions: 2, BuildingsIn: 10, Assigned: 7, DroppedOutside: 3}
	require.NoError(t, st.CompleteRun(ctx, run.ID, stats))

	got, err = st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Stats)
	assert.Equal(t, stats, *got.Stats)
}

func TestSQLite_FailRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "sz")
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, run.ID, errors.New("region R1: region has zero land area")))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Contains(t, got.Error, "zero land area")
}

func TestSQLite_UnknownRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetRun(ctx, "nope")
	assert.Error(t, err)

	err = st.CompleteRun(ctx, "nope", model.RunStats{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestSQLite_SaveRegions(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "bj")
	require.NoError(t, err)

	records := map[string]export.RegionRecord{
		"R1": {ALAND: 1_000_000, PopOverall: 1234, AreaMean: 150, PlotRatio: 0.005, Feature: []float64{1, -1}},
		"R2": {ALAND: 2_000_000, Feature: []float64{-1, 1}},
	}
	n, err := st.SaveRegions(ctx, run.ID, records)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Saving again replaces rather than duplicates.
	_, err = st.SaveRegions(ctx, run.ID, records)
	require.NoError(t, err)

	var count int
	require.NoError(t, st.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM region_features WHERE run_id = ?`, run.ID).Scan(&count))
	assert.Equal(t, 2, count)

	var aland int64
	var feature string
	require.NoError(t, st.db.QueryRowContext(ctx,
		`SELECT aland, feature FROM region_features WHERE run_id = ? AND geoid = ?`, run.ID, "R1").Scan(&aland, &feature))
	assert.Equal(t, int64(1_000_000), aland)
	assert.JSONEq(t, `[1,-1]`, feature)
}

func TestSQLite_SaveBuildings(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "bj")
	require.NoError(t, err)

	rows := []model.BuildingIndex{
		{ID: "1", Vector: indicator.Vector{Area: 100, Vertices: 5, ERI: 1}},
		{ID: "2", Vector: indicator.Vector{Area: 50, Vertices: 7, ERI: 0.86}},
	}
	n, err := st.SaveBuildings(ctx, run.ID, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var vertices int
	require.NoError(t, st.db.QueryRowContext(ctx,
		`SELECT vertices FROM building_indicators WHERE run_id = ? AND osmid = ?`, run.ID, "2").Scan(&vertices))
	assert.Equal(t, 7, vertices)
}

func TestSQLite_SaveEmpty(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := st.SaveBuildings(ctx, "r", nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = st.SaveRegions(ctx, "r", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInsertSQL(t *testing.T) {
	assert.Equal(t, "INSERT INTO t (a, b) VALUES (?, ?)", insertSQL("INSERT INTO t", []string{"a", "b"}))
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := st.CreateRun(ctx, "bj")
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, "bj")
	require.NoError(t, err)
	c, err := st.CreateRun(ctx, "sh")
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, a.ID, model.RunStats{Regions: 3}))
	require.NoError(t, st.FailRun(ctx, c.ID, errors.New("tile missing")))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	bj, err := st.ListRuns(ctx, RunFilter{City: "bj"})
	require.NoError(t, err)
	assert.Len(t, bj, 2)

	done, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, a.ID, done[0].ID)
	require.NotNil(t, done[0].Stats)
	assert.Equal(t, 3, done[0].Stats.Regions)

	failed, err := st.ListRuns(ctx, RunFilter{City: "sh", Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "tile missing", failed[0].Error)

	one, err := st.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, one, 1)
}
