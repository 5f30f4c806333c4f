// Package store persists run metadata, region feature records and the
// per-building indicator table.
package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/urban-morph/internal/export"
	"github.com/sells-group/urban-morph/internal/model"
)

// Store defines the persistence interface for extraction runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, city string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, stats model.RunStats) error
	FailRun(ctx context.Context, runID string, cause error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Results
	SaveRegions(ctx context.Context, runID string, records map[string]export.RegionRecord) (int64, error)
	SaveBuildings(ctx context.Context, runID string, rows []model.BuildingIndex) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// RunFilter narrows ListRuns. Zero fields match everything.
type RunFilter struct {
	City   string
	Status model.RunStatus
	Limit  int
}

// DefaultRunLimit caps ListRuns when the filter sets no limit.
const DefaultRunLimit = 50

// listRunsSQL builds the run listing query, newest first. placeholder renders
// the n-th bind parameter for the backend.
func listRunsSQL(f RunFilter, placeholder func(n int) string) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.City != "" {
		args = append(args, f.City)
		where = append(where, "city = "+placeholder(len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, "status = "+placeholder(len(args)))
	}

	q := "SELECT id, city, status, stats, error, created_at, updated_at FROM runs"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultRunLimit
	}
	args = append(args, limit)
	q += " ORDER BY created_at DESC LIMIT " + placeholder(len(args))
	return q, args
}

// Drivers accepted by Open.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects the configured driver and migrates its schema. DriverNone
// (or an empty driver) returns a nil Store.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case "", DriverNone:
		return nil, nil
	case DriverSQLite:
		s, err = NewSQLite(dsn)
	case DriverPostgres:
		s, err = NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// regionColumns is the column order shared by both backends.
var regionColumns = []string{
	"run_id", "geoid", "aland", "pop_overall", "area_mean", "height_mean",
	"complexity_mean", "building_density", "plot_ratio", "feature",
}

// buildingColumns is the column order shared by both backends.
var buildingColumns = []string{
	"run_id", "osmid", "area", "perimeter", "cplx", "compactness", "vertices",
	"bbox_width", "bbox_length", "eri", "ri",
}

func buildingRow(runID string, r model.BuildingIndex) []any {
	return []any{
		runID, r.ID, r.Area, r.Perimeter, r.Cplx, r.Compactness, r.Vertices,
		r.BBoxWidth, r.BBoxLength, r.ERI, r.RI,
	}
}

func regionRow(runID, geoid string, r export.RegionRecord, feature any) []any {
	return []any{
		runID, geoid, r.ALAND, r.PopOverall, r.AreaMean, r.HeightMean,
		r.ComplexityMean, r.BuildingDensity, r.PlotRatio, feature,
	}
}
