package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/urban-morph/internal/export"
	"github.com/sells-group/urban-morph/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	city       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	stats      TEXT,
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS region_features (
	run_id           TEXT NOT NULL REFERENCES runs(id),
	geoid            TEXT NOT NULL,
	aland            INTEGER NOT NULL,
	pop_overall      INTEGER NOT NULL,
	area_mean        REAL NOT NULL,
	height_mean      REAL NOT NULL,
	complexity_mean  REAL NOT NULL,
	building_density REAL NOT NULL,
	plot_ratio       REAL NOT NULL,
	feature          TEXT NOT NULL,
	PRIMARY KEY (run_id, geoid)
);

CREATE TABLE IF NOT EXISTS building_indicators (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	osmid       TEXT NOT NULL,
	area        REAL NOT NULL,
	perimeter   REAL NOT NULL,
	cplx        REAL NOT NULL,
	compactness REAL NOT NULL,
	vertices    INTEGER NOT NULL,
	bbox_width  REAL NOT NULL,
	bbox_length REAL NOT NULL,
	eri         REAL NOT NULL,
	ri          REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_city ON runs(city);
CREATE INDEX IF NOT EXISTS idx_building_indicators_run_id ON building_indicators(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, city string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, city, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, city, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		City:      city,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, stats model.RunStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stats")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET stats = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(statsJSON), string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET error = ?, status = ?, updated_at = ? WHERE id = ?`,
		msg, string(model.RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, city, status, stats, error, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	run, err := scanSQLiteRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("sqlite: run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query, args := listRunsSQL(filter, func(int) string { return "?" })
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		run, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRun(row rowScanner) (*model.Run, error) {
	var (
		run      model.Run
		status   string
		statsRaw sql.NullString
		errMsg   sql.NullString
	)
	if err := row.Scan(&run.ID, &run.City, &status, &statsRaw, &errMsg, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return nil, err
	}

	run.Status = model.RunStatus(status)
	run.Error = errMsg.String
	if statsRaw.Valid && statsRaw.String != "" {
		var stats model.RunStats
		if err := json.Unmarshal([]byte(statsRaw.String), &stats); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal stats")
		}
		run.Stats = &stats
	}
	return &run, nil
}

func (s *SQLiteStore) SaveRegions(ctx context.Context, runID string, records map[string]export.RegionRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	rows := make([][]any, 0, len(records))
	for _, geoid := range export.SortedGEOIDs(records) {
		r := records[geoid]
		feature, err := json.Marshal(r.Feature)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: marshal feature %s", geoid)
		}
		rows = append(rows, regionRow(runID, geoid, r, string(feature)))
	}
	return s.insertRows(ctx, "INSERT OR REPLACE INTO region_features", regionColumns, rows)
}

func (s *SQLiteStore) SaveBuildings(ctx context.Context, runID string, rows []model.BuildingIndex) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = buildingRow(runID, r)
	}
	return s.insertRows(ctx, "INSERT INTO building_indicators", buildingColumns, values)
}

// insertRows runs one prepared insert per row inside a transaction.
func (s *SQLiteStore) insertRows(ctx context.Context, verb string, columns []string, rows [][]any) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, insertSQL(verb, columns))
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert row %v", row[1])
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return n, nil
}

func insertSQL(verb string, columns []string) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("%s (%s) VALUES (%s)", verb, strings.Join(columns, ", "), marks)
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
