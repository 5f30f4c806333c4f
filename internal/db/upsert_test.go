package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var regionUpsert = UpsertConfig{
	Table:        "morph.region_features",
	Columns:      []string{"run_id", "geoid", "plot_ratio"},
	ConflictKeys: []string{"run_id", "geoid"},
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, regionUpsert, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "region_features",
		ConflictKeys: []string{"geoid"},
	}, [][]any{{"R1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:   "region_features",
		Columns: []string{"geoid"},
	}, [][]any{{"R1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_morph_region_features"}, regionUpsert.Columns).WillReturnResult(2)
	mock.ExpectExec("INSERT INTO").WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, regionUpsert, [][]any{{"r", "R1", 0.1}, {"r", "R2", 0.2}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_morph_region_features"}, regionUpsert.Columns).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, regionUpsert, [][]any{{"r", "R1", 0.1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY into temp table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSQL(t *testing.T) {
	got := upsertSQL(regionUpsert, `"morph"."region_features"`, `"_tmp"`)
	assert.Equal(t,
		`INSERT INTO "morph"."region_features" ("run_id", "geoid", "plot_ratio") SELECT "run_id", "geoid", "plot_ratio" FROM "_tmp" ON CONFLICT ("run_id", "geoid") DO UPDATE SET "plot_ratio" = EXCLUDED."plot_ratio"`,
		got)

	keysOnly := UpsertConfig{Columns: []string{"geoid"}, ConflictKeys: []string{"geoid"}}
	assert.Contains(t, upsertSQL(keysOnly, `"t"`, `"tmp"`), "DO NOTHING")
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"run_id", "geoid", "eri"`, quoteAndJoin([]string{"run_id", "geoid", "eri"}))
}
