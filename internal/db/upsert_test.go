package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestBulkUpsert_TempTableFlow(t *testing.T) {
	mock := newMockPool(t)

	cols := []string{"id", "name", "updated_at"}
	rows := [][]any{
		{int64(1), "First", "2025-03-31"},
		{int64(2), "Second", "2025-03-31"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_institutions"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_institutions"}, cols).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "institutions"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "institutions",
		Columns:      cols,
		ConflictKeys: []string{"id"},
	}, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	mock := newMockPool(t)

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "institutions",
		Columns:      []string{"id"},
		ConflictKeys: []string{"id"},
	}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_ConfigValidation(t *testing.T) {
	mock := newMockPool(t)
	rows := [][]any{{int64(1)}}

	_, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "institutions",
		ConflictKeys: []string{"id"},
	}, rows)
	assert.Error(t, err)

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:   "institutions",
		Columns: []string{"id"},
	}, rows)
	assert.Error(t, err)
}

func TestCopyFrom(t *testing.T) {
	mock := newMockPool(t)

	cols := []string{"entity_id", "value"}
	mock.ExpectCopyFrom(pgx.Identifier{"metrics"}, cols).WillReturnResult(3)

	n, err := CopyFrom(context.Background(), mock, "metrics", cols, [][]any{
		{int64(1), 1.0}, {int64(2), 2.0}, {int64(3), 3.0},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_EmptyRows(t *testing.T) {
	mock := newMockPool(t)
	n, err := CopyFrom(context.Background(), mock, "metrics", []string{"id"}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
