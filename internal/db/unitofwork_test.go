package db_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uowTestSetup(t *testing.T) *db.SQLiteUnitOfWork {
	t.Helper()
	database, err := db.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	return db.NewSQLiteUnitOfWork(database)
}

// holidayCount reads the holidays table through a fresh transaction.
func holidayCount(t *testing.T, uow *db.SQLiteUnitOfWork) int {
	t.Helper()
	var n int
	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		return tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM holidays`).Scan(&n)
	})
	require.NoError(t, err)
	return n
}

func TestWithinTx_CommitOnSuccess(t *testing.T) {
	uow := uowTestSetup(t)

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO holidays (date, name) VALUES (?, ?)`, "2024-12-25", "Christmas")
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, 1, holidayCount(t, uow))
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	uow := uowTestSetup(t)

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO holidays (date, name) VALUES (?, ?)`, "2024-12-25", "Christmas")
		if err != nil {
			return err
		}
		return fmt.Errorf("deliberate failure")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deliberate failure")

	assert.Equal(t, 0, holidayCount(t, uow), "row should not exist after rollback")
}

func TestWithinTx_RollbackOnPanic(t *testing.T) {
	uow := uowTestSetup(t)

	assert.Panics(t, func() {
		_ = uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
			_, _ = tx.ExecContext(ctx, `INSERT INTO holidays (date, name) VALUES (?, ?)`, "2024-12-25", "Christmas")
			panic("boom")
		})
	})

	assert.Equal(t, 0, holidayCount(t, uow), "row should not exist after panic rollback")
}

func TestWithinTx_SequentialTransactions(t *testing.T) {
	uow := uowTestSetup(t)

	for i := 0; i < 3; i++ {
		err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
			_, err := tx.ExecContext(ctx, `INSERT INTO holidays (date, name) VALUES (?, ?)`,
				fmt.Sprintf("2024-01-%02d", i+1), "test")
			return err
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 3, holidayCount(t, uow))
}
