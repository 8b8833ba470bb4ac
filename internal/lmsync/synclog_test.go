package lmsync

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncLog_StartCompleteRoundTrip(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	log := NewSyncLog(mock)

	mock.ExpectExec("INSERT INTO lm.sync_log").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := log.Start(context.Background())
	require.NoError(t, err)

	mock.ExpectExec("UPDATE lm.sync_log").
		WithArgs(int64(10), int64(1), int64(2), pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = log.Complete(context.Background(), id, Result{
		Processed: 10, Skipped: 1, Failed: 2, Status: StatusPartial,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncLog_LastSuccess(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	log := NewSyncLog(mock)

	mock.ExpectQuery("SELECT started_at FROM lm.sync_log").
		WillReturnRows(pgxmock.NewRows([]string{"started_at"}))

	got, err := log.LastSuccess(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got, "no completed run yet")

	started := time.Date(2026, 8, 30, 9, 15, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT started_at FROM lm.sync_log").
		WillReturnRows(pgxmock.NewRows([]string{"started_at"}).AddRow(started))

	got, err = log.LastSuccess(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, started, *got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncLog_Fail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	log := NewSyncLog(mock)

	mock.ExpectExec("INSERT INTO lm.sync_log").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	id, err := log.Start(context.Background())
	require.NoError(t, err)

	mock.ExpectExec("UPDATE lm.sync_log").
		WithArgs("batch aborted", id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, log.Fail(context.Background(), id, "batch aborted"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
