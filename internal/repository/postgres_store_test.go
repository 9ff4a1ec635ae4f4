package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPostgresStore_RunAtomically_Commit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db, zap.NewNop())
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE devices SET last_seen`).
		WithArgs("pool-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = store.RunAtomically(context.Background(), func(uow *UnitOfWork) error {
		return uow.Devices.TouchLastSeen(context.Background(), "pool-1", now)
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RunAtomically_RollbackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db, zap.NewNop())
	boom := errors.New("insert failed")

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE devices SET last_seen`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err = store.RunAtomically(context.Background(), func(uow *UnitOfWork) error {
		if err := uow.Devices.TouchLastSeen(context.Background(), "pool-1", time.Now()); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RunAtomically_BeginFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db, zap.NewNop())
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	called := false
	err = store.RunAtomically(context.Background(), func(*UnitOfWork) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")
	assert.False(t, called)
	require.NoError(t, mock.ExpectationsWereMet())
}
