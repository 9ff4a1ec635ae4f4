package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// PostgresStore is the database/sql backed Store.
type PostgresStore struct {
	db     *sql.DB
	repos  *UnitOfWork
	logger *zap.Logger
}

// NewPostgresStore creates a store over db.
func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		repos:  newPostgresUnitOfWork(db),
		logger: logger,
	}
}

func newPostgresUnitOfWork(db DBTX) *UnitOfWork {
	return &UnitOfWork{
		Devices:   NewPostgresDevicesRepo(db),
		Configs:   NewPostgresConfigsRepo(db),
		Readings:  NewPostgresReadingsRepo(db),
		Alerts:    NewPostgresAlertsRepo(db),
		Users:     NewPostgresUsersRepo(db),
		Dispenser: NewPostgresDispenserRepo(db),
	}
}

func (s *PostgresStore) Repos() *UnitOfWork {
	return s.repos
}

func (s *PostgresStore) RunAtomically(ctx context.Context, fn func(uow *UnitOfWork) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// no-op after a successful Commit
		_ = tx.Rollback()
	}()

	if err := fn(newPostgresUnitOfWork(tx)); err != nil {
		s.logger.Debug("Transaction rolled back", zap.Error(err))
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
