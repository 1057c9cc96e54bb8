package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/mentor_match/internal/repository/base"
	"github.com/Freeeeeet/mentor_match/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store реализация store.Store поверх pgxpool
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func newRepositories(db base.DBTX) store.Repositories {
	return store.Repositories{
		Users:        NewUserRepository(db),
		Availability: NewAvailabilityRepository(db),
		Requests:     NewRequestRepository(db),
		Proposals:    NewProposalRepository(db),
		Meetings:     NewMeetingRepository(db),
	}
}

// Repos возвращает репозитории, работающие напрямую с пулом
func (s *Store) Repos() store.Repositories {
	return newRepositories(s.pool)
}

// InTx выполняет fn в транзакции READ COMMITTED. Блокировки строк берутся
// через GetByIDForUpdate, условные UPDATE защищают от гонок статусов.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, repos store.Repositories) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, newRepositories(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
