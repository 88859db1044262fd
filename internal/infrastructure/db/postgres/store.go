package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/99minutos/accounts-api/internal/core/ports"
)

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// querier carries the handle and the per-operation deadline into every
// repository.
type querier struct {
	db      dbtx
	timeout time.Duration
}

func (q querier) ctx(ctx context.Context) (context.Context, context.CancelFunc) {
	if q.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, q.timeout)
}

// Store is the Postgres-backed ports.Store.
type Store struct {
	db *sql.DB
	q  querier
}

func NewStore(db *sql.DB, opTimeout time.Duration) *Store {
	return &Store{db: db, q: querier{db: db, timeout: opTimeout}}
}

func (s *Store) Users() ports.UserRepository             { return &UserRepository{q: s.q} }
func (s *Store) Sessions() ports.SessionRepository       { return &SessionRepository{q: s.q} }
func (s *Store) Groups() ports.GroupRepository           { return &GroupRepository{q: s.q} }
func (s *Store) Preferences() ports.PreferenceRepository { return &PreferenceRepository{q: s.q} }

// WithTx begins a transaction, runs fn with transaction-scoped repositories,
// and commits on success or rolls back on error or panic. The whole
// transaction, including acquiring its connection, is bounded by the
// operation timeout.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx ports.Repositories) error) (err error) {
	ctx, cancel := s.q.ctx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError("begin tx", err, nil, nil)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = mapError("commit tx", cerr, nil, nil)
		}
	}()

	err = fn(ctx, txRepos{q: querier{db: tx, timeout: s.q.timeout}})
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.q.ctx(ctx)
	defer cancel()
	return mapError("ping", s.db.PingContext(ctx), nil, nil)
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the pool for migrations and pool statistics.
func (s *Store) DB() *sql.DB { return s.db }

type txRepos struct{ q querier }

func (r txRepos) Users() ports.UserRepository             { return &UserRepository{q: r.q} }
func (r txRepos) Sessions() ports.SessionRepository       { return &SessionRepository{q: r.q} }
func (r txRepos) Groups() ports.GroupRepository           { return &GroupRepository{q: r.q} }
func (r txRepos) Preferences() ports.PreferenceRepository { return &PreferenceRepository{q: r.q} }

var _ ports.Store = (*Store)(nil)
