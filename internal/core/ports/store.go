package ports

import "context"

// Repositories groups the repositories sharing one connection or transaction.
type Repositories interface {
	Users() UserRepository
	Sessions() SessionRepository
	Groups() GroupRepository
	Preferences() PreferenceRepository
}

// Store is the relational store.
type Store interface {
	Repositories

	// WithTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error

	Ping(ctx context.Context) error
	Close() error
}
