package ports

import (
	"context"

	"github.com/99minutos/accounts-api/internal/core/domain"
)

// PasswordHasher is a one-way credential verifier.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare returns nil only when password matches hash.
	Compare(hash, password string) error
}

// TokenIssuer mints and verifies signed bearer tokens without a store round trip.
type TokenIssuer interface {
	Issue(userID, email string) (domain.IssuedToken, error)
	Verify(token string) (*domain.TokenClaims, error)
}

// LoginThrottle tracks failed logins per key.
type LoginThrottle interface {
	Blocked(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}
