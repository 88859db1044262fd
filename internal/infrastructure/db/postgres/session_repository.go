package postgres

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/99minutos/accounts-api/internal/core/domain"
)

// SessionRepository stores a SHA-256 digest of each token, never the token.
type SessionRepository struct {
	q querier
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	out := *s
	err := r.q.db.QueryRowContext(ctx,
		`INSERT INTO sessions (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		s.UserID, hashToken(s.Token), s.ExpiresAt).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, mapError("create session", err, domain.ErrUserNotFound, nil)
	}
	return &out, nil
}

func (r *SessionRepository) FindActiveByToken(ctx context.Context, token string) (*domain.Session, error) {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	s := domain.Session{Token: token}
	err := r.q.db.QueryRowContext(ctx,
		`SELECT id, user_id, expires_at, created_at FROM sessions
		WHERE token_hash = $1 AND expires_at > now()`,
		hashToken(token)).Scan(&s.ID, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, mapError("find session", err, domain.ErrSessionNotFound, nil)
	}
	return &s, nil
}

func (r *SessionRepository) DeleteByToken(ctx context.Context, token string) error {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	_, err := r.q.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = $1`, hashToken(token))
	return mapError("delete session", err, nil, nil)
}

func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	res, err := r.q.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, mapError("delete user sessions", err, nil, nil)
	}
	return res.RowsAffected()
}

func (r *SessionRepository) PurgeExpired(ctx context.Context) (int64, error) {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	res, err := r.q.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, mapError("purge sessions", err, nil, nil)
	}
	return res.RowsAffected()
}
