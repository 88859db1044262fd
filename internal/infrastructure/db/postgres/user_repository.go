package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/99minutos/accounts-api/internal/core/domain"
)

const userColumns = `id, email, password_hash, display_name, is_active, is_admin, created_at, updated_at, last_login_at`

type UserRepository struct {
	q querier
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u         domain.User
		lastLogin sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.IsActive, &u.IsAdmin,
		&u.CreatedAt, &u.UpdatedAt, &lastLogin); err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	query := `INSERT INTO users (email, password_hash, display_name, is_active, is_admin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns

	u, err := scanUser(r.q.db.QueryRowContext(ctx, query,
		user.Email, user.PasswordHash, user.DisplayName, user.IsActive, user.IsAdmin))
	if err != nil {
		return nil, mapError("create user", err, nil, domain.ErrEmailTaken)
	}
	return u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	u, err := scanUser(r.q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("find user", err, domain.ErrUserNotFound, nil)
	}
	return u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	u, err := scanUser(r.q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, mapError("find user by email", err, domain.ErrUserNotFound, nil)
	}
	return u, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id, displayName string) (*domain.User, error) {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	u, err := scanUser(r.q.db.QueryRowContext(ctx,
		`UPDATE users SET display_name = $2, updated_at = now() WHERE id = $1 RETURNING `+userColumns,
		id, displayName))
	if err != nil {
		return nil, mapError("update profile", err, domain.ErrUserNotFound, nil)
	}
	return u, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	res, err := r.q.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
	return affectedOne("update password", res, err, domain.ErrUserNotFound)
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	res, err := r.q.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
	return affectedOne("touch last login", res, err, domain.ErrUserNotFound)
}

func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) (*domain.User, error) {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	u, err := scanUser(r.q.db.QueryRowContext(ctx,
		`UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1 RETURNING `+userColumns,
		id, active))
	if err != nil {
		return nil, mapError("set active", err, domain.ErrUserNotFound, nil)
	}
	return u, nil
}

func (r *UserRepository) PromoteAdmins(ctx context.Context, emails []string) (int64, error) {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	res, err := r.q.db.ExecContext(ctx,
		`UPDATE users SET is_admin = TRUE, updated_at = now() WHERE lower(email) = ANY($1) AND NOT is_admin`, emails)
	if err != nil {
		return 0, mapError("promote admins", err, nil, nil)
	}
	return res.RowsAffected()
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	rows, err := r.q.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, mapError("list users", err, nil, nil)
	}
	defer rows.Close()

	users := make([]*domain.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, mapError("scan user", err, nil, nil)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list users", err, nil, nil)
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	var n int64
	if err := r.q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, mapError("count users", err, nil, nil)
	}
	return n, nil
}

// affectedOne maps an Exec that touched no row to notFound.
func affectedOne(op string, res sql.Result, err, notFound error) error {
	if err != nil {
		return mapError(op, err, notFound, nil)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(op, err, nil, nil)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
