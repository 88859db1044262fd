package postgres

import (
	"context"

	"github.com/99minutos/accounts-api/internal/core/domain"
)

type PreferenceRepository struct {
	q querier
}

func (r *PreferenceRepository) List(ctx context.Context, userID string) ([]*domain.Preference, error) {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	rows, err := r.q.db.QueryContext(ctx,
		`SELECT user_id, key, value, updated_at FROM user_preferences WHERE user_id = $1 ORDER BY key`, userID)
	if err != nil {
		return nil, mapError("list preferences", err, nil, nil)
	}
	defer rows.Close()

	prefs := make([]*domain.Preference, 0)
	for rows.Next() {
		var p domain.Preference
		if err := rows.Scan(&p.UserID, &p.Key, &p.Value, &p.UpdatedAt); err != nil {
			return nil, mapError("scan preference", err, nil, nil)
		}
		prefs = append(prefs, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list preferences", err, nil, nil)
	}
	return prefs, nil
}

func (r *PreferenceRepository) Get(ctx context.Context, userID, key string) (*domain.Preference, error) {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	var p domain.Preference
	err := r.q.db.QueryRowContext(ctx,
		`SELECT user_id, key, value, updated_at FROM user_preferences WHERE user_id = $1 AND key = $2`,
		userID, key).Scan(&p.UserID, &p.Key, &p.Value, &p.UpdatedAt)
	if err != nil {
		return nil, mapError("get preference", err, domain.ErrPreferenceNotFound, nil)
	}
	return &p, nil
}

func (r *PreferenceRepository) Upsert(ctx context.Context, pref *domain.Preference) (*domain.Preference, error) {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	var p domain.Preference
	err := r.q.db.QueryRowContext(ctx,
		`INSERT INTO user_preferences (user_id, key, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
		RETURNING user_id, key, value, updated_at`,
		pref.UserID, pref.Key, pref.Value, pref.UpdatedAt).Scan(&p.UserID, &p.Key, &p.Value, &p.UpdatedAt)
	if err != nil {
		return nil, mapError("upsert preference", err, domain.ErrUserNotFound, nil)
	}
	return &p, nil
}

func (r *PreferenceRepository) Delete(ctx context.Context, userID, key string) error {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	res, err := r.q.db.ExecContext(ctx,
		`DELETE FROM user_preferences WHERE user_id = $1 AND key = $2`, userID, key)
	return affectedOne("delete preference", res, err, domain.ErrPreferenceNotFound)
}
