package postgres

import (
	"context"
	"database/sql"

	"github.com/99minutos/accounts-api/internal/core/domain"
)

const groupSelect = `SELECT g.id, g.name, g.description, g.created_by, COALESCE(u.display_name, ''), g.created_at, g.updated_at
	FROM groups g LEFT JOIN users u ON u.id = g.created_by`

type GroupRepository struct {
	q querier
}

func scanGroup(row rowScanner) (*domain.Group, error) {
	var (
		g         domain.Group
		createdBy sql.NullString
	)
	if err := row.Scan(&g.ID, &g.Name, &g.Description, &createdBy, &g.CreatorName, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	if createdBy.Valid {
		id := createdBy.String
		g.CreatedBy = &id
	}
	return &g, nil
}

func (r *GroupRepository) Create(ctx context.Context, group *domain.Group) (*domain.Group, error) {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	out := *group
	err := r.q.db.QueryRowContext(ctx,
		`INSERT INTO groups (name, description, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		group.Name, group.Description, group.CreatedBy).Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, mapError("create group", err, domain.ErrUserNotFound, nil)
	}
	return &out, nil
}

func (r *GroupRepository) FindByID(ctx context.Context, id string) (*domain.Group, error) {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	g, err := scanGroup(r.q.db.QueryRowContext(ctx, groupSelect+` WHERE g.id = $1`, id))
	if err != nil {
		return nil, mapError("find group", err, domain.ErrGroupNotFound, nil)
	}
	return g, nil
}

func (r *GroupRepository) List(ctx context.Context, limit, offset int) ([]*domain.Group, error) {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	rows, err := r.q.db.QueryContext(ctx,
		groupSelect+` ORDER BY g.created_at DESC, g.id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, mapError("list groups", err, nil, nil)
	}
	defer rows.Close()

	groups := make([]*domain.Group, 0, limit)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, mapError("scan group", err, nil, nil)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list groups", err, nil, nil)
	}
	return groups, nil
}

func (r *GroupRepository) Update(ctx context.Context, group *domain.Group) (*domain.Group, error) {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	out := *group
	err := r.q.db.QueryRowContext(ctx,
		`UPDATE groups SET name = $2, description = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		group.ID, group.Name, group.Description).Scan(&out.UpdatedAt)
	if err != nil {
		return nil, mapError("update group", err, domain.ErrGroupNotFound, nil)
	}
	return &out, nil
}

// Delete removes the group; memberships go with it through ON DELETE CASCADE.
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	res, err := r.q.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	return affectedOne("delete group", res, err, domain.ErrGroupNotFound)
}

func (r *GroupRepository) AddMember(ctx context.Context, m *domain.Membership) (*domain.Membership, error) {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	out := *m
	err := r.q.db.QueryRowContext(ctx,
		`INSERT INTO group_memberships (group_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING joined_at`,
		m.GroupID, m.UserID, m.Role).Scan(&out.JoinedAt)
	if err != nil {
		return nil, mapError("add member", err, domain.ErrUserNotFound, domain.ErrMembershipExists)
	}
	return &out, nil
}

func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	res, err := r.q.db.ExecContext(ctx,
		`DELETE FROM group_memberships WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	return affectedOne("remove member", res, err, domain.ErrMembershipNotFound)
}

func (r *GroupRepository) UpdateRole(ctx context.Context, groupID, userID, role string) (*domain.Membership, error) {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	m := domain.Membership{GroupID: groupID, UserID: userID}
	err := r.q.db.QueryRowContext(ctx,
		`UPDATE group_memberships SET role = $3
		WHERE group_id = $1 AND user_id = $2
		RETURNING role, joined_at`,
		groupID, userID, role).Scan(&m.Role, &m.JoinedAt)
	if err != nil {
		return nil, mapError("update role", err, domain.ErrMembershipNotFound, nil)
	}
	return &m, nil
}

func (r *GroupRepository) FindMembership(ctx context.Context, groupID, userID string) (*domain.Membership, error) {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	m := domain.Membership{GroupID: groupID, UserID: userID}
	err := r.q.db.QueryRowContext(ctx,
		`SELECT role, joined_at FROM group_memberships WHERE group_id = $1 AND user_id = $2`,
		groupID, userID).Scan(&m.Role, &m.JoinedAt)
	if err != nil {
		return nil, mapError("find membership", err, domain.ErrMembershipNotFound, nil)
	}
	return &m, nil
}

func (r *GroupRepository) CountAdmins(ctx context.Context, groupID string) (int, error) {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	var n int
	err := r.q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM group_memberships WHERE group_id = $1 AND role = 'admin'`, groupID).Scan(&n)
	if err != nil {
		return 0, mapError("count admins", err, nil, nil)
	}
	return n, nil
}

func (r *GroupRepository) ListMembers(ctx context.Context, groupID string, limit, offset int) ([]*domain.Member, error) {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	rows, err := r.q.db.QueryContext(ctx,
		`SELECT u.id, u.email, u.display_name, m.role, m.joined_at
		FROM group_memberships m JOIN users u ON u.id = m.user_id
		WHERE m.group_id = $1
		ORDER BY m.joined_at, u.id
		LIMIT $2 OFFSET $3`,
		groupID, limit, offset)
	if err != nil {
		return nil, mapError("list members", err, nil, nil)
	}
	defer rows.Close()

	members := make([]*domain.Member, 0)
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.UserID, &m.Email, &m.DisplayName, &m.Role, &m.JoinedAt); err != nil {
			return nil, mapError("scan member", err, nil, nil)
		}
		members = append(members, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list members", err, nil, nil)
	}
	return members, nil
}

func (r *GroupRepository) ListForUser(ctx context.Context, userID string) ([]*domain.UserGroup, error) {
	ctx, cancel := r.q.ctx(ctx)
	defer cancel()

	rows, err := r.q.db.QueryContext(ctx,
		`SELECT g.id, g.name, g.description, g.created_by, COALESCE(u.display_name, ''), g.created_at, g.updated_at,
			m.role, m.joined_at
		FROM group_memberships m
		JOIN groups g ON g.id = m.group_id
		LEFT JOIN users u ON u.id = g.created_by
		WHERE m.user_id = $1
		ORDER BY m.joined_at DESC, g.id`,
		userID)
	if err != nil {
		return nil, mapError("list user groups", err, nil, nil)
	}
	defer rows.Close()

	groups := make([]*domain.UserGroup, 0)
	for rows.Next() {
		var (
			ug        domain.UserGroup
			createdBy sql.NullString
		)
		if err := rows.Scan(&ug.ID, &ug.Name, &ug.Description, &createdBy, &ug.CreatorName,
			&ug.CreatedAt, &ug.UpdatedAt, &ug.Role, &ug.JoinedAt); err != nil {
			return nil, mapError("scan user group", err, nil, nil)
		}
		if createdBy.Valid {
			id := createdBy.String
			ug.CreatedBy = &id
		}
		groups = append(groups, &ug)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list user groups", err, nil, nil)
	}
	return groups, nil
}
