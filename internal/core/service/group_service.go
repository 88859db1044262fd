package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

const (
	maxGroupNameLen        = 100
	maxGroupDescriptionLen = 1000
	membersPageSize        = 100
)

// GroupService manages groups and memberships. Every mutation re-checks the
// actor's role against current data inside the transaction that mutates.
type GroupService struct {
	store ports.Store
	audit ports.AuditSink
	now   func() time.Time
	log   zerolog.Logger
}

func NewGroupService(store ports.Store, audit ports.AuditSink, log zerolog.Logger) *GroupService {
	if audit == nil {
		audit = nopAudit{}
	}
	return &GroupService{store: store, audit: audit, now: time.Now, log: log}
}

// Create inserts the group and the creator's admin membership atomically.
func (s *GroupService) Create(ctx context.Context, actorID string, in ports.CreateGroupInput) (*domain.Group, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Validation("group name is required")
	}
	if err := validateGroupFields(name, in.Description); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var created *domain.Group
	err := s.store.WithTx(ctx, func(ctx context.Context, tx ports.Repositories) error {
		g, err := tx.Groups().Create(ctx, &domain.Group{
			Name:        name,
			Description: in.Description,
			CreatedBy:   &actorID,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return err
		}
		if _, err := tx.Groups().AddMember(ctx, &domain.Membership{
			UserID:   actorID,
			GroupID:  g.ID,
			Role:     domain.RoleAdmin,
			JoinedAt: now,
		}); err != nil {
			return err
		}
		created = g
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(auditEvent(now, domain.AuditGroupCreated, actorID, "group", created.ID, nil))
	return created, nil
}

func (s *GroupService) List(ctx context.Context, page, limit int) ([]*domain.Group, error) {
	l, off := pageBounds(page, limit)
	return s.store.Groups().List(ctx, l, off)
}

// Get returns the group with all of its members, read page by page.
func (s *GroupService) Get(ctx context.Context, groupID string) (*domain.GroupDetail, error) {
	g, err := s.store.Groups().FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	var members []*domain.Member
	for offset := 0; ; offset += membersPageSize {
		page, err := s.store.Groups().ListMembers(ctx, groupID, membersPageSize, offset)
		if err != nil {
			return nil, err
		}
		members = append(members, page...)
		if len(page) < membersPageSize {
			break
		}
	}
	return &domain.GroupDetail{Group: g, Members: members}, nil
}

func (s *GroupService) Update(ctx context.Context, actorID, groupID string, in ports.UpdateGroupInput) (*domain.Group, error) {
	if in.Name == nil && in.Description == nil {
		return nil, domain.Validation("nothing to update")
	}
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		if trimmed == "" {
			return nil, domain.Validation("group name cannot be empty")
		}
		in.Name = &trimmed
	}
	name, desc := "", ""
	if in.Name != nil {
		name = *in.Name
	}
	if in.Description != nil {
		desc = *in.Description
	}
	if err := validateGroupFields(name, desc); err != nil {
		return nil, err
	}

	var updated *domain.Group
	err := s.store.WithTx(ctx, func(ctx context.Context, tx ports.Repositories) error {
		if err := authorizerFor(tx).Authorize(ctx, actorID, domain.GroupResource(groupID), domain.ActionUpdate); err != nil {
			return err
		}
		g, err := tx.Groups().FindByID(ctx, groupID)
		if err != nil {
			return err
		}
		if in.Name != nil {
			g.Name = *in.Name
		}
		if in.Description != nil {
			g.Description = *in.Description
		}
		g.UpdatedAt = s.now().UTC()
		updated, err = tx.Groups().Update(ctx, g)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(auditEvent(s.now(), domain.AuditGroupUpdated, actorID, "group", groupID, nil))
	return updated, nil
}

func (s *GroupService) Delete(ctx context.Context, actorID, groupID string) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, tx ports.Repositories) error {
		if err := authorizerFor(tx).Authorize(ctx, actorID, domain.GroupResource(groupID), domain.ActionDelete); err != nil {
			return err
		}
		return tx.Groups().Delete(ctx, groupID)
	})
	if err != nil {
		return err
	}

	s.audit.Record(auditEvent(s.now(), domain.AuditGroupDeleted, actorID, "group", groupID, nil))
	s.log.Info().Str("group_id", groupID).Str("actor_id", actorID).Msg("group deleted")
	return nil
}

func (s *GroupService) AddMember(ctx context.Context, actorID, groupID string, in ports.AddMemberInput) (*domain.Membership, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return nil, domain.Validation("user id is required")
	}
	role := in.Role
	if role == "" {
		role = domain.RoleMember
	}
	if !domain.ValidRole(role) {
		return nil, domain.Validation("role must be one of: member admin")
	}

	var added *domain.Membership
	err := s.store.WithTx(ctx, func(ctx context.Context, tx ports.Repositories) error {
		if err := authorizerFor(tx).Authorize(ctx, actorID, domain.GroupResource(groupID), domain.ActionManageMembers); err != nil {
			return err
		}
		if _, err := tx.Users().FindByID(ctx, userID); err != nil {
			return err
		}
		m, err := tx.Groups().AddMember(ctx, &domain.Membership{
			UserID:   userID,
			GroupID:  groupID,
			Role:     role,
			JoinedAt: s.now().UTC(),
		})
		added = m
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(auditEvent(s.now(), domain.AuditMemberAdded, actorID, "group", groupID,
		map[string]string{"user_id": userID, "role": role}))
	return added, nil
}

func (s *GroupService) RemoveMember(ctx context.Context, actorID, groupID, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.Validation("user id is required")
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, tx ports.Repositories) error {
		if err := authorizerFor(tx).Authorize(ctx, actorID, domain.GroupResource(groupID), domain.ActionManageMembers); err != nil {
			return err
		}
		target, err := tx.Groups().FindMembership(ctx, groupID, userID)
		if err != nil {
			return err
		}
		if err := ensureAnotherAdmin(ctx, tx, target); err != nil {
			return err
		}
		return tx.Groups().RemoveMember(ctx, groupID, userID)
	})
	if err != nil {
		return err
	}

	s.audit.Record(auditEvent(s.now(), domain.AuditMemberRemoved, actorID, "group", groupID,
		map[string]string{"user_id": userID}))
	return nil
}

func (s *GroupService) ChangeRole(ctx context.Context, actorID, groupID, userID, role string) (*domain.Membership, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.Validation("user id is required")
	}
	if role == "" {
		return nil, domain.Validation("role is required")
	}
	if !domain.ValidRole(role) {
		return nil, domain.Validation("role must be one of: member admin")
	}

	var changed *domain.Membership
	err := s.store.WithTx(ctx, func(ctx context.Context, tx ports.Repositories) error {
		if err := authorizerFor(tx).Authorize(ctx, actorID, domain.GroupResource(groupID), domain.ActionManageMembers); err != nil {
			return err
		}
		target, err := tx.Groups().FindMembership(ctx, groupID, userID)
		if err != nil {
			return err
		}
		if target.Role == role {
			changed = target
			return nil
		}
		if role != domain.RoleAdmin {
			if err := ensureAnotherAdmin(ctx, tx, target); err != nil {
				return err
			}
		}
		changed, err = tx.Groups().UpdateRole(ctx, groupID, userID, role)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(auditEvent(s.now(), domain.AuditMemberRole, actorID, "group", groupID,
		map[string]string{"user_id": userID, "role": role}))
	return changed, nil
}

// ListMembers is restricted to members of the group.
func (s *GroupService) ListMembers(ctx context.Context, actorID, groupID string, page, limit int) ([]*domain.Member, error) {
	authz := authorizerFor(s.store)
	if err := authz.Authorize(ctx, actorID, domain.GroupResource(groupID), domain.ActionReadMembers); err != nil {
		return nil, err
	}
	l, off := pageBounds(page, limit)
	return s.store.Groups().ListMembers(ctx, groupID, l, off)
}

func (s *GroupService) ListUserGroups(ctx context.Context, userID string) ([]*domain.UserGroup, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.Validation("user id is required")
	}
	return s.store.Groups().ListForUser(ctx, userID)
}

// ensureAnotherAdmin refuses to strip admin rights from the last admin.
func ensureAnotherAdmin(ctx context.Context, tx ports.Repositories, target *domain.Membership) error {
	if !target.IsAdmin() {
		return nil
	}
	n, err := tx.Groups().CountAdmins(ctx, target.GroupID)
	if err != nil {
		return err
	}
	if n <= 1 {
		return domain.ErrLastGroupAdmin
	}
	return nil
}

func validateGroupFields(name, description string) error {
	if err := checkText("group name", name, maxGroupNameLen); err != nil {
		return err
	}
	return checkText("group description", description, maxGroupDescriptionLen)
}

var _ ports.GroupService = (*GroupService)(nil)
