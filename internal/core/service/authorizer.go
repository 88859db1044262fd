package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

// Authorizer is the single place where access decisions are made. It reads
// current rows on every call and never caches roles.
type Authorizer struct {
	users  ports.UserRepository
	groups ports.GroupRepository
}

func NewAuthorizer(users ports.UserRepository, groups ports.GroupRepository) *Authorizer {
	return &Authorizer{users: users, groups: groups}
}

// authorizerFor binds an Authorizer to the repositories of a transaction.
func authorizerFor(repos ports.Repositories) *Authorizer {
	return NewAuthorizer(repos.Users(), repos.Groups())
}

// Decide evaluates the rules for (actor, resource, action). A missing group is
// reported as an error, not as a deny, so callers answer 404 before 403.
func (a *Authorizer) Decide(ctx context.Context, actorID string, res domain.Resource, act domain.Action) (domain.Decision, error) {
	if actorID == "" {
		return domain.Decision{}, domain.ErrUnauthenticated
	}

	switch res.Kind {
	case domain.ResourceSystem:
		return a.decideSystem(ctx, actorID, act)
	case domain.ResourceGroup:
		return a.decideGroup(ctx, actorID, res.ID, act)
	case domain.ResourcePreference:
		if res.OwnerID != actorID {
			return domain.Deny(domain.ErrNotOwner), nil
		}
		return domain.Allow(), nil
	default:
		return domain.Decision{}, fmt.Errorf("authorize: unknown resource kind %q", res.Kind)
	}
}

// Authorize is Decide collapsed into a single error.
func (a *Authorizer) Authorize(ctx context.Context, actorID string, res domain.Resource, act domain.Action) error {
	d, err := a.Decide(ctx, actorID, res, act)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return d.Reason
	}
	return nil
}

func (a *Authorizer) decideSystem(ctx context.Context, actorID string, act domain.Action) (domain.Decision, error) {
	if act != domain.ActionAdminister && act != domain.ActionRead {
		return domain.Decision{}, fmt.Errorf("authorize: unsupported system action %q", act)
	}
	user, err := a.users.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Deny(domain.ErrAdminRequired), nil
		}
		return domain.Decision{}, err
	}
	if !user.IsAdmin {
		return domain.Deny(domain.ErrAdminRequired), nil
	}
	return domain.Allow(), nil
}

func (a *Authorizer) decideGroup(ctx context.Context, actorID, groupID string, act domain.Action) (domain.Decision, error) {
	if _, err := a.groups.FindByID(ctx, groupID); err != nil {
		return domain.Decision{}, err
	}

	if act == domain.ActionRead {
		return domain.Allow(), nil
	}

	m, err := a.groups.FindMembership(ctx, groupID, actorID)
	if err != nil && !errors.Is(err, domain.ErrMembershipNotFound) {
		return domain.Decision{}, err
	}

	switch act {
	case domain.ActionReadMembers:
		if m == nil {
			return domain.Deny(domain.ErrGroupMemberRequired), nil
		}
		return domain.Allow(), nil
	case domain.ActionUpdate, domain.ActionDelete, domain.ActionManageMembers:
		if !m.IsAdmin() {
			return domain.Deny(domain.ErrGroupAdminRequired), nil
		}
		return domain.Allow(), nil
	default:
		return domain.Decision{}, fmt.Errorf("authorize: unsupported group action %q", act)
	}
}

var _ ports.Authorizer = (*Authorizer)(nil)
