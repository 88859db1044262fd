package ports

import (
	"context"

	"github.com/99minutos/accounts-api/internal/core/domain"
)

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

// AuthService covers account lifecycle and bearer authentication.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.LoginResult, error)
	Logout(ctx context.Context, token string) error
	Profile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID, displayName string) (*domain.User, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
}

// Authenticator resolves a bearer token to the calling principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Principal, error)
}

// Authorizer decides whether an actor may perform an action on a resource.
// Authorize returns nil when allowed, a forbidden domain error when denied,
// and any other error when the decision could not be made.
type Authorizer interface {
	Authorize(ctx context.Context, actorID string, res domain.Resource, act domain.Action) error
}

// CreateGroupInput carries the fields for a new group.
type CreateGroupInput struct {
	Name        string
	Description string
}

// UpdateGroupInput is a partial update; nil fields are left unchanged.
type UpdateGroupInput struct {
	Name        *string
	Description *string
}

// AddMemberInput carries the fields for a new membership. Role defaults to member.
type AddMemberInput struct {
	UserID string
	Role   string
}

// GroupService owns groups and memberships.
type GroupService interface {
	Create(ctx context.Context, actorID string, input CreateGroupInput) (*domain.Group, error)
	List(ctx context.Context, page, limit int) ([]*domain.Group, error)
	Get(ctx context.Context, groupID string) (*domain.GroupDetail, error)
	Update(ctx context.Context, actorID, groupID string, input UpdateGroupInput) (*domain.Group, error)
	Delete(ctx context.Context, actorID, groupID string) error
	AddMember(ctx context.Context, actorID, groupID string, input AddMemberInput) (*domain.Membership, error)
	RemoveMember(ctx context.Context, actorID, groupID, userID string) error
	ChangeRole(ctx context.Context, actorID, groupID, userID, role string) (*domain.Membership, error)
	ListMembers(ctx context.Context, actorID, groupID string, page, limit int) ([]*domain.Member, error)
	ListUserGroups(ctx context.Context, userID string) ([]*domain.UserGroup, error)
}

// PreferenceService owns the caller's key/value settings.
type PreferenceService interface {
	List(ctx context.Context, userID string) ([]*domain.Preference, error)
	Get(ctx context.Context, userID, key string) (*domain.Preference, error)
	Set(ctx context.Context, userID, key, value string) (*domain.Preference, error)
	Delete(ctx context.Context, userID, key string) error
}

// AdminService covers global administration.
type AdminService interface {
	ListUsers(ctx context.Context, actorID string, page, limit int) (*domain.UserPage, error)
	SetActive(ctx context.Context, actorID, userID string, active bool) (*domain.User, error)
	PurgeSessions(ctx context.Context, actorID string) (int64, error)
}
