package ports

import (
	"context"
	"time"

	"github.com/99minutos/accounts-api/internal/core/domain"
)

// UserRepository persists accounts. Lookups by email expect a normalized address.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id, displayName string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	SetActive(ctx context.Context, id string, active bool) (*domain.User, error)
	// PromoteAdmins sets the global admin flag on every listed email and
	// returns how many rows changed.
	PromoteAdmins(ctx context.Context, emails []string) (int64, error)
	List(ctx context.Context, limit, offset int) ([]*domain.User, error)
	Count(ctx context.Context) (int64, error)
}

// SessionRepository is the session registry. Tokens are passed in clear and
// stored however the implementation sees fit.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) (*domain.Session, error)
	// FindActiveByToken returns domain.ErrSessionNotFound for both unknown and
	// expired tokens.
	FindActiveByToken(ctx context.Context, token string) (*domain.Session, error)
	// DeleteByToken succeeds when the token is unknown.
	DeleteByToken(ctx context.Context, token string) error
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
	// PurgeExpired removes sessions whose expiry is at or before now.
	PurgeExpired(ctx context.Context) (int64, error)
}

// GroupRepository persists groups and memberships.
type GroupRepository interface {
	Create(ctx context.Context, group *domain.Group) (*domain.Group, error)
	FindByID(ctx context.Context, id string) (*domain.Group, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Group, error)
	Update(ctx context.Context, group *domain.Group) (*domain.Group, error)
	Delete(ctx context.Context, id string) error

	AddMember(ctx context.Context, m *domain.Membership) (*domain.Membership, error)
	RemoveMember(ctx context.Context, groupID, userID string) error
	UpdateRole(ctx context.Context, groupID, userID, role string) (*domain.Membership, error)
	FindMembership(ctx context.Context, groupID, userID string) (*domain.Membership, error)
	CountAdmins(ctx context.Context, groupID string) (int, error)
	ListMembers(ctx context.Context, groupID string, limit, offset int) ([]*domain.Member, error)
	ListForUser(ctx context.Context, userID string) ([]*domain.UserGroup, error)
}

// PreferenceRepository persists per-user settings.
type PreferenceRepository interface {
	List(ctx context.Context, userID string) ([]*domain.Preference, error)
	Get(ctx context.Context, userID, key string) (*domain.Preference, error)
	Upsert(ctx context.Context, pref *domain.Preference) (*domain.Preference, error)
	// Delete returns domain.ErrPreferenceNotFound when nothing was removed.
	Delete(ctx context.Context, userID, key string) error
}
