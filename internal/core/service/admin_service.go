package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

// AdminService covers operations reserved to global admins. Each call
// re-checks the actor's persisted admin flag.
type AdminService struct {
	store ports.Store
	authz ports.Authorizer
	audit ports.AuditSink
	now   func() time.Time
	log   zerolog.Logger
}

func NewAdminService(store ports.Store, authz ports.Authorizer, audit ports.AuditSink, log zerolog.Logger) *AdminService {
	if audit == nil {
		audit = nopAudit{}
	}
	return &AdminService{store: store, authz: authz, audit: audit, now: time.Now, log: log}
}

func (s *AdminService) ListUsers(ctx context.Context, actorID string, page, limit int) (*domain.UserPage, error) {
	if err := s.authz.Authorize(ctx, actorID, domain.SystemResource(), domain.ActionAdminister); err != nil {
		return nil, err
	}

	l, off := pageBounds(page, limit)
	users, err := s.store.Users().List(ctx, l, off)
	if err != nil {
		return nil, err
	}
	total, err := s.store.Users().Count(ctx)
	if err != nil {
		return nil, err
	}
	if page <= 0 {
		page = 1
	}
	return &domain.UserPage{Users: users, Total: total, Page: page, Limit: l}, nil
}

// SetActive toggles the account's active flag. Sessions are kept: while the
// account is inactive every request is refused by the active check, and they
// resume working on reactivation until they expire.
func (s *AdminService) SetActive(ctx context.Context, actorID, userID string, active bool) (*domain.User, error) {
	if userID == "" {
		return nil, domain.Validation("user id is required")
	}
	if !active && userID == actorID {
		return nil, domain.Validation("admins cannot deactivate their own account")
	}
	if err := s.authz.Authorize(ctx, actorID, domain.SystemResource(), domain.ActionAdminister); err != nil {
		return nil, err
	}

	user, err := s.store.Users().SetActive(ctx, userID, active)
	if err != nil {
		return nil, err
	}

	action := domain.AuditUserDeactivated
	if active {
		action = domain.AuditUserActivated
	}
	s.audit.Record(auditEvent(s.now(), action, actorID, "user", userID, nil))
	s.log.Info().Str("user_id", userID).Bool("active", active).Str("actor_id", actorID).Msg("account activation changed")
	return user, nil
}

// PurgeSessions removes expired sessions on demand.
func (s *AdminService) PurgeSessions(ctx context.Context, actorID string) (int64, error) {
	if err := s.authz.Authorize(ctx, actorID, domain.SystemResource(), domain.ActionAdminister); err != nil {
		return 0, err
	}
	n, err := s.store.Sessions().PurgeExpired(ctx)
	if err != nil {
		return 0, err
	}
	s.audit.Record(auditEvent(s.now(), domain.AuditSessionsPurged, actorID, "session", "", nil))
	return n, nil
}

// PromoteAdmins grants the global admin flag to the configured emails. It runs
// at startup and is idempotent.
func (s *AdminService) PromoteAdmins(ctx context.Context, emails []string) (int64, error) {
	normalized := make([]string, 0, len(emails))
	for _, e := range emails {
		if n := domain.NormalizeEmail(e); n != "" {
			normalized = append(normalized, n)
		}
	}
	if len(normalized) == 0 {
		return 0, nil
	}
	return s.store.Users().PromoteAdmins(ctx, normalized)
}

var _ ports.AdminService = (*AdminService)(nil)
