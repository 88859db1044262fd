package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

// PreferenceService stores per-user string settings. Callers only ever see
// their own preferences; writes go through the Authorizer's ownership rule.
type PreferenceService struct {
	repo  ports.PreferenceRepository
	authz ports.Authorizer
	audit ports.AuditSink
	now   func() time.Time
	log   zerolog.Logger
}

func NewPreferenceService(repo ports.PreferenceRepository, authz ports.Authorizer, audit ports.AuditSink, log zerolog.Logger) *PreferenceService {
	if audit == nil {
		audit = nopAudit{}
	}
	return &PreferenceService{repo: repo, authz: authz, audit: audit, now: time.Now, log: log}
}

func (s *PreferenceService) List(ctx context.Context, userID string) ([]*domain.Preference, error) {
	return s.repo.List(ctx, userID)
}

func (s *PreferenceService) Get(ctx context.Context, userID, key string) (*domain.Preference, error) {
	if err := validatePreferenceKey(key); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID, key)
}

// Set creates or replaces the value stored under key.
func (s *PreferenceService) Set(ctx context.Context, userID, key, value string) (*domain.Preference, error) {
	if err := validatePreferenceKey(key); err != nil {
		return nil, err
	}
	if err := checkText("preference value", value, domain.MaxPreferenceValueLen); err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, userID, domain.PreferenceResource(userID, key), domain.ActionWrite); err != nil {
		return nil, err
	}

	pref, err := s.repo.Upsert(ctx, &domain.Preference{
		UserID:    userID,
		Key:       key,
		Value:     value,
		UpdatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(auditEvent(s.now(), domain.AuditPreferenceSet, userID, "preference", key, nil))
	return pref, nil
}

// Delete reports domain.ErrPreferenceNotFound when the key is absent, on
// every call.
func (s *PreferenceService) Delete(ctx context.Context, userID, key string) error {
	if err := validatePreferenceKey(key); err != nil {
		return err
	}
	if err := s.authz.Authorize(ctx, userID, domain.PreferenceResource(userID, key), domain.ActionWrite); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID, key); err != nil {
		return err
	}
	s.audit.Record(auditEvent(s.now(), domain.AuditPreferenceDelete, userID, "preference", key, nil))
	return nil
}

func validatePreferenceKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return domain.Validation("preference key is required")
	}
	return checkText("preference key", key, domain.MaxPreferenceKeyLen)
}

var _ ports.PreferenceService = (*PreferenceService)(nil)
