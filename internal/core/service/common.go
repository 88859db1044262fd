package service

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// pageBounds turns a 1-based page and a limit into limit/offset, applying
// defaults and the upper cap.
func pageBounds(page, limit int) (int, int) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if page <= 0 {
		page = 1
	}
	// Saturate so the offset never wraps negative.
	if page > math.MaxInt/limit {
		page = math.MaxInt / limit
	}
	return limit, (page - 1) * limit
}

// checkText rejects input the store cannot hold (invalid UTF-8 or NUL) and
// values longer than maxLen characters.
func checkText(field, s string, maxLen int) error {
	if !utf8.ValidString(s) || strings.IndexByte(s, 0) >= 0 {
		return domain.Validation(field + " contains invalid characters")
	}
	if utf8.RuneCountInString(s) > maxLen {
		return domain.Validation(field + " is too long")
	}
	return nil
}

type nopAudit struct{}

func (nopAudit) Record(domain.AuditEvent) {}

type nopThrottle struct{}

func (nopThrottle) Blocked(context.Context, string) (bool, error) { return false, nil }
func (nopThrottle) RecordFailure(context.Context, string) error   { return nil }
func (nopThrottle) Reset(context.Context, string) error           { return nil }

var (
	_ ports.AuditSink     = nopAudit{}
	_ ports.LoginThrottle = nopThrottle{}
)

func auditEvent(now time.Time, action, actorID, targetType, targetID string, meta map[string]string) domain.AuditEvent {
	return domain.AuditEvent{
		ID:         uuid.NewString(),
		Action:     action,
		ActorID:    actorID,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   meta,
		OccurredAt: now.UTC(),
	}
}
