// Package auditlog writes audit events to the structured log. It stands in
// for the document store when none is configured.
package auditlog

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

type Repository struct {
	log zerolog.Logger
}

func NewRepository(log zerolog.Logger) *Repository {
	return &Repository{log: log.With().Str("component", "audit").Logger()}
}

func (r *Repository) Insert(_ context.Context, event *domain.AuditEvent) error {
	ev := r.log.Info().
		Str("event_id", event.ID).
		Str("action", event.Action).
		Str("actor_id", event.ActorID).
		Str("target_type", event.TargetType).
		Str("target_id", event.TargetID).
		Time("occurred_at", event.OccurredAt)
	if len(event.Metadata) > 0 {
		dict := zerolog.Dict()
		for k, v := range event.Metadata {
			dict = dict.Str(k, v)
		}
		ev = ev.Dict("metadata", dict)
	}
	ev.Msg("audit")
	return nil
}

var _ ports.AuditRepository = (*Repository)(nil)
