package domain

import "time"

// Audit actions.
const (
	AuditUserRegistered   = "user.registered"
	AuditLoginSucceeded   = "auth.login_succeeded"
	AuditLoginFailed      = "auth.login_failed"
	AuditLogout           = "auth.logout"
	AuditPasswordChanged  = "auth.password_changed"
	AuditProfileUpdated   = "user.profile_updated"
	AuditUserActivated    = "user.activated"
	AuditUserDeactivated  = "user.deactivated"
	AuditGroupCreated     = "group.created"
	AuditGroupUpdated     = "group.updated"
	AuditGroupDeleted     = "group.deleted"
	AuditMemberAdded      = "group.member_added"
	AuditMemberRemoved    = "group.member_removed"
	AuditMemberRole       = "group.member_role_changed"
	AuditSessionsPurged   = "sessions.purged"
	AuditPreferenceSet    = "preference.set"
	AuditPreferenceDelete = "preference.deleted"
)

// AuditEvent records a security-relevant action.
type AuditEvent struct {
	ID         string
	Action     string
	ActorID    string
	TargetType string
	TargetID   string
	Metadata   map[string]string
	OccurredAt time.Time
}
