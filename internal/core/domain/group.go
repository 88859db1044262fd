package domain

import "time"

// Group roles. No other values are accepted.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// ValidRole reports whether role belongs to the closed role set.
func ValidRole(role string) bool {
	return role == RoleMember || role == RoleAdmin
}

// Group is a named collection of users.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   *string   `json:"createdBy"`
	CreatorName string    `json:"creatorName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Membership is the user↔group relation carrying the user's role.
type Membership struct {
	UserID   string    `json:"userId"`
	GroupID  string    `json:"groupId"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// IsAdmin reports whether the membership grants group admin rights.
func (m *Membership) IsAdmin() bool {
	return m != nil && m.Role == RoleAdmin
}

// Member is a group member as listed on the group.
type Member struct {
	UserID      string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// UserGroup is a group as listed for one of its members.
type UserGroup struct {
	Group
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// GroupDetail is a group together with its members.
type GroupDetail struct {
	Group   *Group
	Members []*Member
}
