package handler

import (
	"time"

	"github.com/99minutos/accounts-api/internal/core/domain"
)

type registerRequest struct {
	Email       string `json:"email" validate:"required"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"displayName"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	DisplayName string `json:"displayName" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

type userSummary struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

type registerResponse struct {
	Message string      `json:"message"`
	User    userSummary `json:"user"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      userSummary `json:"user"`
}

type profileResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName"`
	IsAdmin     bool       `json:"isAdmin"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	LastLogin   *time.Time `json:"lastLogin"`
}

func toUserSummary(u *domain.User) userSummary {
	return userSummary{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName}
}

func toProfile(u *domain.User) profileResponse {
	return profileResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		IsAdmin:     u.IsAdmin,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		LastLogin:   u.LastLoginAt,
	}
}

type createGroupRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// updateGroupRequest uses pointers so an omitted field is left unchanged.
type updateGroupRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type addMemberRequest struct {
	UserID string `json:"userId" validate:"required"`
	Role   string `json:"role" validate:"omitempty,oneof=member admin"`
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=member admin"`
}

type groupResponse struct {
	Message string        `json:"message"`
	Group   *domain.Group `json:"group"`
}

type groupListResponse struct {
	Groups []*domain.Group `json:"groups"`
}

type userGroupListResponse struct {
	Groups []*domain.UserGroup `json:"groups"`
}

type groupDetailResponse struct {
	Group   *domain.Group    `json:"group"`
	Members []*domain.Member `json:"members"`
}

type membersResponse struct {
	Members []*domain.Member `json:"members"`
}

type membershipResponse struct {
	Message    string             `json:"message"`
	Membership *domain.Membership `json:"membership"`
}

// setPreferenceRequest distinguishes an omitted value from an empty one.
type setPreferenceRequest struct {
	Value *string `json:"value"`
}

type preferenceBody struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type preferencesResponse struct {
	Preferences map[string]string `json:"preferences"`
}

type setPreferenceResponse struct {
	Message    string         `json:"message"`
	Preference preferenceBody `json:"preference"`
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type userListResponse struct {
	Users []*domain.User `json:"users"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

type userResponse struct {
	User *domain.User `json:"user"`
}

type purgeResponse struct {
	Purged int64 `json:"purged"`
}
