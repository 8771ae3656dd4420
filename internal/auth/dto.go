package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/rigbuilderhq/rigbuilder-backend/pkg/db/models"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/enums"
)

// UserDTO is the account shape returned to clients. The password hash never
// leaves the service layer.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TokenPairDTO carries a freshly minted access/refresh pair.
type TokenPairDTO struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginResultDTO is the successful login response.
type LoginResultDTO struct {
	TokenPairDTO
	User UserDTO `json:"user"`
}

// NewUserDTO maps the persisted user, defaulting the role to staff when the
// profile row is missing.
func NewUserDTO(user *models.User) UserDTO {
	role := enums.RoleStaff
	if user.Profile != nil {
		role = user.Profile.Role
	}
	return UserDTO{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Role:        role.String(),
		IsActive:    user.IsActive,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
}
