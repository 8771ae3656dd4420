package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rigbuilderhq/rigbuilder-backend/internal/audit"
	"github.com/rigbuilderhq/rigbuilder-backend/internal/ratelimit"
	"github.com/rigbuilderhq/rigbuilder-backend/internal/users"
	pkgauth "github.com/rigbuilderhq/rigbuilder-backend/pkg/auth"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/auth/session"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/config"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/db"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/db/models"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/enums"
	pkgerrors "github.com/rigbuilderhq/rigbuilder-backend/pkg/errors"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/security"
)

const minPasswordLength = 8

// LoginInput carries the credentials and the caller's network identity.
type LoginInput struct {
	Username string
	Password string
	IP       string
}

// SignupInput registers a new staff account.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// RefreshInput rotates a session given the expired access token and its
// refresh token.
type RefreshInput struct {
	AccessToken  string
	RefreshToken string
}

// LogoutInput revokes the session named by the access token's jti.
type LogoutInput struct {
	UserID   uuid.UUID
	Username string
	AccessID string
	IP       string
}

// ForgotPasswordInput starts a password reset.
type ForgotPasswordInput struct {
	Email string
	IP    string
}

// ResetPasswordInput completes a password reset.
type ResetPasswordInput struct {
	Token       string
	NewPassword string
}

// Service exposes the authentication operations.
type Service interface {
	Login(ctx context.Context, input LoginInput) (*LoginResultDTO, error)
	Signup(ctx context.Context, input SignupInput) (*UserDTO, error)
	Refresh(ctx context.Context, input RefreshInput) (*TokenPairDTO, error)
	Logout(ctx context.Context, input LogoutInput) error
	ForgotPassword(ctx context.Context, input ForgotPasswordInput) (string, error)
	ResetPassword(ctx context.Context, input ResetPasswordInput) error
}

// txRunner runs a function inside a database transaction. *db.Client
// satisfies it.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// sessionManager is the slice of session.Manager the service needs.
type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// attemptLimiter throttles the login and forgot-password surfaces.
type attemptLimiter interface {
	Consume(ctx context.Context, scope, key string) (ratelimit.Result, error)
	Clear(ctx context.Context, scope, key string) error
}

// resetStore is the slice of the redis client holding reset tokens.
type resetStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	PasswordResetKey(token string) string
}

type service struct {
	repo     users.Repository
	runner   txRunner
	sessions sessionManager
	limiter  attemptLimiter
	resets   resetStore
	recorder audit.Recorder
	jwtCfg   config.JWTConfig
	pwCfg    config.PasswordConfig
	now      func() time.Time
}

// NewService wires the authentication service.
func NewService(
	repo users.Repository,
	runner txRunner,
	sessions sessionManager,
	limiter attemptLimiter,
	resets resetStore,
	recorder audit.Recorder,
	jwtCfg config.JWTConfig,
	pwCfg config.PasswordConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter required")
	}
	if resets == nil {
		return nil, fmt.Errorf("reset token store required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{
		repo:     repo,
		runner:   runner,
		sessions: sessions,
		limiter:  limiter,
		resets:   resets,
		recorder: recorder,
		jwtCfg:   jwtCfg,
		pwCfg:    pwCfg,
		now:      time.Now,
	}, nil
}

// Login throttles before checking credentials so attackers cannot probe
// passwords past the attempt budget.
func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResultDTO, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	if username == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username and password are required")
	}

	limitKey := input.IP + ":" + username
	result, err := s.limiter.Consume(ctx, ratelimit.ScopeLogin, limitKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: login rate limit")
	}
	if !result.Allowed {
		s.record(ctx, nil, enums.AuditActionLogin, enums.AuditStatusRateLimited, username, input.IP, map[string]any{
			"reason": "too_many_attempts",
		})
		return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "too many login attempts")
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.record(ctx, nil, enums.AuditActionLogin, enums.AuditStatusFailed, username, input.IP, map[string]any{
				"reason": "unknown_username",
			})
			return nil, invalidCredentials()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		s.record(ctx, &user.ID, enums.AuditActionLogin, enums.AuditStatusFailed, username, input.IP, map[string]any{
			"reason": "bad_password",
		})
		return nil, invalidCredentials()
	}
	if !user.IsActive {
		s.record(ctx, &user.ID, enums.AuditActionLogin, enums.AuditStatusFailed, username, input.IP, map[string]any{
			"reason": "inactive_account",
		})
		return nil, invalidCredentials()
	}

	if err := s.limiter.Clear(ctx, ratelimit.ScopeLogin, limitKey); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: clear login attempts")
	}

	now := s.now()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update last login")
	}
	user.LastLoginAt = &now

	pair, err := s.issueTokens(ctx, user, session.NewAccessID())
	if err != nil {
		return nil, err
	}

	s.record(ctx, &user.ID, enums.AuditActionLogin, enums.AuditStatusSuccess, username, input.IP, nil)
	return &LoginResultDTO{TokenPairDTO: *pair, User: NewUserDTO(user)}, nil
}

// Signup always creates a staff account. Admins are promoted out of band.
func (s *service) Signup(ctx context.Context, input SignupInput) (*UserDTO, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if len(username) < 3 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username must be at least 3 characters")
	}
	if !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := security.HashPassword(input.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	}
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, user); err != nil {
			return err
		}
		profile := &models.Profile{UserID: user.ID, Role: enums.RoleStaff}
		if err := repo.CreateProfile(ctx, profile); err != nil {
			return err
		}
		user.Profile = profile
		return nil
	})
	if err != nil {
		switch {
		case db.IsUniqueViolation(err, "idx_users_username"):
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username is already taken")
		case db.IsUniqueViolation(err, "idx_users_email"):
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email is already registered")
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create user")
		}
	}

	dto := NewUserDTO(user)
	return &dto, nil
}

// Refresh rotates the refresh token and mints a fresh access token carrying a
// new jti. The old pair stops working immediately.
func (s *service) Refresh(ctx context.Context, input RefreshInput) (*TokenPairDTO, error) {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwtCfg, input.AccessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}

	newAccessID, refreshToken, err := s.sessions.Rotate(ctx, claims.ID, input.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: rotate session")
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account no longer exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account is deactivated")
	}

	accessToken, err := s.mint(user, newAccessID)
	if err != nil {
		return nil, err
	}
	return &TokenPairDTO{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *service) Logout(ctx context.Context, input LogoutInput) error {
	if err := s.sessions.Revoke(ctx, input.AccessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: revoke session")
	}
	userID := input.UserID
	s.record(ctx, &userID, enums.AuditActionLogout, enums.AuditStatusSuccess, input.Username, input.IP, nil)
	return nil
}

// ForgotPassword returns the reset token on success and an empty string when
// no account matches. Callers must respond identically in both cases so the
// endpoint does not confirm which emails exist. Token delivery is the
// caller's concern.
func (s *service) ForgotPassword(ctx context.Context, input ForgotPasswordInput) (string, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	limitKey := input.IP + ":" + email
	result, err := s.limiter.Consume(ctx, ratelimit.ScopeForgotPassword, limitKey)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: forgot-password rate limit")
	}
	if !result.Allowed {
		s.record(ctx, nil, enums.AuditActionForgotPassword, enums.AuditStatusRateLimited, email, input.IP, map[string]any{
			"reason": "too_many_attempts",
		})
		return "", pkgerrors.New(pkgerrors.CodeRateLimit, "too many reset attempts")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.record(ctx, nil, enums.AuditActionForgotPassword, enums.AuditStatusFailed, email, input.IP, map[string]any{
				"reason": "unknown_email",
			})
			return "", nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
	}

	token, err := security.GenerateResetToken()
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}
	key := s.resets.PasswordResetKey(token)
	if err := s.resets.Set(ctx, key, user.ID.String(), s.pwCfg.ResetTokenTTL); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: store reset token")
	}

	s.record(ctx, &user.ID, enums.AuditActionForgotPassword, enums.AuditStatusSuccess, email, input.IP, nil)
	return token, nil
}

// ResetPassword consumes the token so it can be used exactly once.
func (s *service) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	if input.Token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reset token is required")
	}
	if len(input.NewPassword) < minPasswordLength {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	key := s.resets.PasswordResetKey(input.Token)
	raw, err := s.resets.Get(ctx, key)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired reset token")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		_ = s.resets.Del(ctx, key)
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired reset token")
	}

	hash, err := security.HashPassword(input.NewPassword, s.pwCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.repo.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update password")
	}
	return s.resets.Del(ctx, key)
}

func (s *service) issueTokens(ctx context.Context, user *models.User, accessID string) (*TokenPairDTO, error) {
	accessToken, err := s.mint(user, accessID)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.sessions.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: create session")
	}
	return &TokenPairDTO{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *service) mint(user *models.User, accessID string) (string, error) {
	role := enums.RoleStaff
	if user.Profile != nil {
		role = user.Profile.Role
	}
	token, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), pkgauth.AccessTokenPayload{
		UserID:   user.ID,
		Username: user.Username,
		Role:     role,
		JTI:      accessID,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	return token, nil
}

// record writes the audit entry best-effort so audit outages never block
// authentication itself.
func (s *service) record(ctx context.Context, userID *uuid.UUID, action enums.AuditAction, status enums.AuditStatus, identifier, ip string, metadata map[string]any) {
	var payload json.RawMessage
	if metadata != nil {
		if encoded, err := json.Marshal(metadata); err == nil {
			payload = encoded
		}
	}
	_, _ = s.recorder.Record(ctx, audit.RecordInput{
		UserID:     userID,
		Action:     action,
		Status:     status,
		Identifier: identifier,
		IPAddress:  ip,
		Metadata:   payload,
	})
}

func invalidCredentials() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid username or password")
}
