package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/huangang/taskboard/internal/config"
	"github.com/huangang/taskboard/internal/domain"
	"github.com/huangang/taskboard/internal/models"
	"github.com/huangang/taskboard/internal/utils"
	"github.com/huangang/taskboard/pkg/logger"
)

// TokenStore remembers revoked tokens until they expire.
type TokenStore interface {
	RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error
	TokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

type AuthService struct {
	db        *gorm.DB
	jwtConfig *config.JWTConfig
	tokens    TokenStore
	activity  *ActivityService
}

func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig, tokens TokenStore, activity *ActivityService) *AuthService {
	return &AuthService{
		db:        db,
		jwtConfig: jwtCfg,
		tokens:    tokens,
		activity:  activity,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Name                 string `json:"name" binding:"required,max=255"`
	Email                string `json:"email" binding:"required,email,max=255"`
	Password             string `json:"password" binding:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required"`
}

type AuthResponse struct {
	Token       string              `json:"token"`
	ExpireAt    time.Time           `json:"expire_at"`
	User        domain.User         `json:"user"`
	Permissions []domain.Permission `json:"permissions"`
}

var errBadCredentials = domain.Unauthenticated("the provided credentials are incorrect")

// Login checks the password and issues a token.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest, meta RequestMeta) (*AuthResponse, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Roles.Permissions").
		Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).
		First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.Unavailable("find user", err)
	}
	if err != nil || !utils.CheckPassword(req.Password, user.Password) {
		logger.Warn().Str("email", req.Email).Str("ip", meta.IP).Msg("failed login attempt")
		return nil, errBadCredentials
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		return nil, domain.Unavailable("update last login", err)
	}
	return s.issue(&user)
}

// Register creates an account holding the employee role and logs it in.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest, meta RequestMeta) (*AuthResponse, error) {
	if req.Password != req.PasswordConfirmation {
		return nil, domain.Invalid("password confirmation does not match")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.Invalid("name is required")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return domain.Unavailable("check email", err)
		}
		if count > 0 {
			return domain.Conflict("email already registered")
		}

		var role models.Role
		if err := tx.Preload("Permissions").Where("name = ?", string(domain.RoleEmployee)).First(&role).Error; err != nil {
			return domain.Unavailable("load employee role", err)
		}
		user = models.User{Name: name, Email: email, Password: hashed, Roles: []models.Role{role}}
		if err := tx.Create(&user).Error; err != nil {
			// another registration took the email after the check above
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.Conflict("email already registered")
			}
			return domain.Unavailable("create user", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp, err := s.issue(&user)
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, Event{Type: EventUserRegistered, ActorID: user.ID, User: &resp.User}, meta)
	return resp, nil
}

// Logout revokes the token with the given id.
func (s *AuthService) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if s.tokens == nil || tokenID == "" {
		return nil
	}
	return s.tokens.RevokeToken(ctx, tokenID, expiresAt)
}

// Revoked reports whether tokenID was logged out.
func (s *AuthService) Revoked(ctx context.Context, tokenID string) (bool, error) {
	if s.tokens == nil || tokenID == "" {
		return false, nil
	}
	return s.tokens.TokenRevoked(ctx, tokenID)
}

// issue signs a token for a user whose roles and permissions are preloaded.
func (s *AuthService) issue(user *models.User) (*AuthResponse, error) {
	u := user.ToDomain()
	hours := s.jwtConfig.ExpireHour
	if hours <= 0 {
		hours = 24
	}
	token, err := utils.GenerateToken(u.ID, u.Email, policyRole(u.Roles), hours)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		Token:       token,
		ExpireAt:    time.Now().Add(time.Duration(hours) * time.Hour),
		User:        u,
		Permissions: domain.NewPrincipal(u, permissionsOf(user)).Permissions(),
	}, nil
}

func policyRole(roles []domain.Role) string {
	if len(roles) == 0 {
		return ""
	}
	return string(roles[0])
}
