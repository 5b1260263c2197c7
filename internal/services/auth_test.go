package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/huangang/taskboard/internal/domain"
	"github.com/huangang/taskboard/internal/models"
	"github.com/huangang/taskboard/internal/utils"
)

func TestAuthService_Register(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	resp, err := h.auth.Register(ctx, &RegisterRequest{
		Name:                 "Gus Newcomer",
		Email:                " Gus@Example.com ",
		Password:             "secret-pass",
		PasswordConfirmation: "secret-pass",
	}, RequestMeta{IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "gus@example.com", resp.User.Email)
	assert.Equal(t, []domain.Role{domain.RoleEmployee}, resp.User.Roles)
	assert.Equal(t, []domain.Permission{
		domain.PermViewAllProjects,
		domain.PermViewOwnTasks,
		domain.PermEditOwnTasks,
	}, resp.Permissions)

	claims, err := utils.ParseToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, "employee", claims.Role)

	var entry models.ActivityLog
	require.NoError(t, h.db.Where("event = ?", EventUserRegistered).First(&entry).Error)
	assert.Equal(t, "10.0.0.1", entry.IP)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, resp.User.ID, *entry.ActorID)
}

func TestAuthService_RegisterRejects(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.auth.Register(ctx, &RegisterRequest{
		Name: "Eve Again", Email: "EVE@example.com", Password: "password123", PasswordConfirmation: "password123",
	}, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = h.auth.Register(ctx, &RegisterRequest{
		Name: "Gus", Email: "gus@example.com", Password: "password123", PasswordConfirmation: "password124",
	}, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrInvalid)

	_, err = h.auth.Register(ctx, &RegisterRequest{
		Name: "  ", Email: "gus@example.com", Password: "password123", PasswordConfirmation: "password123",
	}, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrInvalid)
}

func TestAuthService_RegisterRaceReportsConflict(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// a second sign-up with the same email lands between the duplicate
	// check and the insert
	taken := false
	err := h.db.Callback().Create().Before("gorm:create").Register("test:email_taken", func(tx *gorm.DB) {
		if taken || tx.Statement.Table != "users" {
			return
		}
		taken = true
		now := time.Now()
		_, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
			"INSERT INTO users (name, email, password, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
			"Gus Twin", "gus@example.com", "x", now, now)
		require.NoError(t, err)
	})
	require.NoError(t, err)

	_, err = h.auth.Register(ctx, &RegisterRequest{
		Name: "Gus", Email: "gus@example.com", Password: "password123", PasswordConfirmation: "password123",
	}, RequestMeta{})
	assert.True(t, taken)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestAuthService_Login(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	resp, err := h.auth.Login(ctx, &LoginRequest{Email: "Mona@example.com", Password: "password123"}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, mgrM, resp.User.ID)
	assert.Contains(t, resp.Permissions, domain.PermAssignTasks)
	assert.True(t, resp.ExpireAt.After(time.Now()))

	var user models.User
	require.NoError(t, h.db.First(&user, mgrM).Error)
	assert.NotNil(t, user.LastLogin)

	_, err = h.auth.Login(ctx, &LoginRequest{Email: "mona@example.com", Password: "wrong"}, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = h.auth.Login(ctx, &LoginRequest{Email: "nobody@example.com", Password: "password123"}, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestAuthService_Logout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	resp, err := h.auth.Login(ctx, &LoginRequest{Email: "eve@example.com", Password: "password123"}, RequestMeta{})
	require.NoError(t, err)
	claims, err := utils.ParseToken(resp.Token)
	require.NoError(t, err)

	revoked, err := h.auth.Revoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, h.auth.Logout(ctx, claims.ID, claims.ExpiresAt.Time))

	revoked, err = h.auth.Revoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = h.auth.Revoked(ctx, "")
	require.NoError(t, err)
	assert.False(t, revoked)
}
