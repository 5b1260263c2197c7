package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangang/taskboard/internal/domain"
	"github.com/huangang/taskboard/internal/models"
)

func TestUserService_List(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.principal(t, adminID)

	resp, err := h.users.List(ctx, admin, &UserListRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), resp.Total)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 15, resp.PageSize)
	require.Len(t, resp.Items, 5)
	assert.Equal(t, empE2, resp.Items[0].ID, "newest first")

	resp, err = h.users.List(ctx, admin, &UserListRequest{Role: "manager"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Total)

	resp, err = h.users.List(ctx, admin, &UserListRequest{Search: "eve@"})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Eve Employee", resp.Items[0].Name)
	assert.Equal(t, []domain.Role{domain.RoleEmployee}, resp.Items[0].Roles)

	resp, err = h.users.List(ctx, admin, &UserListRequest{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), resp.Total)
	assert.Len(t, resp.Items, 2)

	_, err = h.users.List(ctx, h.principal(t, mgrM), &UserListRequest{})
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
}

func TestUserService_UpdateRole(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.principal(t, adminID)

	updated, err := h.users.UpdateRole(ctx, admin, empE1, domain.RoleManager, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, []domain.Role{domain.RoleManager}, updated.Roles)

	p := h.principal(t, empE1)
	assert.True(t, p.Can(domain.PermCreateProjects))
	assert.False(t, p.Can(domain.PermEditOwnTasks), "previous role is replaced")

	_, err = h.users.UpdateRole(ctx, admin, adminID, domain.RoleEmployee, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	_, err = h.users.UpdateRole(ctx, admin, empE2, "owner", RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrInvalid)

	_, err = h.users.UpdateRole(ctx, admin, 404, domain.RoleManager, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = h.users.UpdateRole(ctx, h.principal(t, mgrM), empE2, domain.RoleManager, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	var count int64
	require.NoError(t, h.db.Model(&models.ActivityLog{}).Where("event = ?", EventUserRole).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUserService_Delete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.principal(t, adminID)
	other := h.addUser(t, "Olga Admin", "olga@example.com", domain.RoleAdmin)

	require.NoError(t, h.users.Delete(ctx, admin, empE2, RequestMeta{}))
	_, err := h.identity.FindUser(ctx, empE2)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, h.users.Delete(ctx, admin, adminID, RequestMeta{}), domain.ErrPermissionDenied)
	assert.ErrorIs(t, h.users.Delete(ctx, admin, other, RequestMeta{}), domain.ErrPermissionDenied)
	assert.ErrorIs(t, h.users.Delete(ctx, h.principal(t, mgrM), empE1, RequestMeta{}), domain.ErrPermissionDenied)
	assert.ErrorIs(t, h.users.Delete(ctx, admin, empE2, RequestMeta{}), domain.ErrNotFound)

	hc, err := h.identity.Headcount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), hc.TotalUsers)
	assert.Equal(t, int64(1), hc.Employees)

	var entry models.ActivityLog
	require.NoError(t, h.db.Where("event = ?", EventUserDeleted).First(&entry).Error)
	assert.Equal(t, "warning", entry.Level)
	assert.Equal(t, "5", entry.EntityID)
}
