package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangang/taskboard/internal/domain"
)

func TestTaskService_ListScopes(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	tests := []struct {
		name string
		user uint
		want []string
	}{
		{"admin", adminID, []string{"t1", "t2", "t3", "t4"}},
		{"manager of p1", mgrM, []string{"t1", "t2", "t3"}},
		{"manager of p2", mgrN, []string{"t4"}},
		{"employee E1", empE1, []string{"t1", "t2", "t4"}},
		{"employee E2", empE2, []string{"t3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := h.tasks.List(ctx, h.principal(t, tt.user))
			require.NoError(t, err)
			assert.Equal(t, tt.want, viewIDs(resp.Items))
			assert.Equal(t, len(tt.want), resp.Total)
			assert.False(t, resp.Degraded)
		})
	}
}

func TestTaskService_ListRequiresTaskViewPermission(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	// employee role, but the role carries no permissions
	stripped := domain.NewPrincipal(domain.User{ID: empE1, Roles: []domain.Role{domain.RoleEmployee}}, nil)
	resp, err := h.tasks.List(context.Background(), stripped)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	assert.Nil(t, resp)

	ownOnly := domain.NewPrincipal(domain.User{ID: empE1, Roles: []domain.Role{domain.RoleEmployee}}, []domain.Permission{domain.PermViewOwnTasks})
	resp, err = h.tasks.List(context.Background(), ownOnly)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2", "t4"}, viewIDs(resp.Items))
}

func TestTaskService_ListEnrichesNames(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	resp, err := h.tasks.List(context.Background(), h.principal(t, empE1))
	require.NoError(t, err)
	require.Len(t, resp.Items, 3)
	last := resp.Items[2]
	assert.Equal(t, "t4", last.ID)
	assert.Equal(t, "Borealis", last.ProjectName)
	assert.Equal(t, "Eve Employee", last.AssignedToName)
	assert.Equal(t, "Ned Manager", last.CreatedByName)
}

func TestTaskService_Get(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	detail, err := h.tasks.Get(ctx, h.principal(t, empE2), "p1", "t3")
	require.NoError(t, err)
	assert.Equal(t, "Test", detail.Task.Title)
	assert.Equal(t, "Apollo", detail.Project.Name)
	assert.Equal(t, "Mona Manager", detail.Task.CreatedByName)

	_, err = h.tasks.Get(ctx, h.principal(t, empE2), "p1", "t1")
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	_, err = h.tasks.Get(ctx, h.principal(t, empE2), "p1", "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = h.tasks.Get(ctx, h.principal(t, adminID), "nope", "t1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTaskService_Create(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()
	mgr := h.principal(t, mgrM)

	t.Run("defaults", func(t *testing.T) {
		task, err := h.tasks.Create(ctx, mgr, "p1", &CreateTaskRequest{Title: " Deploy ", AssignedTo: empE2, DueDate: "2026-01-11"}, RequestMeta{})
		require.NoError(t, err)
		assert.Equal(t, "Deploy", task.Title)
		assert.Equal(t, domain.TaskPending, task.Status)
		assert.Equal(t, domain.PriorityMedium, task.Priority)
		assert.Equal(t, mgrM, task.CreatedBy)
		assert.Equal(t, "p1", task.ProjectID)
		require.NotNil(t, task.DueDate)
		assert.Equal(t, "2026-01-11", task.DueDate.Format(time.DateOnly))

		stored, err := h.repo.GetTask(ctx, "p1", task.ID)
		require.NoError(t, err)
		assert.Equal(t, empE2, stored.AssignedTo)
	})

	t.Run("due date must be after today", func(t *testing.T) {
		for _, due := range []string{"2026-01-10", "2025-12-31", "10/01/2026"} {
			_, err := h.tasks.Create(ctx, mgr, "p1", &CreateTaskRequest{Title: "x", AssignedTo: empE1, DueDate: due}, RequestMeta{})
			assert.ErrorIs(t, err, domain.ErrInvalid, due)
		}
	})

	t.Run("assignee must be an employee", func(t *testing.T) {
		_, err := h.tasks.Create(ctx, mgr, "p1", &CreateTaskRequest{Title: "x", AssignedTo: mgrN}, RequestMeta{})
		assert.ErrorIs(t, err, domain.ErrInvalidReference)

		_, err = h.tasks.Create(ctx, mgr, "p1", &CreateTaskRequest{Title: "x", AssignedTo: 404}, RequestMeta{})
		assert.ErrorIs(t, err, domain.ErrInvalidReference)
	})

	t.Run("invalid enums", func(t *testing.T) {
		_, err := h.tasks.Create(ctx, mgr, "p1", &CreateTaskRequest{Title: "x", AssignedTo: empE1, Priority: "urgent"}, RequestMeta{})
		assert.ErrorIs(t, err, domain.ErrInvalid)

		_, err = h.tasks.Create(ctx, mgr, "p1", &CreateTaskRequest{Title: "x", AssignedTo: empE1, Status: "blocked"}, RequestMeta{})
		assert.ErrorIs(t, err, domain.ErrInvalid)
	})

	t.Run("project must exist", func(t *testing.T) {
		_, err := h.tasks.Create(ctx, mgr, "nope", &CreateTaskRequest{Title: "x", AssignedTo: empE1}, RequestMeta{})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("employee denied", func(t *testing.T) {
		_, err := h.tasks.Create(ctx, h.principal(t, empE1), "p1", &CreateTaskRequest{Title: "x", AssignedTo: empE1}, RequestMeta{})
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	})
}

func TestTaskService_UpdateOwnTask(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()
	eve := h.principal(t, empE1)

	updated, err := h.tasks.Update(ctx, eve, "p1", "t2", &UpdateTaskRequest{Status: ptr(domain.TaskCompleted)}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskCompleted, updated.Status)
	assert.Equal(t, "Build", updated.Title)
	assert.Equal(t, domain.PriorityLow, updated.Priority)

	_, err = h.tasks.Update(ctx, eve, "p1", "t3", &UpdateTaskRequest{Status: ptr(domain.TaskCompleted)}, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	_, err = h.tasks.Update(ctx, eve, "p1", "t2", &UpdateTaskRequest{Priority: ptr(domain.Priority("urgent"))}, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrInvalid)

	_, err = h.tasks.Update(ctx, eve, "p1", "t2", &UpdateTaskRequest{DueDate: ptr("2026-01-09")}, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrInvalid)

	unchanged, err := h.tasks.Update(ctx, eve, "p1", "t2", &UpdateTaskRequest{AssignedTo: ptr(empE1)}, RequestMeta{})
	require.NoError(t, err, "keeping the same assignee needs no assign permission")
	assert.Equal(t, empE1, unchanged.AssignedTo)
}

func TestTaskService_Reassign(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	_, err := h.tasks.Update(ctx, h.principal(t, empE1), "p1", "t2", &UpdateTaskRequest{AssignedTo: ptr(empE2)}, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	stored, err := h.repo.GetTask(ctx, "p1", "t2")
	require.NoError(t, err)
	assert.Equal(t, empE1, stored.AssignedTo, "denied reassignment leaves the task untouched")

	_, err = h.tasks.Update(ctx, h.principal(t, mgrM), "p1", "t2", &UpdateTaskRequest{AssignedTo: ptr(mgrN)}, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrInvalidReference)

	updated, err := h.tasks.Update(ctx, h.principal(t, mgrM), "p1", "t2", &UpdateTaskRequest{AssignedTo: ptr(empE2), Title: ptr("Build v2")}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, empE2, updated.AssignedTo)
	assert.Equal(t, "Build v2", updated.Title)

	resp, err := h.tasks.List(ctx, h.principal(t, empE2))
	require.NoError(t, err)
	assert.Equal(t, []string{"t2", "t3"}, viewIDs(resp.Items))
}

func TestTaskService_Delete(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	err := h.tasks.Delete(ctx, h.principal(t, empE1), "p1", "t1", RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	require.NoError(t, h.tasks.Delete(ctx, h.principal(t, mgrM), "p1", "t1", RequestMeta{}))
	_, err = h.repo.GetTask(ctx, "p1", "t1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = h.tasks.Delete(ctx, h.principal(t, mgrM), "p1", "t1", RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTaskService_ListDegradesWhenStoreIsDown(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	admin := h.principal(t, adminID)
	h.mr.Close()

	resp, err := h.tasks.List(context.Background(), admin)
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.Empty(t, resp.Items)
	assert.NotNil(t, resp.Items)
}
