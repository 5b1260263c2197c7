package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangang/taskboard/internal/domain"
	"github.com/huangang/taskboard/internal/policy"
)

func TestDashboardService_GetStats(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	admin := h.dashboard.GetStats(ctx, h.principal(t, adminID))
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	require.NotNil(t, admin.Admin)
	assert.Equal(t, policy.AdminStats{
		TotalUsers:      5,
		TotalProjects:   2,
		TotalTasks:      4,
		CompletedTasks:  1,
		InProgressTasks: 1,
		PendingTasks:    2,
	}, *admin.Admin)
	assert.Nil(t, admin.Manager)
	assert.Nil(t, admin.Employee)

	mgr := h.dashboard.GetStats(ctx, h.principal(t, mgrM))
	require.NotNil(t, mgr.Manager)
	assert.Equal(t, policy.ManagerStats{
		MyProjects:      1,
		ActiveProjects:  1,
		TotalTasks:      3,
		CompletedTasks:  1,
		InProgressTasks: 1,
		PendingTasks:    1,
		TeamMembers:     2,
	}, *mgr.Manager)

	emp := h.dashboard.GetStats(ctx, h.principal(t, empE1))
	require.NotNil(t, emp.Employee)
	assert.Equal(t, policy.EmployeeStats{
		MyTasks:             3,
		CompletedTasks:      1,
		InProgressTasks:     1,
		PendingTasks:        1,
		HighPriorityTasks:   1,
		MediumPriorityTasks: 1,
		LowPriorityTasks:    1,
	}, *emp.Employee)
	assert.False(t, emp.Degraded)
}

func TestDashboardService_Recent(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	recent := h.dashboard.Recent(ctx, h.principal(t, adminID))
	assert.Equal(t, []string{"p2", "p1"}, projectIDs(recent.Projects))
	assert.Equal(t, []string{"t4", "t3", "t2", "t1"}, viewIDs(recent.Tasks))

	recent = h.dashboard.Recent(ctx, h.principal(t, empE2))
	assert.Equal(t, []string{"p1"}, projectIDs(recent.Projects))
	assert.Equal(t, []string{"t3"}, viewIDs(recent.Tasks))
	assert.Equal(t, "Apollo", recent.Tasks[0].ProjectName)
}

func TestDashboardService_RecentIsCapped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	mgr := h.principal(t, mgrM)

	for i := 0; i < RecentLimit+2; i++ {
		_, err := h.projects.Create(ctx, mgr, &CreateProjectRequest{Name: "project"}, RequestMeta{})
		require.NoError(t, err)
	}

	recent := h.dashboard.Recent(ctx, mgr)
	assert.Len(t, recent.Projects, RecentLimit)
	assert.NotNil(t, recent.Tasks)
	assert.Empty(t, recent.Tasks)
}

func TestDashboardService_DegradesWhenStoreIsDown(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	admin := h.principal(t, adminID)
	h.mr.Close()

	stats := h.dashboard.GetStats(context.Background(), admin)
	assert.True(t, stats.Degraded)
	require.NotNil(t, stats.Admin)
	assert.Equal(t, int64(5), stats.Admin.TotalUsers, "headcount still comes from the identity store")
	assert.Zero(t, stats.Admin.TotalProjects)
	assert.Zero(t, stats.Admin.TotalTasks)
}

func TestDashboardService_DegradesWhenIdentityStoreIsDown(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	mgr := h.principal(t, mgrM)
	sqlDB, err := h.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	stats := h.dashboard.GetStats(context.Background(), mgr)
	assert.True(t, stats.Degraded)
	require.NotNil(t, stats.Manager)
	assert.Zero(t, stats.Manager.TeamMembers)
	assert.Equal(t, 3, stats.Manager.TotalTasks)

	recent := h.dashboard.Recent(context.Background(), mgr)
	assert.True(t, recent.Degraded)
	require.Len(t, recent.Tasks, 3)
	assert.Equal(t, policy.UnknownUser, recent.Tasks[0].AssignedToName)
}
