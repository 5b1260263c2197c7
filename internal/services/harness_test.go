package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/huangang/taskboard/internal/config"
	"github.com/huangang/taskboard/internal/domain"
	"github.com/huangang/taskboard/internal/metrics"
	"github.com/huangang/taskboard/internal/models"
	"github.com/huangang/taskboard/internal/repository"
	"github.com/huangang/taskboard/internal/utils"
)

const (
	adminID uint = iota + 1
	mgrM
	mgrN
	empE1
	empE2
)

var base = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

type harness struct {
	db        *gorm.DB
	mr        *miniredis.Miniredis
	repo      *repository.RedisRepository
	metrics   *metrics.Metrics
	identity  *IdentityService
	hub       *SSEHub
	activity  *ActivityService
	projects  *ProjectService
	tasks     *TaskService
	dashboard *DashboardService
	team      *TeamService
	users     *UserService
	auth      *AuthService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := models.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })

	h := &harness{
		db:      db,
		mr:      mr,
		repo:    repository.NewRedisRepository(client, "tb"),
		metrics: metrics.New(),
		hub:     NewSSEHub(),
	}
	h.identity = NewIdentityService(db)
	h.activity = NewActivityService(db, h.hub, h.metrics)
	loader := NewSnapshotLoader(h.repo, h.metrics)
	h.projects = NewProjectService(h.repo, h.identity, loader, h.activity, h.metrics)
	h.tasks = NewTaskService(h.repo, h.identity, loader, h.activity, h.metrics)
	h.tasks.now = func() time.Time { return base }
	h.dashboard = NewDashboardService(h.identity, loader, h.metrics)
	h.team = NewTeamService(h.identity, loader, h.metrics)
	h.users = NewUserService(db, h.identity, h.activity)
	h.auth = NewAuthService(db, &config.JWTConfig{Secret: "test", ExpireHour: 1}, h.repo, h.activity)

	h.addUser(t, "Ada Admin", "admin@example.com", domain.RoleAdmin)
	h.addUser(t, "Mona Manager", "mona@example.com", domain.RoleManager)
	h.addUser(t, "Ned Manager", "ned@example.com", domain.RoleManager)
	h.addUser(t, "Eve Employee", "eve@example.com", domain.RoleEmployee)
	h.addUser(t, "Finn Employee", "finn@example.com", domain.RoleEmployee)
	return h
}

func (h *harness) addUser(t *testing.T, name, email string, roles ...domain.Role) uint {
	t.Helper()

	hashed, err := utils.HashPassword("password123")
	require.NoError(t, err)

	var recs []models.Role
	for _, r := range roles {
		var role models.Role
		require.NoError(t, h.db.Where("name = ?", string(r)).First(&role).Error)
		recs = append(recs, role)
	}
	user := models.User{Name: name, Email: email, Password: hashed, Roles: recs}
	require.NoError(t, h.db.Create(&user).Error)
	return user.ID
}

func (h *harness) principal(t *testing.T, id uint) *domain.Principal {
	t.Helper()
	p, err := h.identity.ResolvePrincipal(context.Background(), id)
	require.NoError(t, err)
	return p
}

// seed stores two projects:
//
//	p1 Apollo   managed by M: t1 (E1, completed, high), t2 (E1, in-progress, low), t3 (E2, pending, medium)
//	p2 Borealis managed by N: t4 (E1, no status or priority)
func (h *harness) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	projects := []domain.Project{
		{ID: "p1", Name: "Apollo", Status: domain.ProjectActive, CreatedBy: adminID, AssignedManager: mgrM, CreatedAt: base},
		{ID: "p2", Name: "Borealis", Status: domain.ProjectOnHold, CreatedBy: adminID, AssignedManager: mgrN, CreatedAt: base.Add(time.Hour)},
	}
	for i := range projects {
		require.NoError(t, h.repo.CreateProject(ctx, &projects[i]))
	}

	tasks := []domain.Task{
		{ID: "t1", ProjectID: "p1", Title: "Design", AssignedTo: empE1, CreatedBy: mgrM, Status: domain.TaskCompleted, Priority: domain.PriorityHigh, CreatedAt: base},
		{ID: "t2", ProjectID: "p1", Title: "Build", AssignedTo: empE1, CreatedBy: mgrM, Status: domain.TaskInProgress, Priority: domain.PriorityLow, CreatedAt: base.Add(time.Minute)},
		{ID: "t3", ProjectID: "p1", Title: "Test", AssignedTo: empE2, CreatedBy: mgrM, Status: domain.TaskPending, Priority: domain.PriorityMedium, CreatedAt: base.Add(2 * time.Minute)},
		{ID: "t4", ProjectID: "p2", Title: "Survey", AssignedTo: empE1, CreatedBy: mgrN, CreatedAt: base.Add(3 * time.Minute)},
	}
	for i := range tasks {
		require.NoError(t, h.repo.CreateTask(ctx, &tasks[i]))
	}
	// CreateTask defaults an empty status; t4 stays a legacy document without one.
	h.mr.HDel("tb:project:p2:task:t4", "status")
	h.mr.HDel("tb:project:p2:task:t4", "priority")
}

func ptr[T any](v T) *T { return &v }

func projectIDs(items []domain.Project) []string {
	ids := make([]string, 0, len(items))
	for _, p := range items {
		ids = append(ids, p.ID)
	}
	return ids
}

func viewIDs(items []domain.TaskView) []string {
	ids := make([]string, 0, len(items))
	for _, t := range items {
		ids = append(ids, t.ID)
	}
	return ids
}

// failingRepo fails DeleteTask for one task id.
type failingRepo struct {
	repository.Repository
	failTask string
}

func (f *failingRepo) DeleteTask(ctx context.Context, projectID, taskID string) error {
	if taskID == f.failTask {
		return domain.Unavailable("delete task", context.DeadlineExceeded)
	}
	return f.Repository.DeleteTask(ctx, projectID, taskID)
}
