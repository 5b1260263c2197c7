package policy

import (
	"time"

	"github.com/huangang/taskboard/internal/domain"
)

const (
	adminID uint = 1
	mgrM    uint = 2
	mgrN    uint = 3
	empE1   uint = 4
	empE2   uint = 5
)

var base = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

func principal(id uint, roles ...domain.Role) *domain.Principal {
	user := domain.User{ID: id, Name: "user", Roles: roles}
	return domain.NewPrincipal(user, domain.PermissionsFor(roles...))
}

func directory() []domain.User {
	return []domain.User{
		{ID: adminID, Name: "Alice Admin", Email: "admin@example.com", Roles: []domain.Role{domain.RoleAdmin}, CreatedAt: base},
		{ID: mgrM, Name: "Mona Manager", Email: "m@example.com", Roles: []domain.Role{domain.RoleManager}, CreatedAt: base},
		{ID: mgrN, Name: "Ned Manager", Email: "n@example.com", Roles: []domain.Role{domain.RoleManager}, CreatedAt: base},
		{ID: empE1, Name: "Eve One", Email: "e1@example.com", Roles: []domain.Role{domain.RoleEmployee}, CreatedAt: base},
		{ID: empE2, Name: "Ed Two", Email: "e2@example.com", Roles: []domain.Role{domain.RoleEmployee}, CreatedAt: base},
	}
}

// scenario: P1 managed by M with three tasks (two for E1, one for E2),
// P2 managed by N with one task for E1.
func scenario() *domain.Snapshot {
	return &domain.Snapshot{
		Projects: []domain.Project{
			{ID: "p1", Name: "Apollo", Status: domain.ProjectActive, CreatedBy: adminID, AssignedManager: mgrM, CreatedAt: base},
			{ID: "p2", Name: "Borealis", Status: domain.ProjectOnHold, CreatedBy: adminID, AssignedManager: mgrN, CreatedAt: base.Add(time.Hour)},
		},
		Tasks: map[string][]domain.Task{
			"p1": {
				{ID: "t1", ProjectID: "p1", Title: "draft", Status: domain.TaskCompleted, Priority: domain.PriorityHigh, AssignedTo: empE1, CreatedBy: mgrM, CreatedAt: base.Add(1 * time.Minute)},
				{ID: "t2", ProjectID: "p1", Title: "build", Status: domain.TaskInProgress, Priority: domain.PriorityLow, AssignedTo: empE1, CreatedBy: mgrM, CreatedAt: base.Add(2 * time.Minute)},
				{ID: "t3", ProjectID: "p1", Title: "test", Status: domain.TaskPending, Priority: domain.PriorityMedium, AssignedTo: empE2, CreatedBy: mgrM, CreatedAt: base.Add(3 * time.Minute)},
			},
			"p2": {
				{ID: "t4", ProjectID: "p2", Title: "ship", Status: "", Priority: "", AssignedTo: empE1, CreatedBy: mgrN, CreatedAt: base.Add(4 * time.Minute)},
			},
		},
	}
}

func taskIDs(tasks []domain.Task) []string {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

func projectIDs(projects []domain.Project) []string {
	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	return ids
}
