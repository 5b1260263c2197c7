package policy

import (
	"iter"

	"github.com/huangang/taskboard/internal/domain"
)

const (
	UnknownProject = "Unknown Project"
	UnknownUser    = "Unknown User"
)

// FilterProjects yields the projects of snap visible to p, in snapshot order.
//
//	admin    every project
//	manager  projects whose assigned manager is p
//	employee projects holding at least one task assigned to p
//
// A principal without any of these roles sees nothing.
func FilterProjects(p *domain.Principal, snap *domain.Snapshot) iter.Seq[domain.Project] {
	return func(yield func(domain.Project) bool) {
		if p == nil || snap == nil {
			return
		}
		scope := p.Scope()
		for _, project := range snap.Projects {
			if !projectVisible(p, scope, project, snap.Tasks[project.ID]) {
				continue
			}
			if !yield(project) {
				return
			}
		}
	}
}

func projectVisible(p *domain.Principal, scope domain.Role, project domain.Project, tasks []domain.Task) bool {
	switch scope {
	case domain.RoleAdmin:
		return true
	case domain.RoleManager:
		return project.AssignedManager == p.ID
	case domain.RoleEmployee:
		for _, t := range tasks {
			if t.AssignedTo == p.ID {
				return true
			}
		}
	}
	return false
}

// FilterTasks yields the tasks of snap visible to p: all of them for admins,
// the tasks of managed projects for managers and the assigned ones for
// employees. Order follows projects, then tasks within each project.
func FilterTasks(p *domain.Principal, snap *domain.Snapshot) iter.Seq[domain.Task] {
	return func(yield func(domain.Task) bool) {
		if p == nil || snap == nil {
			return
		}
		scope := p.Scope()
		for _, project := range snap.Projects {
			if scope == domain.RoleManager && project.AssignedManager != p.ID {
				continue
			}
			for _, t := range snap.Tasks[project.ID] {
				if !taskVisible(p, scope, t) {
					continue
				}
				if !yield(t) {
					return
				}
			}
		}
	}
}

func taskVisible(p *domain.Principal, scope domain.Role, t domain.Task) bool {
	switch scope {
	case domain.RoleAdmin, domain.RoleManager:
		return true
	case domain.RoleEmployee:
		return t.AssignedTo == p.ID
	}
	return false
}

// ProjectInScope reports whether project, holding tasks, belongs to the
// project list of p. It applies the same rule as FilterProjects to a single
// document.
func ProjectInScope(p *domain.Principal, project domain.Project, tasks []domain.Task) bool {
	if p == nil {
		return false
	}
	return projectVisible(p, p.Scope(), project, tasks)
}

// TaskInScope reports whether t belongs to the task list of p. parent is the
// project holding t; without it a manager cannot be matched and sees nothing.
func TaskInScope(p *domain.Principal, parent *domain.Project, t domain.Task) bool {
	if p == nil {
		return false
	}
	scope := p.Scope()
	if scope == domain.RoleManager && (parent == nil || parent.AssignedManager != p.ID) {
		return false
	}
	return taskVisible(p, scope, t)
}

// ProjectTasks narrows the tasks shown on a single project page. Employees
// only see their own tasks there; everyone else allowed to view the project
// sees all of them.
func ProjectTasks(p *domain.Principal, tasks []domain.Task) []domain.Task {
	if p == nil {
		return nil
	}
	if p.Scope() != domain.RoleEmployee {
		return tasks
	}
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.AssignedTo == p.ID {
			out = append(out, t)
		}
	}
	return out
}

// NameLookup resolves user ids to display names.
type NameLookup interface {
	UserName(id uint) (string, bool)
}

// Names is a NameLookup backed by a map.
type Names map[uint]string

func (n Names) UserName(id uint) (string, bool) {
	name, ok := n[id]
	return name, ok
}

// NamesOf builds a lookup from a user directory.
func NamesOf(users []domain.User) Names {
	n := make(Names, len(users))
	for _, u := range users {
		n[u.ID] = u.Name
	}
	return n
}

// Enrich attaches project and user names to tasks. Missing projects and
// users resolve to placeholders; enrichment never fails.
func Enrich(tasks iter.Seq[domain.Task], snap *domain.Snapshot, names NameLookup) []domain.TaskView {
	projectNames := make(map[string]string)
	if snap != nil {
		for _, p := range snap.Projects {
			projectNames[p.ID] = p.Name
		}
	}
	userName := func(id uint) string {
		if names != nil {
			if name, ok := names.UserName(id); ok {
				return name
			}
		}
		return UnknownUser
	}

	views := []domain.TaskView{}
	for t := range tasks {
		projectName, ok := projectNames[t.ProjectID]
		if !ok {
			projectName = UnknownProject
		}
		views = append(views, domain.TaskView{
			Task:           t,
			ProjectName:    projectName,
			AssignedToName: userName(t.AssignedTo),
			CreatedByName:  userName(t.CreatedBy),
		})
	}
	return views
}

// Collect drains seq into a non-nil slice.
func Collect[T any](seq iter.Seq[T]) []T {
	out := []T{}
	for v := range seq {
		out = append(out, v)
	}
	return out
}
