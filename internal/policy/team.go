package policy

import "github.com/huangang/taskboard/internal/domain"

const NoRole = "No Role"

// MemberSummary is one row of the team listing. SharedProjects is only set
// for employees looking at colleagues; ProjectsCount is omitted there.
type MemberSummary struct {
	ID             uint   `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	JoinedAt       string `json:"joined_at"`
	ProjectsCount  *int   `json:"projects_count,omitempty"`
	SharedProjects *int   `json:"shared_projects,omitempty"`
	TasksCount     int    `json:"tasks_count"`
}

// RoleLabel is the first role of u, or NoRole.
func RoleLabel(roles []domain.Role) string {
	if len(roles) == 0 {
		return NoRole
	}
	return string(roles[0])
}

// TeamMembers lists the colleagues visible to p, in directory order.
//
//	admin    everyone except p
//	manager  users holding tasks in p's projects, then the other managers
//	employee users holding tasks in projects where p holds one, plus the
//	         managers of those projects
func TeamMembers(p *domain.Principal, snap *domain.Snapshot, directory []domain.User) []MemberSummary {
	out := []MemberSummary{}
	if p == nil {
		return out
	}
	if snap == nil {
		snap = &domain.Snapshot{}
	}
	idx := BuildIndex(snap)

	switch p.Scope() {
	case domain.RoleAdmin:
		for _, u := range directory {
			if u.ID != p.ID {
				out = append(out, summarize(u, idx, true))
			}
		}

	case domain.RoleManager:
		members := make(map[uint]struct{})
		for _, projectID := range idx.Managed(p.ID) {
			for _, uid := range idx.Assignees(projectID) {
				members[uid] = struct{}{}
			}
		}
		listed := make(map[uint]struct{})
		for _, u := range directory {
			if _, ok := members[u.ID]; ok {
				out = append(out, summarize(u, idx, true))
				listed[u.ID] = struct{}{}
			}
		}
		for _, u := range directory {
			if _, dup := listed[u.ID]; dup || u.ID == p.ID || !u.HasRole(domain.RoleManager) {
				continue
			}
			out = append(out, summarize(u, idx, true))
		}

	case domain.RoleEmployee:
		colleagues := make(map[uint]struct{})
		for _, project := range snap.Projects {
			if !idx.HasTaskIn(p.ID, project.ID) {
				continue
			}
			for _, uid := range idx.Assignees(project.ID) {
				colleagues[uid] = struct{}{}
			}
			if project.AssignedManager != 0 {
				colleagues[project.AssignedManager] = struct{}{}
			}
		}
		delete(colleagues, p.ID)
		for _, u := range directory {
			if _, ok := colleagues[u.ID]; !ok {
				continue
			}
			m := summarize(u, idx, false)
			shared := idx.SharedProjects(u.ID, p.ID)
			m.SharedProjects = &shared
			out = append(out, m)
		}
	}
	return out
}

func summarize(u domain.User, idx *Index, withProjects bool) MemberSummary {
	m := MemberSummary{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       RoleLabel(u.Roles),
		TasksCount: idx.TaskCount(u.ID),
	}
	if !u.CreatedAt.IsZero() {
		m.JoinedAt = u.CreatedAt.Format("Jan 02, 2006")
	}
	if withProjects {
		n := idx.ProjectCount(u.ID)
		m.ProjectsCount = &n
	}
	return m
}
