package policy

import "github.com/huangang/taskboard/internal/domain"

// Index holds the lookup maps derived from a snapshot in a single pass.
// Every per-user or per-project question asked while serving a request is
// answered from these maps instead of walking the snapshot again.
type Index struct {
	projects map[string]*domain.Project
	// user -> number of tasks assigned
	taskCount map[uint]int
	// user -> projects holding at least one task assigned to the user
	assigned map[uint]map[string]struct{}
	// manager -> projects they are assigned to, in snapshot order
	managed map[uint][]string
	// project -> users holding a task in it, in task order
	assignees map[string][]uint
}

// BuildIndex walks snap once.
func BuildIndex(snap *domain.Snapshot) *Index {
	idx := &Index{
		projects:  make(map[string]*domain.Project),
		taskCount: make(map[uint]int),
		assigned:  make(map[uint]map[string]struct{}),
		managed:   make(map[uint][]string),
		assignees: make(map[string][]uint),
	}
	if snap == nil {
		return idx
	}
	for i := range snap.Projects {
		p := &snap.Projects[i]
		idx.projects[p.ID] = p
		if p.AssignedManager != 0 {
			idx.managed[p.AssignedManager] = append(idx.managed[p.AssignedManager], p.ID)
		}
		seen := make(map[uint]struct{})
		for _, t := range snap.Tasks[p.ID] {
			if t.AssignedTo == 0 {
				continue
			}
			idx.taskCount[t.AssignedTo]++
			set, ok := idx.assigned[t.AssignedTo]
			if !ok {
				set = make(map[string]struct{})
				idx.assigned[t.AssignedTo] = set
			}
			set[p.ID] = struct{}{}
			if _, dup := seen[t.AssignedTo]; !dup {
				seen[t.AssignedTo] = struct{}{}
				idx.assignees[p.ID] = append(idx.assignees[p.ID], t.AssignedTo)
			}
		}
	}
	return idx
}

// Project returns the project with id, if present.
func (x *Index) Project(id string) (*domain.Project, bool) {
	p, ok := x.projects[id]
	return p, ok
}

// TaskCount is the number of tasks assigned to user.
func (x *Index) TaskCount(user uint) int { return x.taskCount[user] }

// HasTaskIn reports whether user holds at least one task in project.
func (x *Index) HasTaskIn(user uint, project string) bool {
	_, ok := x.assigned[user][project]
	return ok
}

// Managed lists the projects assigned to manager.
func (x *Index) Managed(manager uint) []string { return x.managed[manager] }

// Assignees lists the distinct users holding a task in project.
func (x *Index) Assignees(project string) []uint { return x.assignees[project] }

// ProjectCount is the number of projects user manages or holds a task in.
func (x *Index) ProjectCount(user uint) int {
	n := len(x.assigned[user])
	for _, id := range x.managed[user] {
		if !x.HasTaskIn(user, id) {
			n++
		}
	}
	return n
}

// SharedProjects counts the projects where both a and b hold tasks.
func (x *Index) SharedProjects(a, b uint) int {
	as, bs := x.assigned[a], x.assigned[b]
	if len(bs) < len(as) {
		as, bs = bs, as
	}
	n := 0
	for id := range as {
		if _, ok := bs[id]; ok {
			n++
		}
	}
	return n
}
