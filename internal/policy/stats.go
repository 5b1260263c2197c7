package policy

import (
	"cmp"
	"iter"
	"slices"

	"github.com/huangang/taskboard/internal/domain"
)

type AdminStats struct {
	TotalUsers      int64 `json:"total_users"`
	TotalProjects   int   `json:"total_projects"`
	TotalTasks      int   `json:"total_tasks"`
	CompletedTasks  int   `json:"completed_tasks"`
	InProgressTasks int   `json:"in_progress_tasks"`
	PendingTasks    int   `json:"pending_tasks"`
}

type ManagerStats struct {
	MyProjects      int   `json:"my_projects"`
	ActiveProjects  int   `json:"active_projects"`
	TotalTasks      int   `json:"total_tasks"`
	CompletedTasks  int   `json:"completed_tasks"`
	InProgressTasks int   `json:"in_progress_tasks"`
	PendingTasks    int   `json:"pending_tasks"`
	TeamMembers     int64 `json:"team_members"`
}

type EmployeeStats struct {
	MyTasks             int `json:"my_tasks"`
	CompletedTasks      int `json:"completed_tasks"`
	InProgressTasks     int `json:"in_progress_tasks"`
	PendingTasks        int `json:"pending_tasks"`
	HighPriorityTasks   int `json:"high_priority_tasks"`
	MediumPriorityTasks int `json:"medium_priority_tasks"`
	LowPriorityTasks    int `json:"low_priority_tasks"`
}

// StatsRecord carries exactly one of the role-shaped counter sets.
type StatsRecord struct {
	Role     domain.Role    `json:"role"`
	Admin    *AdminStats    `json:"admin,omitempty"`
	Manager  *ManagerStats  `json:"manager,omitempty"`
	Employee *EmployeeStats `json:"employee,omitempty"`
	Degraded bool           `json:"degraded,omitempty"`
}

type statusCounts struct {
	completed, inProgress, pending int
}

func (c *statusCounts) add(s domain.TaskStatus) {
	switch s.Normalize() {
	case domain.TaskCompleted:
		c.completed++
	case domain.TaskInProgress:
		c.inProgress++
	default:
		c.pending++
	}
}

// ComputeStats folds snap into the counters shown on p's dashboard. Admins
// get global counts, managers counts over the projects they manage and
// everyone else counts over their own tasks. team_members is the global
// employee count for managers.
func ComputeStats(p *domain.Principal, snap *domain.Snapshot, hc domain.Headcount) StatsRecord {
	if snap == nil {
		snap = &domain.Snapshot{}
	}
	rec := StatsRecord{Role: p.Scope(), Degraded: snap.Degraded}

	switch rec.Role {
	case domain.RoleAdmin:
		var sc statusCounts
		total := 0
		for _, project := range snap.Projects {
			for _, t := range snap.Tasks[project.ID] {
				total++
				sc.add(t.Status)
			}
		}
		rec.Admin = &AdminStats{
			TotalUsers:      hc.TotalUsers,
			TotalProjects:   len(snap.Projects),
			TotalTasks:      total,
			CompletedTasks:  sc.completed,
			InProgressTasks: sc.inProgress,
			PendingTasks:    sc.pending,
		}

	case domain.RoleManager:
		ms := &ManagerStats{TeamMembers: hc.Employees}
		var sc statusCounts
		for _, project := range snap.Projects {
			if project.AssignedManager != p.ID {
				continue
			}
			ms.MyProjects++
			if project.Status == domain.ProjectActive {
				ms.ActiveProjects++
			}
			for _, t := range snap.Tasks[project.ID] {
				ms.TotalTasks++
				sc.add(t.Status)
			}
		}
		ms.CompletedTasks, ms.InProgressTasks, ms.PendingTasks = sc.completed, sc.inProgress, sc.pending
		rec.Manager = ms

	default:
		es := &EmployeeStats{}
		var sc statusCounts
		for _, project := range snap.Projects {
			for _, t := range snap.Tasks[project.ID] {
				if p == nil || t.AssignedTo != p.ID {
					continue
				}
				es.MyTasks++
				sc.add(t.Status)
				switch t.Priority.Normalize() {
				case domain.PriorityHigh:
					es.HighPriorityTasks++
				case domain.PriorityLow:
					es.LowPriorityTasks++
				default:
					es.MediumPriorityTasks++
				}
			}
		}
		es.CompletedTasks, es.InProgressTasks, es.PendingTasks = sc.completed, sc.inProgress, sc.pending
		rec.Role = domain.RoleEmployee
		rec.Employee = es
	}
	return rec
}

// RecentProjects returns up to n projects visible to p, newest first.
func RecentProjects(p *domain.Principal, snap *domain.Snapshot, n int) []domain.Project {
	return newest(FilterProjects(p, snap), n, func(x domain.Project) int64 { return x.CreatedAt.UnixNano() })
}

// RecentTasks returns up to n enriched tasks visible to p, newest first.
func RecentTasks(p *domain.Principal, snap *domain.Snapshot, names NameLookup, n int) []domain.TaskView {
	tasks := newest(FilterTasks(p, snap), n, func(x domain.Task) int64 { return x.CreatedAt.UnixNano() })
	return Enrich(slices.Values(tasks), snap, names)
}

func newest[T any](seq iter.Seq[T], n int, key func(T) int64) []T {
	items := Collect(seq)
	slices.SortStableFunc(items, func(a, b T) int { return cmp.Compare(key(b), key(a)) })
	if n >= 0 && len(items) > n {
		items = items[:n]
	}
	return items
}
