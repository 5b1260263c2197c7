package domain

import "time"

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on-hold"
	ProjectCompleted ProjectStatus = "completed"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectOnHold, ProjectCompleted:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in-progress"
	TaskCompleted  TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

// Normalize maps missing or unknown statuses to pending.
func (s TaskStatus) Normalize() TaskStatus {
	if s.Valid() {
		return s
	}
	return TaskPending
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Normalize maps missing or unknown priorities to medium.
func (p Priority) Normalize() Priority {
	if p.Valid() {
		return p
	}
	return PriorityMedium
}

// User is the identity-store view of an account.
type User struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Roles     []Role    `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

// HasRole reports whether the user holds r.
func (u User) HasRole(r Role) bool {
	for _, role := range u.Roles {
		if role == r {
			return true
		}
	}
	return false
}

// Project is a document in the project collection. AssignedManager is zero
// when no manager is assigned.
type Project struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	Status          ProjectStatus `json:"status"`
	CreatedBy       uint          `json:"created_by"`
	AssignedManager uint          `json:"assigned_manager,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Task is a document in a project's task sub-collection.
type Task struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	AssignedTo  uint       `json:"assigned_to"`
	CreatedBy   uint       `json:"created_by"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ProjectPatch carries the fields of a merge update; nil fields are left
// untouched in the stored document.
type ProjectPatch struct {
	Name            *string
	Description     *string
	Status          *ProjectStatus
	AssignedManager *uint
}

// Empty reports whether the patch changes nothing.
func (p ProjectPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Status == nil && p.AssignedManager == nil
}

// TaskPatch carries the fields of a task merge update.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *TaskStatus
	Priority    *Priority
	AssignedTo  *uint
	DueDate     *time.Time
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.AssignedTo == nil && p.DueDate == nil
}

// TaskView is a task enriched with display names.
type TaskView struct {
	Task
	ProjectName    string `json:"project_name"`
	AssignedToName string `json:"assigned_to_name"`
	CreatedByName  string `json:"created_by_name"`
}

// Snapshot is the full project and task set read for one request. Tasks are
// keyed by project id. Degraded is set when part of the read failed and the
// missing part was replaced by an empty set.
type Snapshot struct {
	Projects []Project
	Tasks    map[string][]Task
	Degraded bool
}

// TasksOf returns the tasks of project id.
func (s *Snapshot) TasksOf(id string) []Task {
	if s == nil {
		return nil
	}
	return s.Tasks[id]
}

// Headcount is the identity-store side of the dashboard numbers.
type Headcount struct {
	TotalUsers int64
	Employees  int64
}
