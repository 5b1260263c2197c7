package services

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/huangang/taskboard/internal/domain"
	"github.com/huangang/taskboard/internal/metrics"
	"github.com/huangang/taskboard/internal/policy"
	"github.com/huangang/taskboard/internal/repository"
	"github.com/huangang/taskboard/pkg/logger"
)

type TaskService struct {
	repo     repository.Repository
	identity *IdentityService
	loader   *SnapshotLoader
	activity *ActivityService
	metrics  *metrics.Metrics
	log      zerolog.Logger
	now      func() time.Time
}

func NewTaskService(repo repository.Repository, identity *IdentityService, loader *SnapshotLoader, activity *ActivityService, m *metrics.Metrics) *TaskService {
	return &TaskService{
		repo:     repo,
		identity: identity,
		loader:   loader,
		activity: activity,
		metrics:  m,
		log:      logger.Component("tasks"),
		now:      time.Now,
	}
}

type CreateTaskRequest struct {
	Title       string            `json:"title" binding:"required,max=255"`
	Description string            `json:"description" binding:"max=1000"`
	AssignedTo  uint              `json:"assigned_to" binding:"required"`
	DueDate     string            `json:"due_date"` // YYYY-MM-DD
	Priority    domain.Priority   `json:"priority"`
	Status      domain.TaskStatus `json:"status"`
}

type UpdateTaskRequest struct {
	Title       *string            `json:"title" binding:"omitempty,max=255"`
	Description *string            `json:"description" binding:"omitempty,max=1000"`
	AssignedTo  *uint              `json:"assigned_to"`
	DueDate     *string            `json:"due_date"`
	Priority    *domain.Priority   `json:"priority"`
	Status      *domain.TaskStatus `json:"status"`
}

type TaskListResponse struct {
	Items    []domain.TaskView `json:"items"`
	Total    int               `json:"total"`
	Degraded bool              `json:"degraded,omitempty"`
}

type TaskDetail struct {
	Task     domain.TaskView `json:"task"`
	Project  domain.Project  `json:"project"`
	Degraded bool            `json:"degraded,omitempty"`
}

// List returns every task visible to p across all projects, enriched with
// project and user names. p needs a task view permission.
func (s *TaskService) List(ctx context.Context, p *domain.Principal) (*TaskListResponse, error) {
	if err := policy.Enforce(p, policy.Request{Action: policy.ActionViewAny, Entity: policy.EntityTask}); err != nil {
		return nil, err
	}
	snap := s.loader.Load(ctx)
	users, ok := loadDirectory(ctx, s.identity, s.metrics, s.log)
	items := policy.Enrich(policy.FilterTasks(p, snap), snap, policy.NamesOf(users))
	return &TaskListResponse{Items: items, Total: len(items), Degraded: snap.Degraded || !ok}, nil
}

func (s *TaskService) Get(ctx context.Context, p *domain.Principal, projectID, taskID string) (*TaskDetail, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	task, err := s.repo.GetTask(ctx, projectID, taskID)
	if err != nil {
		return nil, err
	}
	if err := policy.Enforce(p, policy.Request{Action: policy.ActionView, Entity: policy.EntityTask, Task: task}); err != nil {
		return nil, err
	}

	users, ok := loadDirectory(ctx, s.identity, s.metrics, s.log)
	snap := &domain.Snapshot{Projects: []domain.Project{*project}}
	views := policy.Enrich(slices.Values([]domain.Task{*task}), snap, policy.NamesOf(users))
	return &TaskDetail{Task: views[0], Project: *project, Degraded: !ok}, nil
}

// Create adds a task to an existing project. The assignee must be an
// employee and the due date, when given, must be after today.
func (s *TaskService) Create(ctx context.Context, p *domain.Principal, projectID string, req *CreateTaskRequest, meta RequestMeta) (*domain.Task, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := policy.Enforce(p, policy.Request{Action: policy.ActionCreate, Entity: policy.EntityTask}); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.Invalid("title is required")
	}
	priority := req.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.Valid() {
		return nil, domain.Invalid("invalid priority %q", priority)
	}
	status := req.Status
	if status == "" {
		status = domain.TaskPending
	}
	if !status.Valid() {
		return nil, domain.Invalid("invalid task status %q", status)
	}
	due, err := s.parseDueDate(req.DueDate)
	if err != nil {
		return nil, err
	}
	if err := s.identity.RequireRole(ctx, req.AssignedTo, domain.RoleEmployee); err != nil {
		return nil, err
	}

	task := &domain.Task{
		ProjectID:   projectID,
		Title:       title,
		Description: req.Description,
		Status:      status,
		Priority:    priority,
		AssignedTo:  req.AssignedTo,
		CreatedBy:   p.ID,
		DueDate:     due,
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, Event{Type: EventTaskCreated, ActorID: p.ID, Task: task, Parent: project}, meta)
	return task, nil
}

// Update merges req into the task. Changing the assignee additionally
// requires the "assign tasks" permission.
func (s *TaskService) Update(ctx context.Context, p *domain.Principal, projectID, taskID string, req *UpdateTaskRequest, meta RequestMeta) (*domain.Task, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	current, err := s.repo.GetTask(ctx, projectID, taskID)
	if err != nil {
		return nil, err
	}
	if err := policy.Enforce(p, policy.Request{Action: policy.ActionUpdate, Entity: policy.EntityTask, Task: current}); err != nil {
		return nil, err
	}

	patch := domain.TaskPatch{
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, domain.Invalid("title cannot be empty")
		}
		patch.Title = &title
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, domain.Invalid("invalid task status %q", *patch.Status)
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return nil, domain.Invalid("invalid priority %q", *patch.Priority)
	}
	if req.DueDate != nil && *req.DueDate != "" {
		due, err := s.parseDueDate(*req.DueDate)
		if err != nil {
			return nil, err
		}
		patch.DueDate = due
	}
	if req.AssignedTo != nil && *req.AssignedTo != current.AssignedTo {
		if err := policy.Enforce(p, policy.Request{Action: policy.ActionAssign, Entity: policy.EntityTask, Task: current}); err != nil {
			return nil, err
		}
		if err := s.identity.RequireRole(ctx, *req.AssignedTo, domain.RoleEmployee); err != nil {
			return nil, err
		}
		patch.AssignedTo = req.AssignedTo
	}
	if patch.Empty() {
		return current, nil
	}

	updated, err := s.repo.UpdateTask(ctx, projectID, taskID, patch)
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, Event{Type: EventTaskUpdated, ActorID: p.ID, Task: updated, Parent: project}, meta)
	return updated, nil
}

func (s *TaskService) Delete(ctx context.Context, p *domain.Principal, projectID, taskID string, meta RequestMeta) error {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	task, err := s.repo.GetTask(ctx, projectID, taskID)
	if err != nil {
		return err
	}
	if err := policy.Enforce(p, policy.Request{Action: policy.ActionDelete, Entity: policy.EntityTask, Task: task}); err != nil {
		return err
	}
	if err := s.repo.DeleteTask(ctx, projectID, taskID); err != nil {
		return err
	}
	s.activity.Record(ctx, Event{Type: EventTaskDeleted, ActorID: p.ID, Task: task, Parent: project}, meta)
	return nil
}

// parseDueDate accepts YYYY-MM-DD; the day must be after today (UTC). An
// empty value means no due date.
func (s *TaskService) parseDueDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	due, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, domain.Invalid("due_date must be YYYY-MM-DD")
	}
	y, m, d := s.now().UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if !due.After(today) {
		return nil, domain.Invalid("due_date must be after today")
	}
	return &due, nil
}
