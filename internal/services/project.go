package services

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/huangang/taskboard/internal/domain"
	"github.com/huangang/taskboard/internal/metrics"
	"github.com/huangang/taskboard/internal/policy"
	"github.com/huangang/taskboard/internal/repository"
	"github.com/huangang/taskboard/pkg/logger"
)

type ProjectService struct {
	repo     repository.Repository
	identity *IdentityService
	loader   *SnapshotLoader
	activity *ActivityService
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

func NewProjectService(repo repository.Repository, identity *IdentityService, loader *SnapshotLoader, activity *ActivityService, m *metrics.Metrics) *ProjectService {
	return &ProjectService{
		repo:     repo,
		identity: identity,
		loader:   loader,
		activity: activity,
		metrics:  m,
		log:      logger.Component("projects"),
	}
}

type CreateProjectRequest struct {
	Name            string               `json:"name" binding:"required,max=255"`
	Description     string               `json:"description" binding:"max=2000"`
	Status          domain.ProjectStatus `json:"status"`
	AssignedManager *uint                `json:"assigned_manager"`
}

type UpdateProjectRequest struct {
	Name            *string               `json:"name" binding:"omitempty,max=255"`
	Description     *string               `json:"description" binding:"omitempty,max=2000"`
	Status          *domain.ProjectStatus `json:"status"`
	AssignedManager *uint                 `json:"assigned_manager"`
}

type ProjectListResponse struct {
	Items    []domain.Project `json:"items"`
	Total    int              `json:"total"`
	Degraded bool             `json:"degraded,omitempty"`
}

// ProjectDetail is a project with the tasks the caller may see in it.
type ProjectDetail struct {
	Project  domain.Project    `json:"project"`
	Tasks    []domain.TaskView `json:"tasks"`
	Degraded bool              `json:"degraded,omitempty"`
}

// List returns the projects visible to p. p needs "view all projects".
func (s *ProjectService) List(ctx context.Context, p *domain.Principal) (*ProjectListResponse, error) {
	if err := policy.Enforce(p, policy.Request{Action: policy.ActionViewAny, Entity: policy.EntityProject}); err != nil {
		return nil, err
	}
	snap := s.loader.Load(ctx)
	items := policy.Collect(policy.FilterProjects(p, snap))
	return &ProjectListResponse{Items: items, Total: len(items), Degraded: snap.Degraded}, nil
}

// Get returns the project with its tasks. Employees only see their own
// tasks inside a project.
func (s *ProjectService) Get(ctx context.Context, p *domain.Principal, id string) (*ProjectDetail, error) {
	project, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Enforce(p, viewProject(project)); err != nil {
		return nil, err
	}

	detail := &ProjectDetail{Project: *project}
	tasks, err := s.repo.ListTasks(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("project_id", id).Msg("task list unavailable")
		s.metrics.DegradedRead("tasks")
		detail.Degraded = true
	}

	users, ok := loadDirectory(ctx, s.identity, s.metrics, s.log)
	if !ok {
		detail.Degraded = true
	}
	snap := &domain.Snapshot{
		Projects: []domain.Project{*project},
		Tasks:    map[string][]domain.Task{id: tasks},
	}
	detail.Tasks = policy.Enrich(slices.Values(policy.ProjectTasks(p, tasks)), snap, policy.NamesOf(users))
	return detail, nil
}

// Create stores a new project. Status defaults to active and the assigned
// manager to the creator when the creator is a manager.
func (s *ProjectService) Create(ctx context.Context, p *domain.Principal, req *CreateProjectRequest, meta RequestMeta) (*domain.Project, error) {
	if err := policy.Enforce(p, policy.Request{Action: policy.ActionCreate, Entity: policy.EntityProject}); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.Invalid("name is required")
	}
	status := req.Status
	if status == "" {
		status = domain.ProjectActive
	}
	if !status.Valid() {
		return nil, domain.Invalid("invalid project status %q", status)
	}

	var manager uint
	switch {
	case req.AssignedManager != nil && *req.AssignedManager != 0:
		manager = *req.AssignedManager
		if err := s.identity.RequireRole(ctx, manager, domain.RoleManager); err != nil {
			return nil, err
		}
	case p.HasRole(domain.RoleManager):
		manager = p.ID
	}

	project := &domain.Project{
		Name:            name,
		Description:     req.Description,
		Status:          status,
		CreatedBy:       p.ID,
		AssignedManager: manager,
	}
	if err := s.repo.CreateProject(ctx, project); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, Event{Type: EventProjectCreated, ActorID: p.ID, Project: project}, meta)
	return project, nil
}

// Update merges req into the stored project.
func (s *ProjectService) Update(ctx context.Context, p *domain.Principal, id string, req *UpdateProjectRequest, meta RequestMeta) (*domain.Project, error) {
	current, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Enforce(p, policy.Request{Action: policy.ActionUpdate, Entity: policy.EntityProject, Project: current}); err != nil {
		return nil, err
	}

	patch := domain.ProjectPatch{
		Description:     req.Description,
		Status:          req.Status,
		AssignedManager: req.AssignedManager,
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.Invalid("name cannot be empty")
		}
		patch.Name = &name
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, domain.Invalid("invalid project status %q", *patch.Status)
	}
	// zero unassigns the manager
	if patch.AssignedManager != nil && *patch.AssignedManager != 0 && *patch.AssignedManager != current.AssignedManager {
		if err := s.identity.RequireRole(ctx, *patch.AssignedManager, domain.RoleManager); err != nil {
			return nil, err
		}
	}
	if patch.Empty() {
		return current, nil
	}

	updated, err := s.repo.UpdateProject(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, Event{Type: EventProjectUpdated, ActorID: p.ID, Project: updated, Tasks: s.tasksOf(ctx, id)}, meta)
	return updated, nil
}

// Delete removes every task of the project and then the project. If a task
// cannot be removed the project is kept and the error is returned.
func (s *ProjectService) Delete(ctx context.Context, p *domain.Principal, id string, meta RequestMeta) error {
	project, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.Enforce(p, policy.Request{Action: policy.ActionDelete, Entity: policy.EntityProject, Project: project}); err != nil {
		return err
	}

	tasks, err := s.repo.ListTasks(ctx, id)
	if err != nil {
		s.metrics.CascadeDelete(false)
		return err
	}
	for _, t := range tasks {
		if err := s.repo.DeleteTask(ctx, id, t.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.log.Error().Err(err).Str("project_id", id).Str("task_id", t.ID).Msg("cascade delete aborted")
			s.metrics.CascadeDelete(false)
			return err
		}
	}
	if err := s.repo.DeleteProject(ctx, id); err != nil {
		s.metrics.CascadeDelete(false)
		return err
	}
	s.metrics.CascadeDelete(true)

	s.activity.Record(ctx, Event{Type: EventProjectDeleted, ActorID: p.ID, Project: project, Tasks: tasks}, meta)
	return nil
}

// tasksOf lists the tasks of a project for event delivery. On failure the
// event only reaches subscribers that do not need them.
func (s *ProjectService) tasksOf(ctx context.Context, id string) []domain.Task {
	tasks, err := s.repo.ListTasks(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("project_id", id).Msg("task list unavailable for event")
		return nil
	}
	return tasks
}

func viewProject(project *domain.Project) policy.Request {
	return policy.Request{Action: policy.ActionView, Entity: policy.EntityProject, Project: project}
}
