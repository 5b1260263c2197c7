// Package repository stores projects and their task sub-collections as
// Redis hashes.
//
// Key layout, relative to the configured prefix:
//
//	projects                       zset of project ids scored by creation time
//	project:{id}                   hash with the project fields
//	project:{id}:tasks             zset of task ids scored by creation time
//	project:{id}:task:{taskID}     hash with the task fields
//
// Updates write only the provided fields (HSET), so unspecified fields keep
// their stored values. Concurrent writers follow last-write-wins per field.
package repository

import (
	"context"

	"github.com/huangang/taskboard/internal/domain"
)

// Repository is the project/task document store.
type Repository interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	CreateProject(ctx context.Context, p *domain.Project) error
	UpdateProject(ctx context.Context, id string, patch domain.ProjectPatch) (*domain.Project, error)
	DeleteProject(ctx context.Context, id string) error

	ListTasks(ctx context.Context, projectID string) ([]domain.Task, error)
	GetTask(ctx context.Context, projectID, taskID string) (*domain.Task, error)
	CreateTask(ctx context.Context, t *domain.Task) error
	UpdateTask(ctx context.Context, projectID, taskID string, patch domain.TaskPatch) (*domain.Task, error)
	DeleteTask(ctx context.Context, projectID, taskID string) error

	Ping(ctx context.Context) error
}
