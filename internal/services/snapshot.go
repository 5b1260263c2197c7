package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/huangang/taskboard/internal/domain"
	"github.com/huangang/taskboard/internal/metrics"
	"github.com/huangang/taskboard/internal/repository"
	"github.com/huangang/taskboard/pkg/logger"
)

// SnapshotLoader reads every project and every task list for the read
// paths. Failures never surface: the affected part is left empty and the
// snapshot is marked degraded.
type SnapshotLoader struct {
	repo    repository.Repository
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewSnapshotLoader(repo repository.Repository, m *metrics.Metrics) *SnapshotLoader {
	return &SnapshotLoader{repo: repo, metrics: m, log: logger.Component("snapshot")}
}

func (l *SnapshotLoader) Load(ctx context.Context) *domain.Snapshot {
	snap := &domain.Snapshot{Tasks: make(map[string][]domain.Task)}

	projects, err := l.repo.ListProjects(ctx)
	if err != nil {
		l.log.Warn().Err(err).Msg("project list unavailable, serving empty snapshot")
		l.metrics.DegradedRead("projects")
		snap.Degraded = true
		return snap
	}
	snap.Projects = projects

	for _, p := range projects {
		tasks, err := l.repo.ListTasks(ctx, p.ID)
		if err != nil {
			l.log.Warn().Err(err).Str("project_id", p.ID).Msg("task list unavailable")
			l.metrics.DegradedRead("tasks")
			snap.Degraded = true
			continue
		}
		snap.Tasks[p.ID] = tasks
	}
	return snap
}

// loadDirectory returns every user, or nil with ok=false when the identity
// store is down. Callers fall back to placeholder names.
func loadDirectory(ctx context.Context, identity *IdentityService, m *metrics.Metrics, log zerolog.Logger) ([]domain.User, bool) {
	users, err := identity.Directory(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("user directory unavailable")
		m.DegradedRead("directory")
		return nil, false
	}
	return users, true
}
