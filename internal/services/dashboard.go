package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/huangang/taskboard/internal/domain"
	"github.com/huangang/taskboard/internal/metrics"
	"github.com/huangang/taskboard/internal/policy"
	"github.com/huangang/taskboard/pkg/logger"
)

// RecentLimit is the size of the dashboard "recent" panels.
const RecentLimit = 5

type DashboardService struct {
	identity *IdentityService
	loader   *SnapshotLoader
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

func NewDashboardService(identity *IdentityService, loader *SnapshotLoader, m *metrics.Metrics) *DashboardService {
	return &DashboardService{
		identity: identity,
		loader:   loader,
		metrics:  m,
		log:      logger.Component("dashboard"),
	}
}

type RecentResponse struct {
	Projects []domain.Project  `json:"recent_projects"`
	Tasks    []domain.TaskView `json:"recent_tasks"`
	Degraded bool              `json:"degraded,omitempty"`
}

// GetStats returns the role-shaped counters for p. Headcounts fall back to
// zero when the identity store is down.
func (s *DashboardService) GetStats(ctx context.Context, p *domain.Principal) policy.StatsRecord {
	snap := s.loader.Load(ctx)

	hc, err := s.identity.Headcount(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("headcount unavailable")
		s.metrics.DegradedRead("headcount")
	}

	stats := policy.ComputeStats(p, snap, hc)
	stats.Degraded = stats.Degraded || err != nil
	return stats
}

func (s *DashboardService) Recent(ctx context.Context, p *domain.Principal) *RecentResponse {
	snap := s.loader.Load(ctx)
	users, ok := loadDirectory(ctx, s.identity, s.metrics, s.log)
	return &RecentResponse{
		Projects: policy.RecentProjects(p, snap, RecentLimit),
		Tasks:    policy.RecentTasks(p, snap, policy.NamesOf(users), RecentLimit),
		Degraded: snap.Degraded || !ok,
	}
}
