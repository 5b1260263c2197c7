package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/huangang/taskboard/internal/domain"
	"github.com/huangang/taskboard/internal/metrics"
	"github.com/huangang/taskboard/internal/policy"
	"github.com/huangang/taskboard/pkg/logger"
)

// TeamService answers the team listing.
type TeamService struct {
	identity *IdentityService
	loader   *SnapshotLoader
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

func NewTeamService(identity *IdentityService, loader *SnapshotLoader, m *metrics.Metrics) *TeamService {
	return &TeamService{
		identity: identity,
		loader:   loader,
		metrics:  m,
		log:      logger.Component("team"),
	}
}

type TeamResponse struct {
	TeamMembers []policy.MemberSummary `json:"team_members"`
	TotalCount  int                    `json:"total_count"`
	UserRole    string                 `json:"user_role"`
	Degraded    bool                   `json:"degraded,omitempty"`
}

func (s *TeamService) Members(ctx context.Context, p *domain.Principal) *TeamResponse {
	snap := s.loader.Load(ctx)
	users, ok := loadDirectory(ctx, s.identity, s.metrics, s.log)

	members := policy.TeamMembers(p, snap, users)
	return &TeamResponse{
		TeamMembers: members,
		TotalCount:  len(members),
		UserRole:    policy.RoleLabel(p.Roles()),
		Degraded:    snap.Degraded || !ok,
	}
}
