package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/huangang/taskboard/internal/domain"
	"github.com/huangang/taskboard/internal/metrics"
	"github.com/huangang/taskboard/internal/models"
	"github.com/huangang/taskboard/pkg/logger"
)

// RequestMeta identifies where a change came from.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// ActivityService publishes change events to the SSE hub and persists them
// to the activity log through the task queue.
type ActivityService struct {
	db      *gorm.DB
	queue   TaskQueue
	hub     *SSEHub
	metrics *metrics.Metrics
	cron    *cron.Cron
	owner   string
	log     zerolog.Logger
}

const (
	cleanupLockName = "activity-cleanup"
	cleanupLockTTL  = 24 * time.Hour
)

func NewActivityService(db *gorm.DB, hub *SSEHub, m *metrics.Metrics) *ActivityService {
	owner, err := os.Hostname()
	if err != nil {
		owner = "unknown"
	}
	return &ActivityService{
		db:      db,
		hub:     hub,
		metrics: m,
		owner:   fmt.Sprintf("%s-%d", owner, os.Getpid()),
		log:     logger.Component("activity"),
	}
}

// SetQueue installs the queue used by Record. Without one, entries are
// written inline.
func (s *ActivityService) SetQueue(q TaskQueue) {
	s.queue = q
}

func (s *ActivityService) Hub() *SSEHub {
	return s.hub
}

func (s *ActivityService) QueueMode() string {
	if s.queue != nil && s.queue.IsAsync() {
		return "async"
	}
	return "sync"
}

// Record publishes ev and queues its log entry. Failures are logged and
// never reach the caller; the change itself has already been stored.
func (s *ActivityService) Record(ctx context.Context, ev Event, meta RequestMeta) {
	if s == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	if s.hub != nil {
		s.hub.Publish(ev)
	}

	job := jobFor(ev, meta)
	var err error
	if s.queue != nil {
		err = s.queue.Enqueue(ctx, job)
	} else {
		err = s.Write(ctx, job)
	}
	s.metrics.ActivityEvent(ev.Type, s.QueueMode())
	if err != nil {
		s.log.Error().Err(err).Str("event", ev.Type).Msg("failed to record activity")
	}
}

func jobFor(ev Event, meta RequestMeta) *ActivityJob {
	job := &ActivityJob{
		Level:      "info",
		Event:      ev.Type,
		EntityType: string(ev.Entity()),
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
		CreatedAt:  ev.Timestamp,
	}
	if ev.ActorID != 0 {
		actor := ev.ActorID
		job.ActorID = &actor
	}

	var payload any
	switch {
	case ev.Task != nil:
		job.EntityID = ev.Task.ID
		job.ProjectID = ev.Task.ProjectID
		job.Message = fmt.Sprintf("%s: %s", ev.Type, ev.Task.Title)
		payload = ev.Task
	case ev.Project != nil:
		job.EntityID = ev.Project.ID
		job.ProjectID = ev.Project.ID
		job.Message = fmt.Sprintf("%s: %s", ev.Type, ev.Project.Name)
		payload = ev.Project
	case ev.User != nil:
		job.EntityID = fmt.Sprint(ev.User.ID)
		job.Message = fmt.Sprintf("%s: %s", ev.Type, ev.User.Email)
		payload = ev.User
	}
	if ev.Type == EventUserDeleted || ev.Type == EventProjectDeleted || ev.Type == EventTaskDeleted {
		job.Level = "warning"
	}
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			job.Extra = string(b)
		}
	}
	return job
}

// Write persists a job. It is the processor of both queue kinds.
func (s *ActivityService) Write(ctx context.Context, job *ActivityJob) error {
	entry := &models.ActivityLog{
		Level:      job.Level,
		Event:      job.Event,
		EntityType: job.EntityType,
		EntityID:   job.EntityID,
		ProjectID:  job.ProjectID,
		ActorID:    job.ActorID,
		Message:    job.Message,
		IP:         job.IP,
		UserAgent:  job.UserAgent,
		Extra:      job.Extra,
		CreatedAt:  job.CreatedAt,
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return domain.Unavailable("write activity", err)
	}
	return nil
}

type ActivityListRequest struct {
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Level      string `form:"level"`
	Event      string `form:"event"`
	EntityType string `form:"entity_type"`
	ProjectID  string `form:"project_id"`
	StartDate  string `form:"start_date"`
	EndDate    string `form:"end_date"`
	Search     string `form:"search"`
}

type ActivityListResponse struct {
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
	Items    []models.ActivityLog `json:"items"`
}

// List pages through the activity log, newest first. It requires the
// "view system logs" permission.
func (s *ActivityService) List(ctx context.Context, p *domain.Principal, req *ActivityListRequest) (*ActivityListResponse, error) {
	if !p.Can(domain.PermViewSystemLogs) {
		return nil, domain.Denied("not allowed to view system logs")
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	query := s.db.WithContext(ctx).Model(&models.ActivityLog{})
	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Event != "" {
		query = query.Where("event = ?", req.Event)
	}
	if req.EntityType != "" {
		query = query.Where("entity_type = ?", req.EntityType)
	}
	if req.ProjectID != "" {
		query = query.Where("project_id = ?", req.ProjectID)
	}
	if req.StartDate != "" {
		start, err := time.Parse(time.DateOnly, req.StartDate)
		if err != nil {
			return nil, domain.Invalid("start_date must be YYYY-MM-DD")
		}
		query = query.Where("created_at >= ?", start)
	}
	if req.EndDate != "" {
		end, err := time.Parse(time.DateOnly, req.EndDate)
		if err != nil {
			return nil, domain.Invalid("end_date must be YYYY-MM-DD")
		}
		query = query.Where("created_at < ?", end.AddDate(0, 0, 1))
	}
	if req.Search != "" {
		query = query.Where("message LIKE ?", "%"+req.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, domain.Unavailable("count activity", err)
	}

	logs := []models.ActivityLog{}
	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, domain.Unavailable("list activity", err)
	}

	return &ActivityListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    logs,
	}, nil
}

// Events lists the distinct event types present in the log.
func (s *ActivityService) Events(ctx context.Context, p *domain.Principal) ([]string, error) {
	if !p.Can(domain.PermViewSystemLogs) {
		return nil, domain.Denied("not allowed to view system logs")
	}
	events := []string{}
	err := s.db.WithContext(ctx).Model(&models.ActivityLog{}).
		Distinct("event").
		Order("event").
		Pluck("event", &events).Error
	if err != nil {
		return nil, domain.Unavailable("list activity events", err)
	}
	return events, nil
}

// Cleanup deletes entries older than retentionDays. Zero or less keeps
// everything.
func (s *ActivityService) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.ActivityLog{})
	if result.Error != nil {
		return 0, domain.Unavailable("cleanup activity", result.Error)
	}
	return result.RowsAffected, nil
}

// StartCleanupScheduler runs Cleanup on the cron spec.
func (s *ActivityService) StartCleanupScheduler(spec string, retentionDays int) error {
	if retentionDays <= 0 {
		s.log.Info().Msg("activity cleanup disabled (retention_days <= 0)")
		return nil
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		s.runCleanup(context.Background(), time.Now(), retentionDays)
	})
	if err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", spec, err)
	}
	c.Start()
	s.cron = c
	s.log.Info().Str("schedule", spec).Msg("activity cleanup scheduler started")
	return nil
}

// runCleanup claims the run for the tick at now, so that only one replica
// cleans up per schedule tick.
func (s *ActivityService) runCleanup(ctx context.Context, now time.Time, retentionDays int) {
	key := now.UTC().Truncate(time.Minute).Format(time.RFC3339)
	claimed, err := models.ClaimRun(s.db.WithContext(ctx), cleanupLockName, key, s.owner, cleanupLockTTL)
	if err != nil {
		s.log.Error().Err(err).Msg("activity cleanup lock failed")
		return
	}
	if !claimed {
		s.log.Debug().Str("key", key).Msg("activity cleanup claimed by another instance")
		return
	}

	deleted, err := s.Cleanup(ctx, retentionDays)
	if err != nil {
		s.log.Error().Err(err).Msg("activity cleanup failed")
		return
	}
	if deleted > 0 {
		s.log.Info().Int64("deleted", deleted).Int("retention_days", retentionDays).Msg("activity cleanup")
	}
}

func (s *ActivityService) StopCleanupScheduler() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}
