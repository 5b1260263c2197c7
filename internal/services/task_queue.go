package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/huangang/taskboard/internal/config"
	"github.com/huangang/taskboard/pkg/logger"
)

const (
	TaskTypeActivity = "activity:record"
)

// ActivityJob is one activity-log entry waiting to be persisted.
type ActivityJob struct {
	Level      string    `json:"level"`
	Event      string    `json:"event"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	ProjectID  string    `json:"project_id,omitempty"`
	ActorID    *uint     `json:"actor_id,omitempty"`
	Message    string    `json:"message"`
	IP         string    `json:"ip,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Extra      string    `json:"extra,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// JobProcessor persists a job.
type JobProcessor func(context.Context, *ActivityJob) error

// TaskQueue hands activity jobs to a processor.
type TaskQueue interface {
	Enqueue(ctx context.Context, job *ActivityJob) error
	// IsAsync reports whether jobs are processed by a separate worker.
	IsAsync() bool
	Close() error
}

// NewTaskQueue returns an asynq-backed queue when enabled and reachable,
// otherwise a queue that runs processor inline.
func NewTaskQueue(cfg *config.QueueConfig, processor JobProcessor) TaskQueue {
	if cfg.Enabled {
		queue, err := NewAsyncQueue(cfg)
		if err == nil {
			logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Addr)
			return queue
		}
		logger.Warnf("[TaskQueue] Redis unavailable, falling back to sync mode: %v", err)
	} else {
		logger.Infof("[TaskQueue] Sync queue initialized (queue disabled)")
	}
	q := NewSyncQueue()
	q.SetProcessor(processor)
	return q
}

func redisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// AsyncQueue implements TaskQueue on asynq.
type AsyncQueue struct {
	client *asynq.Client
}

func NewAsyncQueue(cfg *config.QueueConfig) (*AsyncQueue, error) {
	opt := redisOpt(cfg)
	client := asynq.NewClient(opt)

	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}
	return &AsyncQueue{client: client}, nil
}

func (q *AsyncQueue) Enqueue(ctx context.Context, job *ActivityJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	info, err := q.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeActivity, payload),
		asynq.Queue("default"),
		asynq.MaxRetry(3),
	)
	if err != nil {
		return err
	}
	logger.Debug().Str("task_id", info.ID).Str("event", job.Event).Msg("activity job enqueued")
	return nil
}

func (q *AsyncQueue) IsAsync() bool { return true }

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue runs the processor in the caller's goroutine.
type SyncQueue struct {
	processor JobProcessor
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

func (q *SyncQueue) SetProcessor(processor JobProcessor) {
	q.processor = processor
}

func (q *SyncQueue) Enqueue(ctx context.Context, job *ActivityJob) error {
	if q.processor == nil {
		logger.Warnf("[SyncQueue] no processor set, dropping %s", job.Event)
		return nil
	}
	return q.processor(ctx, job)
}

func (q *SyncQueue) IsAsync() bool { return false }

func (q *SyncQueue) Close() error { return nil }
