package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hibiken/asynq"

	"github.com/huangang/taskboard/internal/config"
	"github.com/huangang/taskboard/pkg/logger"
)

// Worker consumes activity jobs from the asynq queue.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor JobProcessor
	running   bool
	mu        sync.Mutex
}

// NewWorker returns nil when the queue is disabled.
func NewWorker(cfg *config.QueueConfig, processor JobProcessor) *Worker {
	if !cfg.Enabled {
		return nil
	}

	server := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error().Err(err).Str("type", task.Type()).Msg("activity job failed")
			}),
		},
	)

	w := &Worker{
		server:    server,
		mux:       asynq.NewServeMux(),
		processor: processor,
	}
	w.mux.HandleFunc(TaskTypeActivity, w.handleActivityTask)
	return w
}

// Start begins processing in background goroutines.
func (w *Worker) Start() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	w.running = true
	logger.Infof("[Worker] Activity worker started")
	return nil
}

func (w *Worker) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.server.Shutdown()
	w.running = false
	logger.Infof("[Worker] Shutdown complete")
}

func (w *Worker) handleActivityTask(ctx context.Context, t *asynq.Task) error {
	var job ActivityJob
	if err := json.Unmarshal(t.Payload(), &job); err != nil {
		// A malformed payload will never succeed.
		return asynq.SkipRetry
	}
	if w.processor == nil {
		return nil
	}
	return w.processor(ctx, &job)
}
