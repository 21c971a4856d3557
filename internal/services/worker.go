package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/huangang/taskmanager/internal/config"
	"github.com/huangang/taskmanager/pkg/logger"
)

// Worker processes maintenance tasks pulled from Redis.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor TaskProcessor
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

// NewWorker returns nil when Redis is disabled.
func NewWorker(cfg *config.RedisConfig, processor TaskProcessor) *Worker {
	if !cfg.Enabled {
		return nil
	}

	server := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"maintenance": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Errorf("[Worker] Error processing task %s: %v", task.Type(), err)
			}),
		},
	)

	w := &Worker{
		server:    server,
		mux:       asynq.NewServeMux(),
		processor: processor,
	}
	w.mux.HandleFunc(TaskTypePurgeRefreshTokens, w.handle)
	w.mux.HandleFunc(TaskTypeCleanupAuditLogs, w.handle)
	return w
}

func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.running = true
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		logger.Infof("[Worker] Starting async worker...")
		if err := w.server.Run(w.mux); err != nil {
			logger.Errorf("[Worker] Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	logger.Infof("[Worker] Shutting down...")
	w.server.Shutdown()
	w.running = false
	w.wg.Wait()
	logger.Infof("[Worker] Shutdown complete")
}

func (w *Worker) handle(ctx context.Context, t *asynq.Task) error {
	task, err := decodeMaintenanceTask(t)
	if err != nil {
		return err
	}
	if w.processor == nil {
		logger.Warnf("[Worker] no processor set, task %s dropped", task.Type)
		return nil
	}
	return w.processor(ctx, task)
}

func decodeMaintenanceTask(t *asynq.Task) (*MaintenanceTask, error) {
	var task MaintenanceTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", asynq.SkipRetry, t.Type(), err)
	}
	if task.Type == "" {
		task.Type = t.Type()
	}
	return &task, nil
}
