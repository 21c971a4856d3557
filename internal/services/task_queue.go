package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/huangang/taskmanager/internal/config"
	"github.com/huangang/taskmanager/pkg/logger"
)

const (
	TaskTypePurgeRefreshTokens = "maintenance:purge_refresh_tokens"
	TaskTypeCleanupAuditLogs   = "maintenance:cleanup_audit_logs"
)

// MaintenanceTask is one unit of housekeeping work.
type MaintenanceTask struct {
	Type          string    `json:"type"`
	RetentionDays int       `json:"retention_days,omitempty"`
	ScheduledAt   time.Time `json:"scheduled_at"`
}

// TaskProcessor executes a maintenance task.
type TaskProcessor func(context.Context, *MaintenanceTask) error

// TaskQueue defines the interface for maintenance task dispatch
type TaskQueue interface {
	// Enqueue adds a task to the queue
	Enqueue(task *MaintenanceTask) error
	// IsAsync returns true if queue processes tasks asynchronously
	IsAsync() bool
	// Close gracefully shuts down the queue
	Close() error
}

// NewTaskQueue picks the Redis-backed queue when enabled and reachable and
// falls back to in-process execution otherwise.
func NewTaskQueue(cfg *config.RedisConfig, processor TaskProcessor) TaskQueue {
	if cfg.Enabled {
		queue, err := NewAsyncQueue(cfg)
		if err != nil {
			logger.Warnf("[TaskQueue] Redis unavailable, falling back to sync mode: %v", err)
			return NewSyncQueue(processor)
		}
		logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Addr)
		return queue
	}
	logger.Infof("[TaskQueue] Sync queue initialized (Redis disabled)")
	return NewSyncQueue(processor)
}

func redisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// AsyncQueue implements TaskQueue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

// NewAsyncQueue creates a new Redis-based async queue
func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	opt := redisOpt(cfg)
	client := asynq.NewClient(opt)

	// Test connection by pinging Redis
	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

// Enqueue adds a task to the async queue. Several instances may run the same
// schedule, so duplicates within the uniqueness window are dropped.
func (q *AsyncQueue) Enqueue(task *MaintenanceTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	t := asynq.NewTask(task.Type, payload)
	info, err := q.client.Enqueue(t,
		asynq.Queue("maintenance"),
		asynq.MaxRetry(3),
		asynq.Unique(10*time.Minute),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		logger.Debug().Str("type", task.Type).Msg("[AsyncQueue] duplicate task skipped")
		return nil
	}
	if err != nil {
		return err
	}

	logger.Infof("[AsyncQueue] Task enqueued: id=%s, queue=%s", info.ID, info.Queue)
	return nil
}

func (q *AsyncQueue) IsAsync() bool {
	return true
}

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue runs tasks in background goroutines of this process.
type SyncQueue struct {
	processor TaskProcessor
	wg        sync.WaitGroup
}

func NewSyncQueue(processor TaskProcessor) *SyncQueue {
	return &SyncQueue{processor: processor}
}

// Enqueue starts the task and returns without waiting for it.
func (q *SyncQueue) Enqueue(task *MaintenanceTask) error {
	if q.processor == nil {
		logger.Warnf("[SyncQueue] no processor set, task %s dropped", task.Type)
		return nil
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := q.processor(context.Background(), task); err != nil {
			logger.Errorf("[SyncQueue] Task %s failed: %v", task.Type, err)
		}
	}()

	return nil
}

func (q *SyncQueue) IsAsync() bool {
	return false
}

// Close waits for running tasks to finish.
func (q *SyncQueue) Close() error {
	q.wg.Wait()
	return nil
}
