package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/huangang/taskmanager/internal/config"
	"github.com/huangang/taskmanager/pkg/logger"
	"github.com/robfig/cron/v3"
)

type refreshTokenPurger interface {
	PurgeRefreshTokens(ctx context.Context) (int64, error)
}

type auditLogCleaner interface {
	Cleanup(ctx context.Context, retentionDays int) (int64, error)
}

// MaintenanceService executes housekeeping tasks. Its Process method is the
// TaskProcessor shared by SyncQueue and Worker.
type MaintenanceService struct {
	tokens refreshTokenPurger
	audit  auditLogCleaner
}

func NewMaintenanceService(tokens refreshTokenPurger, audit auditLogCleaner) *MaintenanceService {
	return &MaintenanceService{tokens: tokens, audit: audit}
}

func (m *MaintenanceService) Process(ctx context.Context, task *MaintenanceTask) error {
	switch task.Type {
	case TaskTypePurgeRefreshTokens:
		n, err := m.tokens.PurgeRefreshTokens(ctx)
		if err != nil {
			return fmt.Errorf("purge refresh tokens: %w", err)
		}
		logger.Info().Int64("deleted", n).Msg("[Maintenance] refresh tokens purged")
	case TaskTypeCleanupAuditLogs:
		if m.audit == nil {
			return nil
		}
		n, err := m.audit.Cleanup(ctx, task.RetentionDays)
		if err != nil {
			return fmt.Errorf("cleanup audit logs: %w", err)
		}
		logger.Info().Int64("deleted", n).Int("retention_days", task.RetentionDays).Msg("[Maintenance] audit logs cleaned")
	default:
		return fmt.Errorf("unknown maintenance task type %q", task.Type)
	}
	return nil
}

// MaintenanceScheduler enqueues the periodic housekeeping tasks.
type MaintenanceScheduler struct {
	queue         TaskQueue
	schedule      string
	retentionDays int
	now           func() time.Time

	mu             sync.Mutex
	cronScheduler  *cron.Cron
	currentEntryID cron.EntryID
}

func NewMaintenanceScheduler(cfg config.MaintenanceConfig, queue TaskQueue) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		queue:         queue,
		schedule:      cfg.TokenCleanupSchedule,
		retentionDays: cfg.LogRetentionDays,
		now:           time.Now,
	}
}

// Start registers the schedule and starts the cron runner. An invalid
// schedule is returned as an error and nothing is started.
func (s *MaintenanceScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cronScheduler != nil {
		return nil
	}
	if s.schedule == "" {
		logger.Infof("[Maintenance] No schedule configured, scheduler disabled")
		return nil
	}

	c := cron.New()
	entryID, err := c.AddFunc(s.schedule, s.RunNow)
	if err != nil {
		return fmt.Errorf("invalid maintenance schedule %q: %w", s.schedule, err)
	}

	s.cronScheduler = c
	s.currentEntryID = entryID
	c.Start()
	logger.Infof("[Maintenance] Scheduler started with schedule %q", s.schedule)
	return nil
}

// Stop halts the scheduler and waits for a running tick to return.
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	c := s.cronScheduler
	s.cronScheduler = nil
	s.currentEntryID = 0
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	logger.Infof("[Maintenance] Scheduler stopped")
}

// NextRun reports when the next tick fires, or the zero time when stopped.
func (s *MaintenanceScheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cronScheduler == nil {
		return time.Time{}
	}
	return s.cronScheduler.Entry(s.currentEntryID).Next
}

// RunNow enqueues one round of housekeeping immediately.
func (s *MaintenanceScheduler) RunNow() {
	scheduledAt := s.now()
	tasks := []*MaintenanceTask{
		{Type: TaskTypePurgeRefreshTokens, ScheduledAt: scheduledAt},
		{Type: TaskTypeCleanupAuditLogs, RetentionDays: s.retentionDays, ScheduledAt: scheduledAt},
	}
	for _, task := range tasks {
		if err := s.queue.Enqueue(task); err != nil {
			logger.Errorf("[Maintenance] Failed to enqueue %s: %v", task.Type, err)
		}
	}
}
