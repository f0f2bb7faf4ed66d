package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/pkg/scheduler"
)

// Scheduled task names.
const (
	TaskOverduePayments = "overdue-payments"
	TaskExportCleanup   = "export-cleanup"
	TaskTokenCleanup    = "token-cleanup"
)

type overdueSweeper interface {
	SweepOverdue(ctx context.Context) (int, error)
}

type exportJanitor interface {
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type expiredTokenPurger interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type taskRegistry interface {
	Add(name, spec string, task scheduler.Task) error
}

// MaintenanceSchedule holds cron specs; an empty spec disables the task.
type MaintenanceSchedule struct {
	OverduePayments string
	ExportCleanup   string
	TokenCleanup    string
	ExportRetention time.Duration
}

// MaintenanceService runs periodic housekeeping.
type MaintenanceService struct {
	payments overdueSweeper
	exports  exportJanitor
	tokens   expiredTokenPurger
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

func NewMaintenanceService(payments overdueSweeper, exports exportJanitor, tokens expiredTokenPurger, metrics *MetricsService, logger *zap.Logger) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceService{
		payments: payments,
		exports:  exports,
		tokens:   tokens,
		metrics:  metrics,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register adds the housekeeping tasks to registry.
func (s *MaintenanceService) Register(registry taskRegistry, schedule MaintenanceSchedule) error {
	tasks := []struct {
		name string
		spec string
		task scheduler.Task
	}{
		{TaskOverduePayments, schedule.OverduePayments, s.SweepOverduePayments},
		{TaskExportCleanup, schedule.ExportCleanup, func(ctx context.Context) error {
			return s.CleanupExports(ctx, schedule.ExportRetention)
		}},
		{TaskTokenCleanup, schedule.TokenCleanup, s.PurgeExpiredTokens},
	}
	for _, t := range tasks {
		if t.spec == "" {
			continue
		}
		if err := registry.Add(t.name, t.spec, s.instrument(t.name, t.task)); err != nil {
			return err
		}
	}
	return nil
}

// SweepOverduePayments flags overdue charges.
func (s *MaintenanceService) SweepOverduePayments(ctx context.Context) error {
	if s.payments == nil {
		return nil
	}
	_, err := s.payments.SweepOverdue(ctx)
	return err
}

// CleanupExports deletes generated files older than retention.
func (s *MaintenanceService) CleanupExports(_ context.Context, retention time.Duration) error {
	if s.exports == nil {
		return nil
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	removed, err := s.exports.CleanupOlderThan(retention)
	if err != nil {
		return err
	}
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
	}
	return nil
}

// PurgeExpiredTokens deletes refresh tokens past their expiry.
func (s *MaintenanceService) PurgeExpiredTokens(ctx context.Context) error {
	if s.tokens == nil {
		return nil
	}
	deleted, err := s.tokens.DeleteExpired(ctx, s.now())
	if err != nil {
		return err
	}
	if deleted > 0 {
		s.logger.Info("expired refresh tokens purged", zap.Int64("count", deleted))
	}
	return nil
}

func (s *MaintenanceService) instrument(name string, task scheduler.Task) scheduler.Task {
	return func(ctx context.Context) error {
		err := task(ctx)
		s.metrics.RecordScheduledRun(name, err)
		return err
	}
}
