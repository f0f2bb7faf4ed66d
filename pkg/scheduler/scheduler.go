package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task is a unit of periodic maintenance work.
type Task func(ctx context.Context) error

// Scheduler runs named tasks on cron specs.
type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
	entries map[string]cron.EntryID
}

// New builds a scheduler. Each task run is bounded by timeout.
func New(logger *zap.Logger, timeout time.Duration) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		logger:  logger,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]cron.EntryID),
	}
}

// Add registers task under name using a standard five field spec or a descriptor like @hourly.
func (s *Scheduler) Add(name, spec string, task Task) error {
	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("task %s already scheduled", name)
	}
	id, err := s.cron.AddFunc(spec, func() { s.run(name, task) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.entries[name] = id
	s.logger.Info("task scheduled", zap.String("task", name), zap.String("spec", spec))
	return nil
}

// RunNow executes a registered task synchronously, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	id, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("task %s not scheduled", name)
	}
	s.cron.Entry(id).Job.Run()
	return nil
}

// Next reports the next activation time for a task.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	id, ok := s.entries[name]
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running tasks to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run(name string, task Task) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	if err := task(ctx); err != nil {
		s.logger.Error("scheduled task failed", zap.String("task", name), zap.Error(err))
		return
	}
	s.logger.Info("scheduled task finished", zap.String("task", name), zap.Duration("duration", time.Since(start)))
}
