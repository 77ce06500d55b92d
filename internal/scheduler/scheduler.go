package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper синхронизирует всех владельцев. *tracker.Service удовлетворяет интерфейсу.
type Sweeper interface {
	SweepAll(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	logger  *slog.Logger
	timeout time.Duration

	// base отменяется в Stop и прерывает текущую сверку.
	base   context.Context
	cancel context.CancelFunc
}

// New регистрирует фоновую сверку по cron-выражению в стандартном формате.
// Запуск пропускается, пока предыдущий еще не закончился.
func New(schedule string, sweeper Sweeper, logger *slog.Logger, timeout time.Duration) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	base, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		sweeper: sweeper,
		logger:  logger,
		timeout: timeout,
		base:    base,
		cancel:  cancel,
	}

	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		cancel()
		return nil, fmt.Errorf("parse reconcile schedule %q: %w", schedule, err)
	}

	return s, nil
}

// Start запускает планировщик в фоне.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop останавливает планировщик и ждет текущую сверку, но не дольше ctx.
// По истечении ctx текущая сверка отменяется.
func (s *Scheduler) Stop(ctx context.Context) {
	defer s.cancel()

	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "reconcile sweep cancelled at shutdown")
	}
}

func (s *Scheduler) run() {
	s.RunOnce(s.base)
}

// Next возвращает время следующего запуска.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Schedule.Next(time.Now())
}

// RunOnce выполняет одну сверку всех владельцев.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	synced, err := s.sweeper.SweepAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "reconcile sweep finished with errors",
			slog.Int("owners", synced),
			slog.Duration("duration", time.Since(started)),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.InfoContext(ctx, "reconcile sweep finished",
		slog.Int("owners", synced),
		slog.Duration("duration", time.Since(started)),
	)
}
