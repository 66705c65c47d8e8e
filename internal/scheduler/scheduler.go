// scheduler запускает периодические задачи по cron-расписанию (robfig/cron/v3).
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pribylovaa/report-board/pkg/log"
)

// DefaultSpec - обновление кэша дважды в час, в :10 и :40.
const DefaultSpec = "10,40 * * * *"

// Job - задача расписания. ctx отменяется при Stop.
type Job func(ctx context.Context)

// Scheduler - обёртка над cron.Cron с часовым поясом и логированием через slog.
//
// Особенности:
//   - паника в задаче перехватывается и логируется;
//   - запуск задачи пропускается, если предыдущий ещё выполняется.
type Scheduler struct {
	cron     *cron.Cron
	location *time.Location
	ctx      context.Context
	cancel   context.CancelFunc

	mu      sync.Mutex
	started bool
}

// New создаёт планировщик в часовом поясе timezone (пустая строка -> UTC).
// lg используется и для событий cron, и как логгер в ctx задач.
func New(timezone string, lg *slog.Logger) (*Scheduler, error) {
	const op = "scheduler.New"

	if timezone == "" {
		timezone = "UTC"
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("%s: load timezone %q: %w", op, timezone, err)
	}

	if lg == nil {
		lg = slog.Default()
	}
	cl := cronLogger{lg: lg}

	ctx, cancel := context.WithCancel(log.Into(context.Background(), lg))

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		location: loc,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Location возвращает часовой пояс расписания.
func (s *Scheduler) Location() *time.Location { return s.location }

// Schedule добавляет задачу name по выражению spec (5 полей или @every/@hourly).
func (s *Scheduler) Schedule(spec, name string, job Job) error {
	const op = "scheduler.Schedule"

	_, err := s.cron.AddFunc(spec, func() {
		lg := log.From(s.ctx).With(slog.String("job", name))
		ctx := log.Into(s.ctx, lg)

		start := time.Now()
		job(ctx)
		lg.Debug("job_done", slog.Duration("elapsed", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("%s: spec %q: %w", op, spec, err)
	}

	return nil
}

// Entries возвращает число зарегистрированных задач.
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }

// Next возвращает время ближайшего запуска среди задач (нулевое, если задач нет
// или планировщик не запущен).
func (s *Scheduler) Next() time.Time {
	var next time.Time
	for _, e := range s.cron.Entries() {
		if next.IsZero() || (!e.Next.IsZero() && e.Next.Before(next)) {
			next = e.Next
		}
	}

	return next
}

// Start запускает планировщик в фоне; повторный вызов ничего не делает.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		s.cron.Start()
		s.started = true
	}
}

// Stop останавливает планировщик, отменяет ctx задач и ждёт
// завершения выполняющихся задач, но не дольше ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()

	s.cancel()
	if !started {
		return nil
	}

	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger - адаптер cron.Logger поверх slog.
type cronLogger struct {
	lg *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.lg.Debug("cron_"+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]any{slog.String("err", err.Error())}, keysAndValues...)
	l.lg.Error("cron_"+msg, args...)
}

// cronParser - стандартный разбор 5 полей с дескрипторами (@every, @hourly).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate проверяет выражение расписания без регистрации задачи.
func Validate(spec string) error {
	if _, err := cronParser.Parse(spec); err != nil {
		return fmt.Errorf("scheduler.Validate: spec %q: %w", spec, err)
	}

	return nil
}
