// service содержит логику обновления и выдачи кэшированных группировок отчётов.
//
// group.go       - построение группировки из строк хранилища;
// coordinator.go - обновление одного представления по отпечатку;
// service.go     - оба представления, политика выдачи, прогрев, выборка по фирме.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pribylovaa/report-board/internal/cache"
	"github.com/pribylovaa/report-board/internal/metrics"
	"github.com/pribylovaa/report-board/internal/models"
	"github.com/pribylovaa/report-board/internal/storage"
	"github.com/pribylovaa/report-board/pkg/log"
)

var (
	// ErrMalformedTimestamp - save_time не в формате YYYY-MM-DDTHH:MM:SS.ffffff.
	// Прерывает весь проход группировки.
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	// ErrUnknownView - запрошено представление, которого нет.
	// Транспорт: 404.
	ErrUnknownView = errors.New("unknown view")
	// ErrInvalidArgument - некорректные входные аргументы.
	// Транспорт: 400.
	ErrInvalidArgument = errors.New("invalid argument")
)

// State - состояние выданной группировки относительно хранилища.
type State string

const (
	// StateFresh - последний refresh успешен, данные соответствуют его отпечатку.
	StateFresh State = "fresh"
	// StateStale - отдаются последние удачные данные: refresh не удался
	// или данные подняты из снимка и ещё не пересчитаны.
	StateStale State = "stale"
	// StateEmpty - данных нет: первый refresh ещё не удался.
	StateEmpty State = "empty"
)

// Policy - когда выдача запускает refresh при непустом кэше.
type Policy string

const (
	// PolicyEager - refresh перед каждой выдачей (по умолчанию).
	PolicyEager Policy = "eager"
	// PolicyBackground - выдать кэш, затем запустить refresh в фоне.
	PolicyBackground Policy = "background"
)

// ParsePolicy разбирает политику; пустая строка -> PolicyEager.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyEager:
		return PolicyEager, nil
	case PolicyBackground:
		return PolicyBackground, nil
	default:
		return "", fmt.Errorf("%w: policy %q", ErrInvalidArgument, s)
	}
}

// Options - настройки Service.
//
// Особенности:
//   - StoreTimeout <= 0 -> вызовы хранилища ограничены только ctx;
//   - ReferenceDate задаёт фиксированное «сегодня» для окна дат, иначе берётся Clock();
//   - Location - часовой пояс, в котором считается «сегодня» (nil -> UTC).
type Options struct {
	Policy        Policy
	StoreTimeout  time.Duration
	ReferenceDate time.Time
	Location      *time.Location
	Clock         func() time.Time
}

// Service - кэш двух представлений отчётов поверх ReportStorage.
type Service struct {
	store  storage.ReportStorage
	cache  cache.Backend
	opts   Options
	coords map[models.ViewID]*Coordinator

	sf     singleflight.Group
	bgMu   sync.Mutex // защищает closed и bg.Add от гонки с Close
	closed bool
	bg     sync.WaitGroup
	bgCtx  context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
}

// New создаёт Service с координаторами для models.Views.
func New(store storage.ReportStorage, backend cache.Backend, opts Options) *Service {
	if opts.Policy == "" {
		opts.Policy = PolicyEager
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	s := &Service{
		store:  store,
		cache:  backend,
		opts:   opts,
		coords: make(map[models.ViewID]*Coordinator, len(models.Views)),
	}
	s.bgCtx, s.cancel = context.WithCancel(context.Background())

	s.coords[models.ViewRecent] = newCoordinator(models.ViewRecent, store, backend,
		store.FetchRecent, SaveTimeDayKey, s.ReferenceDate, opts.StoreTimeout)
	s.coords[models.ViewDaily] = newCoordinator(models.ViewDaily, store, backend,
		store.FetchWindowed, RegDateKey, s.ReferenceDate, opts.StoreTimeout)

	return s
}

// ReferenceDate возвращает «сегодня» для окна дат.
func (s *Service) ReferenceDate() time.Time {
	if !s.opts.ReferenceDate.IsZero() {
		return s.opts.ReferenceDate
	}

	now := s.opts.Clock().In(s.opts.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Coordinator возвращает координатор представления.
func (s *Service) Coordinator(view models.ViewID) (*Coordinator, error) {
	c, ok := s.coords[view]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, view)
	}

	return c, nil
}

// Ready сообщает, завершён ли прогрев.
func (s *Service) Ready() bool { return s.ready.Load() }

// Initialize выполняет первый refresh всех представлений.
//
// Прогрев считается завершённым и при ошибках: выдача в этом случае
// отдаёт последние удачные данные или пустую группировку.
// Ошибки возвращаются вызывающему для логирования.
func (s *Service) Initialize(ctx context.Context) error {
	const op = "service.Initialize"

	err := s.RefreshAll(ctx)
	s.ready.Store(true)

	log.From(ctx).Info("warmup_done",
		slog.String("op", op),
		slog.Bool("ok", err == nil),
	)

	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RefreshAll обновляет все представления по очереди.
// Ошибка одного представления не мешает остальным; ошибки объединяются.
func (s *Service) RefreshAll(ctx context.Context) error {
	const op = "service.RefreshAll"

	var errs []error
	for _, view := range models.Views {
		if _, err := s.coords[view].Refresh(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s: %w", op, errors.Join(errs...))
	}

	return nil
}

// ForceRefresh обновляет представление и возвращает исход и отпечаток кэша после него.
func (s *Service) ForceRefresh(ctx context.Context, view models.ViewID) (Outcome, models.Fingerprint, error) {
	const op = "service.ForceRefresh"

	c, err := s.Coordinator(view)
	if err != nil {
		return "", models.Fingerprint{}, fmt.Errorf("%s: %w", op, err)
	}

	out, err := c.Refresh(ctx)
	if err != nil {
		return "", models.Fingerprint{}, fmt.Errorf("%s: %w", op, err)
	}

	e, _, err := s.cache.Get(ctx, view)
	if err != nil {
		return out, models.Fingerprint{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, e.Fingerprint, nil
}

// CurrentGrouping возвращает группировку представления.
//
// Особенности:
//   - пустой кэш -> синхронный refresh; при неудаче пустая группировка и StateEmpty;
//   - PolicyEager -> refresh перед выдачей; при неудаче последние данные и StateStale;
//   - PolicyBackground -> выдача из кэша, refresh в фоне (один на представление);
//   - ошибки хранилища в выдачу не пробрасываются, только логируются.
func (s *Service) CurrentGrouping(ctx context.Context, view models.ViewID) (*models.Grouping, State, error) {
	const op = "service.CurrentGrouping"

	c, err := s.Coordinator(view)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	lg := log.From(ctx).With(slog.String("op", op), slog.String("view", string(view)))

	e, ok := s.cached(ctx, view)
	switch {
	case !ok:
		if _, err := c.Refresh(ctx); err != nil {
			lg.Warn("lazy_refresh_failed", slog.String("err", err.Error()))
		}
		e, ok = s.cached(ctx, view)

	case s.opts.Policy == PolicyBackground:
		s.refreshAsync(ctx, c)

	default:
		if _, err := c.Refresh(ctx); err != nil {
			lg.Warn("eager_refresh_failed", slog.String("err", err.Error()))
		} else if fresh, found := s.cached(ctx, view); found {
			e = fresh
		}
	}

	g, state := s.serve(c, e, ok)
	metrics.RecordServe(string(view), string(state))

	return g, state, nil
}

func (s *Service) serve(c *Coordinator, e cache.Entry, ok bool) (*models.Grouping, State) {
	if !ok || e.Data == nil {
		return models.NewGrouping(), StateEmpty
	}

	if e.Restored || c.Failing() {
		return e.Data, StateStale
	}

	return e.Data, StateFresh
}

// cached читает кэш; ошибка бэкенда логируется и читается как промах.
func (s *Service) cached(ctx context.Context, view models.ViewID) (cache.Entry, bool) {
	e, ok, err := s.cache.Get(ctx, view)
	if err != nil {
		log.From(ctx).Warn("cache_get_failed",
			slog.String("op", "service.cached"),
			slog.String("view", string(view)),
			slog.String("err", err.Error()),
		)
		return cache.Entry{}, false
	}

	return e, ok
}

// refreshAsync запускает фоновый refresh; параллельные запуски для
// одного представления схлопываются в один. После Close ничего не запускает.
func (s *Service) refreshAsync(ctx context.Context, c *Coordinator) {
	bgCtx := log.Into(s.bgCtx, log.From(ctx))

	s.bgMu.Lock()
	if s.closed {
		s.bgMu.Unlock()
		return
	}
	s.bg.Add(1)
	s.bgMu.Unlock()

	go func() {
		defer s.bg.Done()

		_, err, _ := s.sf.Do(string(c.View()), func() (any, error) {
			return c.Refresh(bgCtx)
		})
		if err != nil {
			log.From(bgCtx).Warn("background_refresh_failed",
				slog.String("op", "service.refreshAsync"),
				slog.String("view", string(c.View())),
				slog.String("err", err.Error()),
			)
		}
	}()
}

// FirmReports возвращает группировку «по дням» только для одной фирмы.
// Результат не кэшируется.
func (s *Service) FirmReports(ctx context.Context, firmOrder int) (*models.Grouping, error) {
	const op = "service.FirmReports"

	if firmOrder < 0 {
		return nil, fmt.Errorf("%s: %w: firm order %d", op, ErrInvalidArgument, firmOrder)
	}

	sctx, cancel := withTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	rows, err := s.store.FetchWindowed(sctx, models.FetchOptions{
		ReferenceDate: s.ReferenceDate(),
		FirmOrder:     &firmOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	g, err := GroupRows(rows, RegDateKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return g, nil
}

// Close останавливает фоновые обновления и дожидается их завершения.
// Повторный вызов безопасен.
func (s *Service) Close() {
	s.bgMu.Lock()
	s.closed = true
	s.bgMu.Unlock()

	s.cancel()
	s.bg.Wait()
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, d)
}
