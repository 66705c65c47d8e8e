package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pribylovaa/report-board/internal/cache"
	"github.com/pribylovaa/report-board/internal/metrics"
	"github.com/pribylovaa/report-board/internal/models"
	"github.com/pribylovaa/report-board/internal/storage"
	"github.com/pribylovaa/report-board/pkg/log"
)

// Outcome - исход refresh.
type Outcome string

const (
	// OutcomeSkipped - отпечаток совпал с кэшем, ничего не пересчитано.
	OutcomeSkipped Outcome = Outcome(metrics.OutcomeSkipped)
	// OutcomeUpdated - группировка пересчитана и опубликована.
	OutcomeUpdated Outcome = Outcome(metrics.OutcomeUpdated)
)

type fetchFunc func(ctx context.Context, opts models.FetchOptions) ([]models.ReportRow, error)

// Coordinator обновляет кэш одного представления.
//
// Обновления одного представления сериализованы мьютексом: параллельные
// вызовы не пересчитывают группировку дважды и не перетирают запись в обратном порядке.
// Разные представления обновляются независимо.
type Coordinator struct {
	view    models.ViewID
	store   storage.ReportStorage
	cache   cache.Backend
	fetch   fetchFunc
	dateKey DateKeyFunc
	refDate func() time.Time
	timeout time.Duration

	mu      sync.Mutex
	failing atomic.Bool
}

func newCoordinator(
	view models.ViewID,
	store storage.ReportStorage,
	backend cache.Backend,
	fetch fetchFunc,
	dateKey DateKeyFunc,
	refDate func() time.Time,
	timeout time.Duration,
) *Coordinator {
	return &Coordinator{
		view:    view,
		store:   store,
		cache:   backend,
		fetch:   fetch,
		dateKey: dateKey,
		refDate: refDate,
		timeout: timeout,
	}
}

// View возвращает представление координатора.
func (c *Coordinator) View() models.ViewID { return c.view }

// Failing сообщает, завершился ли последний refresh ошибкой.
func (c *Coordinator) Failing() bool { return c.failing.Load() }

// Refresh сверяет отпечаток хранилища с кэшем и при расхождении
// пересчитывает группировку.
//
// Порядок:
//  1. прочитать MAX(save_time);
//  2. совпал с отпечатком кэша (в том числе оба отсутствуют) -> OutcomeSkipped;
//  3. иначе выбрать строки, сгруппировать и одной операцией записать (data, fingerprint).
//
// Запись, поднятая из снимка, пересчитывается всегда. При любой ошибке
// кэш остаётся прежним.
func (c *Coordinator) Refresh(ctx context.Context) (Outcome, error) {
	const op = "service.coordinator.Refresh"

	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	out, count, err := c.refreshLocked(ctx)
	elapsed := time.Since(start)

	lg := log.From(ctx)
	if err != nil {
		c.failing.Store(true)
		metrics.RecordRefresh(string(c.view), metrics.OutcomeFailed, elapsed)
		lg.Warn("refresh_failed",
			slog.String("op", op),
			slog.String("view", string(c.view)),
			slog.Duration("elapsed", elapsed),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("%s: %s: %w", op, c.view, err)
	}

	c.failing.Store(false)
	metrics.RecordRefresh(string(c.view), string(out), elapsed)

	if out == OutcomeUpdated {
		metrics.SetCacheEntries(string(c.view), count)
		lg.Info("refresh_updated",
			slog.String("op", op),
			slog.String("view", string(c.view)),
			slog.Int("entries", count),
			slog.Duration("elapsed", elapsed),
		)
	} else {
		lg.Debug("refresh_skipped",
			slog.String("op", op),
			slog.String("view", string(c.view)),
		)
	}

	return out, nil
}

func (c *Coordinator) refreshLocked(ctx context.Context) (Outcome, int, error) {
	current, err := c.lastModified(ctx)
	if err != nil {
		return "", 0, err
	}

	cached, ok, err := c.cache.Get(ctx, c.view)
	if err != nil {
		// битая или недоступная запись не мешает пересчёту
		log.From(ctx).Warn("cache_get_failed",
			slog.String("view", string(c.view)),
			slog.String("err", err.Error()),
		)
		ok = false
	}

	if ok && !cached.Restored && cached.Fingerprint.Equal(current) {
		return OutcomeSkipped, 0, nil
	}

	rows, err := c.rows(ctx)
	if err != nil {
		return "", 0, err
	}

	g, err := GroupRows(rows, c.dateKey)
	if err != nil {
		return "", 0, err
	}

	if err := c.cache.Set(ctx, c.view, cache.Entry{Data: g, Fingerprint: current}); err != nil {
		return "", 0, fmt.Errorf("cache set: %w", err)
	}

	return OutcomeUpdated, g.Count(), nil
}

func (c *Coordinator) lastModified(ctx context.Context) (models.Fingerprint, error) {
	sctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	return c.store.LastModified(sctx)
}

func (c *Coordinator) rows(ctx context.Context) ([]models.ReportRow, error) {
	sctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	return c.fetch(sctx, models.FetchOptions{ReferenceDate: c.refDate()})
}
