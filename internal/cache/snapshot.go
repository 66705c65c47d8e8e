package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pribylovaa/report-board/internal/models"
	"github.com/pribylovaa/report-board/pkg/log"
)

// SnapshotSink - место хранения снимков: один компактный JSON-документ на представление.
type SnapshotSink interface {
	// Save атомарно заменяет снимок представления.
	Save(ctx context.Context, view models.ViewID, doc []byte) error
	// Load возвращает снимок и признак его наличия.
	Load(ctx context.Context, view models.ViewID) ([]byte, bool, error)
}

// Snapshotting - декоратор Backend: после каждого успешного Set пишет
// группировку в SnapshotSink, а Restore поднимает снимки при холодном старте.
type Snapshotting struct {
	inner Backend
	sink  SnapshotSink
}

// NewSnapshotting оборачивает inner.
func NewSnapshotting(inner Backend, sink SnapshotSink) *Snapshotting {
	return &Snapshotting{inner: inner, sink: sink}
}

// Get читает запись из внутреннего бэкенда.
func (s *Snapshotting) Get(ctx context.Context, view models.ViewID) (Entry, bool, error) {
	return s.inner.Get(ctx, view)
}

// Set пишет запись во внутренний бэкенд, затем снимок.
//
// Ошибка снимка не откатывает кэш и не возвращается вызывающему: снимок
// нужен только для холодного старта, она логируется.
func (s *Snapshotting) Set(ctx context.Context, view models.ViewID, e Entry) error {
	const op = "cache.snapshot.Set"

	if err := s.inner.Set(ctx, view, e); err != nil {
		return err
	}

	if e.Restored {
		return nil
	}

	doc, err := json.Marshal(e.Data)
	if err == nil {
		err = s.sink.Save(ctx, view, doc)
	}
	if err != nil {
		log.From(ctx).Warn("snapshot_save_failed",
			slog.String("op", op),
			slog.String("view", string(view)),
			slog.String("err", err.Error()),
		)
	}

	return nil
}

// Restore загружает снимки в пустые записи внутреннего бэкенда.
// Уже заполненные представления не трогаются. Возвращает число восстановленных представлений.
func (s *Snapshotting) Restore(ctx context.Context) (int, error) {
	const op = "cache.snapshot.Restore"

	lg := log.From(ctx)
	restored := 0

	for _, view := range models.Views {
		if _, ok, err := s.inner.Get(ctx, view); err == nil && ok {
			continue
		}

		doc, ok, err := s.sink.Load(ctx, view)
		if err != nil {
			return restored, fmt.Errorf("%s: load %s: %w", op, view, err)
		}
		if !ok {
			continue
		}

		g := models.NewGrouping()
		if err := json.Unmarshal(doc, g); err != nil {
			lg.Warn("snapshot_corrupt",
				slog.String("op", op),
				slog.String("view", string(view)),
				slog.String("err", err.Error()),
			)
			continue
		}

		if err := s.inner.Set(ctx, view, Entry{Data: g, Restored: true}); err != nil {
			return restored, fmt.Errorf("%s: set %s: %w", op, view, err)
		}

		restored++
		lg.Info("snapshot_restored",
			slog.String("op", op),
			slog.String("view", string(view)),
			slog.Int("entries", g.Count()),
		)
	}

	return restored, nil
}

// Close закрывает внутренний бэкенд.
func (s *Snapshotting) Close() error { return s.inner.Close() }

var _ Backend = (*Snapshotting)(nil)
