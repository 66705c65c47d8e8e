package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pribylovaa/report-board/internal/models"
)

// Memory - кэш в памяти процесса.
// Каждое представление хранится за своим atomic.Pointer: запись публикуется
// целиком, читатели не блокируются и не видят «половину» пары (data, fingerprint).
type Memory struct {
	views sync.Map // models.ViewID -> *atomic.Pointer[Entry]
}

// NewMemory создаёт пустой кэш в памяти.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) slot(view models.ViewID) *atomic.Pointer[Entry] {
	p, _ := m.views.LoadOrStore(view, new(atomic.Pointer[Entry]))
	return p.(*atomic.Pointer[Entry])
}

// Get возвращает копию текущей записи представления.
func (m *Memory) Get(_ context.Context, view models.ViewID) (Entry, bool, error) {
	e := m.slot(view).Load()
	if e == nil {
		return Entry{}, false, nil
	}

	return *e, true, nil
}

// Set публикует новую запись представления.
func (m *Memory) Set(_ context.Context, view models.ViewID, e Entry) error {
	m.slot(view).Store(&e)
	return nil
}

// Close ничего не делает.
func (m *Memory) Close() error { return nil }

var _ Backend = (*Memory)(nil)
