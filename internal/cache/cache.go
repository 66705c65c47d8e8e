// cache хранит последнюю вычисленную группировку каждого представления
// вместе с отпечатком, из которого она получена.
//
// memory.go   - кэш в памяти процесса (atomic.Pointer на представление);
// redis.go    - внешний кэш в Redis с TTL;
// snapshot.go - декоратор, сохраняющий снимки группировок в файл или S3 и
// восстанавливающий их при холодном старте.
package cache

import (
	"context"
	"errors"

	"github.com/pribylovaa/report-board/internal/models"
)

// ErrCorruptEntry - запись кэша есть, но её не удалось разобрать.
var ErrCorruptEntry = errors.New("corrupt cache entry")

// Entry - состояние кэша одного представления.
//
// Data и Fingerprint всегда записываются вместе одной операцией Set.
// Restored == true означает, что Data поднята из снимка и отпечатка у неё нет:
// такую запись нельзя считать свежей ни при каком отпечатке хранилища.
type Entry struct {
	Data        *models.Grouping
	Fingerprint models.Fingerprint
	Restored    bool
}

// Backend - контракт хранилища записей кэша.
type Backend interface {
	// Get возвращает запись и признак её наличия.
	Get(ctx context.Context, view models.ViewID) (Entry, bool, error)
	// Set атомарно заменяет запись представления.
	Set(ctx context.Context, view models.ViewID, e Entry) error
	// Close освобождает ресурсы бэкенда.
	Close() error
}
