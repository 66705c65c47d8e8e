package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pribylovaa/report-board/internal/models"
)

// FileSnapshots хранит снимки файлами <dir>/<view>.json.
type FileSnapshots struct {
	dir string
}

// NewFileSnapshots создаёт каталог снимков, если его нет.
func NewFileSnapshots(dir string) (*FileSnapshots, error) {
	const op = "cache.file.NewFileSnapshots"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &FileSnapshots{dir: dir}, nil
}

// Path возвращает путь снимка представления.
func (f *FileSnapshots) Path(view models.ViewID) string {
	return filepath.Join(f.dir, string(view)+".json")
}

// Save пишет снимок во временный файл в том же каталоге и переименовывает его.
// Читатель видит либо старый документ целиком, либо новый.
func (f *FileSnapshots) Save(_ context.Context, view models.ViewID, doc []byte) error {
	const op = "cache.file.Save"

	tmp, err := os.CreateTemp(f.dir, string(view)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	tmpPath := tmp.Name()

	_, err = tmp.Write(doc)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmpPath, f.Path(view))
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Load читает снимок представления.
func (f *FileSnapshots) Load(_ context.Context, view models.ViewID) ([]byte, bool, error) {
	const op = "cache.file.Load"

	doc, err := os.ReadFile(f.Path(view))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	return doc, true, nil
}

var _ SnapshotSink = (*FileSnapshots)(nil)
