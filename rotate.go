package logsetup

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Station-Manager/errors"
)

// RotatingFile is an io.WriteCloser that rolls the active file over to
// numbered backups once a write would take it past MaxBytes:
//
//	warnings.log -> warnings.log.1 -> warnings.log.2 -> ... -> warnings.log.N (dropped)
//
// Writes and the rotation check happen under one mutex. Several processes
// writing the same path are not coordinated.
type RotatingFile struct {
	path        string
	maxBytes    int64
	backupCount int

	mu      sync.Mutex
	file    *os.File
	written int64
}

// NewRotatingFile opens (or creates) path for appending. Rotation never
// happens when maxBytes or backupCount is zero; the file just grows.
func NewRotatingFile(path string, maxBytes int64, backupCount int) (*RotatingFile, error) {
	const op errors.Op = "logsetup.NewRotatingFile"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.New(op).Err(err).Msg(errMsgLogDir)
	}
	w := &RotatingFile{
		path:        path,
		maxBytes:    maxBytes,
		backupCount: backupCount,
	}
	if err := w.openFile(); err != nil {
		return nil, errors.New(op).Err(err).Msg(errMsgLogFile)
	}
	return w, nil
}

// Write implements io.Writer. A record is never split across files; a record
// larger than MaxBytes goes into an otherwise empty file.
func (w *RotatingFile) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}

	if w.shouldRotate(int64(len(p))) {
		if err := w.rotate(); err != nil {
			// keep logging to whatever is open rather than dropping the record
			_, _ = fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
			if w.file == nil {
				if oerr := w.openFile(); oerr != nil {
					return 0, oerr
				}
			}
		}
	}

	n, err := w.file.Write(p)
	w.written += int64(n)
	return n, err
}

// Rotate forces a rollover regardless of size. With no backups configured it
// only reopens the file.
func (w *RotatingFile) Rotate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return os.ErrClosed
	}
	return w.rotate()
}

// Close closes the active file. Further writes fail with os.ErrClosed.
func (w *RotatingFile) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// Sync flushes the active file to disk.
func (w *RotatingFile) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

// Filename returns the active file path.
func (w *RotatingFile) Filename() string {
	return w.path
}

func (w *RotatingFile) shouldRotate(n int64) bool {
	if w.maxBytes <= 0 || w.backupCount <= 0 || w.written == 0 {
		return false
	}
	return w.written+n > w.maxBytes
}

func (w *RotatingFile) openFile() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	w.file = f
	w.written = info.Size()
	return nil
}

func (w *RotatingFile) backupName(n int) string {
	return fmt.Sprintf("%s.%d", w.path, n)
}

// rotate shifts backups up by one from the highest slot down, so no rename
// ever overwrites a file that has not been moved yet.
func (w *RotatingFile) rotate() error {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return err
		}
		w.file = nil
	}

	if w.backupCount > 0 {
		for i := w.backupCount - 1; i >= 1; i-- {
			src := w.backupName(i)
			if _, err := os.Stat(src); err != nil {
				continue
			}
			dst := w.backupName(i + 1)
			_ = os.Remove(dst)
			if err := os.Rename(src, dst); err != nil {
				return err
			}
		}
		dst := w.backupName(1)
		_ = os.Remove(dst)
		if err := os.Rename(w.path, dst); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return w.openFile()
}
