package atomicfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/getmockd/replayd/pkg/logging"
)

// ErrRenameNotAtomic marks a rename the platform refused to perform atomically.
var ErrRenameNotAtomic = errors.New("atomic rename not supported")

// Default permissions for written files and created directories.
const (
	DefaultFilePerm os.FileMode = 0o644
	DefaultDirPerm  os.FileMode = 0o755
)

// rename is swapped in tests to simulate platforms without atomic rename.
var rename = os.Rename

// Writer writes files atomically.
type Writer struct {
	// FilePerm is applied to the target file. Defaults to DefaultFilePerm.
	FilePerm os.FileMode
	// DirPerm is used when creating missing parent directories.
	DirPerm os.FileMode
	// Logger receives best-effort failures (directory sync). Nil discards them.
	Logger *slog.Logger
}

// WriteFile atomically writes the content produced by fn to path using the
// default Writer.
func WriteFile(path string, fn func(w io.Writer) error) error {
	return Writer{}.Write(path, fn)
}

// WriteJSON atomically writes v as indented JSON to path.
func WriteJSON(path string, v any) error {
	return Writer{}.WriteJSON(path, v)
}

// WriteJSON atomically writes v as indented JSON to path.
func (w Writer) WriteJSON(path string, v any) error {
	return w.Write(path, func(out io.Writer) error {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

// Write atomically writes the content produced by fn to path.
func (w Writer) Write(path string, fn func(w io.Writer) error) (err error) {
	filePerm := w.FilePerm
	if filePerm == 0 {
		filePerm = DefaultFilePerm
	}
	dirPerm := w.DirPerm
	if dirPerm == 0 {
		dirPerm = DefaultDirPerm
	}
	log := logging.OrNop(w.Logger)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	renamed := false
	defer func() {
		if !renamed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := fn(tmp); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Chmod(tmpPath, filePerm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := atomicReplace(tmpPath, path); err != nil {
		if !errors.Is(err, ErrRenameNotAtomic) {
			return fmt.Errorf("failed to rename temporary file: %w", err)
		}
		log.Warn("atomic rename unavailable, replacing in place", "path", path, "error", err)
		if err := copyReplace(tmpPath, path, filePerm); err != nil {
			return fmt.Errorf("failed to replace %s: %w", path, err)
		}
		_ = os.Remove(tmpPath)
	}
	renamed = true

	if err := syncDir(dir); err != nil {
		log.Debug("directory sync failed", "dir", dir, "error", err)
	}
	return nil
}

// atomicReplace renames src over dst, classifying errors that mean the
// platform cannot rename atomically.
func atomicReplace(src, dst string) error {
	err := rename(src, dst)
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.EXDEV) || errors.Is(err, syscall.ENOTSUP) {
		return fmt.Errorf("%w: %w", ErrRenameNotAtomic, err)
	}
	return err
}

// copyReplace overwrites dst with the content of src. Not atomic.
func copyReplace(src, dst string, perm os.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()
	return d.Sync()
}
