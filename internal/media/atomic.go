package media

import (
	"fmt"
	"os"
	"path/filepath"

	"asciier/internal/logging"
)

// WriteFileAtomic creates a temp file next to path, hands it to write, and
// renames it onto path only when write and Close both succeed. On failure the
// temp file is removed and path is left untouched.
func WriteFileAtomic(path string, write func(f *os.File) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	defer func() {
		if err == nil {
			return
		}
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			logging.Warn("failed to remove temp file %s: %v", tmpPath, rmErr)
		}
	}()

	if err = write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err = os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmpPath, err)
	}
	return nil
}

// WriteTextAtomic writes text to path with the same guarantees as WriteFileAtomic.
func WriteTextAtomic(path, text string) error {
	return WriteFileAtomic(path, func(f *os.File) error {
		_, err := f.WriteString(text)
		return err
	})
}
