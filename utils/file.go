package utils

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
)

// ModTime returns the modification time of the file at path. The boolean is false if
// the file does not exist.
func ModTime(path string) (time.Time, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return info.ModTime(), true, nil
}

// IsStale reports whether the artifact at artifactPath has to be regenerated from the
// file at sourcePath: that is when the artifact is missing or older than its source.
// A missing source is an error since nothing could be derived from it.
func IsStale(artifactPath, sourcePath string) (bool, error) {
	sourceTime, ok, err := ModTime(sourcePath)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, errors.Errorf("source file %q does not exist", sourcePath)
	}
	artifactTime, ok, err := ModTime(artifactPath)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return artifactTime.Before(sourceTime), nil
}

// WriteFileAtomic writes a file by streaming into a temporary sibling and renaming it
// over path once write succeeded, so that readers only ever see a complete file.
func WriteFileAtomic(path string, write func(w io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			RemoveFileNoError(tmpName)
		}
	}()

	buffered := bufio.NewWriter(tmp)
	if err := write(buffered); err != nil {
		goutils.UncheckedErrorFunc(tmp.Close)
		return err
	}
	if err := buffered.Flush(); err != nil {
		goutils.UncheckedErrorFunc(tmp.Close)
		return err
	}
	if err := multierr.Combine(tmp.Chmod(0o644), tmp.Sync(), tmp.Close()); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// FileSize returns the size in bytes of the file at path, or zero if it does not exist.
func FileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// RemoveFileNoError will remove the file at the given path if it exists. Any
// errors will be suppressed.
func RemoveFileNoError(path string) {
	goutils.UncheckedErrorFunc(func() error {
		if _, err := os.Stat(path); err == nil {
			return os.Remove(path)
		}
		return nil
	})
}
