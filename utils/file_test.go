package utils

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func writeWithTime(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	test.That(t, os.WriteFile(path, []byte("x"), 0o644), test.ShouldBeNil)
	test.That(t, os.Chtimes(path, mtime, mtime), test.ShouldBeNil)
}

func TestIsStale(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "raw.ot")
	artifact := filepath.Join(dir, "raw.ot.aug")
	now := time.Now()

	t.Run("missing source", func(t *testing.T) {
		_, err := IsStale(artifact, source)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "does not exist")
	})

	writeWithTime(t, source, now.Add(-time.Hour))

	t.Run("missing artifact", func(t *testing.T) {
		stale, err := IsStale(artifact, source)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, stale, test.ShouldBeTrue)
	})

	t.Run("artifact older than source", func(t *testing.T) {
		writeWithTime(t, artifact, now.Add(-2*time.Hour))
		stale, err := IsStale(artifact, source)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, stale, test.ShouldBeTrue)
	})

	t.Run("artifact as old as source", func(t *testing.T) {
		writeWithTime(t, artifact, now.Add(-time.Hour))
		stale, err := IsStale(artifact, source)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, stale, test.ShouldBeFalse)
	})

	t.Run("artifact newer than source", func(t *testing.T) {
		writeWithTime(t, artifact, now)
		stale, err := IsStale(artifact, source)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, stale, test.ShouldBeFalse)
	})
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.bin")

	err := WriteFileAtomic(path, func(w io.Writer) error {
		_, err := w.Write([]byte("hello"))
		return err
	})
	test.That(t, err, test.ShouldBeNil)
	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqual, "hello")
	test.That(t, FileSize(path), test.ShouldEqual, 5)

	// a failed write leaves the previous file untouched and no temp files behind
	err = WriteFileAtomic(path, func(w io.Writer) error {
		if _, err := w.Write([]byte("partial")); err != nil {
			return err
		}
		return errors.New("whoops")
	})
	test.That(t, err, test.ShouldBeError, errors.New("whoops"))
	data, err = os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqual, "hello")

	entries, err := os.ReadDir(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(entries), test.ShouldEqual, 1)
}

func TestRemoveFileNoError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone")
	RemoveFileNoError(path)
	test.That(t, os.WriteFile(path, nil, 0o644), test.ShouldBeNil)
	RemoveFileNoError(path)
	_, ok, err := ModTime(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestConfigValidationError(t *testing.T) {
	err := NewConfigValidationFieldRequiredError("augmentation", "reach")
	test.That(t, err.Error(), test.ShouldEqual, `error validating "augmentation": "reach" is required`)
	test.That(t, IsConfigValidationError(err), test.ShouldBeTrue)
	test.That(t, IsConfigValidationError(errors.Wrap(err, "reading config")), test.ShouldBeTrue)
	test.That(t, IsConfigValidationError(errors.New("other")), test.ShouldBeFalse)
}
