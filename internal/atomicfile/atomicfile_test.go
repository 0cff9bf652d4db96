package atomicfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestWriteFile_CreatesParentsAndContent(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a", "b", "out.json")

	err := WriteFile(target, func(w io.Writer) error {
		_, err := io.WriteString(w, `{"ok":true}`)
		return err
	})
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))
	assert.Equal(t, []string{"out.json"}, listDir(t, filepath.Dir(target)))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, DefaultFilePerm, info.Mode().Perm())
}

func TestWriteFile_ReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o644))

	require.NoError(t, WriteFile(target, func(w io.Writer) error {
		_, err := io.WriteString(w, "new")
		return err
	}))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestWriteFile_CallbackErrorLeavesTargetUntouched(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(target, []byte("original"), 0o644))

	boom := errors.New("boom")
	err := WriteFile(target, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial garbage")
		return boom
	})
	require.ErrorIs(t, err, boom)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
	assert.Equal(t, []string{"out.txt"}, listDir(t, dir), "temporary file must be removed")
}

func TestWriteFile_CallbackErrorNoTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "never.txt")

	err := WriteFile(target, func(w io.Writer) error {
		return fmt.Errorf("nope")
	})
	require.Error(t, err)

	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr))
	assert.Empty(t, listDir(t, dir))
}

func TestWrite_FallsBackWhenRenameNotAtomic(t *testing.T) {
	orig := rename
	rename = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
	}
	t.Cleanup(func() { rename = orig })

	dir := t.TempDir()
	target := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o644))

	require.NoError(t, WriteFile(target, func(w io.Writer) error {
		_, err := io.WriteString(w, "copied")
		return err
	}))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "copied", string(data))
	assert.Equal(t, []string{"out.txt"}, listDir(t, dir))
}

func TestWrite_RenameFailurePropagates(t *testing.T) {
	orig := rename
	denied := errors.New("denied")
	rename = func(string, string) error { return denied }
	t.Cleanup(func() { rename = orig })

	dir := t.TempDir()
	target := filepath.Join(dir, "out.txt")

	err := WriteFile(target, func(w io.Writer) error {
		_, err := io.WriteString(w, "x")
		return err
	})
	require.ErrorIs(t, err, denied)
	assert.Empty(t, listDir(t, dir))
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "doc.json")

	require.NoError(t, WriteJSON(target, map[string]int{"a": 1}))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))
}
