package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomicReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.json")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	require.NoError(t, WriteFileAtomic(path, []byte("new"), 0o644, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestWriteFileAtomicAbortLeavesTargetAndNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "content.json")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	var seen string
	abort := errors.New("abort")
	err := WriteFileAtomic(path, []byte("new"), 0o644, func(tmpPath string) error {
		seen = tmpPath
		return abort
	})
	assert.ErrorIs(t, err, abort)
	assert.True(t, IsTempFile(seen))
	assert.False(t, Exists(seen))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a")
	dst := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(src, []byte("short"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("much longer previous content"), 0o644))

	require.NoError(t, CopyFile(src, dst, 0o644))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "short", string(data))

	assert.Error(t, CopyFile(filepath.Join(dir, "missing"), dst, 0o644))
}

func TestIsTempFile(t *testing.T) {
	assert.True(t, IsTempFile("/data/content.json.tmp.0b7e"))
	assert.False(t, IsTempFile("/data/content.json"))
	assert.False(t, IsTempFile("/data.tmp.d/content.json"))
}
