package fs

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetwd(t *testing.T) {
	fs := New()
	dir, err := fs.Getwd()
	assert.NoError(t, err)
	assert.True(t, filepath.IsAbs(dir))
}

func TestAbs(t *testing.T) {
	fs := New()
	wd, err := os.Getwd()
	require.NoError(t, err)

	result, err := fs.Abs("foo/bar.ts")
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "foo", "bar.ts"), result)
}

func TestMkdirAll(t *testing.T) {
	dir := t.TempDir()
	fs := New()
	err := fs.MkdirAll(path.Join(dir, "foo/bar"))
	assert.NoError(t, err)

	exists, err := fs.DirExists(path.Join(dir, "foo/bar"))
	assert.NoError(t, err)
	assert.True(t, exists)
}

func TestDirExists(t *testing.T) {
	t.Run("exists", func(t *testing.T) {
		dir := t.TempDir()
		fs := New()
		result, err := fs.DirExists(dir)
		assert.NoError(t, err)
		assert.True(t, result)
	})

	t.Run("does not exist", func(t *testing.T) {
		dir := t.TempDir()
		fs := New()
		result, err := fs.DirExists(dir + "foo")
		assert.NoError(t, err)
		assert.False(t, result)
	})

	t.Run("file", func(t *testing.T) {
		dir := t.TempDir()
		file := path.Join(dir, "a")
		require.NoError(t, os.WriteFile(file, []byte("a"), 0666))
		fs := New()
		result, err := fs.DirExists(file)
		assert.NoError(t, err)
		assert.False(t, result)
	})
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	file := path.Join(dir, "a")
	fs := New()
	err := fs.WriteFile(file, "data")
	assert.NoError(t, err)
	result, _ := os.ReadFile(file)
	assert.Equal(t, "data", string(result))
}

func TestTempDir(t *testing.T) {
	assert.Equal(t, os.TempDir(), New().TempDir())
}

func TestTempFile(t *testing.T) {
	dir := t.TempDir()
	fs := New()
	result, err := fs.TempFile(dir, "foo")
	require.NoError(t, err)
	defer os.Remove(result.Name())
	defer result.Close()
	assert.True(t, strings.HasPrefix(result.Name(), path.Join(dir, "foo")))
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	file := path.Join(dir, "a")
	os.WriteFile(path.Join(dir, "a"), []byte("contents"), 0666)
	fs := New()
	err := fs.Remove(file)
	assert.NoError(t, err)
}
