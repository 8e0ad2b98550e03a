package fs

import (
	"os"
	"path/filepath"

	"go.uber.org/fx"
)

//go:generate mockgen -source=fs.go -destination=fsmock/fs_mock.go -package=fsmock

// Module is the Fx module for this package.
var Module = fx.Provide(New)

// UlspFS will wrap the filesystem operations used by the bridge.
type UlspFS interface {
	Getwd() (string, error)
	Abs(path string) (string, error)
	MkdirAll(path string) error
	DirExists(path string) (bool, error)
	WriteFile(name string, data string) error
	TempDir() string
	TempFile(dir, pattern string) (*os.File, error)
	Remove(name string) error
}

type fsImpl struct{}

// New creates a new UlspFS.
func New() UlspFS {
	return fsImpl{}
}

// Getwd returns the process working directory.
func (fsImpl) Getwd() (string, error) { return os.Getwd() }

// Abs returns an absolute representation of path.
func (fsImpl) Abs(path string) (string, error) { return filepath.Abs(path) }

// MkdirAll creates a directory and all its parents.
func (fsImpl) MkdirAll(path string) error { return os.MkdirAll(path, os.ModePerm) }

func (fsImpl) DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

func (fsImpl) WriteFile(name string, data string) error {
	return os.WriteFile(name, []byte(data), 0644)
}

func (fsImpl) TempDir() string {
	return os.TempDir()
}

func (fsImpl) TempFile(dir, pattern string) (*os.File, error) {
	return os.CreateTemp(dir, pattern)
}

func (fsImpl) Remove(name string) error {
	return os.Remove(name)
}
