package notes

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"foodlog/internal/fileutil"
)

// Storage abstracts the filesystem holding the note.
type Storage interface {
	Read(path string) (string, error)
	Write(path, content string) error
	Exists(path string) (bool, error)
	MkdirAll(dir string) error
}

// FS is the local filesystem. Writes are atomic.
type FS struct{}

func (FS) Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (FS) Write(path, content string) error {
	return fileutil.WriteAtomic(path, []byte(content), 0o644)
}

func (FS) Exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat note: %w", err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("note path %s is a directory", path)
	}
	return true, nil
}

func (FS) MkdirAll(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
