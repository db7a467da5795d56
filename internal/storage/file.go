package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"syscall"
)

// File keeps every key in one JSON object on disk. Reads take a shared flock
// and writes an exclusive one, so several processes may share the file.
type File struct {
	path string
}

// NewFile returns a File storage at path. The file and its parent directory
// are created on first write.
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) GetItem(key string) (string, bool, error) {
	file, err := os.OpenFile(f.path, os.O_RDONLY, 0o644)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	defer file.Close()

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_SH); err != nil {
		return "", false, err
	}
	defer func() { _ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN) }()

	items, err := decodeItems(file)
	if err != nil {
		return "", false, err
	}
	v, ok := items[key]
	return v, ok, nil
}

func (f *File) SetItem(key, value string) error {
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	file, err := os.OpenFile(f.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX); err != nil {
		return err
	}
	defer func() { _ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN) }()

	// A corrupted file is replaced by the write instead of blocking it.
	items, err := decodeItems(file)
	if err != nil {
		log.Printf("ERROR: %s is unreadable, rewriting it: %v", f.path, err)
		items = make(map[string]string)
	}
	items[key] = value

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := json.NewEncoder(file).Encode(items); err != nil {
		return err
	}

	// Drop whatever was left over from a longer previous content.
	pos, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	return file.Truncate(pos)
}

// Close is a no-op; the file is only held open for the duration of a call.
func (f *File) Close() error {
	return nil
}

// decodeItems reads the key/value object from r. An empty file is an empty
// object.
func decodeItems(r io.Reader) (map[string]string, error) {
	items := make(map[string]string)
	err := json.NewDecoder(r).Decode(&items)
	if errors.Is(err, io.EOF) {
		return items, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode storage file: %w", err)
	}
	return items, nil
}

var _ Storage = (*File)(nil)
