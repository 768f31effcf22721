// Package mmfile provides platform-specific helpers for memory-mapping ROM and patch files.
package mmfile

import (
	"errors"
	"fmt"
	"os"
)

// ErrIsDir is returned when the mapped path names a directory.
var ErrIsDir = errors.New("mmfile: path is a directory")

// ReadAll maps the file at path, copies its contents and releases the mapping.
// The returned slice is owned by the caller.
func ReadAll(path string) ([]byte, error) {
	data, cleanup, err := Map(path)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	if err := cleanup(); err != nil {
		return nil, fmt.Errorf("mmfile: unmap %s: %w", path, err)
	}
	return out, nil
}

// statRegular opens path and rejects directories.
func statRegular(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	if info.IsDir() {
		f.Close()
		return nil, 0, fmt.Errorf("%w: %s", ErrIsDir, path)
	}
	return f, info.Size(), nil
}
