// Package resource defines how codecs reach the human-editable files of a
// project without knowing where they live on disk.
package resource

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joshuapare/romkit/pkg/romerr"
)

// Opener opens named resources. Names use forward slashes and carry no
// extension; the extension selects the file flavour ("yml", "png", ...).
type Opener interface {
	// Open returns a reader for an existing resource.
	Open(name, ext string) (io.ReadCloser, error)
	// Create returns a writer that replaces the resource.
	Create(name, ext string) (io.WriteCloser, error)
}

// Dir is an Opener rooted at a directory.
type Dir string

// Path returns the file backing the resource.
func (d Dir) Path(name, ext string) string {
	file := filepath.FromSlash(name)
	if ext != "" {
		file += "." + strings.TrimPrefix(ext, ".")
	}
	return filepath.Join(string(d), file)
}

// Open implements Opener.
func (d Dir) Open(name, ext string) (io.ReadCloser, error) {
	f, err := os.Open(d.Path(name, ext))
	if err != nil {
		return nil, romerr.Wrap(err, romerr.FileAccess, "resource: open %s.%s", name, ext)
	}
	return f, nil
}

// Create implements Opener. Missing parent directories are created.
func (d Dir) Create(name, ext string) (io.WriteCloser, error) {
	path := d.Path(name, ext)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, romerr.Wrap(err, romerr.FileAccess, "resource: create %s.%s", name, ext)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, romerr.Wrap(err, romerr.FileAccess, "resource: create %s.%s", name, ext)
	}
	return f, nil
}
