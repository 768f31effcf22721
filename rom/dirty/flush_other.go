//go:build !linux && !freebsd && !darwin

package dirty

import "os"

// syncFile flushes written data to disk.
func syncFile(f *os.File) error {
	return f.Sync()
}
