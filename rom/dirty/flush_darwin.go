//go:build darwin

package dirty

import (
	"os"

	"golang.org/x/sys/unix"
)

// syncFile flushes written data to disk.
//
// macOS has no fdatasync; F_FULLFSYNC pushes past the drive cache.
func syncFile(f *os.File) error {
	_, err := unix.FcntlInt(f.Fd(), unix.F_FULLFSYNC, 0)
	return err
}
