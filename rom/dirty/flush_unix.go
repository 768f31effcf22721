//go:build linux || freebsd

package dirty

import (
	"os"

	"golang.org/x/sys/unix"
)

// syncFile flushes written data to disk.
//
// On Linux/FreeBSD, fdatasync() provides sufficient guarantees.
func syncFile(f *os.File) error {
	return unix.Fdatasync(int(f.Fd()))
}
