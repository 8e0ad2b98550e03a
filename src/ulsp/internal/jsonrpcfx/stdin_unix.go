//go:build unix

package jsonrpcfx

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// pollable duplicates f as a non-blocking file served by the runtime poller,
// so that closing the duplicate ends a read blocked on it.
// The original file stays open and becomes non-blocking too.
func pollable(f *os.File) (*os.File, error) {
	fd, err := unix.FcntlInt(f.Fd(), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("duplicating %s: %w", f.Name(), err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("setting %s non-blocking: %w", f.Name(), err)
	}
	return os.NewFile(uintptr(fd), f.Name()), nil
}
