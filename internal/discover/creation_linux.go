//go:build linux

package discover

import (
	"errors"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// creationTime returns the file's birth time. Not every filesystem records
// one; callers treat the error as "no creation attribute", not as fatal.
func creationTime(path string, _ os.FileInfo) (time.Time, error) {
	var stx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, unix.AT_SYMLINK_NOFOLLOW, unix.STATX_BTIME, &stx); err != nil {
		return time.Time{}, err
	}
	if stx.Mask&unix.STATX_BTIME == 0 {
		return time.Time{}, errors.New("filesystem records no birth time")
	}
	return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec)), nil
}
