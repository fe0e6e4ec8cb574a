//go:build !linux

package discover

import (
	"os"
	"time"
)

func creationTime(path string, info os.FileInfo) (time.Time, error) {
	return info.ModTime(), nil
}
