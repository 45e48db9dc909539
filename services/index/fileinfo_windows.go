package index

import (
	"os"
	"syscall"
	"time"
)

func fileTimes(info os.FileInfo) timestamps {
	attrs, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return timestamps{created: info.ModTime(), accessed: info.ModTime()}
	}
	return timestamps{
		created:  time.Unix(0, attrs.CreationTime.Nanoseconds()),
		accessed: time.Unix(0, attrs.LastAccessTime.Nanoseconds()),
	}
}
