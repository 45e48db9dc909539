package index

import (
	"os"
	"syscall"
	"time"
)

// fileTimes reads access and status-change times. Linux stat has no birth time, so the
// status-change time stands in for creation when it is older than the modification time.
func fileTimes(info os.FileInfo) timestamps {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return timestamps{created: info.ModTime(), accessed: info.ModTime()}
	}

	created := time.Unix(int64(st.Ctim.Sec), int64(st.Ctim.Nsec))
	if created.After(info.ModTime()) {
		created = info.ModTime()
	}
	return timestamps{
		created:  created,
		accessed: time.Unix(int64(st.Atim.Sec), int64(st.Atim.Nsec)),
	}
}
