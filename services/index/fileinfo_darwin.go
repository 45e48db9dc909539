package index

import (
	"os"
	"syscall"
	"time"
)

func fileTimes(info os.FileInfo) timestamps {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return timestamps{created: info.ModTime(), accessed: info.ModTime()}
	}
	return timestamps{
		created:  time.Unix(st.Birthtimespec.Sec, st.Birthtimespec.Nsec),
		accessed: time.Unix(st.Atimespec.Sec, st.Atimespec.Nsec),
	}
}
