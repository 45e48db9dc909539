//go:build !linux && !darwin && !windows

package index

import "os"

func fileTimes(info os.FileInfo) timestamps {
	return timestamps{created: info.ModTime(), accessed: info.ModTime()}
}
