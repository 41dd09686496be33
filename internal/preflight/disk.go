package preflight

import (
	"fmt"
	"syscall"
)

// MinDiskSpaceBytes is the free space required in the data directory.
const MinDiskSpaceBytes = 100 * 1024 * 1024

// CheckDiskSpace checks free space at path.
func (c *Checker) CheckDiskSpace(path string) CheckResult {
	r := CheckResult{Name: "disk_space", Required: true}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		r.Status, r.Message = StatusFail, fmt.Sprintf("failed to check disk space: %v", err)
		return r
	}
	free := stat.Bavail * uint64(stat.Bsize)
	r.Message = fmt.Sprintf("%s free (minimum: %s)", formatBytes(free), formatBytes(MinDiskSpaceBytes))
	if free < MinDiskSpaceBytes {
		r.Status = StatusFail
		return r
	}
	r.Status = StatusPass
	return r
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d bytes", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit && exp < 3; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGT"[exp])
}
