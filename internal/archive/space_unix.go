//go:build unix

package archive

import "golang.org/x/sys/unix"

// FreeBytes returns the space available to unprivileged users on the volume
// holding path.
func FreeBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return uint64(stat.Bavail) * uint64(stat.Bsize), nil
}
