//go:build !unix && !windows

package archive

import "errors"

func FreeBytes(string) (uint64, error) {
	return 0, errors.New("archive: disk space probe unsupported on this platform")
}
