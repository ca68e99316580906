package archive

import (
	"errors"
	"fmt"
)

const bytesPerMB = 1024 * 1024

var ErrDiskSpaceLow = errors.New("archive: free disk space below minimum")

// SpaceFunc reports the bytes available to the caller on the volume holding
// path.
type SpaceFunc func(path string) (uint64, error)

// Guard checks the log volume before every header read.
type Guard struct {
	Dir       string
	MinFreeMB float64
	Free      SpaceFunc
}

func NewGuard(dir string, minFreeMB float64) *Guard {
	if dir == "" {
		dir = "."
	}
	return &Guard{Dir: dir, MinFreeMB: minFreeMB, Free: FreeBytes}
}

// Check returns the free space in megabytes. It fails with ErrDiskSpaceLow
// when that is below MinFreeMB, or with the probe error if the volume cannot
// be inspected.
func (g *Guard) Check() (float64, error) {
	free := g.Free
	if free == nil {
		free = FreeBytes
	}
	b, err := free(g.Dir)
	if err != nil {
		return 0, fmt.Errorf("archive: disk space probe %s: %w", g.Dir, err)
	}
	freeMB := float64(b) / bytesPerMB
	if freeMB < g.MinFreeMB {
		return freeMB, fmt.Errorf("%w: %.2f MB left, need %.2f MB", ErrDiskSpaceLow, freeMB, g.MinFreeMB)
	}
	return freeMB, nil
}
