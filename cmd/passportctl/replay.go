package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/passportctl/internal/protocol/frame"
	"github.com/danmuck/passportctl/internal/protocol/packet"
)

type replayStats struct {
	Packets    int
	Keepalives int
}

// replayFile decodes a raw capture of the post-handshake byte stream. The
// stream ends cleanly at EOF on a frame boundary.
func replayFile(path string, decoder *packet.Decoder, limits frame.Limits, out io.Writer) (replayStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return replayStats{}, err
	}
	defer f.Close()
	return replay(bufio.NewReader(f), decoder, limits, out)
}

func replay(r io.Reader, decoder *packet.Decoder, limits frame.Limits, out io.Writer) (replayStats, error) {
	var stats replayStats
	for {
		fr, err := frame.ReadFrame(r, limits)
		if errors.Is(err, frame.ErrPeerClosed) {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("frame %d: %w", stats.Packets+stats.Keepalives+1, err)
		}
		rec := decoder.DecodeFrame(fr)
		if rec.Keepalive() {
			stats.Keepalives++
			continue
		}
		stats.Packets++
		if _, err := fmt.Fprintln(out, rec.Line); err != nil {
			return stats, err
		}
	}
}
