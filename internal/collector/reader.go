package collector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/danmuck/passportctl/internal/archive"
	"github.com/danmuck/passportctl/internal/observability"
	"github.com/danmuck/passportctl/internal/protocol/frame"
	"github.com/danmuck/passportctl/internal/protocol/packet"
	"github.com/danmuck/passportctl/internal/protocol/session"
)

const clockLayout = "15:04:05"

// sessionState is touched only by the reader goroutine of one session.
type sessionState struct {
	id      string
	started time.Time
	conn    net.Conn
	writer  *archive.Writer
	counter session.KeepaliveCounter
}

// readSession streams frames until the session must end and returns why.
// The disk guard runs before every header read so a full volume ends the
// session before a frame is half consumed.
func (s *Supervisor) readSession(st *sessionState) error {
	limits := s.cfg.Session.Limits
	idle := s.cfg.Session.IdleTimeout()
	for {
		freeMB, err := s.guard.Check()
		if err != nil {
			if errors.Is(err, archive.ErrDiskSpaceLow) {
				observability.RecordFreeDisk(freeMB)
				s.setFreeDisk(freeMB)
				s.logNotice(st, "WARNING", fmt.Sprintf("low disk space: %.2f MB left", freeMB))
				s.logNotice(st, "ERROR", "archiving stopped for lack of disk space")
			}
			return err
		}
		observability.RecordFreeDisk(freeMB)
		s.setFreeDisk(freeMB)

		if idle > 0 {
			_ = st.conn.SetReadDeadline(s.now().Add(idle))
		}
		f, err := frame.ReadFrame(st.conn, limits)
		if err != nil {
			var netErr net.Error
			switch {
			case errors.As(err, &netErr) && netErr.Timeout():
				s.logNotice(st, "WARNING", fmt.Sprintf("no packet received for %s", idle))
			case errors.Is(err, frame.ErrPeerClosed):
				s.logNotice(st, "WARNING", "server closed the connection")
			case errors.Is(err, frame.ErrShortPayload):
				s.logNotice(st, "WARNING", "connection lost while reading payload")
			case errors.Is(err, frame.ErrShortHeader):
				s.logNotice(st, "ERROR", "header too short")
			}
			return err
		}

		rec := s.decoder.DecodeFrame(f)
		observability.RecordPacket(rec.Kind.String(), len(f.Payload))

		if rec.Keepalive() {
			value, err := st.counter.Reply(st.conn)
			if err != nil {
				return err
			}
			s.recordKeepalive(value)
			fmt.Fprintf(s.console, "\r[KEEPALIVE] %s reply sent counter=%d", rec.Time.Format(clockLayout), value)
			continue
		}

		if err := s.emit(st, rec); err != nil {
			return err
		}
	}
}

func (s *Supervisor) emit(st *sessionState, rec packet.Record) error {
	s.logger.Info().Str("session", st.id).Msg(rec.Line)
	if err := st.writer.WriteLine(rec.Line); err != nil {
		return err
	}
	s.recordPacket(rec)
	return nil
}

// logNotice writes a status line to the console and, best effort, to the
// session log.
func (s *Supervisor) logNotice(st *sessionState, level, msg string) {
	line := s.now().Format(clockLayout) + " " + level + " " + msg
	if level == "ERROR" {
		s.logger.Error().Str("session", st.id).Msg(msg)
	} else {
		s.logger.Warn().Str("session", st.id).Msg(msg)
	}
	if err := st.writer.WriteLine(line); err != nil {
		s.logger.Warn().Err(err).Str("session", st.id).Msg("collector.Supervisor.logNotice write failed")
	}
}

func endReason(ctx context.Context, err error) string {
	switch {
	case ctx.Err() != nil:
		return "stopped"
	case err == nil:
		return "unknown"
	case errors.Is(err, frame.ErrPeerClosed):
		return "peer_closed"
	case errors.Is(err, frame.ErrShortHeader):
		return "short_header"
	case errors.Is(err, frame.ErrShortPayload):
		return "short_payload"
	case errors.Is(err, frame.ErrLengthTooSmall), errors.Is(err, frame.ErrPayloadTooLarge):
		return "bad_frame"
	case errors.Is(err, archive.ErrDiskSpaceLow):
		return "disk_low"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "idle_timeout"
	}
	return "io_error"
}
