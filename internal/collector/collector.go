package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/passportctl/internal/archive"
	"github.com/danmuck/passportctl/internal/observability"
	"github.com/danmuck/passportctl/internal/protocol/packet"
	"github.com/danmuck/passportctl/internal/protocol/session"
)

var (
	ErrHostRequired   = errors.New("collector: host required")
	ErrInvalidPort    = errors.New("collector: invalid port")
	ErrInvalidMinFree = errors.New("collector: min free disk space must not be negative")
)

// Config is fixed at construction; there is no runtime reconfiguration.
type Config struct {
	Host      string
	Port      int
	LogDir    string
	MinFreeMB float64
	Session   session.Config
	// Signals extends the built-in DATA signal names.
	Signals map[uint16]string
}

func DefaultConfig() Config {
	return Config{
		Host:      "192.168.0.201",
		Port:      23321,
		LogDir:    ".",
		MinFreeMB: 5,
		Session:   session.DefaultConfig(),
	}
}

func (c Config) Address() string {
	return net.JoinHostPort(strings.TrimSpace(c.Host), strconv.Itoa(c.Port))
}

// ReconnectDelay is the wait between a finished session and the next dial.
func (c Config) ReconnectDelay() time.Duration {
	return c.Session.Backoff.InitialDelay
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return ErrHostRequired
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}
	if c.MinFreeMB < 0 {
		return ErrInvalidMinFree
	}
	return nil
}

type Option func(*Supervisor)

// WithConsole redirects the transient keepalive status line.
func WithConsole(w io.Writer) Option {
	return func(s *Supervisor) {
		if w != nil {
			s.console = w
		}
	}
}

// WithSpaceFunc replaces the free disk space probe.
func WithSpaceFunc(fn archive.SpaceFunc) Option {
	return func(s *Supervisor) {
		if fn != nil {
			s.guard.Free = fn
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// WithDecoder replaces the decoder built from Config.Signals.
func WithDecoder(d *packet.Decoder) Option {
	return func(s *Supervisor) {
		if d != nil {
			s.decoder = d
		}
	}
}

// Supervisor owns the connection: dial, handshake, stream one session,
// wait, repeat. At most one session is active at a time.
type Supervisor struct {
	cfg     Config
	decoder *packet.Decoder
	guard   *archive.Guard
	console io.Writer
	logger  zerolog.Logger
	now     func() time.Time

	mu     sync.RWMutex
	status Status
}

func New(cfg Config, opts ...Option) (*Supervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Session = cfg.Session.WithDefaults()
	if strings.TrimSpace(cfg.LogDir) == "" {
		cfg.LogDir = "."
	}
	s := &Supervisor{
		cfg:     cfg,
		decoder: packet.NewDecoder(packet.NewSignalTable(cfg.Signals)),
		guard:   archive.NewGuard(cfg.LogDir, cfg.MinFreeMB),
		console: os.Stdout,
		logger:  log.Logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.status.Address = cfg.Address()
	return s, nil
}

func (s *Supervisor) Config() Config {
	return s.cfg
}

// Run loops until ctx is cancelled and then returns nil. Connect, handshake
// and session failures are all retried after the reconnect delay.
func (s *Supervisor) Run(ctx context.Context) error {
	observability.RegisterMetrics()
	addr := s.cfg.Address()
	failures := 0
	for {
		if ctx.Err() != nil {
			s.logger.Info().Str("addr", addr).Msg("collector.Supervisor.Run stopped")
			return nil
		}

		conn, err := s.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			failures++
			observability.RecordConnectAttempt("dial_error")
			s.recordFailure(err)
			s.logger.Warn().Err(err).Str("addr", addr).Int("attempt", failures).Msg("collector.Supervisor.Run connect failed")
			s.waitRetry(ctx, failures)
			continue
		}
		s.logger.Info().Str("addr", addr).Msg("collector.Supervisor.Run connected")

		version, err := s.handshake(ctx, conn)
		if err != nil {
			_ = conn.Close()
			if ctx.Err() != nil {
				continue
			}
			failures++
			observability.RecordConnectAttempt("handshake_error")
			s.recordFailure(err)
			s.logger.Warn().Err(err).Str("addr", addr).Int("attempt", failures).Msg("collector.Supervisor.Run handshake failed")
			s.waitRetry(ctx, failures)
			continue
		}
		failures = 0
		observability.RecordConnectAttempt("ok")
		s.logger.Info().Str("addr", addr).Int32("server_version", version).Msg("collector.Supervisor.Run handshake complete")

		err = s.serve(ctx, conn, version)
		reason := endReason(ctx, err)
		observability.RecordSessionEnd(reason)
		s.recordEndReason(reason)
		if ctx.Err() != nil {
			continue
		}
		s.logger.Warn().Err(err).Str("reason", reason).Msg("collector.Supervisor.Run session ended")
		s.logger.Info().Dur("delay", s.cfg.ReconnectDelay()).Msg("collector.Supervisor.Run reconnecting")
		s.waitRetry(ctx, 1)
	}
}

func (s *Supervisor) dial(ctx context.Context) (net.Conn, error) {
	dialer := net.Dialer{Timeout: s.cfg.Session.ConnectTimeout}
	return dialer.DialContext(ctx, "tcp", s.cfg.Address())
}

// handshake bounds the version exchange with HandshakeTimeout and clears the
// deadline afterwards so streaming reads block without limit.
func (s *Supervisor) handshake(ctx context.Context, conn net.Conn) (int32, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()
	_ = conn.SetDeadline(s.now().Add(s.cfg.Session.HandshakeTimeout))
	version, err := session.Handshake(conn)
	if err != nil {
		return version, err
	}
	_ = conn.SetDeadline(time.Time{})
	return version, nil
}

// waitRetry sleeps the backoff delay for attempt and reports whether the
// sleep completed without cancellation.
func (s *Supervisor) waitRetry(ctx context.Context, attempt int) bool {
	if attempt < 1 {
		attempt = 1
	}
	delay := session.NextBackoffDelay(s.cfg.Session.Backoff, attempt, nil)
	return session.Sleep(ctx, delay) == nil
}

// serve owns one session: it opens the session log, starts the reader and
// blocks until the reader finishes. Cancellation closes the connection to
// unblock a pending read. Socket and log file are closed on every path.
func (s *Supervisor) serve(ctx context.Context, conn net.Conn, version int32) error {
	defer conn.Close()

	started := s.now()
	writer, err := archive.Open(s.cfg.LogDir, started)
	if err != nil {
		return err
	}
	defer func() {
		if err := writer.Close(); err != nil {
			s.logger.Warn().Err(err).Str("path", writer.Path()).Msg("collector.Supervisor.serve log close failed")
			return
		}
		s.logger.Info().Str("path", writer.Path()).Msg("collector.Supervisor.serve log closed")
	}()

	st := &sessionState{
		id:      uuid.NewString(),
		started: started,
		conn:    conn,
		writer:  writer,
	}
	s.beginSession(st, version)
	defer s.endSession()
	observability.RecordSessionStart()
	s.logger.Info().Str("session", st.id).Str("path", writer.Path()).Msg("collector.Supervisor.serve log opened")

	done := make(chan error, 1)
	go func() {
		done <- s.readSession(st)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = conn.Close()
		<-done
		return ctx.Err()
	}
}

func (s *Supervisor) recordFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.ConnectFailures++
	s.status.LastError = err.Error()
}
