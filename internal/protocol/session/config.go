package session

import (
	"time"

	"github.com/danmuck/passportctl/internal/protocol/frame"
)

// BackoffConfig defines the delay between reconnect attempts. The default is a
// fixed delay: multiplier 1.0 and no jitter.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines transport/session reliability defaults.
type Config struct {
	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration
	// KeepaliveInterval * KeepaliveLimit bounds the silence tolerated on a
	// streaming session. Zero for either disables the read deadline.
	KeepaliveInterval time.Duration
	KeepaliveLimit    int
	Backoff           BackoffConfig
	Limits            frame.Limits
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout:    5 * time.Second,
		HandshakeTimeout:  5 * time.Second,
		KeepaliveInterval: 0,
		KeepaliveLimit:    0,
		Backoff: BackoffConfig{
			InitialDelay: 5 * time.Second,
			Multiplier:   1.0,
			MaxDelay:     0,
			Jitter:       false,
		},
		Limits: frame.DefaultLimits(),
	}
}

// WithDefaults fills zero-valued fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.KeepaliveLimit < 0 {
		c.KeepaliveLimit = 0
	}
	if c.Backoff.InitialDelay < 0 {
		c.Backoff.InitialDelay = 0
	}
	if c.Backoff.Multiplier < 1.0 {
		c.Backoff.Multiplier = 1.0
	}
	if c.Limits.MaxPayloadBytes == 0 {
		c.Limits = def.Limits
	}
	return c
}

// IdleTimeout is the read deadline applied to each header read, or zero when
// the session may block indefinitely.
func (c Config) IdleTimeout() time.Duration {
	if c.KeepaliveInterval <= 0 || c.KeepaliveLimit <= 0 {
		return 0
	}
	return c.KeepaliveInterval * time.Duration(c.KeepaliveLimit)
}
