package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/danmuck/passportctl/internal/collector"
	"github.com/danmuck/passportctl/internal/logging"
)

var (
	ErrInvalidLogLevel = errors.New("config: invalid log_level")
	ErrInvalidSignalID = errors.New("config: invalid signal id")
	ErrInvalidStatus   = errors.New("config: invalid status_addr")
)

// Config is everything passportctl reads from its TOML file.
type Config struct {
	Collector   collector.Config
	StatusAddr  string
	CorsOrigins []string
	LogLevel    zerolog.Level
	LogFile     logging.FileConfig
}

func Default() Config {
	return Config{
		Collector: collector.DefaultConfig(),
		LogLevel:  zerolog.InfoLevel,
		LogFile: logging.FileConfig{
			MaxSizeMB:  25,
			MaxBackups: 5,
			MaxAgeDays: 7,
		},
	}
}

type fileConfig struct {
	Host                string            `toml:"host"`
	Port                int               `toml:"port"`
	LogDir              string            `toml:"log_dir"`
	MinFreeMB           float64           `toml:"min_free_mb"`
	ReconnectDelay      string            `toml:"reconnect_delay"`
	ReconnectDelayMS    int64             `toml:"reconnect_delay_ms"`
	ReconnectMultiplier float64           `toml:"reconnect_multiplier"`
	ReconnectMaxDelay   string            `toml:"reconnect_max_delay"`
	ConnectTimeout      string            `toml:"connect_timeout"`
	HandshakeTimeout    string            `toml:"handshake_timeout"`
	KeepaliveInterval   string            `toml:"keepalive_interval"`
	KeepaliveLimit      int               `toml:"keepalive_limit"`
	MaxPayloadBytes     uint32            `toml:"max_payload_bytes"`
	StatusAddr          string            `toml:"status_addr"`
	CorsOrigins         []string          `toml:"cors_origins"`
	LogLevel            string            `toml:"log_level"`
	LogFile             string            `toml:"log_file"`
	LogMaxSizeMB        int               `toml:"log_max_size_mb"`
	LogMaxBackups       int               `toml:"log_max_backups"`
	LogMaxAgeDays       int               `toml:"log_max_age_days"`
	LogCompress         bool              `toml:"log_compress"`
	Signals             map[string]string `toml:"signals"`
}

// Load overlays the keys present in path onto Default and validates the
// result. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, Validate(cfg)
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load passport config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("load passport config: unknown keys: %s", strings.Join(keys, ", "))
	}

	c := &cfg.Collector
	if meta.IsDefined("host") {
		c.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		c.Port = raw.Port
	}
	if meta.IsDefined("log_dir") {
		c.LogDir = strings.TrimSpace(raw.LogDir)
	}
	if meta.IsDefined("min_free_mb") {
		c.MinFreeMB = raw.MinFreeMB
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"reconnect_delay", raw.ReconnectDelay, &c.Session.Backoff.InitialDelay},
		{"reconnect_max_delay", raw.ReconnectMaxDelay, &c.Session.Backoff.MaxDelay},
		{"connect_timeout", raw.ConnectTimeout, &c.Session.ConnectTimeout},
		{"handshake_timeout", raw.HandshakeTimeout, &c.Session.HandshakeTimeout},
		{"keepalive_interval", raw.KeepaliveInterval, &c.Session.KeepaliveInterval},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}
	if meta.IsDefined("reconnect_delay_ms") {
		c.Session.Backoff.InitialDelay = time.Duration(raw.ReconnectDelayMS) * time.Millisecond
	}
	if meta.IsDefined("reconnect_multiplier") {
		c.Session.Backoff.Multiplier = raw.ReconnectMultiplier
	}
	if meta.IsDefined("keepalive_limit") {
		c.Session.KeepaliveLimit = raw.KeepaliveLimit
	}
	if meta.IsDefined("max_payload_bytes") {
		c.Session.Limits.MaxPayloadBytes = raw.MaxPayloadBytes
	}

	if meta.IsDefined("signals") {
		signals, err := parseSignals(raw.Signals)
		if err != nil {
			return Config{}, err
		}
		c.Signals = signals
	}

	if meta.IsDefined("status_addr") {
		cfg.StatusAddr = strings.TrimSpace(raw.StatusAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeList(raw.CorsOrigins)
	}
	if meta.IsDefined("log_level") {
		level, ok := logging.ParseLevel(raw.LogLevel)
		if !ok {
			return Config{}, fmt.Errorf("%w: %q", ErrInvalidLogLevel, raw.LogLevel)
		}
		cfg.LogLevel = level
	}
	if meta.IsDefined("log_file") {
		cfg.LogFile.Path = strings.TrimSpace(raw.LogFile)
	}
	if meta.IsDefined("log_max_size_mb") {
		cfg.LogFile.MaxSizeMB = raw.LogMaxSizeMB
	}
	if meta.IsDefined("log_max_backups") {
		cfg.LogFile.MaxBackups = raw.LogMaxBackups
	}
	if meta.IsDefined("log_max_age_days") {
		cfg.LogFile.MaxAgeDays = raw.LogMaxAgeDays
	}
	if meta.IsDefined("log_compress") {
		cfg.LogFile.Compress = raw.LogCompress
	}

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("validate %s: %w", path, err)
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if err := cfg.Collector.Validate(); err != nil {
		return err
	}
	s := cfg.Collector.Session
	if s.Backoff.InitialDelay < 0 || s.Backoff.MaxDelay < 0 {
		return fmt.Errorf("config: reconnect delays must not be negative")
	}
	if s.Backoff.Multiplier != 0 && s.Backoff.Multiplier < 1.0 {
		return fmt.Errorf("config: reconnect_multiplier must be >= 1.0")
	}
	if s.KeepaliveLimit < 0 || s.KeepaliveInterval < 0 {
		return fmt.Errorf("config: keepalive settings must not be negative")
	}
	if cfg.StatusAddr != "" {
		if _, _, err := splitHostPort(cfg.StatusAddr); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidStatus, err)
		}
	}
	return nil
}

func parseSignals(in map[string]string) (map[uint16]string, error) {
	out := make(map[uint16]string, len(in))
	for key, name := range in {
		id, err := strconv.ParseUint(strings.TrimSpace(key), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSignalID, key)
		}
		out[uint16(id)] = strings.TrimSpace(name)
	}
	return out, nil
}

func normalizeList(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
