package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// templateFile is the subset of keys written by Template. Alternate
// spellings such as reconnect_delay_ms are accepted by Load but not emitted.
type templateFile struct {
	Host                string            `toml:"host"`
	Port                int               `toml:"port"`
	LogDir              string            `toml:"log_dir"`
	MinFreeMB           float64           `toml:"min_free_mb"`
	ReconnectDelay      string            `toml:"reconnect_delay"`
	ReconnectMultiplier float64           `toml:"reconnect_multiplier"`
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

// Template renders cfg as a TOML document that Load reads back unchanged.
func Template(cfg Config) (string, error) {
	c := cfg.Collector
	signals := make(map[string]string, len(c.Signals))
	for id, name := range c.Signals {
		signals[strconv.FormatUint(uint64(id), 10)] = name
	}
	origins := cfg.CorsOrigins
	if origins == nil {
		origins = []string{}
	}
	out, err := toml.Marshal(templateFile{
		Host:                c.Host,
		Port:                c.Port,
		LogDir:              c.LogDir,
		MinFreeMB:           c.MinFreeMB,
		ReconnectDelay:      c.Session.Backoff.InitialDelay.String(),
		ReconnectMultiplier: c.Session.Backoff.Multiplier,
		ConnectTimeout:      c.Session.ConnectTimeout.String(),
		HandshakeTimeout:    c.Session.HandshakeTimeout.String(),
		KeepaliveInterval:   c.Session.KeepaliveInterval.String(),
		KeepaliveLimit:      c.Session.KeepaliveLimit,
		MaxPayloadBytes:     c.Session.Limits.MaxPayloadBytes,
		StatusAddr:          cfg.StatusAddr,
		CorsOrigins:         origins,
		LogLevel:            cfg.LogLevel.String(),
		LogFile:             cfg.LogFile.Path,
		LogMaxSizeMB:        cfg.LogFile.MaxSizeMB,
		LogMaxBackups:       cfg.LogFile.MaxBackups,
		LogMaxAgeDays:       cfg.LogFile.MaxAgeDays,
		LogCompress:         cfg.LogFile.Compress,
		Signals:             signals,
	})
	if err != nil {
		return "", fmt.Errorf("render config template: %w", err)
	}
	return string(out), nil
}

func WriteTemplate(path string, cfg Config, overwrite bool) error {
	template, err := Template(cfg)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}
