package main

import (
	"context"
	"io"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/danmuck/passportctl/internal/collector"
	"github.com/danmuck/passportctl/internal/config"
	"github.com/danmuck/passportctl/internal/logging"
	"github.com/danmuck/passportctl/internal/server"
)

// runCollector runs the supervisor and, when status_addr is set, the status
// API until ctx is cancelled or either of them fails.
func runCollector(ctx context.Context, cfg config.Config, console io.Writer) error {
	logCfg := logging.DefaultConfig(logging.ProfileRuntime)
	logCfg.Level = cfg.LogLevel
	logCfg.File = cfg.LogFile
	logging.ApplyEnvOverrides(&logCfg)
	logger, closer := logging.Setup(logCfg)
	defer closer.Close()

	sup, err := collector.New(cfg.Collector,
		collector.WithConsole(console),
		collector.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	logger.Info().
		Str("addr", cfg.Collector.Address()).
		Str("log_dir", cfg.Collector.LogDir).
		Dur("reconnect_delay", cfg.Collector.ReconnectDelay()).
		Msg("passportctl starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sup.Run(gctx)
	})
	if cfg.StatusAddr != "" {
		srv := server.New(sup, cfg.CorsOrigins)
		g.Go(func() error {
			return srv.Serve(gctx, cfg.StatusAddr)
		})
	}
	err = g.Wait()
	log.Info().Msg("passportctl stopped")
	return err
}
