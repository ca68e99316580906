package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danmuck/passportctl/internal/config"
	"github.com/danmuck/passportctl/internal/protocol/packet"
)

type rootOptions struct {
	configPath string
	host       string
	port       int
}

// load reads the config file and applies explicitly set flags on top.
func (o *rootOptions) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Collector.Host = o.host
	}
	if flags.Changed("port") {
		cfg.Collector.Port = o.port
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "passportctl",
		Short:         "Collect the passport event stream from a CNC machine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "path to a TOML config file")
	pf.StringVar(&opts.host, "host", "", "machine address (overrides config)")
	pf.IntVar(&opts.port, "port", 0, "machine TCP port (overrides config)")

	root.AddCommand(
		newRunCmd(opts),
		newReplayCmd(opts),
		newSignalsCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to the machine and archive passport events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runCollector(ctx, cfg, cmd.OutOrStdout())
		},
	}
}

func newReplayCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <capture>",
		Short: "Decode a captured raw passport byte stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			decoder := packet.NewDecoder(packet.NewSignalTable(cfg.Collector.Signals))
			stats, err := replayFile(args[0], decoder, cfg.Collector.Session.Limits, cmd.OutOrStdout())
			fmt.Fprintf(cmd.ErrOrStderr(), "replay: %d packets, %d keepalives\n", stats.Packets, stats.Keepalives)
			return err
		},
	}
}

func newSignalsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "signals",
		Short: "Print the DATA signal name table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			printSignals(cmd.OutOrStdout(), packet.NewSignalTable(cfg.Collector.Signals))
			return nil
		},
	}
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or validate passportctl config files",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write a config file populated with the defaults",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteTemplate(args[0], config.Default(), force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote config template to %s\n", args[0])
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the file given by --config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config ok: machine %s, logs in %s\n", cfg.Collector.Address(), cfg.Collector.LogDir)
			return nil
		},
	}

	cmd.AddCommand(initCmd, checkCmd)
	return cmd
}

func printSignals(w io.Writer, table packet.SignalTable) {
	for _, sig := range table.List() {
		fmt.Fprintf(w, "%5d  %s\n", sig.ID, sig.Name)
	}
}
