package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/trypsynth/clipmirror/clipboard"
	"github.com/trypsynth/clipmirror/clipmirror"
)

type globalFlags struct {
	configPath string
	address    string
	port       int
	logLevel   string
}

type serverFlags struct {
	backend         string
	metricsAddress  string
	maxRequestBytes int64
	readTimeout     time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:          "clipmirror",
		Short:        "A minimalistic clipboard mirroring utility",
		SilenceUsage: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "config file (default ~/"+clipmirror.DefaultConfigName+")")
	pf.StringVarP(&g.address, "address", "a", clipmirror.DefaultAddress, "address to connect to (or listen on)")
	pf.IntVarP(&g.port, "port", "p", clipmirror.DefaultPort, "port to connect to (or listen on)")
	pf.StringVar(&g.logLevel, "log-level", "info", "log level: trace, debug, info, warn, error, disabled")

	root.AddCommand(newServerCmd(&g), newSetCmd(&g), newGetCmd(&g))
	return root
}

func newServerCmd(g *globalFlags) *cobra.Command {
	var sf serverFlags
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start a server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("backend") {
				config.Backend = sf.backend
			}
			if flags.Changed("metrics-address") {
				config.MetricsAddress = sf.metricsAddress
			}
			if flags.Changed("max-request-bytes") {
				config.MaxRequestBytes = sf.maxRequestBytes
			}
			if flags.Changed("read-timeout") {
				config.ReadTimeout = sf.readTimeout.String()
			}
			if err := config.Validate(); err != nil {
				return err
			}
			return runServer(cmd.Context(), config, cmd.ErrOrStderr())
		},
	}
	f := cmd.Flags()
	f.StringVar(&sf.backend, "backend", clipboard.BackendSystem, "clipboard backend: system or memory")
	f.StringVar(&sf.metricsAddress, "metrics-address", "", "serve Prometheus metrics on this address")
	f.Int64Var(&sf.maxRequestBytes, "max-request-bytes", 0, "reject requests larger than this (0 = unlimited)")
	f.DurationVar(&sf.readTimeout, "read-timeout", 0, "drop clients that take longer than this to send a request (0 = wait forever)")
	return cmd
}

func newSetCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "set [selection]",
		Short:     "Read stdin and set it to the clipboard",
		Long:      "Read stdin and set it to the clipboard. Selection is one of: clipboard (default), primary, secondary, all.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"clipboard", "primary", "secondary", "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			sel, err := clipmirror.ParseWriteSelection(firstArg(args))
			if err != nil {
				return err
			}
			return clipmirror.SendSetRequest(cmd.Context(), config.ServerAddress(), sel, cmd.InOrStdin())
		},
	}
}

func newGetCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "get [selection]",
		Short:     "Send the contents of the clipboard to stdout",
		Long:      "Send the contents of the clipboard to stdout. Selection is one of: clipboard (default), primary, secondary.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"clipboard", "primary", "secondary"},
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			sel, err := clipmirror.ParseReadSelection(firstArg(args))
			if err != nil {
				return err
			}
			return clipmirror.SendGetRequest(cmd.Context(), config.ServerAddress(), sel, cmd.OutOrStdout())
		},
	}
}

// loadConfig reads the config file, then lets explicitly set flags win.
func loadConfig(cmd *cobra.Command, g *globalFlags) (*clipmirror.Config, error) {
	config, err := clipmirror.LoadConfig(g.configPath)
	if err != nil {
		return nil, err
	}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "address":
			config.Address = g.address
		case "port":
			config.Port = g.port
		case "log-level":
			config.LogLevel = g.logLevel
		}
	})
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func runServer(ctx context.Context, config *clipmirror.Config, logOut io.Writer) error {
	level, err := clipmirror.ParseLogLevel(config.LogLevel)
	if err != nil {
		return err
	}
	logger := clipmirror.NewLogger(level, logOut)

	board, err := clipboard.Open(config.Backend)
	if err != nil {
		return fmt.Errorf("error loading clipboard: %w", err)
	}
	readTimeout, err := config.ReadTimeoutDuration()
	if err != nil {
		return err
	}
	opts := []clipmirror.ServerOption{
		clipmirror.WithLogger(logger),
		clipmirror.WithMaxRequestBytes(config.MaxRequestBytes),
		clipmirror.WithReadTimeout(readTimeout),
	}
	if config.MetricsAddress != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, clipmirror.WithMetrics(clipmirror.NewMetrics(reg)))
		go func() {
			if err := clipmirror.ServeMetrics(ctx, config.MetricsAddress, reg, logger); err != nil {
				logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}
	return clipmirror.NewServer(board, opts...).ListenAndServe(ctx, config.ServerAddress())
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
