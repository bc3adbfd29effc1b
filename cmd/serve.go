package cmd

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/freekieb7/bastro/config"
	"github.com/freekieb7/bastro/filesystem"
	"github.com/freekieb7/bastro/http"
	nethttp "github.com/freekieb7/bastro/net/http"
	"github.com/freekieb7/bastro/telemetry"
)

func newServeCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Map the configured folders to routes and start the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, filesystem.NewLocalFileSystem(), cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.host, "host", "", "interface to bind")
	flags.IntVarP(&opts.port, "port", "p", 0, "port to bind")
	flags.StringVar(&opts.transport, "transport", "", "server transport: tcp or net")
	flags.DurationVar(&opts.idleTimeout, "idle-timeout", 0, "close unanswered connections after this long")

	return cmd
}

func telemetryConfig(cfg config.Config) telemetry.Config {
	return telemetry.Config{
		Enabled:       cfg.Telemetry.Enabled,
		ServiceName:   cfg.Telemetry.ServiceName,
		Endpoint:      cfg.Telemetry.Endpoint,
		LogLevel:      cfg.Log.Level,
		LogFormat:     cfg.Log.Format,
		LogFile:       cfg.Log.File,
		LogMaxSizeMB:  cfg.Log.MaxSizeMB,
		LogMaxBackups: cfg.Log.MaxBackups,
	}
}

func serve(ctx context.Context, cfg config.Config, fs filesystem.Filesystem, out io.Writer) (err error) {
	shutdown, err := telemetry.Setup(ctx, telemetryConfig(cfg))
	if err != nil {
		return err
	}
	defer func() {
		if shutdownErr := shutdown(context.Background()); shutdownErr != nil && err == nil {
			err = shutdownErr
		}
	}()

	logger, err := telemetry.NewLogger(telemetryConfig(cfg))
	if err != nil {
		return err
	}

	router, err := buildRouter(cfg, fs, logger)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	printBanner(out, addr, cfg, router)

	switch cfg.Transport {
	case config.TransportNet:
		server := nethttp.NewServer(addr, router, logger)
		server.IdleTimeout = cfg.IdleTimeout
		err = server.ListenAndServe(ctx)
	default:
		server := http.NewServer(cfg.Port, cfg.Host,
			http.WithRouter(router),
			http.WithLogger(logger),
			http.WithIdleTimeout(cfg.IdleTimeout),
		)
		err = server.ListenAndServe(ctx)
	}

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func printBanner(out io.Writer, addr string, cfg config.Config, router *http.Router) {
	title := color.New(color.FgCyan, color.Bold)
	label := color.New(color.FgHiBlack)

	title.Fprintln(out, "bastro")
	for _, mount := range cfg.Pages {
		fmt.Fprintf(out, "  %s %s -> %s\n", label.Sprint("pages "), mount.URL, mount.Dir)
	}
	for _, mount := range cfg.Assets {
		fmt.Fprintf(out, "  %s %s -> %s\n", label.Sprint("assets"), mount.URL, mount.Dir)
	}
	fmt.Fprintf(out, "  %s %d routes, %s transport on %s\n", label.Sprint("routes"), len(router.Routes()), cfg.Transport, addr)
}
