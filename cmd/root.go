package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/freekieb7/bastro/config"
	"github.com/freekieb7/bastro/filesystem"
	"github.com/freekieb7/bastro/http"
	"github.com/freekieb7/bastro/pathmap"
)

type options struct {
	configPath  string
	host        string
	port        int
	transport   string
	idleTimeout time.Duration
	pages       []string
	assets      []string
}

// NewRootCommand builds the bastro command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "bastro [command] [flags]",
		Short:         "Serve a folder of pages and assets over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringArrayVar(&opts.pages, "page", nil, "page folder mount as url=dir, replaces the configured pages")
	root.PersistentFlags().StringArrayVar(&opts.assets, "asset", nil, "asset folder mount as url=dir, replaces the configured assets")

	root.AddCommand(newServeCommand(opts))
	root.AddCommand(newRoutesCommand(opts))

	return root
}

// Execute runs the command tree until ctx is cancelled or the command ends.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func resolveConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = opts.host
	}
	if flags.Changed("port") {
		cfg.Port = opts.port
	}
	if flags.Changed("transport") {
		cfg.Transport = opts.transport
	}
	if flags.Changed("idle-timeout") {
		cfg.IdleTimeout = opts.idleTimeout
	}
	if flags.Changed("page") {
		if cfg.Pages, err = parseMounts(opts.pages); err != nil {
			return cfg, err
		}
	}
	if flags.Changed("asset") {
		if cfg.Assets, err = parseMounts(opts.assets); err != nil {
			return cfg, err
		}
	}

	return cfg, cfg.Validate()
}

func parseMounts(values []string) ([]config.Mount, error) {
	mounts := make([]config.Mount, 0, len(values))
	for _, value := range values {
		mount, err := config.ParseMount(value)
		if err != nil {
			return nil, err
		}
		mounts = append(mounts, mount)
	}
	return mounts, nil
}

// buildRouter registers the request logger, the not-found page, then every
// page mount and every asset mount in configuration order.
func buildRouter(cfg config.Config, fs filesystem.Filesystem, logger *slog.Logger) (*http.Router, error) {
	mismatch, err := http.ParseMethodMismatch(cfg.MethodMismatch)
	if err != nil {
		return nil, err
	}

	router := http.NewRouter(http.RouterOptions{MethodMismatch: mismatch})
	router.AddHandler(http.RequestLogger(logger))
	router.AddNotFoundHandler(http.StaticHandler(http.StatusNotFound, cfg.NotFoundBody))

	mapper := pathmap.NewMapper(fs, router, logger)
	for _, mount := range cfg.Pages {
		if err := mapper.RouteFolder(mount.URL, mount.Dir); err != nil {
			return nil, errors.Wrapf(err, "pages %s", mount)
		}
	}
	for _, mount := range cfg.Assets {
		if err := mapper.ServeFolder(mount.URL, mount.Dir); err != nil {
			return nil, errors.Wrapf(err, "assets %s", mount)
		}
	}

	return router, nil
}
