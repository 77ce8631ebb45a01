package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/filestage/internal/config"
	"github.com/vango-dev/filestage/pkg/middleware"
	"github.com/vango-dev/filestage/pkg/server"
	"github.com/vango-dev/filestage/pkg/telemetry"
)

type serveOptions struct {
	configPath string
	host       string
	port       int
	backend    string
	maxSize    string
	accept     []string
	multiple   bool
	ttl        string
}

func serveCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the staging server",
		Long: `Start the HTTP server hosting staging sessions.

Settings come from filestage.json in the working directory (or --config);
flags override the file.

Examples:
  filestage serve
  filestage serve --port=9000 --max-size=5MB --accept='image/*' --multiple
  filestage serve --config=/etc/filestage.json --backend=s3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServeConfig(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to filestage.json")
	cmd.Flags().StringVarP(&opts.host, "host", "H", "", "Host to bind to")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Port to listen on")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "Preview backend (memory, disk, s3)")
	cmd.Flags().StringVar(&opts.maxSize, "max-size", "", "Per-file size limit (e.g. 10MB)")
	cmd.Flags().StringSliceVar(&opts.accept, "accept", nil, "Accepted MIME patterns (e.g. image/*)")
	cmd.Flags().BoolVar(&opts.multiple, "multiple", false, "Allow multiple files per session")
	cmd.Flags().StringVar(&opts.ttl, "session-ttl", "", "Idle session lifetime (e.g. 30m)")

	return cmd
}

// loadServeConfig reads the config file, if any, and applies flag
// overrides.
func loadServeConfig(cmd *cobra.Command, opts serveOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case opts.configPath != "":
		cfg, err = config.LoadFile(opts.configPath)
	case config.Exists("."):
		cfg, err = config.Load(".")
	default:
		cfg = config.New()
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if opts.port > 0 {
		cfg.Server.Port = opts.port
	}
	if opts.backend != "" {
		cfg.Preview.Backend = opts.backend
	}
	if opts.maxSize != "" {
		cfg.Policy.MaxSize = opts.maxSize
	}
	if flags.Changed("accept") {
		cfg.Policy.Accept = opts.accept
	}
	if flags.Changed("multiple") {
		cfg.Policy.AllowMultiple = opts.multiple
	}
	if opts.ttl != "" {
		cfg.Server.SessionTTL = opts.ttl
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(ctx context.Context, cfg *config.Config) error {
	p, err := cfg.StagePolicy()
	if err != nil {
		return err
	}
	ttl, err := cfg.SessionTTL()
	if err != nil {
		return err
	}
	maxRequest, err := cfg.MaxRequestBytes()
	if err != nil {
		return err
	}
	alloc, previews, err := cfg.Backend(ctx)
	if err != nil {
		return err
	}

	srvCfg := &server.Config{
		Address:         cfg.Address(),
		Policy:          *p,
		Allocator:       alloc,
		PreviewHandler:  previews,
		PreviewPrefix:   cfg.Preview.Prefix,
		SessionTTL:      ttl,
		MaxRequestBytes: maxRequest,

		SessionsPerMinute: cfg.Server.SessionsPerMinute,
		SessionBurst:      cfg.Server.SessionBurst,
	}

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		srvCfg.Gatherer = reg
		srvCfg.MetricsPath = cfg.Metrics.Path
		srvCfg.StageMetrics = telemetry.NewMetrics(
			telemetry.WithRegistry(reg),
			telemetry.WithNamespace(cfg.Metrics.Namespace),
		)
		srvCfg.HTTPMetrics = middleware.NewMetrics(
			middleware.WithRegistry(reg),
			middleware.WithNamespace(cfg.Metrics.Namespace),
		)
	}

	success("Serving on http://%s", cfg.Address())
	info("Policy:   %s max, accept %v, mode %s", cfg.Policy.MaxSize, p.AcceptPatterns, p.Mode())
	info("Previews: %s", cfg.Preview.Backend)
	if cfg.Metrics.Enabled {
		info("Metrics:  %s", cfg.Metrics.Path)
	}

	return server.New(srvCfg).ListenAndServe(ctx)
}
