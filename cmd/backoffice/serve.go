package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/backoffice/internal/backoffice"
	"github.com/vango-dev/backoffice/internal/config"
	"github.com/vango-dev/backoffice/internal/errors"
	"github.com/vango-dev/backoffice/internal/store"
	"github.com/vango-dev/backoffice/pkg/i18n"
	"github.com/vango-dev/backoffice/pkg/middleware"
	"github.com/vango-dev/backoffice/pkg/server"
	"github.com/vango-dev/backoffice/pkg/upload"
)

func serveCmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the back office server",
		Long: `Start the back office server.

The server opens the record database, seeds it when configured and
empty, and serves pages until interrupted. SIGINT or SIGTERM close
live sessions and drain open requests.

Examples:
  backoffice serve
  backoffice serve --port=9000
  backoffice serve -c /etc/backoffice/backoffice.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from "+config.ConfigFileName+")")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from "+config.ConfigFileName+")")

	return cmd
}

// runServe runs the server until ctx ends.
func runServe(ctx context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	records, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer records.Close()

	bundle, err := i18n.NewBundle(cfg.I18n.DefaultLanguage)
	if err != nil {
		return errors.New("E108").Wrap(err)
	}

	app, err := backoffice.New(records, bundle, backoffice.WithLogger(logger))
	if err != nil {
		return errors.New("E120").Wrap(err)
	}

	srv, err := newServer(cfg, app, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "url", cfg.URL(), "sessions_max", cfg.Server.MaxSessions)
		if err := srv.ListenAndServe(); err != nil {
			return errors.New("E160").Wrap(err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if err := srv.Shutdown(context.Background()); err != nil {
			return errors.New("E161").Wrap(err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}

// openStore opens the record database and seeds it when configured.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	records, err := store.Open(ctx, cfg.Database.Driver, cfg.DatabaseDSN(), store.WithLogger(logger))
	if err != nil {
		return nil, errors.New("E140").
			WithDetail("driver " + cfg.Database.Driver).
			WithSuggestion("Check database.dsn in " + config.ConfigFileName).
			Wrap(err)
	}

	if cfg.Database.Seed {
		n, err := records.Seed(ctx)
		if err != nil {
			records.Close()
			return nil, errors.New("E141").Wrap(err)
		}
		if n > 0 {
			logger.Info("database seeded", "records", n)
		}
	}
	return records, nil
}

// newUploadStore builds the configured attachment store. It returns nil
// when uploads are disabled.
func newUploadStore(cfg *config.Config) (upload.Store, error) {
	maxSize := cfg.UploadConfig().MaxFileSize
	switch cfg.Uploads.Backend {
	case "disk":
		s, err := upload.NewDiskStore(cfg.UploadPath(), maxSize)
		if err != nil {
			return nil, errors.New("E142").WithDetail(cfg.UploadPath()).Wrap(err)
		}
		return s, nil
	case "s3":
		client := upload.NewS3Client(cfg.S3())
		return upload.NewS3Store(client, cfg.Uploads.S3.Bucket, cfg.Uploads.S3.Prefix, maxSize), nil
	case "none":
		return nil, nil
	default:
		return nil, errors.New("E107").WithDetail(fmt.Sprintf("backend is %q", cfg.Uploads.Backend))
	}
}

// newServer wires the server options from the configuration.
func newServer(cfg *config.Config, app *backoffice.App, logger *slog.Logger) (*server.Server, error) {
	sc, err := cfg.ServerConfig()
	if err != nil {
		return nil, err
	}

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithStatic(backoffice.Static()),
		server.WithDefaultPrincipal(cfg.Principal()),
	}

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m := middleware.NewMetrics(
			middleware.WithRegistry(reg),
			middleware.WithNamespace(cfg.Metrics.Namespace),
		)
		opts = append(opts, server.WithMetrics(m, reg))
	}

	if cfg.Tracing.Enabled {
		name := cfg.Name
		if name == "" {
			name = "backoffice"
		}
		opts = append(opts, server.WithNavigationMiddleware(middleware.OpenTelemetry(
			middleware.WithTracerName(name),
			middleware.WithIncludeUserID(cfg.Tracing.IncludeUserID),
		)))
	}

	uploads, err := newUploadStore(cfg)
	if err != nil {
		return nil, err
	}
	if uploads != nil {
		uc := cfg.UploadConfig()
		uc.Logger = logger
		opts = append(opts, server.WithUploads(uploads, uc))
	}

	if p := cfg.Principal(); !p.IsZero() {
		logger.Warn("requests without identity headers act as the default user", "user", p.ID, "roles", p.Roles)
	}

	return server.New(app, sc, opts...), nil
}
