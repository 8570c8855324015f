// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sessiond Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/sessiond/sessiond/internal/auth"
	"github.com/sessiond/sessiond/internal/auth/postgres"
	authredis "github.com/sessiond/sessiond/internal/auth/redis"
	"github.com/sessiond/sessiond/internal/config"
	"github.com/sessiond/sessiond/internal/httpapi"
	"github.com/sessiond/sessiond/internal/logging"
	"github.com/sessiond/sessiond/internal/observability"
	"github.com/sessiond/sessiond/internal/xdg"
	"github.com/sessiond/sessiond/pkg/errutil"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd(configFile *string, deps *ServeDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API. Waits for PostgreSQL and Redis, applies pending
migrations unless --auto-migrate=false, then serves until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := resolveConfigFile(*configFile)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path, cmd.Flags())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, deps)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

// runServe runs until ctx is canceled or a server fails.
func runServe(ctx context.Context, cfg *config.Config, deps *ServeDeps) error {
	deps = deps.withDefaults()

	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.New(logging.Options{
		Service: "sessiond",
		Version: version,
		Format:  cfg.LogFormat,
		Level:   level,
		Writer:  deps.LogWriter,
	})
	slog.SetDefault(logger)

	if err := xdg.EnsureDir(cfg.UploadDir); err != nil {
		return err
	}

	db, err := deps.OpenDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := waitFor(ctx, deps, logger, "postgres", db.Ping); err != nil {
		return err
	}

	if cfg.AutoMigrate {
		if err := autoMigrate(cfg.DatabaseURL, deps.NewMigrator, logger); err != nil {
			return err
		}
	}

	redisClient, err := authredis.NewClient(cfg.RedisURL, cfg.RedisPassword)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			errutil.LogWarn(logger, "error closing redis client", err)
		}
	}()
	sessions := authredis.NewSessionStore(redisClient, cfg.StoreTimeout)
	if err := waitFor(ctx, deps, logger, "redis", sessions.Ping); err != nil {
		return err
	}

	obs := observability.NewServer(cfg.MetricsAddr, logger,
		observability.Check{Name: "postgres", Fn: db.Ping},
		observability.Check{Name: "redis", Fn: sessions.Ping},
	)

	tokens, err := auth.NewJWTCodec([]byte(cfg.JWTSecret))
	if err != nil {
		return err
	}
	svc, err := auth.NewService(
		postgres.NewIdentityRepository(db, postgres.WithTimeout(cfg.StoreTimeout)),
		sessions,
		auth.NewBcryptHasher(cfg.BcryptCost),
		tokens,
		auth.WithLogger(logger),
		auth.WithTokenTTL(cfg.TokenTTL),
		auth.WithRecorder(obs.Metrics()),
	)
	if err != nil {
		return err
	}

	limiter := httpapi.NewRateLimiter(httpapi.RateLimiterConfig{
		Rate:  rate.Limit(cfg.RateLimit),
		Burst: cfg.RateBurst,
	}, logger)
	router := httpapi.NewRouter(httpapi.Deps{
		Auth:        svc,
		Uploader:    &httpapi.Uploader{Dir: cfg.UploadDir, MaxBytes: cfg.UploadMaxBytes, Logger: logger},
		RateLimiter: limiter,
		Recorder:    obs.Metrics(),
		Logger:      logger,
		CORSOrigin:  cfg.CORSOrigin,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopSweep := make(chan struct{})
	defer close(stopSweep)
	go limiter.SweepLoop(time.Minute, stopSweep)

	var metricsAddr string
	if cfg.MetricsAddr != "" {
		obsErr, err := obs.Start()
		if err != nil {
			return err
		}
		metricsAddr = obs.Addr()
		go monitorServerErrors(ctx, cancel, obsErr, "observability", logger)
	}

	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		stopObservability(obs, logger)
		return oops.Code("HTTP_LISTEN_FAILED").With("addr", cfg.HTTPAddr).Wrap(err)
	}
	api := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	apiErr := make(chan error, 1)
	go func() {
		defer close(apiErr)
		if err := api.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			apiErr <- err
		}
	}()

	logger.Info("sessiond ready", "http_addr", listener.Addr().String(), "metrics_addr", metricsAddr)
	if deps.OnReady != nil {
		deps.OnReady(listener.Addr().String(), metricsAddr)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-apiErr:
		serveErr = oops.Code("HTTP_SERVE_FAILED").Wrap(err)
		logger.Error("api server failed", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer shutdownCancel()
	if err := api.Shutdown(shutdownCtx); err != nil {
		errutil.LogWarn(logger, "error stopping api server", err)
	}
	stopObservability(obs, logger)

	logger.Info("shutdown complete")
	return serveErr
}

// waitFor retries check with exponential backoff until it succeeds, the
// retry budget is spent or ctx ends.
func waitFor(ctx context.Context, deps *ServeDeps, logger *slog.Logger, name string, check func(context.Context) error) error {
	backoff := retry.WithMaxRetries(deps.DialRetries, retry.NewExponential(deps.DialBackoff))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := check(ctx); err != nil {
			logger.Warn("dependency not ready", "dependency", name, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("DEPENDENCY_UNAVAILABLE").With("dependency", name).With("attempts", attempt).Wrap(err)
	}
	logger.Info("dependency ready", "dependency", name)
	return nil
}

func autoMigrate(url string, newMigrator func(string) (Migrator, error), logger *slog.Logger) error {
	m, err := newMigrator(url)
	if err != nil {
		return oops.Code("AUTO_MIGRATE_FAILED").Wrap(err)
	}
	defer func() {
		if err := m.Close(); err != nil {
			errutil.LogWarn(logger, "error closing migrator", err)
		}
	}()

	if err := m.Up(); err != nil {
		return oops.Code("AUTO_MIGRATE_FAILED").Wrap(err)
	}
	st, err := m.Status()
	if err != nil {
		return oops.Code("AUTO_MIGRATE_FAILED").Wrap(err)
	}
	logger.Info("database schema up to date", "version", st.Version)
	return nil
}

// monitorServerErrors cancels ctx when a background server reports an error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, name string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			logger.Error("server failed", "server", name, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}

func stopObservability(obs *observability.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := obs.Stop(ctx); err != nil {
		errutil.LogWarn(logger, "error stopping observability server", err)
	}
}

