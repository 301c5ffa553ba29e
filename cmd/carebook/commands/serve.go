package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/carebook"
	"github.com/hupe1980/carebook/api"
	"github.com/hupe1980/carebook/engine"
	"github.com/hupe1980/carebook/metrics"
)

var (
	servePort            int
	serveShutdownTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = servePort
		}

		logger, err := newLogger(cfg, os.Stdout)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		m := metrics.New()

		cb, err := carebook.NewFromConfig(ctx, cfg, func(o *carebook.Options) {
			o.Logger = logger
			o.Hooks = append(m.Hooks(), engine.LoggingHooks(logger)...)
		})
		if err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
		defer func() {
			if err := cb.Close(); err != nil {
				logger.Error("server.close.failed", "error", err)
			}
		}()

		srv := &http.Server{
			Addr: cfg.Addr(),
			Handler: api.NewRouter(cb, func(o *api.Options) {
				o.CORSOrigins = cfg.CORSOrigins
				o.Metrics = m.Handler()
				o.Logger = logger
				if cfg.TurnTimeout > 0 {
					o.RequestTimeout = cfg.TurnTimeout + 5*time.Second
				}
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			logger.Info("server.start", "addr", srv.Addr, "provider", cfg.Provider, "redis", cfg.UsesRedis())
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			logger.Info("server.shutdown")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to listen on (overrides configuration)")
	serveCmd.Flags().DurationVar(&serveShutdownTimeout, "shutdown-timeout", 15*time.Second, "Grace period for in-flight requests")
}
