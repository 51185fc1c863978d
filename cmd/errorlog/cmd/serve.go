package cmd

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"errorlog/internal/config"
	"errorlog/internal/errorlog"
	"errorlog/internal/proxy"
	"errorlog/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the supervised reverse proxy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		log := logger.New(logger.LoggerConfig{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: cmd.ErrOrStderr(),
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg, log, cmd.ErrOrStderr())
	},
}

// gateway is the assembled request pipeline.
type gateway struct {
	handler    http.Handler
	dispatcher *errorlog.Dispatcher
	proxy      *proxy.Proxy
}

// newGateway wires the proxy under the error log and routes the health and
// metrics endpoints beside it. Fault traces go to diag when no log channel
// is set.
func newGateway(cfg *config.Config, log *logger.Logger, reg *prometheus.Registry, diag io.Writer) (*gateway, error) {
	p, err := proxy.New(cfg, log)
	if err != nil {
		return nil, err
	}

	opts := errorlog.FromConfig(cfg.ErrorLog, log)
	opts.Registerer = reg

	d, err := errorlog.New(p, opts)
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(middleware.RealIP)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":   "ok",
			"service":  "errorlog",
			"version":  cfg.Version,
			"instance": d.Instance(),
			"targets":  p.GetStats(),
		})
	})

	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	if prefix := cfg.ErrorLog.Prefix; prefix != "" {
		router.Handle(d.ViewPath(), http.StripPrefix(prefix, d))
	}

	router.Mount("/", d)

	return &gateway{
		handler:    errorlog.DiagnosticsMiddleware(diag)(router),
		dispatcher: d,
		proxy:      p,
	}, nil
}

func serve(ctx context.Context, cfg *config.Config, log *logger.Logger, diag io.Writer) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	gw, err := newGateway(cfg, log, reg, diag)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      gw.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(log.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting errorlog gateway",
			"addr", server.Addr,
			"error_log", gw.dispatcher.Path(),
			"targets", gw.proxy.Targets(),
			"instance", gw.dispatcher.Instance(),
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)

	case <-ctx.Done():
	}

	log.Info("Shutting down", "timeout", cfg.Server.GracefulTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
