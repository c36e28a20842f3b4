package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecmigrate/internal/config"
	logpkg "github.com/kailas-cloud/vecmigrate/internal/logger"
)

// session holds what every command needs and releases it in reverse order.
type session struct {
	cfg     config.Config
	logger  *zap.Logger
	closers []func()
}

func setup(c *cli.Context) (*session, error) {
	cfg, err := config.Load(config.Options{
		Env:     c.String("env"),
		Path:    c.String("config"),
		EnvFile: c.String("env-file"),
	})
	if err != nil {
		return nil, err
	}

	level := c.String("log-level")
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logpkg.NewLogger(c.String("env"),
		logpkg.WithLevel(level),
		logpkg.WithOutput(c.String("log-file")),
	)
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, logger: logger}, nil
}

func (s *session) onClose(fn func()) {
	s.closers = append(s.closers, fn)
}

func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	_ = s.logger.Sync()
}

// serveMetrics exposes /metrics on addr for the lifetime of the run. Empty addr disables it.
func (s *session) serveMetrics(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		s.logger.Info("Serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	s.onClose(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
}
