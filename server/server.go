// Package server is the HTTP surface (SPEC_FULL.md component table): the
// payment webhook, a liveness probe, and a Prometheus metrics endpoint.
// Grounded on the teacher's cmd/divinesense/main.go calling convention
// (NewServer / Start / Shutdown) and its echo-based router packages.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"leadwatch/internal/profile"
	"leadwatch/payment"
)

const shutdownTimeout = 5 * time.Second

// Server owns the echo instance bound to this daemon's one inbound HTTP
// route set.
type Server struct {
	profile    *profile.Profile
	echo       *echo.Echo
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer wires the echo router: the C7 webhook at
// /tracking/payment/notification, a liveness probe at /healthz, and the
// Prometheus exposition at /metrics.
func NewServer(profile *profile.Profile, webhook *payment.WebhookHandler, metrics *Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	e.POST("/tracking/payment/notification", webhook.Handle)
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	return &Server{
		profile:    profile,
		echo:       e,
		httpServer: &http.Server{Handler: e},
		logger:     logger,
	}
}

// Start binds the configured address and serves in the background. A bind
// failure is returned synchronously; serve-time errors are logged.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", addr, err)
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server: serve failed", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Shutdown drains in-flight requests within shutdownTimeout, then closes the
// listener, per the §5 shutdown sequence.
func (s *Server) Shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("server: shutdown error", slog.String("error", err.Error()))
	}
}
