package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/samvad-hq/market-proxy/internal/config"
	"github.com/samvad-hq/market-proxy/internal/logger"
	"github.com/samvad-hq/market-proxy/internal/server"
	"github.com/samvad-hq/market-proxy/pkg/proxy"
)

// Runtime wires config, logging, the proxy service and its command registry.
type Runtime struct {
	cfg      *config.Config
	log      logger.Logger
	service  *proxy.Service
	registry proxy.Registry
}

// NewRuntime builds the proxy runtime from config.
func NewRuntime(cfg *config.Config, log logger.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}

	svc := proxy.NewService(proxy.OptionsFromConfig(cfg, log))
	reg := proxy.DefaultRegistry(svc)
	log.InfoObj("proxy commands registered", "registry_meta", map[string]any{
		"commands":          reg.Names(),
		"quote_base_url":    cfg.QuoteBaseURL,
		"fund_base_url":     cfg.FundBaseURL,
		"fund_check_status": cfg.FundCheckStatus,
	})

	return &Runtime{cfg: cfg, log: log, service: svc, registry: reg}, nil
}

// Service returns the proxy service.
func (rt *Runtime) Service() *proxy.Service { return rt.service }

// Registry returns the command registry.
func (rt *Runtime) Registry() proxy.Registry { return rt.registry }

// Serve runs the HTTP bridge on the configured address until ctx is cancelled.
func (rt *Runtime) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", rt.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", rt.cfg.ListenAddr, err)
	}
	return rt.ServeListener(ctx, ln)
}

// ServeListener runs the HTTP bridge on ln until ctx is cancelled, then shuts
// down gracefully within the configured timeout.
func (rt *Runtime) ServeListener(ctx context.Context, ln net.Listener) error {
	if rt == nil || rt.service == nil {
		return fmt.Errorf("runtime is not initialized")
	}

	srv := &http.Server{
		Handler:           server.NewRouter(rt.service, rt.registry, rt.log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	rt.log.InfoObj("bridge listening", "bridge_state", map[string]any{
		"addr": ln.Addr().String(),
	})

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve bridge: %w", err)
	case <-ctx.Done():
	}

	rt.log.InfoObj("bridge shutting down", "reason", ctx.Err())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), rt.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown bridge: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve bridge: %w", err)
	}
	return nil
}
