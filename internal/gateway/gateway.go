// Package gateway provides the HTTP server for monitoring and webhooks:
// health, status, Prometheus metrics, the live event feed, and the
// Telegram webhook mount. It binds to loopback by default and follows
// the module system pattern.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/gemgram/gemgram/internal/channel"
	"github.com/gemgram/gemgram/internal/core"
	"github.com/gemgram/gemgram/internal/events"
	"github.com/gemgram/gemgram/internal/provider"
	"github.com/gemgram/gemgram/internal/security"
	"github.com/gemgram/gemgram/internal/stats"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Gateway is the HTTP gateway module. It is a leaf module: nothing
// imports it, and everything it serves is resolved from the service
// registry.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time

	// Resolved lazily at Start() via service registry.
	status     *provider.Status
	statsView  stats.Reader
	hub        *events.Hub
	gatherer   prometheus.Gatherer
	redactor   *security.Redactor
	channels   *channel.Dispatcher
	webhook    http.Handler
	configView map[string]any
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.config.defaults()
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	return nil
}

// Start implements core.Starter. It resolves dependencies from the
// service registry (lazy binding) and starts the HTTP server.
func (g *Gateway) Start() error {
	if svc, ok := g.appCtx.GetService("provider.status"); ok {
		if st, ok := svc.(*provider.Status); ok {
			g.status = st
		}
	}
	if svc, ok := g.appCtx.GetService("stats.reader"); ok {
		if rd, ok := svc.(stats.Reader); ok {
			g.statsView = rd
		}
	}
	if svc, ok := g.appCtx.GetService("events.hub"); ok {
		if hub, ok := svc.(*events.Hub); ok {
			g.hub = hub
		}
	}
	if svc, ok := g.appCtx.GetService("metrics.gatherer"); ok {
		if gath, ok := svc.(prometheus.Gatherer); ok {
			g.gatherer = gath
		}
	}
	if svc, ok := g.appCtx.GetService("security.redactor"); ok {
		if red, ok := svc.(*security.Redactor); ok {
			g.redactor = red
		}
	}
	if svc, ok := g.appCtx.GetService("channel.dispatcher"); ok {
		if d, ok := svc.(*channel.Dispatcher); ok {
			g.channels = d
		}
	}
	if svc, ok := g.appCtx.GetService("telegram.webhook"); ok {
		if h, ok := svc.(http.Handler); ok {
			g.webhook = h
		}
	}
	if svc, ok := g.appCtx.GetService("config.view"); ok {
		if view, ok := svc.(map[string]any); ok {
			g.configView = view
		}
	}

	g.startedAt = time.Now()

	mux := g.buildRouter()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      mux,
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Bind)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
