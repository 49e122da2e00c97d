// Package app wires the rate fetcher, cache and conversion service into a
// runnable application shared by the cbrconv CLI and the server binary.
package app

import (
	"context"
	"cbr-rate-converter/cbr"
	"cbr-rate-converter/config"
	"cbr-rate-converter/exchange"
	"cbr-rate-converter/http"
	"errors"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"io"
	"strings"
	"time"

	nhttp "net/http"
)

// App holds the decorated services
type App struct {
	Config   *config.Config
	Logger   log.Logger
	Registry *prometheus.Registry

	// Cache is the single rate table shared by every conversion
	Cache    *cbr.CachingService
	Exchange exchange.Service
}

// NewLogger builds the logger described by cfg, writing to w.
func NewLogger(w io.Writer, cfg config.LogConfig) log.Logger {
	w = log.NewSyncWriter(w)

	var logger log.Logger
	if strings.EqualFold(cfg.Format, "json") {
		logger = log.NewJSONLogger(w)
	} else {
		logger = log.NewLogfmtLogger(w)
	}

	switch strings.ToLower(cfg.Level) {
	case "debug":
		logger = level.NewFilter(logger, level.AllowDebug())
	case "warn":
		logger = level.NewFilter(logger, level.AllowWarn())
	case "error":
		logger = level.NewFilter(logger, level.AllowError())
	default:
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}

// New builds the service chain:
// cbr rest -> metrics -> logging -> cache -> exchange -> logging.
func New(cfg *config.Config, logger log.Logger) *App {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	cbrService := cbr.NewService(cbr.Config{
		URL:       cfg.Source.URL,
		Timeout:   cfg.Source.Timeout,
		UserAgent: cfg.Source.UserAgent,
	})
	cbrService = cbr.NewInstrumentingService(reg, cbrService)
	cbrService = cbr.NewLoggingService(level.Info(log.With(logger, "component", "cbr_rest")), cbrService)
	cache := cbr.NewCachingService(cfg.Cache.MaxAge, level.Warn(log.With(logger, "component", "cbr_cache")), cbrService)

	exchangeService := exchange.NewService(cache)
	exchangeService = exchange.NewLoggingService(level.Debug(log.With(logger, "component", "exchange")), exchangeService)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Registry: reg,
		Cache:    cache,
		Exchange: exchangeService,
	}
}

// Handler returns the HTTP API including /metrics.
func (a *App) Handler() nhttp.Handler {
	return http.NewServer(a.Exchange, a.Cache, promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
}

// Serve runs the HTTP server until ctx is done, refreshing the cached table
// in the background every cache.max_age.
func (a *App) Serve(ctx context.Context) error {
	server := &nhttp.Server{
		Addr:              a.Config.Server.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if a.Config.Cache.MaxAge > 0 {
		go a.Cache.RefreshPeriodically(ctx, a.Config.Cache.MaxAge)
	}

	errc := make(chan error, 1)
	go func() {
		level.Info(a.Logger).Log("msg", "listening", "addr", server.Addr)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, nhttp.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		level.Info(a.Logger).Log("msg", "shutting down")
		return server.Shutdown(shutdownCtx)
	}
}
