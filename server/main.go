package main

import (
	"context"
	"cbr-rate-converter/app"
	"cbr-rate-converter/config"
	"flag"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	configFile := flag.String("config", "", "config file path")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
		logger.Log("msg", "failed to load config", "err", err)
		os.Exit(1)
	}

	logger := app.NewLogger(os.Stderr, cfg.Log)
	a := app.New(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// warm the cache so the first request does not pay for the fetch
	if _, err := a.Cache.Rates(ctx); err != nil {
		level.Warn(logger).Log("msg", "initial rate fetch failed", "err", err)
	}

	if err := a.Serve(ctx); err != nil {
		level.Error(logger).Log("msg", "server stopped", "err", err)
		os.Exit(1)
	}
}
