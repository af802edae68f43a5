package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/oharling/newsrelay/internal/app"
	"github.com/oharling/newsrelay/internal/config"
	"github.com/oharling/newsrelay/internal/observability/otelx"
)

func main() {
	_ = godotenv.Load()
	env := config.LoadEnv()

	configPath := flag.String("config", env.ConfigPath, "path to relay document")
	listenAddr := flag.String("listen", env.ListenAddr, "admin API listen address")
	runOnce := flag.Bool("run-once", env.RunOnce, "run one cycle and exit")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))
	slog.SetDefault(logger)

	doc, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load relay document: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otelx.Init(ctx, logger, env.OTel)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	if shutdownTracing != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracing(shutdownCtx)
		}()
	}

	relay, err := app.New(logger, doc, env)
	if err != nil {
		log.Fatalf("failed to build relay: %v", err)
	}
	defer func() {
		if err := relay.Close(); err != nil {
			logger.Error("store close failed", "error", err)
		}
	}()

	if *runOnce {
		if _, err := relay.Scheduler.RunNow(ctx); err != nil {
			log.Fatalf("cycle failed: %v", err)
		}
		return
	}

	if err := relay.Scheduler.Start(ctx); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}

	go func() {
		if err := relay.Server.Start(*listenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin API stopped", "error", err)
			stop()
		}
	}()
	logger.Info("newsrelay running", "listen_addr", *listenAddr, "schedule", doc.Schedule)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := relay.Server.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin API shutdown failed", "error", err)
	}
}
