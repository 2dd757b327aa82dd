package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/terminal-chess/internal/config"
	"github.com/park285/terminal-chess/internal/matchfinder"
	"github.com/park285/terminal-chess/internal/obslog"
	"github.com/park285/terminal-chess/pkg/wire"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv("matchfinder.log"); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Match store (Redis optional)
	var store matchfinder.Store
	if cfg.RedisURL != "" {
		rs, err := matchfinder.OpenRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis init error: %v", err)
		}
		defer rs.Close()
		store = rs
	}

	mfCfg := matchfinder.DefaultConfig()
	mfCfg.MoveTimeout = cfg.QuickplayMoveTimeout
	srv := matchfinder.NewServer(mfCfg, store, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		q := srv.Queue()
		fmt.Fprintf(w, "ok %s=%d %s=%d\n",
			wire.QueueQuickplay, q.Waiting(wire.QueueQuickplay),
			wire.QueueNormal, q.Waiting(wire.QueueNormal))
	})
	mux.Handle("/", srv)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mf_listen", zap.String("addr", cfg.ListenAddr), zap.Duration("move_timeout", mfCfg.MoveTimeout), zap.Bool("store", store != nil))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("mf_listen_error", zap.Error(err))
		}
	}

	logger.Info("mf_shutdown")
	srv.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
}
