package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ahmedasif11/let-meet-sub000/internal/logging"
	"github.com/ahmedasif11/let-meet-sub000/internal/relay"
	"github.com/ahmedasif11/let-meet-sub000/internal/server"
)

func main() {
	addr := flag.String("addr", envOr("RELAY_ADDR", ":8080"), "listen address")
	flag.Parse()

	logging.Init(slog.LevelInfo)

	hub := relay.NewHub()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.Health)
	mux.HandleFunc("/ws", server.ServeWs(hub))

	srv := &http.Server{Addr: *addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		slog.Info("starting signaling relay", "addr", *addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("relay stopped", "err", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
