package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lockerroom/lockerroom/internal/auth"
	"github.com/lockerroom/lockerroom/internal/config"
	"github.com/lockerroom/lockerroom/internal/db"
	"github.com/lockerroom/lockerroom/internal/observability"
	"github.com/lockerroom/lockerroom/internal/repo"
	"github.com/lockerroom/lockerroom/internal/repo/memory"
	"github.com/lockerroom/lockerroom/internal/repo/postgres"
	"github.com/lockerroom/lockerroom/internal/server"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	// tracing is opt-in via OTEL_EXPORTER_OTLP_ENDPOINT
	tracing := false

	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(context.Background(), "lockerroom-devserver", cfg.OTLPEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			tracing = true

			defer func() {
				ctx, cancel := config.WithTimeout(3 * time.Second)
				defer cancel()
				_ = shutdown(ctx)
			}()
		}
	}

	// user store: postgres when DB_URL is set, in-memory otherwise
	var users repo.UserStore

	ping := func() error { return nil }

	if cfg.DBURL != "" {
		pool, err := db.NewPool(cfg.DBURL)

		if err != nil {
			log.Error("db connect failed", "err", err)
			os.Exit(1)
		}

		defer pool.Close()

		users = postgres.NewUsersRepo(pool)
		ping = func() error {
			ctx, cancel := config.WithTimeout(1 * time.Second)
			defer cancel()

			return pool.Ping(ctx)
		}
	} else {
		users = memory.NewUsersRepo()
		log.Info("no DB_URL set, using in-memory user store")
	}

	seedCtx, cancel := config.WithTimeout(5 * time.Second)

	err := db.EnsureAdminUser(seedCtx, users, cfg)

	cancel()

	if err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}

	jwtManager := auth.NewManager(cfg.JWTSecret, time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute)

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	router := server.NewRouter(log, cfg, server.Deps{
		Users:          users,
		JWT:            jwtManager,
		Prom:           prom,
		PromReg:        reg,
		Ping:           ping,
		Tracing:        tracing,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("devserver starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
