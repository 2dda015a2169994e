package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pulsechat/relay/internal/auth"
	"github.com/pulsechat/relay/internal/queue"
	"github.com/pulsechat/relay/internal/server"
	"github.com/pulsechat/relay/internal/store"
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg, err := server.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	logger := server.NewLogger(cfg.Env)

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Storage: postgres when configured, in-memory for dev
	var st store.Store
	if cfg.PGURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.PGURL, logger)
		if err != nil {
			logger.Error("postgres.connect", "err", err)
			log.Fatal(err)
		}
		if err := store.RunMigrations(ctx, pg, logger); err != nil {
			logger.Error("migrations", "err", err)
			log.Fatal(err)
		}
		st = pg
	} else {
		logger.Warn("store.memory", "reason", "PG_URL not set; messages are not durable across restarts")
		st = store.NewMemory()
	}
	defer st.Close()

	// Write-behind queue + flusher
	pending := queue.NewPending()
	flusher := queue.NewFlusher(pending, st, cfg.FlushInterval, logger)
	flusherDone := make(chan struct{})
	go func() {
		defer close(flusherDone)
		flusher.Run(ctx)
	}()

	// Optional cross-instance bus
	var bus *server.RedisBus
	if cfg.RedisAddr != "" {
		bus, err = server.NewRedisBus(ctx, cfg.RedisAddr, cfg.RedisDB, logger)
		if err != nil {
			logger.Error("redis.connect", "err", err)
			log.Fatal(err)
		}
		defer bus.Close()
	}

	// Hub, relay, routes
	hub := server.NewHub(logger)
	relay := server.NewRelay(hub, pending, bus, logger)
	if bus != nil {
		go bus.Subscribe(ctx, func(chatID string, payload []byte) {
			hub.Broadcast(chatID, payload)
		})
	}

	jwt := auth.New(cfg.JWTSecret)
	api := server.NewAPI(cfg, logger, hub, relay, st, jwt)
	router := server.NewRouter(api, server.NewMiddleware(cfg, jwt))
	srv := server.CreateServer(cfg.Port, router)

	go func() {
		logger.Info("server.listening", "addr", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server.crash", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("server.shutdown.start")

	_ = server.ShutdownServer(srv, 10*time.Second, logger)
	_ = hub.Shutdown(5 * time.Second)

	// Let the flusher finish its final drain before closing the store.
	select {
	case <-flusherDone:
	case <-time.After(10 * time.Second):
		logger.Warn("flusher.drain.timeout")
	}

	logger.Info("server.shutdown.complete")
}
