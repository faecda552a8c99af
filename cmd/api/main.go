package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/notehub/internal/auth"
	"github.com/geocoder89/notehub/internal/cache"
	"github.com/geocoder89/notehub/internal/config"
	"github.com/geocoder89/notehub/internal/db"
	httpx "github.com/geocoder89/notehub/internal/http"
	"github.com/geocoder89/notehub/internal/observability"
	"github.com/geocoder89/notehub/internal/redisclient"
	"github.com/geocoder89/notehub/internal/repo/memory"
	"github.com/geocoder89/notehub/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	shutdownTracer, err := observability.InitTracer(context.Background(), observability.TracerConfig{
		ServiceName: cfg.OTELServiceName,
		Env:         cfg.Env,
		Endpoint:    cfg.OTELEndpoint,
		SampleRatio: cfg.OTELSampleRatio,
	})
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	deps := httpx.Deps{
		JWT:      auth.NewManager(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL()),
		Prom:     prom,
		Gatherer: reg,
	}

	var notesRepo cache.NotesRepository

	switch cfg.Storage {
	case "memory":
		log.Warn("using in-memory storage, data is lost on restart")

		notes := memory.NewNotesRepo()
		notesRepo = notes
		deps.Users = memory.NewUsersRepo(notes)
		deps.RefreshTokens = memory.NewRefreshTokensRepo()

	default:
		pool, err := db.NewPool(context.Background(), cfg.DBURL)
		if err != nil {
			log.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()

		if cfg.AutoMigrate {
			ctx, cancel := config.WithTimeout(10 * time.Second)
			err := db.EnsureSchema(ctx, pool)
			cancel()
			if err != nil {
				log.Error("schema bootstrap failed", "err", err)
				os.Exit(1)
			}
		}

		notesRepo = postgres.NewNotesRepo(pool, prom)
		deps.Users = postgres.NewUsersRepo(pool, prom)
		deps.RefreshTokens = postgres.NewRefreshTokensRepo(pool, prom)
		deps.Ping = func() error {
			ctx, cancel := config.WithTimeout(time.Second)
			defer cancel()
			return pool.Ping(ctx)
		}
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rc := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rc.Close() }()

		ctx, cancel := config.WithTimeout(2 * time.Second)
		if err := rc.Ping(ctx); err != nil {
			// the cache degrades to pass-through per request
			log.Warn("redis unavailable at startup", "addr", cfg.RedisAddr, "err", err)
		}
		cancel()

		rdb = rc.Raw()
	}

	deps.Notes = cache.NewNotes(notesRepo, rdb, cfg.NotesCacheTTL(), prom)

	router := httpx.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "storage", cfg.Storage)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	ctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}

	if err := shutdownTracer(ctx); err != nil {
		log.Error("tracer shutdown failed", "err", err)
	}

	log.Info("shutdown complete")
}
