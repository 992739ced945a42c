package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rikhil-Nell/call-agent/internal/audit"
	"github.com/Rikhil-Nell/call-agent/internal/auth"
	"github.com/Rikhil-Nell/call-agent/internal/calls"
	"github.com/Rikhil-Nell/call-agent/internal/cdr"
	"github.com/Rikhil-Nell/call-agent/internal/config"
	"github.com/Rikhil-Nell/call-agent/internal/httpapi"
	"github.com/Rikhil-Nell/call-agent/internal/telephony"
	"github.com/Rikhil-Nell/call-agent/pkg/logger"
	"github.com/Rikhil-Nell/call-agent/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown. Cancellation also unblocks any
	// in-flight outbound dial still awaiting pickup.
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	creds := telephony.Credentials{
		URL:       cfg.LiveKit.URL,
		APIKey:    cfg.LiveKit.APIKey,
		APISecret: cfg.LiveKit.APISecret,
	}
	trunk := telephony.NewLiveKitTrunk(creds)
	dispatch := telephony.NewLiveKitDispatch(creds)

	opts := calls.Options{
		AgentName:           cfg.Call.AgentName,
		TrunkID:             cfg.Call.TrunkID,
		DefaultInstructions: cfg.Call.DefaultInstructions,
		Events:              audit.NewService(audit.NewMemoryRepo()),
		Log:                 log,
	}

	var registry calls.Registry = calls.NewMemoryRegistry()
	if cfg.RedisEnabled() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		registry = calls.NewRedisRegistry(rdb)

		if cfg.Call.MaxConcurrent > 0 {
			limiter, err := utils.NewDialLimiter(rdb, "calls:dial_slots", cfg.Call.MaxConcurrent, 5*time.Minute)
			if err != nil {
				log.Error("dial limiter init failed", "err", err)
				os.Exit(1)
			}
			opts.Limiter = limiter
		}
	}

	if cfg.DBEnabled() {
		db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		opts.Archive = cdr.NewRecorder(cdr.NewPostgresRepo(db))
	}

	controller := calls.NewController(registry, trunk, dispatch, opts)

	var authMW gin.HandlerFunc
	if cfg.AuthEnabled() {
		manager, err := auth.NewManager(cfg.Auth)
		if err != nil {
			log.Error("auth init failed", "err", err)
			os.Exit(1)
		}
		authMW = auth.RequireToken(manager)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, httpapi.Handlers{Calls: controller}, authMW)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
		// Request contexts derive from BaseContext, so cancelling rootCtx on
		// shutdown propagates into any dial still awaiting pickup.
		BaseContext:       func(net.Listener) context.Context { return rootCtx },
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// An outbound dial blocks until pickup; give it room before the
		// server cuts the response off.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("call server listening", "addr", srv.Addr, "env", cfg.App.Env, "agent", cfg.Call.AgentName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
