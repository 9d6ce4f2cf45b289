package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/noobsquad/chatcore/internal/auth"
	"github.com/noobsquad/chatcore/internal/cache"
	"github.com/noobsquad/chatcore/internal/config"
	"github.com/noobsquad/chatcore/internal/database"
	"github.com/noobsquad/chatcore/internal/metrics"
	"github.com/noobsquad/chatcore/internal/obs"
	"github.com/noobsquad/chatcore/internal/repository"
	memoryrepo "github.com/noobsquad/chatcore/internal/repository/memory"
	postgresrepo "github.com/noobsquad/chatcore/internal/repository/postgres"
	"github.com/noobsquad/chatcore/internal/service"
	"github.com/noobsquad/chatcore/internal/storage/s3"
	"github.com/noobsquad/chatcore/internal/transport/http/handlers"
	"github.com/noobsquad/chatcore/internal/transport/http/middleware"
	"github.com/noobsquad/chatcore/internal/transport/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Repositories
	var (
		msgRepo  repository.MessageRepository
		userRepo repository.UserRepository
	)
	switch cfg.MessageStore {
	case config.StoreMemory:
		profiles, err := memoryrepo.ParseProfiles(cfg.SeedUsers)
		if err != nil {
			return fmt.Errorf("SEED_USERS: %w", err)
		}
		msgRepo = memoryrepo.NewMessageRepo(nil)
		userRepo = memoryrepo.NewUserRepo(profiles...)
		logger.Warn("using in-memory message store; messages are lost on restart", "users", len(profiles))
	default:
		pool, err := database.Connect(ctx, cfg.DatabaseURL())
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		logger.Info("connected to database", "host", cfg.DBHost, "name", cfg.DBName)
		msgRepo = postgresrepo.NewMessageRepo(pool)
		userRepo = postgresrepo.NewUserRepo(pool)
	}

	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rc.Close()
		userRepo = cache.NewProfileCache(userRepo, rc, cfg.ProfileCacheTTL, logger)
		logger.Info("profile cache enabled", "ttl", cfg.ProfileCacheTTL)
	}

	// Object store
	var store service.ObjectStore = s3.Unconfigured{}
	if cfg.S3Endpoint != "" {
		client, err := s3.NewClient(s3.Options{
			Endpoint:       cfg.S3Endpoint,
			PublicEndpoint: cfg.S3PublicEndpoint,
			AccessKey:      cfg.S3AccessKey,
			SecretKey:      cfg.S3SecretKey,
			Bucket:         cfg.S3Bucket,
			UseSSL:         cfg.S3UseSSL,
		}, logger)
		if err != nil {
			return err
		}
		store = client
	} else {
		logger.Warn("S3_ENDPOINT not set; uploads will fail")
	}

	// Services
	chatService := service.NewChatService(msgRepo, userRepo, logger)
	uploadService := service.NewUploadService(store, logger)

	// Handlers
	verifier := auth.NewVerifier(cfg.JWTSecret)
	registry := ws.NewRegistry(logger)
	chatHandler := handlers.NewChatHandler(chatService, logger)
	uploadHandler := handlers.NewUploadHandler(uploadService, cfg.UploadMaxBytes, logger)

	// Auth middleware
	authMW := middleware.Auth(verifier)

	// Routes
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.Handle("GET /metrics", metrics.Handler())

	// WebSocket (token in query string)
	mux.Handle("GET /ws", ws.ServeWS(registry, chatService, verifier, ws.Options{
		Session: ws.SessionOptions{
			MessageRate:  cfg.WSMessageRate,
			MessageBurst: cfg.WSMessageBurst,
			StoreTimeout: cfg.StoreTimeout,
		},
		SendBuffer:      cfg.WSSendBuffer,
		MaxMessageBytes: cfg.WSMaxMessageBytes,
		OriginPatterns:  originPatterns(cfg.CORSOrigins),
	}, logger))

	// Protected - Chat
	mux.Handle("GET /api/v1/chat/conversations", authMW(http.HandlerFunc(chatHandler.ListConversations)))
	mux.Handle("GET /api/v1/chat/history/{userID}", authMW(http.HandlerFunc(chatHandler.History)))
	mux.Handle("POST /api/v1/chat/upload", authMW(http.HandlerFunc(uploadHandler.Upload)))

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: middleware.CORS(cfg.CORSOrigins)(mux),
	}
	srv.RegisterOnShutdown(func() { registry.CloseAll("server shutting down") })

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "env", cfg.Env, "store", cfg.MessageStore)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// originPatterns turns CORS origins into websocket host patterns. A wildcard
// disables the origin check.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		if o == "*" {
			return nil
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			o = u.Host
		}
		out = append(out, o)
	}
	return out
}
