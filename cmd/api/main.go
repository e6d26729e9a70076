package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/redis/go-redis/v9"

	"github.com/jihoon-dev/moneybook/internal/adapter/cache"
	"github.com/jihoon-dev/moneybook/internal/adapter/handler"
	"github.com/jihoon-dev/moneybook/internal/adapter/middleware"
	"github.com/jihoon-dev/moneybook/internal/adapter/storage"
	"github.com/jihoon-dev/moneybook/internal/core/config"
	"github.com/jihoon-dev/moneybook/internal/core/ledger"
	"github.com/jihoon-dev/moneybook/internal/core/security"
	"github.com/jihoon-dev/moneybook/internal/core/worker"
)

func main() {
	cfg := config.LoadConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET is not set")
		os.Exit(1)
	}

	ctx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	dbPool, err := storage.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := storage.Migrate(ctx, dbPool); err != nil {
		slog.Error("schema migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("✅ database connected")

	store := storage.NewPostgresStore(dbPool)
	store.WebhookURL = cfg.WebhookURL

	var denylist cache.Denylist
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		denylist = cache.NewRedisDenylist(rdb)
		slog.Info("✅ redis connected")
	} else {
		slog.Warn("REDIS_ADDR not set, using in-process token denylist")
		denylist = cache.NewMemoryDenylist()
	}

	tokens := security.NewTokenIssuer(cfg.JWTSecret)
	poster := ledger.NewPoster(store, logger)

	userHandler := &handler.UserHandler{
		Store:         store,
		Tokens:        tokens,
		Denylist:      denylist,
		SecureCookies: cfg.Env == "production",
	}
	accountHandler := &handler.AccountHandler{Store: store}
	transactionHandler := &handler.TransactionHandler{Store: store, Poster: poster}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/v1")

	// Public
	api.Post("/users", userHandler.Register)
	api.Post("/users/login", userHandler.Login)
	api.Post("/users/logout", userHandler.Logout)
	api.Post("/users/refresh", userHandler.Refresh)

	// Protected
	private := api.Use(middleware.Protected(tokens))
	private.Get("/users/:id", userHandler.Profile)
	private.Patch("/users/:id", userHandler.UpdateProfile)
	private.Delete("/users/:id", userHandler.DeleteProfile)
	private.Get("/accounts", accountHandler.ListAccounts)
	private.Post("/accounts", accountHandler.CreateAccount)
	private.Get("/accounts/:id", accountHandler.GetAccount)
	private.Delete("/accounts/:id", accountHandler.DeleteAccount)
	private.Get("/transactions", transactionHandler.ListTransactions)
	private.Post("/transactions", middleware.Idempotency(store), transactionHandler.PostTransaction)
	private.Get("/transactions/:id", transactionHandler.GetTransaction)
	private.Put("/transactions/:id", transactionHandler.UpdateTransaction)
	private.Delete("/transactions/:id", transactionHandler.DeleteTransaction)

	if cfg.WebhookURL != "" {
		secret := cfg.WebhookSecret
		if secret == "" {
			slog.Warn("WEBHOOK_SECRET not set, signing webhooks with an insecure default")
			secret = "default_insecure_key"
		}
		worker.StartWebhookWorker(ctx, dbPool, secret)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("🚀 server starting", "env", cfg.Env, "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()

	<-stop
	slog.Info("shutting down")

	stopWorker()
	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	dbPool.Close()
	slog.Info("server exited")
}
