package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Tammyv123/SwachhBuddy-sub000/internal/auth"
	"github.com/Tammyv123/SwachhBuddy-sub000/internal/config"
	"github.com/Tammyv123/SwachhBuddy-sub000/internal/router"
	"github.com/Tammyv123/SwachhBuddy-sub000/internal/user"
	"github.com/Tammyv123/SwachhBuddy-sub000/internal/user/repo"
	"github.com/Tammyv123/SwachhBuddy-sub000/pkg/database"
	"github.com/Tammyv123/SwachhBuddy-sub000/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// best-effort: absent file means real env or defaults
	_ = godotenv.Load()

	lg, err := utilities.NewLogger(utilities.LogConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	sugar := lg.Sugar()
	sugar.Info("starting swachhbuddy auth service")

	cfg, err := config.Load()
	if err != nil {
		// missing token secrets land here: refuse to start
		sugar.Fatalf("config: %v", err)
	}

	var (
		store   repo.Store
		cleanup func()
	)
	switch cfg.StoreDriver {
	case "postgres":
		db, err := database.ConnectPostgres(database.PostgresConfig{DSN: cfg.PostgresDSN})
		if err != nil {
			sugar.Fatalf("postgres connect: %v", err)
		}
		pg := repo.NewPostgresStore(db)
		if err := pg.EnsureTable(context.Background()); err != nil {
			sugar.Fatalf("ensure users table: %v", err)
		}
		store = pg
		cleanup = func() { db.Close() }
	default:
		client, db, err := database.ConnectMongo(database.MongoConfig{URI: cfg.MongoURI, Database: cfg.MongoDB})
		if err != nil {
			sugar.Fatalf("mongo connect: %v", err)
		}
		mg := repo.NewMongoStore(db)
		if err := mg.EnsureIndexes(context.Background()); err != nil {
			sugar.Fatalf("ensure user indexes: %v", err)
		}
		store = mg
		cleanup = func() { _ = client.Disconnect(context.Background()) }
	}
	defer cleanup()

	tokens, err := auth.NewTokenService(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		sugar.Fatalf("token service: %v", err)
	}
	hasher := auth.BcryptHasher{Cost: cfg.BcryptCost}
	identity := user.NewIdentityService(store, tokens, hasher, sugar)
	cookies := auth.NewCookieManager(cfg.Production, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	handler := user.NewHandler(identity, cookies, sugar)
	mw := auth.NewMiddleware(tokens, store, sugar)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router.RegisterRoutes(sugar, handler, mw),
	}

	go func() {
		sugar.Infow("http server listening", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	sugar.Info("goodbye")
}
