package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Purplemerit/linkshortner-sub001/internal/bot"
	"github.com/Purplemerit/linkshortner-sub001/internal/cache"
	"github.com/Purplemerit/linkshortner-sub001/internal/clicks"
	"github.com/Purplemerit/linkshortner-sub001/internal/config"
	"github.com/Purplemerit/linkshortner-sub001/internal/database"
	"github.com/Purplemerit/linkshortner-sub001/internal/resolver"
	"github.com/Purplemerit/linkshortner-sub001/internal/service"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Warn("Error loading .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		return
	}
	slog.Info("Starting LinkShortener service...", "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectPostgres(cfg.PostgresURL)
	if err != nil {
		slog.Error("Could not connect to Postgres", "error", err)
		return
	}
	defer db.Close()

	cacheDB, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		slog.Error("Could not connect to Redis", "error", err)
		return
	}
	defer cacheDB.Close()

	analytics, err := database.ConnectClickHouse(
		cfg.ClickHouseAddr, cfg.ClickHouseUser, cfg.ClickHousePassword, cfg.ClickHouseDB,
		cfg.GeoDBPath, cfg.ClickBuffer, cfg.FlushThreshold, cfg.FlushInterval)
	if err != nil {
		slog.Error("Could not connect to ClickHouse", "error", err)
		return
	}
	defer analytics.Close()
	analytics.Start(ctx)

	shortener := service.NewShortener(db, cacheDB, cfg.CacheTTL)
	res := resolver.New(shortener, cfg.LookupTimeout)
	rec := clicks.NewRecorder(db, analytics, cfg.RecordTimeout)

	server := service.NewServer(cfg.Port, cfg.BaseURL, res, rec, shortener, analytics, db)
	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start(ctx) }()

	botErr := make(chan error, 1)
	if cfg.TelegramToken != "" {
		tgBot, err := bot.NewTelegramBot(cfg.TelegramToken, cfg.BaseURL, shortener)
		if err != nil {
			slog.Error("Could not initialize bot", "error", err)
			return
		}
		go func() { botErr <- tgBot.Start(ctx) }()
	}

	slog.Info("Service is up and running!")

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			slog.Error("Server stopped with error", "error", err)
			stop()
		}
	case err := <-botErr:
		if err != nil {
			slog.Error("Bot stopped with error", "error", err)
			stop()
		}
	}

	slog.Info("Shutting down gracefully...")
}
