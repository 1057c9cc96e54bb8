package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/mentor_match/internal/app"
	"github.com/Freeeeeet/mentor_match/internal/auth"
	"github.com/Freeeeeet/mentor_match/internal/availability"
	"github.com/Freeeeeet/mentor_match/internal/calendar"
	"github.com/Freeeeeet/mentor_match/internal/config"
	"github.com/Freeeeeet/mentor_match/internal/controller/httpapi"
	"github.com/Freeeeeet/mentor_match/internal/controller/telegram"
	"github.com/Freeeeeet/mentor_match/internal/notify"
	"github.com/Freeeeeet/mentor_match/internal/realtime"
	"github.com/Freeeeeet/mentor_match/internal/repository"
	"github.com/Freeeeeet/mentor_match/internal/service"
	"github.com/Freeeeeet/mentor_match/internal/store"
	"github.com/Freeeeeet/mentor_match/internal/store/memory"
	"github.com/Freeeeeet/mentor_match/migrations"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting mentor_match",
		zap.String("environment", cfg.Environment),
		zap.String("storage", cfg.Storage),
		zap.String("http_addr", cfg.HTTPAddr))

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Real-time: локальный хаб, через Redis если он настроен
	hub := realtime.NewHub(logger.Named("realtime"))
	var publisher realtime.Publisher = realtime.NewLocalBroker(hub)
	if cfg.RedisURL != "" {
		client, err := realtime.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()

		broker := realtime.NewRedisBroker(client, hub, logger.Named("redis"))
		go func() {
			if err := broker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Redis subscription stopped", zap.Error(err))
			}
		}()
		publisher = broker
	}

	// Календарь: без ключа Google всегда выдаём заглушку
	var provider calendar.Provider
	if cfg.GoogleCredentialsFile != "" {
		google, err := calendar.NewGoogleProvider(cfg.GoogleCredentialsFile, cfg.GoogleCalendarID, cfg.GoogleImpersonate)
		if err != nil {
			return err
		}
		provider = google
	} else {
		logger.Warn("GOOGLE_CREDENTIALS_FILE not set, meetings get placeholder links")
	}
	links := calendar.NewResolver(provider, cfg.MeetLinkPrefix, cfg.CalendarTimeout, logger.Named("calendar"))

	// Каналы уведомлений
	var notifiers []notify.Notifier
	if cfg.SMTP.Enabled() {
		notifiers = append(notifiers, notify.NewEmailNotifier(notify.EmailConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}))
	}

	var tgBot *bot.Bot
	if cfg.TelegramToken != "" {
		tgBot, err = bot.New(cfg.TelegramToken)
		if err != nil {
			return fmt.Errorf("create telegram bot: %w", err)
		}
		notifiers = append(notifiers, notify.NewTelegramNotifier(tgBot))
	} else {
		logger.Warn("TELEGRAM_TOKEN not set, telegram bot disabled")
	}

	dispatcher := app.NewDispatcher(
		st.Repos().Users,
		notify.NewComposer(cfg.FrontendURL),
		notify.NewMulti(cfg.NotifyTimeout, logger.Named("notify"), notifiers...),
		publisher,
		app.DispatcherOptions{
			QueueSize: cfg.DispatchQueueSize,
			Workers:   cfg.DispatchWorkers,
			Timeout:   cfg.NotifyTimeout,
		},
		logger.Named("dispatcher"),
	)
	// Очередь дочищается в Stop уже после сигнала остановки
	dispatcher.Start(context.WithoutCancel(ctx))
	defer dispatcher.Stop()

	match := availability.MatchOptions{
		Duration: cfg.SlotDuration,
		Step:     cfg.SlotStep,
		Limit:    cfg.SlotLimit,
	}
	userService := service.NewUserService(st, logger.Named("users"))
	availabilityService := service.NewAvailabilityService(st, match, logger.Named("availability"))
	negotiationService := service.NewNegotiationService(st, availabilityService, links, dispatcher,
		service.NegotiationOptions{AllowReopen: cfg.ReopenRejectedRequests}, logger.Named("negotiation"))
	meetingService := service.NewMeetingService(st, links, dispatcher, logger.Named("meetings"))

	tokens := auth.NewTokens(cfg.JWTSecret)

	if tgBot != nil {
		controller := telegram.NewBotController(tgBot, userService, negotiationService, meetingService,
			tokens, cfg.FrontendURL, logger)
		if err := controller.RegisterHandlers(ctx); err != nil {
			logger.Warn("Failed to register bot commands", zap.Error(err))
		}
		go controller.Start(ctx)
	}

	server := httpapi.NewServer(httpapi.Services{
		Users:        userService,
		Availability: availabilityService,
		Negotiation:  negotiationService,
		Meetings:     meetingService,
	}, tokens, hub, cfg.TelegramBotName, logger.Named("http"))

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		serveErr <- server.Listen(cfg.HTTPAddr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown failed", zap.Error(err))
	}
	return nil
}

// openStore открывает Postgres с миграциями или in-memory хранилище
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, func(), error) {
	if cfg.Storage == config.StorageMemory {
		logger.Warn("Using in-memory storage, data is lost on restart")
		return memory.New(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	// Встроенные миграции, если каталог не задан явно
	var migrator *app.Migrator
	if cfg.MigrationsDir == "" {
		migrator, err = app.NewMigrator(pool, migrations.FS, ".", logger)
	} else {
		migrator, err = app.NewMigrator(pool, nil, cfg.MigrationsDir, logger)
	}
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	return repository.NewStore(pool), pool.Close, nil
}
