package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Fi44er/roi_ledger/config"
	"github.com/Fi44er/roi_ledger/db"
	"github.com/Fi44er/roi_ledger/internal/api"
	"github.com/Fi44er/roi_ledger/internal/bot"
	"github.com/Fi44er/roi_ledger/internal/notify"
	"github.com/Fi44er/roi_ledger/internal/repository"
	"github.com/Fi44er/roi_ledger/internal/scheduler"
	"github.com/Fi44er/roi_ledger/internal/service"
	"github.com/Fi44er/roi_ledger/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.LoadConfig(".env")
	logger := utils.InitLogger(cfg.LogLevel)
	if err != nil {
		logger.Fatal("Failed to load config: ", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid config: ", err)
	}

	limits, err := cfg.Limits()
	if err != nil {
		logger.Fatal(err)
	}
	params, err := utils.NetParams(cfg.BTCNetwork)
	if err != nil {
		logger.Fatal(err)
	}

	database, err := db.ConnectDb(cfg.DB_URL, logger)
	if err != nil {
		logger.Fatal(err)
	}
	if err := db.Migrate(database, true, logger); err != nil {
		logger.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var notifiers notify.Multi
	if cfg.SendgridAPIKey != "" {
		notifiers = append(notifiers, notify.NewEmail(notify.EmailConfig{
			APIKey:     cfg.SendgridAPIKey,
			FromEmail:  cfg.MailFrom,
			AdminEmail: cfg.AdminEmail,
		}, logger))
	}

	var adminBot *bot.Bot
	if cfg.TelegramBotToken != "" {
		botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			logger.Fatal("Failed to create bot API: ", err)
		}
		adminBot = bot.NewBot(botAPI, nil, nil, cfg.AdminChatID, logger)
		notifiers = append(notifiers, adminBot)
	}

	var notifier notify.Notifier = notify.Nop{}
	if len(notifiers) > 0 {
		notifier = notifiers
	}

	repo := repository.NewRepository(database, logger)
	svc := service.NewService(repo, notifier, logger, service.Options{
		Limits:    limits,
		BTCParams: params,
	})

	var locker scheduler.Locker = scheduler.NewLocalLocker()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("Invalid REDIS_URL: ", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal("Failed to connect to redis: ", err)
		}
		locker = scheduler.NewRedisLocker(client, logger)
		logger.Info("✅ Redis accrual lock enabled")
	}

	job := scheduler.NewAccrualJob(svc, locker, cfg.AccrualCron, logger)
	if err := job.Start(); err != nil {
		logger.Fatal("Failed to start accrual scheduler: ", err)
	}

	if adminBot != nil {
		adminBot.Attach(svc, job)
		go adminBot.Start(ctx)
	}

	handler := api.NewHandler(svc, job, cfg.JWTSecret, 24*time.Hour, logger)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("🚀 HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("HTTP server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP shutdown: %v", err)
	}
	job.Stop()
	if adminBot != nil {
		adminBot.Wait()
	}
	svc.Drain()
	logger.Info("Stopped")
}
