package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/auth"
	"github.com/Freeeeeet/interview_scheduler/internal/cache"
	"github.com/Freeeeeet/interview_scheduler/internal/config"
	"github.com/Freeeeeet/interview_scheduler/internal/controller"
	"github.com/Freeeeeet/interview_scheduler/internal/controller/api"
	"github.com/Freeeeeet/interview_scheduler/internal/notify"
	"github.com/Freeeeeet/interview_scheduler/internal/repository"
	"github.com/Freeeeeet/interview_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// App собранный сервис: HTTP API, планировщик напоминаний и опциональный Telegram-бот
type App struct {
	cfg        *config.Config
	pool       *pgxpool.Pool
	db         *sql.DB
	redis      *cache.Client
	server     *http.Server
	scheduler  *Scheduler
	dispatcher *notify.Dispatcher
	bot        *controller.BotController
	logger     *zap.Logger
}

// New подключается к зависимостям, применяет миграции и собирает сервисы
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("✅ Connected to database")

	a := &App{
		cfg:    cfg,
		pool:   pool,
		db:     stdlib.OpenDBFromPool(pool),
		logger: logger,
	}

	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	migrator, err := NewMigrator(a.db, logger)
	if err != nil {
		return err
	}
	if err := migrator.Run(ctx); err != nil {
		return err
	}

	store := repository.NewStore(a.pool)
	notifications := repository.NewNotificationRepository(a.db)
	hub := notify.NewHub(logger)
	tokens := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)

	// Коды привязки Telegram живут в Redis; без Redis привязка отключена
	var codes service.LinkCodeStore
	if cfg.RedisAddr != "" {
		a.redis, err = cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			return err
		}
		codes = a.redis
	}

	var telegram notify.MessageSender
	var telegramBot *bot.Bot
	if cfg.TelegramToken != "" {
		telegramBot, err = bot.New(cfg.TelegramToken, bot.WithDefaultHandler(func(context.Context, *bot.Bot, *models.Update) {}))
		if err != nil {
			return fmt.Errorf("create telegram bot: %w", err)
		}
		telegram = telegramBot
	}

	var mailer notify.Mailer = notify.NewLogMailer(logger)
	if cfg.SMTPEnabled() {
		mailer = notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}

	dispatcher := notify.NewDispatcher(notifications, store.Users(), hub, telegram, mailer, cfg.PublicBaseURL, logger)
	a.dispatcher = dispatcher

	availabilityService := service.NewAvailabilityService(store, cfg.Location, logger)
	reservationService := service.NewReservationService(store, dispatcher, cfg.Location, logger)
	reminderService := service.NewReminderService(store, dispatcher, cfg.ReminderLeadTime, cfg.Location, logger)
	userService := service.NewUserService(store, tokens, codes, cfg.TelegramBotName, logger)
	notificationService := service.NewNotificationService(notifications)
	exportService := service.NewExportService(reservationService, cfg.Location, cfg.PublicBaseURL, logger)

	router := api.NewAPI(api.Deps{
		Availability:  availabilityService,
		Reservations:  reservationService,
		Users:         userService,
		Notifications: notificationService,
		Export:        exportService,
		Tokens:        tokens,
		DB:            store,
		Hub:           hub,
		CORSOrigins:   cfg.CORSOrigins,
		Logger:        logger,
	})

	a.server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.scheduler = NewScheduler(reminderService, cfg.ReminderSchedule, cfg.Location, logger)

	if telegramBot != nil {
		a.bot = controller.NewBotController(telegramBot, userService, logger)
	}

	return nil
}

// Run запускает все компоненты и блокируется до отмены ctx
func (a *App) Run(ctx context.Context) error {
	if err := a.scheduler.Start(); err != nil {
		return err
	}
	defer a.scheduler.Stop()

	if a.bot != nil {
		if err := a.bot.RegisterHandlers(ctx); err != nil {
			a.logger.Warn("Bot commands are not set", zap.Error(err))
		}
		go a.bot.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("🚀 HTTP server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// Close дожидается отправки уведомлений и освобождает соединения
func (a *App) Close() {
	if a.dispatcher != nil {
		a.dispatcher.Wait()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Failed to close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	a.pool.Close()
}
