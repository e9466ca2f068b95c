package app

import (
	"context"

	"github.com/Freeeeeet/studio_booking/internal/clock"
	"github.com/Freeeeeet/studio_booking/internal/config"
	"github.com/Freeeeeet/studio_booking/internal/cycle"
	"github.com/Freeeeeet/studio_booking/internal/events"
	"github.com/Freeeeeet/studio_booking/internal/notifier"
	"github.com/Freeeeeet/studio_booking/internal/repository"
	"github.com/Freeeeeet/studio_booking/internal/repository/base"
	"github.com/Freeeeeet/studio_booking/internal/service"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Module собирает приложение: конфиг, база, репозитории, сервисы и фоновые задачи
var Module = fx.Options(
	fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: logger}
	}),

	fx.Provide(
		config.Load,
		newLogger,
		newClock,
		cycle.NewEngine,
		NewPool,
	),

	repositoryModule,
	serviceModule,

	fx.Provide(
		newSender,
		newPublisher,
		newMigrator,
		NewScheduler,
	),

	fx.Invoke(runMigrations, runScheduler),
)

var repositoryModule = fx.Module("repository",
	fx.Provide(
		fx.Annotate(base.NewTxManager, fx.As(new(service.TxRunner))),
		fx.Annotate(repository.NewBookingRepository, fx.As(new(service.BookingStore))),
		fx.Annotate(repository.NewSlotRepository, fx.As(new(service.SlotStore))),
		fx.Annotate(repository.NewStudentRepository, fx.As(new(service.StudentStore))),
		fx.Annotate(repository.NewFixedSlotRepository, fx.As(new(service.FixedSlotStore))),
		fx.Annotate(repository.NewClosureRepository, fx.As(new(service.ClosureStore))),
		fx.Annotate(repository.NewNotificationRepository, fx.As(new(service.NotificationStore))),
	),
)

var serviceModule = fx.Module("service",
	fx.Provide(
		service.NewFixedSlotService,
		service.NewClosureService,
		service.NewBookingService,
		service.NewCancellationService,
		service.NewGenerationService,
		service.NewAvailabilityService,
		service.NewSweepService,
		service.NewReportService,
		service.NewNotificationService,
	),
)

func newLogger(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, error) {
	logger, err := NewLogger(cfg.Environment)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = logger.Sync()
			return nil
		},
	})
	return logger, nil
}

func newClock(cfg *config.Config) *clock.Clock {
	return clock.New(cfg.Location())
}

// newSender собирает каналы уведомлений из конфига. Без каналов уведомления только пишутся в лог.
func newSender(cfg *config.Config, logger *zap.Logger) (notifier.Sender, error) {
	var senders []notifier.Sender

	if cfg.TelegramToken != "" {
		b, err := bot.New(cfg.TelegramToken, bot.WithSkipGetMe())
		if err != nil {
			return nil, err
		}
		senders = append(senders, notifier.NewTelegram(b))
	}
	if cfg.ResendAPIKey != "" {
		senders = append(senders, notifier.NewEmail(cfg.ResendAPIKey, cfg.MailFrom))
	}

	if len(senders) == 0 {
		logger.Warn("No notification channels configured, notices go to the log only")
		return notifier.NewNoop(logger), nil
	}

	logger.Info("Notification channels configured", zap.Int("channels", len(senders)))
	return notifier.NewMulti(senders...), nil
}

// newPublisher подключается к RabbitMQ, если он настроен
func newPublisher(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (events.Publisher, error) {
	if cfg.RabbitMQURL == "" {
		logger.Info("RabbitMQ not configured, events go to the log only")
		return events.NewNoop(logger), nil
	}

	p, err := events.NewAMQP(cfg.RabbitMQURL, cfg.EventsExchange)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to RabbitMQ", zap.String("exchange", cfg.EventsExchange))

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return p.Close()
		},
	})
	return p, nil
}

func newMigrator(pool *pgxpool.Pool, cfg *config.Config, logger *zap.Logger) (*Migrator, error) {
	return NewMigrator(pool, cfg.MigrationsDir, logger)
}

func runMigrations(lc fx.Lifecycle, migrator *Migrator) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			defer migrator.Close()
			return migrator.Run(ctx)
		},
	})
}

func runScheduler(lc fx.Lifecycle, scheduler *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			// контекст OnStart живёт только на время старта
			scheduler.Start(context.Background())
			return nil
		},
		OnStop: func(context.Context) error {
			return scheduler.Stop()
		},
	})
}
