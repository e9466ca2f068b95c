package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	DBDSN       string `envconfig:"DB_DSN" required:"true"`
	Environment string `envconfig:"ENV" default:"development"`

	// Часовой пояс студии: все даты, отсечки и "занятие прошло" считаются в нём
	Timezone string `envconfig:"STUDIO_TIMEZONE" default:"America/Argentina/Buenos_Aires"`

	// Каналы уведомлений (пустое значение - канал выключен)
	TelegramToken string `envconfig:"TELEGRAM_TOKEN"`
	ResendAPIKey  string `envconfig:"RESEND_API_KEY"`
	MailFrom      string `envconfig:"MAIL_FROM" default:"studio@example.com"`

	// События об изменениях (пустой URL - события только в лог)
	RabbitMQURL    string `envconfig:"RABBITMQ_URL"`
	EventsExchange string `envconfig:"EVENTS_EXCHANGE" default:"studio.events"`

	// Пустой путь - встроенные миграции
	MigrationsDir string `envconfig:"MIGRATIONS_DIR"`

	SweepInterval      time.Duration `envconfig:"SWEEP_INTERVAL" default:"30m"`
	NotifyInterval     time.Duration `envconfig:"NOTIFY_INTERVAL" default:"1h"`
	GenerationInterval time.Duration `envconfig:"GENERATION_INTERVAL" default:"6h"`
	GenerationWeekday  Weekday       `envconfig:"GENERATION_WEEKDAY" default:"Sunday"`

	location *time.Location
}

// Weekday читает день недели по английскому названию
type Weekday time.Weekday

func (w *Weekday) Decode(value string) error {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if d.String() == value {
			*w = Weekday(d)
			return nil
		}
	}
	return fmt.Errorf("unknown weekday %q", value)
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	// envconfig пропускает заданную, но пустую переменную
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load studio timezone %q: %w", cfg.Timezone, err)
	}
	cfg.location = loc

	for name, d := range map[string]time.Duration{
		"SWEEP_INTERVAL":      cfg.SweepInterval,
		"NOTIFY_INTERVAL":     cfg.NotifyInterval,
		"GENERATION_INTERVAL": cfg.GenerationInterval,
	} {
		if d <= 0 {
			return nil, fmt.Errorf("%s must be positive", name)
		}
	}

	return &cfg, nil
}

// Location - часовой пояс студии
func (c *Config) Location() *time.Location {
	return c.location
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
