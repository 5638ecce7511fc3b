package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Environment   string        `mapstructure:"ENV"`
	HTTPAddr      string        `mapstructure:"HTTP_ADDR"`
	DBDSN         string        `mapstructure:"DB_DSN"`
	JWTSecret     string        `mapstructure:"JWT_SECRET"`
	TokenTTL      time.Duration `mapstructure:"TOKEN_TTL"`
	Timezone      string        `mapstructure:"TIMEZONE"`
	PublicBaseURL string        `mapstructure:"PUBLIC_BASE_URL"`
	CORSOrigins   []string      `mapstructure:"CORS_ORIGINS"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`

	TelegramToken   string `mapstructure:"TELEGRAM_TOKEN"`
	TelegramBotName string `mapstructure:"TELEGRAM_BOT_NAME"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	ReminderSchedule string        `mapstructure:"REMINDER_SCHEDULE"`
	ReminderLeadTime time.Duration `mapstructure:"REMINDER_LEAD_TIME"`

	// Location разобранный TIMEZONE
	Location *time.Location `mapstructure:"-"`
}

var defaults = map[string]any{
	"ENV":                "development",
	"HTTP_ADDR":          ":8080",
	"DB_DSN":             "",
	"JWT_SECRET":         "",
	"TOKEN_TTL":          "24h",
	"TIMEZONE":           "Europe/Moscow",
	"PUBLIC_BASE_URL":    "http://localhost:8080",
	"CORS_ORIGINS":       "*",
	"SMTP_HOST":          "",
	"SMTP_PORT":          587,
	"SMTP_USERNAME":      "",
	"SMTP_PASSWORD":      "",
	"SMTP_FROM":          "",
	"TELEGRAM_TOKEN":     "",
	"TELEGRAM_BOT_NAME":  "",
	"REDIS_ADDR":         "",
	"REDIS_PASSWORD":     "",
	"REDIS_DB":           0,
	"REMINDER_SCHEDULE":  "@every 15m",
	"REMINDER_LEAD_TIME": "24h",
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// Переменные окружения важнее значений по умолчанию
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	cfg.Location = location

	log.Printf("Config loaded (env=%s)\n", cfg.Environment)

	return &cfg, nil
}

// Validate проверяет обязательные поля
func (c *Config) Validate() error {
	if c.DBDSN == "" {
		return errors.New("DB_DSN is required but not set")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.ReminderLeadTime <= 0 {
		return errors.New("REMINDER_LEAD_TIME must be positive")
	}
	return nil
}

// SMTPEnabled письма отправляются только при заданном SMTP_HOST
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

// splitList нормализует список из переменной окружения: "a, b" и ["a","b"] дают одно и то же
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
