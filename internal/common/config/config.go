package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	}

	Postgres struct {
		Host            string        `env:"POSTGRES_HOST" envDefault:"localhost"`
		Port            int           `env:"POSTGRES_PORT" envDefault:"5432"`
		User            string        `env:"POSTGRES_USER" envDefault:"api"`
		Password        string        `env:"POSTGRES_PASSWORD" envDefault:"api"`
		Database        string        `env:"POSTGRES_DB" envDefault:"api"`
		SSLMode         string        `env:"POSTGRES_SSLMODE" envDefault:"disable"`
		MaxOpenConns    int           `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"25"`
		MaxIdleConns    int           `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"5"`
		ConnMaxLifetime time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME" envDefault:"30m"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Telegram struct {
		BotToken    string `env:"BOT_TOKEN,required,notEmpty"`
		BotUsername string `env:"BOT_USERNAME" envDefault:"evildess_dev_bot"`
		WebAppName  string `env:"WEB_APP_NAME" envDefault:"webapp"`

		UseWebhook bool `env:"USE_WEBHOOK" envDefault:"false"`

		// Webhook mode only. Address is the public URL Telegram pushes
		// updates to; SecretToken must be echoed back on every push.
		WebhookAddress       string `env:"WEBHOOK_ADDRESS"`
		WebhookSecretToken   string `env:"WEBHOOK_SECRET_TOKEN"`
		WebhookListenHost    string `env:"WEBHOOK_LISTEN_HOST" envDefault:"0.0.0.0"`
		WebhookListenPort    int    `env:"WEBHOOK_LISTEN_PORT" envDefault:"8081"`
		PollingUpdateTimeout int    `env:"POLLING_UPDATE_TIMEOUT" envDefault:"60"`
	}

	Shutdown struct {
		DrainTimeout time.Duration `env:"DRAIN_TIMEOUT" envDefault:"30s"`
	}
}

// WebAppURL builds the deep link into the Mini App.
func (c *Config) WebAppURL() string {
	return fmt.Sprintf("https://t.me/%s/%s", c.Telegram.BotUsername, c.Telegram.WebAppName)
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Postgres.Host, c.Postgres.Port, c.Postgres.User,
		c.Postgres.Password, c.Postgres.Database, c.Postgres.SSLMode)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func Load() (*Config, error) {
	// .env is optional; in production the variables are set directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.Telegram.UseWebhook && cfg.Telegram.WebhookAddress == "" {
		return nil, fmt.Errorf("WEBHOOK_ADDRESS is required when USE_WEBHOOK is set")
	}

	return cfg, nil
}
