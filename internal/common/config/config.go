package config

import (
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	}

	Redis struct {
		Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Auth struct {
		// HMAC key for the signed steam session cookie.
		SessionSecret string `env:"SESSION_SECRET,required"`
		// Steam IDs with access to the admin surface.
		OwnerSteamIDs []string `env:"OWNER_STEAM_IDS" envSeparator:","`
		// Shared secret for the cron endpoints.
		CronSecret string `env:"CRON_SECRET" envDefault:""`
	}

	Draw struct {
		// Lease TTL for an in-flight draw, minutes.
		LockTTLMin int `env:"DRAW_LOCK_TTL_MIN" envDefault:"10"`
		// Claim window from draw time, hours.
		ClaimWindowHours int `env:"CLAIM_WINDOW_HOURS" envDefault:"24"`
		// Default batch size for scheduler runs.
		BatchLimit int `env:"DRAW_BATCH_LIMIT" envDefault:"25"`
		// Background worker tick, seconds. 0 disables the worker
		// (cron endpoint remains the external trigger).
		WorkerIntervalSec int `env:"DRAW_WORKER_INTERVAL_SEC" envDefault:"0"`
	}

	Claims struct {
		// Discord-style webhook notified on new manual claims.
		ManualClaimWebhookURL string `env:"MANUAL_CLAIM_WEBHOOK_URL" envDefault:""`
	}
}

func Load() *Config {
	// .env is optional; production sets variables directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}

	return cfg
}
