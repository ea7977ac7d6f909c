package config

import (
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// Upstream API configuration
	API struct {
		// Base URL of the upstream land API
		BaseURL string `env:"API_BASE_URL" envDefault:"https://new.land.naver.com/api"`

		// Bearer token embedded in every request; externally supplied,
		// fixed lifetime, no in-process renewal
		AuthToken string `env:"API_AUTH_TOKEN"`

		// Per-request timeout in seconds
		RequestTimeout int `env:"API_REQUEST_TIMEOUT" envDefault:"10"`

		// Maximum attempts for a single fetch
		MaxRetries int `env:"API_MAX_RETRIES" envDefault:"3"`

		// Initial retry delay in seconds, doubled per attempt
		RetryDelay int `env:"API_RETRY_DELAY" envDefault:"1"`
	}

	// Crawl configuration
	Crawl struct {
		// Courtesy pause between consecutive per-complex fetches (milliseconds)
		ComplexDelayMS int `env:"CRAWL_COMPLEX_DELAY_MS" envDefault:"500"`

		// Similarity above which a name search halts and returns the hit
		MatchEarlyExit float64 `env:"MATCH_EARLY_EXIT" envDefault:"0.9"`

		// Minimum similarity for the best candidate to count as a match
		MatchMinScore float64 `env:"MATCH_MIN_SCORE" envDefault:"0.3"`

		// Cron expression for scheduled scope refreshes; empty disables
		RefreshCron string `env:"CRAWL_REFRESH_CRON"`

		// Region codes refreshed on the schedule, comma separated
		RefreshScopes []string `env:"CRAWL_REFRESH_SCOPES" envSeparator:","`
	}

	// Export configuration
	Export struct {
		// Directory for per-scope CSV files
		Dir string `env:"EXPORT_DIR" envDefault:"data/complexes"`

		// Output encoding: "utf-8" or "cp949" (legacy spreadsheet tooling)
		Encoding string `env:"EXPORT_ENCODING" envDefault:"utf-8"`
	}

	// Batch persistence configuration
	Batch struct {
		// Number of concurrent batch processors
		ProcessorCount int `env:"BATCH_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`

		// Buffered batches between the crawler and the processors
		QueueSize int `env:"BATCH_QUEUE_SIZE" envDefault:"100"`
	}

	// Path of the sqlite record store
	DBPath string `env:"DB_PATH" envDefault:"database/danji.db"`

	// Telegram crawl-summary notifications; disabled unless both are set
	Telegram struct {
		BotToken string `env:"TELEGRAM_BOT_TOKEN"`
		ChatID   string `env:"TELEGRAM_CHAT_ID"`
	}

	Port string `env:"PORT" envDefault:"5250"`
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RequestTimeout returns the per-request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.RequestTimeout) * time.Second
}

// ComplexDelay returns the inter-complex courtesy pause as a duration.
func (c *Config) ComplexDelay() time.Duration {
	return time.Duration(c.Crawl.ComplexDelayMS) * time.Millisecond
}
