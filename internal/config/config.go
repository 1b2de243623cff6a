package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPPort    int
	DatabaseURL string
	RedisURL    string

	CatalogRefreshHours int
	CatalogExclusions   []string

	DefaultLimit     int
	DetectCacheHours int
	PriceCacheHours  int
	LookbackDays     int
	AssembleWorkers  int

	ChartBackend     string
	ChartTimeoutSecs int

	OpenAIAPIKey   string
	EmbeddingModel string
	RelatedLimit   int

	TelegramBotToken string
}

func Load() *Config {
	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set, price history will not be stored")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.OpenAIAPIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set, related-currency enrichment disabled")
	}
	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set")
	}

	cfg.HTTPPort = 8080
	if v := strings.TrimSpace(os.Getenv("HTTP_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	cfg.CatalogRefreshHours = 24
	if v := strings.TrimSpace(os.Getenv("CATALOG_REFRESH_HOURS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CatalogRefreshHours = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("CATALOG_EXCLUSIONS")); v != "" {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cfg.CatalogExclusions = append(cfg.CatalogExclusions, name)
			}
		}
	}

	cfg.DefaultLimit = 3
	if v := strings.TrimSpace(os.Getenv("DEFAULT_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DefaultLimit = n
		}
	}

	cfg.DetectCacheHours = 10
	if v := strings.TrimSpace(os.Getenv("DETECT_CACHE_HOURS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DetectCacheHours = n
		}
	}

	cfg.PriceCacheHours = 5
	if v := strings.TrimSpace(os.Getenv("PRICE_CACHE_HOURS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PriceCacheHours = n
		}
	}

	cfg.LookbackDays = 90
	if v := strings.TrimSpace(os.Getenv("LOOKBACK_DAYS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LookbackDays = n
		}
	}

	cfg.AssembleWorkers = 4
	if v := strings.TrimSpace(os.Getenv("ASSEMBLE_WORKERS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AssembleWorkers = n
		}
	}

	cfg.ChartBackend = strings.ToLower(strings.TrimSpace(os.Getenv("CHART_BACKEND")))
	if cfg.ChartBackend == "" {
		cfg.ChartBackend = "quickchart"
	}
	if cfg.ChartBackend != "quickchart" && cfg.ChartBackend != "disabled" {
		log.Printf("Warning: unsupported CHART_BACKEND=%q, defaulting to quickchart", cfg.ChartBackend)
		cfg.ChartBackend = "quickchart"
	}

	cfg.ChartTimeoutSecs = 5
	if v := strings.TrimSpace(os.Getenv("CHART_TIMEOUT_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ChartTimeoutSecs = n
		}
	}

	cfg.EmbeddingModel = strings.TrimSpace(os.Getenv("EMBEDDING_MODEL"))
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}

	cfg.RelatedLimit = 10
	if v := strings.TrimSpace(os.Getenv("RELATED_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RelatedLimit = n
		}
	}

	return cfg
}
