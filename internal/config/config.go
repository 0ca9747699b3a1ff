package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends
const (
	BackendSQL  = "sql"
	BackendREST = "rest"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENV" envDefault:"development"`
	Locale      string `env:"LOCALE" envDefault:"fr"`

	// Local database: snapshots always live here, items too with the sql backend.
	DBPath      string `env:"DB_PATH" envDefault:"./pokstore.db"`
	DatabaseURL string `env:"DATABASE_URL"`
	DBLogLevel  string `env:"DB_LOG_LEVEL" envDefault:"warn"`

	StoreBackend          string  `env:"STORE_BACKEND" envDefault:"sql"`
	SupabaseURL           string  `env:"SUPABASE_URL"`
	SupabaseAnonKey       string  `env:"SUPABASE_ANON_KEY"`
	// Identity of the background workers with the rest backend; row-level
	// security hides every row from the anon key.
	SupabaseServiceKey    string  `env:"SUPABASE_SERVICE_KEY"`
	SupabaseTable         string  `env:"SUPABASE_TABLE" envDefault:"cards"`
	RESTRequestsPerSecond float64 `env:"REST_REQUESTS_PER_SECOND" envDefault:"10"`

	JWTSecret  string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"1h"`

	RetryBaseDelay   time.Duration `env:"RETRY_BASE_DELAY" envDefault:"1s"`
	RetryMaxAttempts int           `env:"RETRY_MAX_ATTEMPTS" envDefault:"3"`

	// Sign-in throttling
	RateLimitWindow      time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`
	RateLimitMaxAttempts int           `env:"RATE_LIMIT_MAX_ATTEMPTS" envDefault:"5"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`
	FrontendDistPath   string   `env:"FRONTEND_DIST_PATH"`
	PreferencesPath    string   `env:"PREFERENCES_PATH" envDefault:"./data/preferences.json"`
	ImagesDir          string   `env:"IMAGES_DIR" envDefault:"./data/images"`

	EbayAppID           string        `env:"EBAY_APP_ID"`
	EbayDailyLimit      int           `env:"EBAY_DAILY_LIMIT" envDefault:"100"`
	PriceWorkerEnabled  bool          `env:"PRICE_WORKER_ENABLED" envDefault:"false"`
	PriceWorkerInterval time.Duration `env:"PRICE_WORKER_INTERVAL" envDefault:"6h"`
	PriceWorkerBatch    int           `env:"PRICE_WORKER_BATCH" envDefault:"10"`

	SnapshotHour int `env:"SNAPSHOT_HOUR" envDefault:"23"`
}

// Load reads .env outside production, then parses the environment.
func Load() (*Config, error) {
	if os.Getenv("ENV") != "production" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: could not load .env: %v", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field requirements
func (c *Config) Validate() error {
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	switch c.StoreBackend {
	case BackendSQL:
	case BackendREST:
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			return fmt.Errorf("STORE_BACKEND=rest requires SUPABASE_URL and SUPABASE_ANON_KEY")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want %q or %q)", c.StoreBackend, BackendSQL, BackendREST)
	}
	if c.RetryMaxAttempts < 0 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must not be negative")
	}
	if c.SnapshotHour < 0 || c.SnapshotHour > 23 {
		return fmt.Errorf("SNAPSHOT_HOUR must be between 0 and 23")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
