// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/markowitz/internal/utils"
	"github.com/joho/godotenv"
)

// Date layout used by START_DATE and END_DATE
const DateLayout = "2006-01-02"

// Price sources
const (
	SourceYahoo = "yahoo"
	SourceCSV   = "csv"
)

// DefaultSymbols is the basket analysed when SYMBOLS is not set
var DefaultSymbols = []string{"META", "GOOGL", "AMZN", "TSLA", "DB", "MS", "UBS"}

// Config holds application configuration
type Config struct {
	Symbols     []string
	StartDate   time.Time
	EndDate     time.Time
	TradingDays int // Trading days per year used to annualize returns and covariance
	NumSamples  int // Monte Carlo portfolios to draw
	RandomSeed  uint64
	// Skip zero-volatility samples instead of failing the run
	SkipDegenerateSamples bool

	PriceSource  string // yahoo or csv
	PriceCSVPath string
	FetchRetries int

	DataDir       string // Directory holding the price cache database (always absolute)
	PriceCache    bool
	PriceCacheTTL time.Duration

	ReportDir            string
	RenderCharts         bool
	CorrelationThreshold float64

	Schedule  string // Cron spec; empty runs the analysis once
	LogLevel  string
	LogPretty bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	start, err := getEnvAsDate("START_DATE", "2013-01-01")
	if err != nil {
		return nil, err
	}
	end, err := getEnvAsDate("END_DATE", "2024-01-01")
	if err != nil {
		return nil, err
	}

	dataDir, err := filepath.Abs(getEnv("DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	cfg := &Config{
		Symbols:               getEnvAsSymbols("SYMBOLS", DefaultSymbols),
		StartDate:             start,
		EndDate:               end,
		TradingDays:           getEnvAsInt("TRADING_DAYS", 252),
		NumSamples:            getEnvAsInt("NUM_PORTFOLIOS", 50000),
		RandomSeed:            uint64(getEnvAsInt("RANDOM_SEED", 0)),
		SkipDegenerateSamples: getEnvAsBool("SKIP_DEGENERATE_SAMPLES", true),
		PriceSource:           strings.ToLower(getEnv("PRICE_SOURCE", SourceYahoo)),
		PriceCSVPath:          getEnv("PRICE_CSV", ""),
		FetchRetries:          getEnvAsInt("FETCH_RETRIES", 3),
		DataDir:               dataDir,
		PriceCache:            getEnvAsBool("PRICE_CACHE", true),
		PriceCacheTTL:         getEnvAsDuration("PRICE_CACHE_TTL", 24*time.Hour),
		ReportDir:             getEnv("REPORT_DIR", "./reports"),
		RenderCharts:          getEnvAsBool("RENDER_CHARTS", true),
		CorrelationThreshold:  getEnvAsFloat("CORRELATION_THRESHOLD", 0.80),
		Schedule:              getEnv("SCHEDULE", ""),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogPretty:             getEnvAsBool("LOG_PRETTY", true),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration describes a runnable analysis
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	seen := make(map[string]bool, len(c.Symbols))
	for _, s := range c.Symbols {
		if s == "" {
			return fmt.Errorf("empty symbol in SYMBOLS")
		}
		if seen[s] {
			return fmt.Errorf("duplicate symbol %s", s)
		}
		seen[s] = true
	}

	if !c.EndDate.After(c.StartDate) {
		return fmt.Errorf("end date %s must be after start date %s",
			c.EndDate.Format(DateLayout), c.StartDate.Format(DateLayout))
	}
	if c.TradingDays <= 0 {
		return fmt.Errorf("trading days must be positive, got %d", c.TradingDays)
	}
	if c.NumSamples <= 0 {
		return fmt.Errorf("number of portfolios must be positive, got %d", c.NumSamples)
	}
	if c.FetchRetries < 0 {
		return fmt.Errorf("fetch retries must not be negative, got %d", c.FetchRetries)
	}

	switch c.PriceSource {
	case SourceYahoo:
	case SourceCSV:
		if c.PriceCSVPath == "" {
			return fmt.Errorf("PRICE_CSV is required when PRICE_SOURCE=csv")
		}
	default:
		return fmt.Errorf("unknown price source %q", c.PriceSource)
	}

	if c.CorrelationThreshold < 0 || c.CorrelationThreshold > 1 {
		return fmt.Errorf("correlation threshold must be within [0, 1], got %g", c.CorrelationThreshold)
	}

	return nil
}

// CacheDBPath returns the location of the price cache database
func (c *Config) CacheDBPath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsSymbols(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return utils.ParseSymbols(value)
	}
	return append([]string(nil), defaultValue...)
}

// Dates are a hard requirement, so a malformed value is an error rather than a silent default
func getEnvAsDate(key, defaultValue string) (time.Time, error) {
	value := getEnv(key, defaultValue)
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return t, nil
}
