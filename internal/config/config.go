package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gpasset/libAcumulus/internal/invoice"
	"github.com/gpasset/libAcumulus/internal/logger"
)

type Config struct {
	// VAT rates
	VatRatesFile   string // YAML rate table, empty for the built in table
	DefaultCountry string // Used for invoices without a country code

	// Completion
	MaxPermutations              int
	CreditNoteDiscountCorrection bool

	// Batch processing
	BatchWorkers int
	MetricsFile  string // Prometheus textfile, empty to disable

	// Google Sheets Configuration
	GoogleSheetURL string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		VatRatesFile:                 getEnv("VAT_RATES_FILE", ""),
		DefaultCountry:               strings.ToUpper(getEnv("DEFAULT_COUNTRY", "NL")),
		MaxPermutations:              getEnvInt("MAX_PERMUTATIONS", 4096),
		CreditNoteDiscountCorrection: getEnvBool("CREDIT_NOTE_DISCOUNT_CORRECTION", false),
		BatchWorkers:                 getEnvInt("BATCH_WORKERS", 8),
		MetricsFile:                  getEnv("METRICS_FILE", ""),
		GoogleSheetURL:               getEnv("GOOGLE_SHEET_URL", ""),
		LogLevel:                     getEnv("LOG_LEVEL", "info"),
		LogFormat:                    getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:                getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:                    getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if len(c.DefaultCountry) != 2 {
		return fmt.Errorf("DEFAULT_COUNTRY must be a 2 letter country code, got %q", c.DefaultCountry)
	}
	if c.MaxPermutations < 1 {
		return fmt.Errorf("MAX_PERMUTATIONS must be positive, got %d", c.MaxPermutations)
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("BATCH_WORKERS must be positive, got %d", c.BatchWorkers)
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// GetCompletionConfig returns the completor configuration from the main config
func (c *Config) GetCompletionConfig() invoice.CompletionConfig {
	cfg := invoice.DefaultCompletionConfig()
	cfg.MaxPermutations = c.MaxPermutations
	if c.CreditNoteDiscountCorrection {
		cfg.DiscountCorrection = invoice.CreditNoteDiscountCorrection
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns defaultValue when the variable is unset, and -1 when it
// is not a number so that validate rejects it.
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}
	return i
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
