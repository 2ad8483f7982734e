package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	// Storage
	DataBackend  string
	SQLiteDBPath string
	KeyPrefix    string

	// State
	DevMode  bool
	Timezone string

	// Advisory lock
	LockStaleAfter   time.Duration
	LockRetryBackoff time.Duration
	LockMaxAttempts  int

	// AMQP notifications, disabled when AMQPURL is empty
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
	// AMQPQueue is consumed by the worker when set
	AMQPQueue string

	// Google Sheets export, disabled when GoogleSpreadsheetID is empty
	GoogleSpreadsheetID   string
	GoogleExportSheetName string

	// Worker
	RolloverSchedule string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/budgeto.db"),
		KeyPrefix:    getEnv("BUDGETO_KEY_PREFIX", "budgeto"),

		DevMode:  getEnvBool("BUDGETO_DEV_MODE", false),
		Timezone: getEnv("BUDGETO_TIMEZONE", "Europe/Copenhagen"),

		LockStaleAfter:   getEnvDuration("LOCK_STALE_AFTER", 5*time.Second),
		LockRetryBackoff: getEnvDuration("LOCK_RETRY_BACKOFF", 50*time.Millisecond),
		LockMaxAttempts:  getEnvInt("LOCK_MAX_ATTEMPTS", 10),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "budgeto"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "state.changed"),
		AMQPQueue:      getEnv("AMQP_QUEUE", ""),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleExportSheetName: getEnv("GOOGLE_EXPORT_SHEET_NAME", "Export"),

		RolloverSchedule: getEnv("ROLLOVER_SCHEDULE", "0 0 1 * *"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if c.SQLiteDBPath != ":memory:" {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if strings.TrimSpace(c.KeyPrefix) == "" {
		errors = append(errors, "key prefix cannot be empty")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil || c.Timezone == "" {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s'", c.Timezone))
	}

	if c.LockStaleAfter <= 0 {
		errors = append(errors, fmt.Sprintf("invalid lock staleness %v: must be positive", c.LockStaleAfter))
	}
	if c.LockRetryBackoff <= 0 {
		errors = append(errors, fmt.Sprintf("invalid lock backoff %v: must be positive", c.LockRetryBackoff))
	} else if c.LockRetryBackoff >= c.LockStaleAfter && c.LockStaleAfter > 0 {
		errors = append(errors, fmt.Sprintf("invalid lock backoff %v: must be shorter than staleness %v", c.LockRetryBackoff, c.LockStaleAfter))
	}
	if c.LockMaxAttempts < 1 {
		errors = append(errors, fmt.Sprintf("invalid lock attempts %d: must be at least 1", c.LockMaxAttempts))
	} else if c.LockMaxAttempts > 1000 {
		errors = append(errors, fmt.Sprintf("invalid lock attempts %d: must be at most 1000", c.LockMaxAttempts))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" && c.GoogleExportSheetName == "" {
		errors = append(errors, "Google export sheet name is required when GOOGLE_SPREADSHEET_ID is set")
	}

	if _, err := cron.ParseStandard(c.RolloverSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid rollover schedule '%s': %v", c.RolloverSchedule, err))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
