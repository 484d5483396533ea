package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	applog "ledger/internal/log"
)

// Record log backends
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

var validBackends = []string{BackendFile, BackendSQLite, BackendMemory}

type Config struct {
	// Record log
	Backend        string
	LedgerFile     string
	SQLiteDBPath   string
	SeedFile       string
	PersistTimeout time.Duration

	// Logging
	LogLevel string

	// AMQP change events, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID       string
	GoogleSheetName           string
	GoogleServiceAccountJSON  string
	GoogleServiceAccountFile  string
	GoogleApplicationCredFile string
}

func Load() *Config {
	return &Config{
		Backend:        strings.ToLower(getEnv("LEDGER_BACKEND", BackendFile)),
		LedgerFile:     getEnv("LEDGER_FILE", "./data/ledger.csv"),
		SQLiteDBPath:   getEnv("SQLITE_DB_PATH", "./data/ledger.db"),
		SeedFile:       getEnv("LEDGER_SEED_FILE", ""),
		PersistTimeout: getEnvDuration("PERSIST_TIMEOUT", 5*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transaction_changes"),

		GoogleSpreadsheetID:       getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:           getEnv("GOOGLE_SHEET_NAME", "Ledger"),
		GoogleServiceAccountJSON:  getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile:  getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleApplicationCredFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
	}
}

// Validate validates the configuration and returns an error listing every
// problem found.
func (c *Config) Validate() error {
	var errors []string

	if !slices.Contains(validBackends, c.Backend) {
		errors = append(errors, fmt.Sprintf("invalid ledger backend '%s': must be one of %v", c.Backend, validBackends))
	}

	switch c.Backend {
	case BackendFile:
		if c.LedgerFile == "" {
			errors = append(errors, "ledger file path cannot be empty when using file backend")
		} else if err := ensureDir(c.LedgerFile); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create ledger file directory: %v", err))
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if err := ensureDir(c.SQLiteDBPath); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create SQLite database directory: %v", err))
		}
	case BackendMemory:
		if c.SeedFile != "" {
			if _, err := os.Stat(c.SeedFile); err != nil {
				errors = append(errors, fmt.Sprintf("seed file is not readable: %s", c.SeedFile))
			}
		}
	}

	if c.PersistTimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid persist timeout %v: must not be negative", c.PersistTimeout))
	} else if c.PersistTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid persist timeout %v: must be at most 5 minutes", c.PersistTimeout))
	}

	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
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
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	return joinErrors(errors)
}

// ValidateExport checks the settings needed to talk to Google Sheets.
func (c *Config) ValidateExport() error {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for sheet export")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "GOOGLE_SHEET_NAME cannot be empty")
	}

	hasJSON := c.GoogleServiceAccountJSON != ""
	file := c.ServiceAccountFile()
	switch {
	case hasJSON:
	case file != "":
		if _, err := os.Stat(file); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", file))
		}
	default:
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheet export")
	}
	return joinErrors(errors)
}

// ServiceAccountFile is the key file to use when no inline key is set.
func (c *Config) ServiceAccountFile() string {
	if c.GoogleServiceAccountFile != "" {
		return c.GoogleServiceAccountFile
	}
	return c.GoogleApplicationCredFile
}

func joinErrors(errors []string) error {
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
