// Package cli wires configuration, the record log backend and the ledger
// engine behind the ledger subcommands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ledger/internal/amqp"
	"ledger/internal/backend"
	"ledger/internal/config"
	"ledger/internal/ledger"
	applog "ledger/internal/log"
	"ledger/internal/recordlog"
	"ledger/internal/sheets"
	gsheet "ledger/internal/sheets/google"
)

// SetupLogger initializes structured logging on stderr at the given level.
// An unknown level falls back to info.
func SetupLogger(level string) *applog.Logger {
	cfg := applog.DefaultConfig()
	if lvl, err := applog.ParseLevel(level); err == nil {
		cfg.Level = lvl
	}
	cfg.Component = applog.ComponentCLI
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as the file is optional.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Session is an open ledger together with the record log behind it.
type Session struct {
	Ledger *ledger.Ledger
	Log    recordlog.RecordLog
	close  backend.CleanupFunc
}

// NewSession wraps an already opened ledger. cleanup may be nil.
func NewSession(l *ledger.Ledger, log recordlog.RecordLog, cleanup func() error) *Session {
	return &Session{Ledger: l, Log: log, close: cleanup}
}

// Close releases the record log.
func (s *Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenLedger creates the configured record log and hydrates a ledger from it.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*Session, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	l, err := ledger.Open(ctx, res.Log, ledger.WithLogger(logger))
	if err != nil {
		if res.Cleanup != nil {
			_ = res.Cleanup()
		}
		return nil, err
	}
	return NewSession(l, res.Log, res.Cleanup), nil
}

// OpenSheet connects to the Google Sheets export target.
func OpenSheet(ctx context.Context, cfg *config.Config, logger *applog.Logger) (sheets.Sheet, error) {
	if err := cfg.ValidateExport(); err != nil {
		return nil, err
	}
	return gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.ServiceAccountFile(),
	}, logger)
}

// WatchChanges consumes change events from the configured broker until ctx
// is done.
func WatchChanges(ctx context.Context, cfg *config.Config, logger *applog.Logger, handler func(*amqp.TransactionChangeMessage) error) error {
	if cfg.AMQPURL == "" {
		return fmt.Errorf("AMQP_URL is not set")
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer client.Close()
	return client.ConsumeChanges(ctx, handler)
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
