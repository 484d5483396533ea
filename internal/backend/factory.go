// Package backend builds the record log selected by configuration and wraps
// it with the persist timeout and change publishing.
package backend

import (
	"context"
	"fmt"

	"ledger/internal/amqp"
	applog "ledger/internal/log"
	"ledger/internal/recordlog"
	"ledger/internal/recordlog/csvfile"
	"ledger/internal/recordlog/memory"
	"ledger/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		base    recordlog.RecordLog
		cleanup []CleanupFunc
		err     error
	)
	switch config.Type {
	case FileBackend:
		base, err = f.createFileBackend(config)
	case SQLiteBackend:
		var repo *storage.SQLiteRepository
		repo, err = f.createSQLiteBackend(config)
		if err == nil {
			base = repo
			cleanup = append(cleanup, repo.Close)
		}
	case MemoryBackend:
		base, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	result := &BackendResult{}
	log := recordlog.WithTimeout(base, config.PersistTimeout)

	// An unreachable broker disables change events only.
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change events",
				applog.FieldError, err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			log = recordlog.Notifying(log, client, f.logger)
			result.Publisher = client
			cleanup = append(cleanup, client.Close)
		}
	}

	f.logger.InfoContext(ctx, "Initialized record log",
		applog.FieldBackend, config.Type.String(),
		"persist_timeout", config.PersistTimeout,
		"amqp_enabled", result.Publisher != nil)

	result.Log = log
	result.Cleanup = chain(cleanup)
	return result, nil
}

func (f *DefaultFactory) createFileBackend(config Config) (recordlog.RecordLog, error) {
	log, err := csvfile.Open(config.LedgerFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger file: %w", err)
	}
	f.logger.Debug("Using ledger file", "path", config.LedgerFile)
	return log, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Debug("Using SQLite database", "db_path", config.SQLiteDBPath)
	return repo, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (recordlog.RecordLog, error) {
	if config.SeedFile == "" {
		return memory.New(), nil
	}
	store, err := memory.NewFromFile(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}
	f.logger.Debug("Seeded memory backend", "seed_file", config.SeedFile, applog.FieldCount, store.Len())
	return store, nil
}

// chain runs cleanups in reverse order and returns the first error.
func chain(fns []CleanupFunc) CleanupFunc {
	if len(fns) == 0 {
		return nil
	}
	return func() error {
		var first error
		for i := len(fns) - 1; i >= 0; i-- {
			if err := fns[i](); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
}
