package backend

import (
	"context"
	"slices"
	"time"

	"ledger/internal/recordlog"
)

// CleanupFunc releases the resources held by a backend
type CleanupFunc func() error

// BackendResult contains the record log and an optional cleanup function
type BackendResult struct {
	Log recordlog.RecordLog
	// Publisher is set when change events are enabled.
	Publisher recordlog.ChangePublisher
	Cleanup   CleanupFunc
}

// Factory creates record logs based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// File specific
	LedgerFile string

	// SQLite specific
	SQLiteDBPath string

	// Memory specific, optional
	SeedFile string

	// Applied to every backend
	PersistTimeout time.Duration

	// Change events, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid reports whether bt is one of the supported backends.
func (bt BackendType) IsValid() bool {
	return slices.Contains(GetBackendTypes(), bt)
}
