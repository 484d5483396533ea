package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldOperation   = "operation"
	FieldBackend     = "backend"
	FieldCount       = "count"
	FieldTxID        = "tx_id"
	FieldTxDate      = "tx_date"
	FieldTxTime      = "tx_time"
	FieldAmount      = "amount"
	FieldVendor      = "vendor"
	FieldCategory    = "category"
	FieldDescription = "description"
	FieldPeriod      = "period"
	FieldRangeStart  = "range_start"
	FieldRangeEnd    = "range_end"
	FieldPending     = "pending"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentLedger  = "ledger"
	ComponentLog     = "record_log"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentSheets  = "sheets"
	ComponentBackend = "backend"
	ComponentCLI     = "cli"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpAppend   = "append"
	OpHydrate  = "hydrate"
	OpResync   = "resync"
	OpPublish  = "publish"
	OpExport   = "export"
	OpImport   = "import"
	OpReport   = "report"
	OpValidate = "validate"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypePersistence   = "persistence_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeTimeout       = "timeout_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithErrorType adds the error category
func (f LogFields) WithErrorType(errorType string) LogFields {
	f[FieldErrorType] = errorType
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithTransaction adds the fields identifying a ledger transaction.
// Amounts are logged as their exact decimal text.
func (f LogFields) WithTransaction(id int64, date, clock, amount, vendor string) LogFields {
	f[FieldTxID] = id
	f[FieldTxDate] = date
	f[FieldTxTime] = clock
	f[FieldAmount] = amount
	f[FieldVendor] = vendor
	return f
}

// WithRange adds an inclusive date range
func (f LogFields) WithRange(start, end string) LogFields {
	f[FieldRangeStart] = start
	f[FieldRangeEnd] = end
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
