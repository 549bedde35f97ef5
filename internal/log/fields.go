package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldOperation   = "operation"
	FieldDuration    = "duration_ms"
	FieldInvoiceID   = "invoice_id"
	FieldNumber      = "invoice_number"
	FieldStatus      = "status"
	FieldTotal       = "total"
	FieldClientID    = "client_id"
	FieldFormat      = "format"
	FieldCount       = "count"
	FieldImported    = "imported"
	FieldSkipped     = "skipped"
	FieldFailed      = "failed"
	FieldEvent       = "event"
	FieldKey         = "key"
	FieldVersion     = "version"
	FieldBackend     = "backend"
	FieldSpreadsheet = "spreadsheet_id"
	FieldAttempt     = "attempt"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentCLI     = "cli"
	ComponentInvoice = "invoice"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentCache   = "cache"
	ComponentBackend = "backend"
	ComponentOverdue = "overdue"
	ComponentConfig  = "config"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpExport   = "export"
	OpImport   = "import"
	OpSync     = "sync"
	OpValidate = "validate"
	OpParse    = "parse"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpSweep    = "sweep"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeConflict      = "conflict_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds the error message and, when given, its category
func (f LogFields) WithError(err error, errorType ...string) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		if len(errorType) > 0 {
			f[FieldErrorType] = errorType[0]
		}
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithInvoice adds the identifying fields of an invoice
func (f LogFields) WithInvoice(id, number, status string) LogFields {
	f[FieldInvoiceID] = id
	if number != "" {
		f[FieldNumber] = number
	}
	if status != "" {
		f[FieldStatus] = status
	}
	return f
}

// WithImport adds the counters of an import run
func (f LogFields) WithImport(format string, imported, skipped, failed int) LogFields {
	f[FieldFormat] = format
	f[FieldImported] = imported
	f[FieldSkipped] = skipped
	f[FieldFailed] = failed
	return f
}

// With adds an arbitrary field
func (f LogFields) With(key string, value any) LogFields {
	f[key] = value
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
