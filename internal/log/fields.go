package log

import "budgeto/internal/core"

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldKey       = "key"
	FieldVersion   = "version"
	FieldFrom      = "from"
	FieldTo        = "to"
	FieldAmount    = "amount_minor"
	FieldCurrency  = "currency"
	FieldEntryID   = "entry_id"
	FieldCategory  = "category"
	FieldCount     = "count"
	FieldAttempt   = "attempt"
	FieldLastReset = "last_reset"
	FieldDuration  = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentStorage   = "storage"
	ComponentState     = "state"
	ComponentLock      = "lock"
	ComponentMigration = "migration"
	ComponentRollover  = "rollover"
	ComponentAMQP      = "amqp"
	ComponentSheets    = "sheets"
	ComponentExport    = "export"
	ComponentScheduler = "scheduler"
	ComponentBackend   = "backend"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpInit     = "init"
	OpLoad     = "load"
	OpSave     = "save"
	OpMigrate  = "migrate"
	OpRollover = "rollover"
	OpReset    = "reset"
	OpLock     = "lock"
	OpCreate   = "create"
	OpDelete   = "delete"
	OpConvert  = "convert"
	OpExport   = "export"
	OpPublish  = "publish"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
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

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithMoney adds the amount in minor units and its currency.
func (f LogFields) WithMoney(m core.Money) LogFields {
	f[FieldAmount] = m.Amount
	f[FieldCurrency] = string(m.Currency)
	return f
}

// WithVersion adds a document version transition. from == to is a no-op
// migration.
func (f LogFields) WithVersion(from, to int) LogFields {
	f[FieldFrom] = from
	f[FieldTo] = to
	return f
}

func (f LogFields) WithEntry(id, categoryID string) LogFields {
	f[FieldEntryID] = id
	f[FieldCategory] = categoryID
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
