package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldClientIP  = "client_ip"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldUserAgent = "user_agent"
	FieldError     = "error"
	FieldMonth     = "month"
	FieldRecords   = "records"
	FieldSource    = "source"
)

// Components defines standard component names
const (
	ComponentApp  = "app"
	ComponentSeed = "seed"
)
