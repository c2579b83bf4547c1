package logger

// Standard field names for structured logging.
// Use these constants instead of raw strings to keep keys consistent.
const (
	// Identity and context
	FieldRequestID = "request_id"
	FieldRunID     = "run_id"

	// Components
	FieldComponent = "component"
	FieldTechnique = "technique"
	FieldPanel     = "panel"
	FieldMode      = "mode"

	// Data
	FieldKind    = "dataset"
	FieldFile    = "file"
	FieldRows    = "rows"
	FieldDropped = "dropped_rows"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Status
	FieldStatus = "status"
	FieldRisk   = "risk"
	FieldCount  = "count"
)
