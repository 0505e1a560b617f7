package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldBatchID is the standardized structured logging key for reconcile batch identifiers.
	FieldBatchID = "batch_id"
	// FieldPath is the standardized structured logging key for file paths.
	FieldPath = "path"
	// FieldEventType is the standardized structured logging key for machine-readable event names.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the likely remediation for a logged failure.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the consequence of a logged failure.
	FieldImpact = "impact"
)
