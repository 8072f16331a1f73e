package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering (stage_start, run_complete, ...).
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator's next step for warnings and errors.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldRunID is the standardized structured logging key for scrape run identifiers.
	FieldRunID = "run_id"
	// FieldTargetDate is the standardized structured logging key for the scraped date.
	FieldTargetDate = "target_date"
	// FieldSlot is the standardized structured logging key for HH:MM time slots.
	FieldSlot = "slot"
	// FieldStage is the standardized structured logging key for slot chain stage names.
	FieldStage = "stage"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)
