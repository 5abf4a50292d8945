package log

// FieldComponent is the attribute every logger stamps on its records.
const FieldComponent = "component"

// Component names used by the binaries.
const (
	ComponentApp       = "app"
	ComponentScheduler = "scheduler"
)
