package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldMediaType = "media_type"
	FieldMediaID   = "media_id"
	FieldAction    = "action"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldMethod    = "method"

	// Path fields
	FieldPath    = "path"
	FieldNFOPath = "nfo_path"

	// State fields
	FieldAwaiting = "awaiting"
	FieldLane     = "lane"
	FieldChecksum = "checksum"
)
