package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Staging Errors (S001-S009)
	// ============================================

	"S001": {
		Category: CategoryPreview,
		Message:  "Preview allocation failed",
		Detail:   "The preview backend could not allocate a handle for an image entry. The batch was not applied.",
	},
	"S002": {
		Category: CategoryStage,
		Message:  "Stager closed",
		Detail:   "The stager has been torn down and no longer accepts operations.",
	},

	// ============================================
	// Policy Errors (S010-S019)
	// ============================================

	"S010": {
		Category: CategoryPolicy,
		Message:  "Invalid policy",
		Detail:   "A policy needs a positive size limit and no blank accept patterns.",
	},
	"S011": {
		Category: CategoryPolicy,
		Message:  "Invalid size",
		Detail:   "Sizes are written as a number with an optional unit, for example 10MB or 512KiB.",
	},

	// ============================================
	// Config Errors (S020-S029)
	// ============================================

	"S020": {
		Category: CategoryConfig,
		Message:  "Failed to read configuration",
	},
	"S021": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
	},
	"S022": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
	},
	"S023": {
		Category: CategoryConfig,
		Message:  "Unknown preview backend",
		Detail:   "Supported backends are memory, disk and s3.",
	},

	// ============================================
	// Server Errors (S030-S039)
	// ============================================

	"S030": {
		Category: CategoryServer,
		Message:  "Unknown session",
	},
	"S031": {
		Category: CategoryServer,
		Message:  "Malformed request",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
