package errors

import "slices"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E100-E119)
	// ============================================

	"E100": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No backoffice.json was found at the given path.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The backoffice.json configuration file is malformed.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid listen address",
		Detail:   "The server host or port cannot be listened on.",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Invalid home path",
		Detail:   "The home path must be an absolute path starting with \"/\".",
	},
	"E104": {
		Category: CategoryConfig,
		Message:  "Invalid duration",
		Detail:   "Durations are written like \"250ms\", \"30s\" or \"1m\".",
	},
	"E105": {
		Category: CategoryConfig,
		Message:  "Invalid log configuration",
		Detail:   "The log level must be debug, info, warn or error and the format text or json.",
	},
	"E106": {
		Category: CategoryConfig,
		Message:  "Invalid database configuration",
		Detail:   "The database driver must be sqlite or postgres.",
	},
	"E107": {
		Category: CategoryConfig,
		Message:  "Invalid upload configuration",
		Detail:   "The upload backend must be disk or s3 with its settings filled in.",
	},
	"E108": {
		Category: CategoryConfig,
		Message:  "Unsupported language",
		Detail:   "The default language has no message catalog.",
	},
	"E109": {
		Category: CategoryConfig,
		Message:  "Invalid session limits",
		Detail:   "Session limits and queue sizes cannot be negative.",
	},

	// ============================================
	// Route Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryRoute,
		Message:  "Invalid route table",
		Detail:   "A route pattern does not compile or two routes share an ID.",
	},
	"E121": {
		Category: CategoryRoute,
		Message:  "No route matches path",
		Detail:   "The path does not resolve to any page. Live navigation would redirect home.",
	},
	"E122": {
		Category: CategoryRoute,
		Message:  "Unknown route ID",
		Detail:   "No route in the table has this ID. Run `backoffice routes` to list them.",
	},

	// ============================================
	// Storage Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryStorage,
		Message:  "Database unavailable",
		Detail:   "The database could not be opened or migrated.",
	},
	"E141": {
		Category: CategoryStorage,
		Message:  "Seeding failed",
		Detail:   "The demo records could not be written.",
	},
	"E142": {
		Category: CategoryStorage,
		Message:  "Attachment store unavailable",
		Detail:   "The attachment directory or bucket could not be prepared.",
	},

	// ============================================
	// Server Errors (E160-E179)
	// ============================================

	"E160": {
		Category: CategoryServer,
		Message:  "Server failed",
		Detail:   "The HTTP server stopped unexpectedly.",
	},
	"E161": {
		Category: CategoryServer,
		Message:  "Shutdown incomplete",
		Detail:   "Open connections did not finish before the shutdown timeout.",
	},
}

// GetAllCodes returns all registered error codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
