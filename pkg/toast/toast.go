package toast

// EventName is the event name toasts are emitted under.
const EventName = "filestage:toast"

// Type represents the toast notification type.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
)

// Emitter delivers a named event to the client.
type Emitter interface {
	Emit(name string, data any)
}

// Show emits a toast notification.
//
// The client receives:
//   - event = "filestage:toast"
//   - data = { level: "success|error|warning|info", message: "..." }
func Show(e Emitter, level Type, message string) {
	e.Emit(EventName, map[string]any{
		"level":   string(level),
		"message": message,
	})
}

// Success shows a success toast.
//
//	toast.Success(feed, "3 files staged")
func Success(e Emitter, message string) {
	Show(e, TypeSuccess, message)
}

// Error shows an error toast.
func Error(e Emitter, message string) {
	Show(e, TypeError, message)
}

// Warning shows a warning toast.
func Warning(e Emitter, message string) {
	Show(e, TypeWarning, message)
}

// Info shows an info toast.
func Info(e Emitter, message string) {
	Show(e, TypeInfo, message)
}

// WithTitle shows a toast with a title and message.
//
//	toast.WithTitle(feed, toast.TypeError, "Upload", "file type \"text/plain\" is not accepted")
func WithTitle(e Emitter, level Type, title, message string) {
	e.Emit(EventName, map[string]any{
		"level":   string(level),
		"title":   title,
		"message": message,
	})
}

// ForError shows a visible error as an error toast. A cleared error (the
// empty string) emits nothing and reports false.
func ForError(e Emitter, message string) bool {
	if message == "" {
		return false
	}
	Error(e, message)
	return true
}
