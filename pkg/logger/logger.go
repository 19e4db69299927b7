package logger

// Backend defines the interface for logging sinks.
type Backend interface {
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

// Logger dispatches log calls to all configured backends.
type Logger struct {
	backends []Backend
}

var singleton *Logger

// Init initializes the global logger with one or more backends.
// This must be called before using any logging functions.
func Init(backends ...Backend) {
	singleton = &Logger{
		backends: backends,
	}
}

func dispatch(fn func(Backend)) {
	if singleton == nil {
		return
	}
	for _, b := range singleton.backends {
		fn(b)
	}
}

// Debug writes a message at DEBUG level to all configured backends.
func Debug(message string, keyvals ...any) {
	dispatch(func(b Backend) { b.Debug(message, keyvals...) })
}

// Info writes a message at INFO level to all configured backends.
func Info(message string, keyvals ...any) {
	dispatch(func(b Backend) { b.Info(message, keyvals...) })
}

// Warn writes a message at WARN level to all configured backends.
func Warn(message string, keyvals ...any) {
	dispatch(func(b Backend) { b.Warn(message, keyvals...) })
}

// Error writes a message at ERROR level to all configured backends.
func Error(message string, keyvals ...any) {
	dispatch(func(b Backend) { b.Error(message, keyvals...) })
}

// Fatal writes a message at FATAL level and terminates the program.
func Fatal(message string, keyvals ...any) {
	dispatch(func(b Backend) { b.Fatal(message, keyvals...) })
}
