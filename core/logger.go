package core

// Logger is any leveled logger the app can report through.
// Args may carry errors and context values; implementations decide
// how to ship them (stdout, rollbar, ...).
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
