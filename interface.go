package logsetup

// Logger is the handle components receive instead of looking loggers up
// globally. Records carry the caller's file and line.
type Logger interface {
	DebugWith() LogEvent
	InfoWith() LogEvent
	WarnWith() LogEvent
	ErrorWith() LogEvent
	// CriticalWith logs at the highest level. It does not exit the process.
	CriticalWith() LogEvent
	Log(level Level) LogEvent

	// With for context logger creation
	// Example: reqLogger := logger.With().Str("request_id", id).Logger()
	With() LogContext
}
