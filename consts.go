package logsetup

const (
	// DefaultLogFile is where the default file handler writes, relative to the working dir.
	DefaultLogFile = "./logs/warnings.log"
	// DefaultMaxBytes caps a single log file at 5 MiB before rotation.
	DefaultMaxBytes int64 = 5_242_880
	// DefaultBackupCount is the number of rotated files retained.
	DefaultBackupCount = 10

	// PluginsScope is the name of the non-propagating scope in the default config.
	PluginsScope = "plugins"

	defaultFileLevel      = "warning"
	defaultConsoleLevel   = "debug"
	defaultRootLevel      = "warning"
	defaultDateFormat     = "2006-01-02 15:04:05,000"
	defaultShutdownMillis = 100

	emptyString = ""
)

// Handler kinds.
const (
	KindConsole      = "console"
	KindRotatingFile = "rotating_file"
	KindRollingFile  = "rolling_file"
)

// Formatter names used by DefaultConfig.
const (
	FormatterShort     = "short"
	FormatterShortLine = "short_line"
	FormatterCall      = "call"
)

// Handler names used by DefaultConfig.
const (
	HandlerConsole = "console"
	HandlerFile    = "file"
)

// Field names added to records besides the zerolog defaults.
const (
	scopeFieldName     = "logger"
	tracebackFieldName = "traceback"
	headerFieldName    = "_header"
)

const (
	errMsgNilConfig      = "Logging config is nil."
	errMsgNilService     = "Logger service is nil."
	errMsgNotInitialized = "Logger service is not initialized."
	errMsgConfigInvalid  = "Logging configuration is invalid."
	errMsgUnknownHandler = "Logger references an undefined handler."
	errMsgUnknownFormat  = "Handler references an undefined formatter."
	errMsgBadTemplate    = "Formatter template does not parse."
	errMsgBadLevel       = "Unknown logging level."
	errMsgLogDir         = "Failed to create logs directory."
	errMsgLogFile        = "Failed to create log file."
	errMsgReadConfig     = "Failed to read logging config file."
	errMsgDecodeConfig   = "Failed to decode logging config file."
)
