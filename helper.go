package logsetup

import (
	stderrs "errors"
	"strings"

	smerrors "github.com/Station-Manager/errors"
	"github.com/rs/zerolog"
)

// Level is a record severity. Ascending: debug < info < warning < error < critical.
type Level = zerolog.Level

const (
	LevelDebug    = zerolog.DebugLevel
	LevelInfo     = zerolog.InfoLevel
	LevelWarning  = zerolog.WarnLevel
	LevelError    = zerolog.ErrorLevel
	LevelCritical = zerolog.FatalLevel
)

// parseLevel parses a configured level name. It accepts the zerolog names as
// well as "warning" and "critical".
func parseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "warning", "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "critical", "fatal":
		return zerolog.FatalLevel, nil
	}
	return zerolog.NoLevel, smerrors.New("logsetup.parseLevel").Msg(errMsgBadLevel + " " + level)
}

// levelName renders a zerolog level string (as found in encoded events) the
// way it appears in log lines.
func levelName(level string) string {
	switch level {
	case zerolog.LevelTraceValue, zerolog.LevelDebugValue:
		return "DEBUG"
	case zerolog.LevelInfoValue:
		return "INFO"
	case zerolog.LevelWarnValue:
		return "WARNING"
	case zerolog.LevelErrorValue:
		return "ERROR"
	case zerolog.LevelFatalValue, zerolog.LevelPanicValue:
		return "CRITICAL"
	}
	return strings.ToUpper(level)
}

// buildErrorChain walks an error's cause chain and returns:
//   - chain: outermost -> innermost error messages
//   - ops: operation identifiers for DetailedError links ("" if not available)
//   - root: the innermost error message
//   - rootOp: the innermost operation identifier if available
//
// The traversal prefers Station-Manager DetailedError.Cause() and then
// falls back to stdlib errors.Unwrap. It guards against excessive depth
// and repeated messages to avoid cycles.
func buildErrorChain(err error) (chain []string, ops []string, root string, rootOp string) {
	const maxDepth = 50
	visited := 0
	seen := map[string]bool{}

	for err != nil && visited < maxDepth {
		visited++

		if dErr, ok := smerrors.AsDetailedError(err); ok && dErr != nil {
			chain = append(chain, dErr.Error())
			ops = append(ops, string(dErr.Op()))
			err = dErr.Cause()
			continue
		}

		msg := err.Error()
		if seen[msg] {
			break
		}
		seen[msg] = true
		chain = append(chain, msg)
		ops = append(ops, "")
		err = stderrs.Unwrap(err)
	}

	if len(chain) > 0 {
		root = chain[len(chain)-1]
	}
	if len(ops) > 0 {
		rootOp = ops[len(ops)-1]
	}
	return
}

// joinChain returns a single string for the error chain separated by " -> ".
func joinChain(chain []string) string {
	if len(chain) == 0 {
		return ""
	}
	return strings.Join(chain, " -> ")
}

// ParseLevel parses a level name such as "warning" or "critical".
func ParseLevel(level string) (Level, error) {
	return parseLevel(level)
}
