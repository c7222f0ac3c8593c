package logsetup

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// LogContext builds a child logger whose fields are added to every record it emits.
type LogContext interface {
	Str(key, val string) LogContext
	Strs(key string, vals []string) LogContext
	Int(key string, val int) LogContext
	Int64(key string, val int64) LogContext
	Uint64(key string, val uint64) LogContext
	Float64(key string, val float64) LogContext
	Bool(key string, val bool) LogContext
	Time(key string, val time.Time) LogContext
	Err(err error) LogContext
	Interface(key string, val interface{}) LogContext
	// Logger creates and returns the new context logger
	Logger() Logger
}

// LogEvent provides a fluent interface for structured logging with type-safe field methods.
// It wraps zerolog.Event; a disabled event accepts every call and writes nothing.
type LogEvent interface {
	Str(key, val string) LogEvent
	Strs(key string, vals []string) LogEvent
	Stringer(key string, val interface{ String() string }) LogEvent
	Int(key string, val int) LogEvent
	Int64(key string, val int64) LogEvent
	Uint64(key string, val uint64) LogEvent
	Float64(key string, val float64) LogEvent
	Bool(key string, val bool) LogEvent
	Time(key string, val time.Time) LogEvent
	Dur(key string, val time.Duration) LogEvent
	Err(err error) LogEvent
	AnErr(key string, err error) LogEvent
	Bytes(key string, val []byte) LogEvent
	Interface(key string, val interface{}) LogEvent
	Dict(key string, dict func(LogEvent)) LogEvent
	// Stack makes the following Err call attach the error's pkg/errors
	// stack trace, when it has one.
	Stack() LogEvent
	Enabled() bool
	Msg(msg string)
	Msgf(format string, v ...interface{})
	Send()
}

// logEvent implements LogEvent by wrapping zerolog.Event. done, when set,
// runs once after the event is sent.
type logEvent struct {
	event *zerolog.Event
	done  func()
	stack bool
}

func newLogEvent(e *zerolog.Event) LogEvent {
	return &logEvent{event: e}
}

// newTrackedLogEvent expects the caller to have already done service.wg.Add(1).
// The counter is released when the event is sent, or at once for a nil event.
func newTrackedLogEvent(e *zerolog.Event, s *Service) LogEvent {
	if s == nil {
		return &logEvent{event: e}
	}
	if e == nil {
		s.wg.Done()
		return &logEvent{event: nil}
	}
	return &logEvent{event: e, done: s.wg.Done}
}

func (e *logEvent) Str(key, val string) LogEvent {
	if e.event != nil {
		e.event.Str(key, val)
	}
	return e
}

func (e *logEvent) Strs(key string, vals []string) LogEvent {
	if e.event != nil {
		e.event.Strs(key, vals)
	}
	return e
}

func (e *logEvent) Stringer(key string, val interface{ String() string }) LogEvent {
	if e.event != nil {
		e.event.Stringer(key, val)
	}
	return e
}

func (e *logEvent) Int(key string, val int) LogEvent {
	if e.event != nil {
		e.event.Int(key, val)
	}
	return e
}

func (e *logEvent) Int64(key string, val int64) LogEvent {
	if e.event != nil {
		e.event.Int64(key, val)
	}
	return e
}

func (e *logEvent) Uint64(key string, val uint64) LogEvent {
	if e.event != nil {
		e.event.Uint64(key, val)
	}
	return e
}

func (e *logEvent) Float64(key string, val float64) LogEvent {
	if e.event != nil {
		e.event.Float64(key, val)
	}
	return e
}

func (e *logEvent) Bool(key string, val bool) LogEvent {
	if e.event != nil {
		e.event.Bool(key, val)
	}
	return e
}

func (e *logEvent) Time(key string, val time.Time) LogEvent {
	if e.event != nil {
		e.event.Time(key, val)
	}
	return e
}

func (e *logEvent) Dur(key string, val time.Duration) LogEvent {
	if e.event != nil {
		e.event.Dur(key, val)
	}
	return e
}

func (e *logEvent) Err(err error) LogEvent {
	if e.event != nil {
		e.event.Err(err)
		if err != nil && e.stack {
			if st := pkgerrors.MarshalStack(err); st != nil {
				e.event.Interface(zerolog.ErrorStackFieldName, st)
			}
		}
		if err != nil {
			chain, ops, root, rootOp := buildErrorChain(err)
			if len(chain) > 1 {
				e.event.Strs("error_chain", chain)
				e.event.Str("error_root", root)
				e.event.Str("error_history", joinChain(chain))
				e.event.Strs("error_ops", ops)
				if rootOp != "" {
					e.event.Str("error_root_op", rootOp)
				}
			}
		}
	}
	return e
}

func (e *logEvent) AnErr(key string, err error) LogEvent {
	if e.event != nil {
		e.event.AnErr(key, err)
		if err != nil {
			chain, _, root, _ := buildErrorChain(err)
			if len(chain) > 1 {
				e.event.Strs(key+"_chain", chain)
				e.event.Str(key+"_root", root)
			}
		}
	}
	return e
}

func (e *logEvent) Bytes(key string, val []byte) LogEvent {
	if e.event != nil {
		e.event.Bytes(key, val)
	}
	return e
}

func (e *logEvent) Interface(key string, val interface{}) LogEvent {
	if e.event != nil {
		e.event.Interface(key, val)
	}
	return e
}

// Dict for nested objects
func (e *logEvent) Dict(key string, dict func(LogEvent)) LogEvent {
	if e.event != nil {
		dictEvent := zerolog.Dict()
		dict(newLogEvent(dictEvent))
		e.event.Dict(key, dictEvent)
	}
	return e
}

func (e *logEvent) Stack() LogEvent {
	e.stack = true
	return e
}

func (e *logEvent) Enabled() bool {
	return e.event != nil && e.event.Enabled()
}

func (e *logEvent) Msg(msg string) {
	defer e.release()
	if e.event != nil {
		e.event.Msg(msg)
	}
}

func (e *logEvent) Msgf(format string, v ...interface{}) {
	defer e.release()
	if e.event != nil {
		e.event.Msgf(format, v...)
	}
}

func (e *logEvent) Send() {
	defer e.release()
	if e.event != nil {
		e.event.Send()
	}
}

func (e *logEvent) release() {
	if e.done != nil {
		done := e.done
		e.done = nil
		done()
	}
}

// logContext collects fields for a child Scope. Fields are replayed on each
// event because the scope's zerolog logger is resolved when the event starts.
type logContext struct {
	scope  *Scope
	fields []func(*zerolog.Event)
}

func (c *logContext) add(f func(*zerolog.Event)) LogContext {
	c.fields = append(c.fields, f)
	return c
}

func (c *logContext) Str(key, val string) LogContext {
	return c.add(func(e *zerolog.Event) { e.Str(key, val) })
}

func (c *logContext) Strs(key string, vals []string) LogContext {
	return c.add(func(e *zerolog.Event) { e.Strs(key, vals) })
}

func (c *logContext) Int(key string, val int) LogContext {
	return c.add(func(e *zerolog.Event) { e.Int(key, val) })
}

func (c *logContext) Int64(key string, val int64) LogContext {
	return c.add(func(e *zerolog.Event) { e.Int64(key, val) })
}

func (c *logContext) Uint64(key string, val uint64) LogContext {
	return c.add(func(e *zerolog.Event) { e.Uint64(key, val) })
}

func (c *logContext) Float64(key string, val float64) LogContext {
	return c.add(func(e *zerolog.Event) { e.Float64(key, val) })
}

func (c *logContext) Bool(key string, val bool) LogContext {
	return c.add(func(e *zerolog.Event) { e.Bool(key, val) })
}

func (c *logContext) Time(key string, val time.Time) LogContext {
	return c.add(func(e *zerolog.Event) { e.Time(key, val) })
}

func (c *logContext) Err(err error) LogContext {
	return c.add(func(e *zerolog.Event) { e.Err(err) })
}

func (c *logContext) Interface(key string, val interface{}) LogContext {
	return c.add(func(e *zerolog.Event) { e.Interface(key, val) })
}

func (c *logContext) Logger() Logger {
	fields := make([]func(*zerolog.Event), 0, len(c.scope.fields)+len(c.fields))
	fields = append(fields, c.scope.fields...)
	fields = append(fields, c.fields...)
	return &Scope{
		name:   c.scope.name,
		svc:    c.scope.svc,
		fields: fields,
	}
}
