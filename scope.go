package logsetup

import (
	"time"

	"github.com/rs/zerolog"
)

// Scope is a named routing unit. It resolves its handlers and level from the
// service each time an event starts, so a Scope taken before Initialize
// starts writing once the service is initialized.
type Scope struct {
	name   string
	svc    *Service
	fields []func(*zerolog.Event)
}

var _ Logger = (*Scope)(nil)

// Name returns the dotted scope name; the root scope is "".
func (s *Scope) Name() string {
	return s.name
}

func (s *Scope) DebugWith() LogEvent    { return s.at(zerolog.DebugLevel) }
func (s *Scope) InfoWith() LogEvent     { return s.at(zerolog.InfoLevel) }
func (s *Scope) WarnWith() LogEvent     { return s.at(zerolog.WarnLevel) }
func (s *Scope) ErrorWith() LogEvent    { return s.at(zerolog.ErrorLevel) }
func (s *Scope) CriticalWith() LogEvent { return s.at(zerolog.FatalLevel) }

// Log starts an event at an arbitrary level.
func (s *Scope) Log(level Level) LogEvent {
	return s.at(level)
}

// Enabled reports whether a record at level would pass the scope's threshold.
func (s *Scope) Enabled(level Level) bool {
	if s == nil || s.svc == nil || !s.svc.isInitialized.Load() {
		return false
	}
	r := s.svc.router.Load()
	if r == nil {
		return false
	}
	l := r.logger(s.name)
	return l.GetLevel() <= level && level != zerolog.Disabled
}

// With returns a LogContext for creating a child logger with pre-populated fields.
func (s *Scope) With() LogContext {
	return &logContext{scope: s}
}

// at records the caller of the exported level method. Keep it called
// directly from those methods so the skip count holds.
func (s *Scope) at(level zerolog.Level) LogEvent {
	e := s.begin(level)
	if e == nil {
		return newLogEvent(nil)
	}
	return newTrackedLogEvent(e.Caller(2), s.svc)
}

// begin starts an event on the scope's current logger, or returns nil when
// the level is filtered out. A non-nil event is counted against the service's
// in-flight work; wrap it with newTrackedLogEvent so sending releases it.
func (s *Scope) begin(level zerolog.Level) *zerolog.Event {
	if s == nil || s.svc == nil || !s.svc.isInitialized.Load() || level == zerolog.NoLevel {
		return nil
	}
	svc := s.svc

	svc.wg.Add(1)
	svc.mu.RLock()
	// Close may have run between the check above and the lock
	if !svc.isInitialized.Load() {
		svc.mu.RUnlock()
		svc.wg.Done()
		return nil
	}
	r := svc.router.Load()
	if r == nil {
		svc.mu.RUnlock()
		svc.wg.Done()
		return nil
	}
	logger := r.logger(s.name)
	svc.mu.RUnlock()

	// WithLevel never exits or panics, even for the critical level
	e := logger.WithLevel(level)
	if e == nil {
		svc.wg.Done()
		return nil
	}
	e.Str(zerolog.TimestampFieldName, time.Now().Format(time.RFC3339Nano))
	for _, f := range s.fields {
		f(e)
	}
	return e
}
