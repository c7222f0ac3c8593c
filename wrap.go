package logsetup

import (
	"fmt"
	"reflect"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
)

// Kwargs are the named arguments of an instrumented call.
type Kwargs map[string]any

// CallLogger instruments functions: each call is logged with its arguments
// before it runs, and a returned error or a panic is logged with a stack
// before being handed back to the caller untouched.
//
//	calls := logsetup.NewCallLogger(svc)
//	add := logsetup.WrapKw(calls, func(arg int, kw logsetup.Kwargs) (int, error) {
//		return arg + kw["key_arg"].(int), nil
//	})
//	sum, err := add(2, logsetup.Kwargs{"key_arg": 3})
type CallLogger struct {
	svc   *Service
	level zerolog.Level
}

// NewCallLogger binds instrumentation to svc (Default() when nil). Calls are
// logged at level, warning when omitted.
func NewCallLogger(svc *Service, level ...Level) *CallLogger {
	if svc == nil {
		svc = Default()
	}
	l := LevelWarning
	if len(level) > 0 {
		l = level[0]
	}
	return &CallLogger{svc: svc, level: l}
}

type funcInfo struct {
	pkg  string
	name string
}

// describe splits the runtime name of fn, e.g. "example.com/app/store.(*DB).Get",
// into its package path and the rest. The runtime writes dots in the last
// path element as %2e ("gopkg.in/yaml%2ev3"); they are restored.
func describe(fn any) funcInfo {
	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if f == nil {
		return funcInfo{name: "unknown"}
	}
	full := f.Name()
	start := strings.LastIndexByte(full, '/') + 1
	dot := strings.IndexByte(full[start:], '.')
	if dot < 0 {
		return funcInfo{name: full}
	}
	pkg := strings.ReplaceAll(full[:start+dot], "%2e", ".")
	return funcInfo{pkg: pkg, name: full[start+dot+1:]}
}

// Wrap0 instruments a function with no arguments. Wrapped functions return
// a result and an error; use WrapErr for functions returning only an error.
func Wrap0[R any](c *CallLogger, fn func() (R, error)) func() (R, error) {
	info := describe(fn)
	return func() (R, error) {
		return invoke(c, info, nil, nil, fn)
	}
}

// Wrap1 instruments a function of one argument.
func Wrap1[A, R any](c *CallLogger, fn func(A) (R, error)) func(A) (R, error) {
	info := describe(fn)
	return func(a A) (R, error) {
		return invoke(c, info, []any{a}, nil, func() (R, error) { return fn(a) })
	}
}

// Wrap2 instruments a function of two arguments.
func Wrap2[A, B, R any](c *CallLogger, fn func(A, B) (R, error)) func(A, B) (R, error) {
	info := describe(fn)
	return func(a A, b B) (R, error) {
		return invoke(c, info, []any{a, b}, nil, func() (R, error) { return fn(a, b) })
	}
}

// Wrap3 instruments a function of three arguments.
func Wrap3[A, B, C, R any](c *CallLogger, fn func(A, B, C) (R, error)) func(A, B, C) (R, error) {
	info := describe(fn)
	return func(a A, b B, cc C) (R, error) {
		return invoke(c, info, []any{a, b, cc}, nil, func() (R, error) { return fn(a, b, cc) })
	}
}

// WrapKw instruments a function taking one positional argument plus named ones.
func WrapKw[A, R any](c *CallLogger, fn func(A, Kwargs) (R, error)) func(A, Kwargs) (R, error) {
	info := describe(fn)
	return func(a A, kw Kwargs) (R, error) {
		return invoke(c, info, []any{a}, kw, func() (R, error) { return fn(a, kw) })
	}
}

// WrapErr instruments a function of one argument that returns only an error.
func WrapErr[A any](c *CallLogger, fn func(A) error) func(A) error {
	info := describe(fn)
	return func(a A) error {
		_, err := invoke(c, info, []any{a}, nil, func() (struct{}, error) { return struct{}{}, fn(a) })
		return err
	}
}

// invoke must be called directly from the closures returned by the Wrap
// functions; callSite(2) depends on it.
func invoke[R any](c *CallLogger, info funcInfo, args []any, kw Kwargs, call func() (R, error)) (res R, err error) {
	site := callSite(2)
	if err = c.prepare(info.pkg); err != nil {
		return res, err
	}
	scope := c.svc.Logger(info.pkg)

	if args == nil {
		args = []any{}
	}
	if kw == nil {
		kw = Kwargs{}
	}
	c.record(scope, c.level, site).
		Str("function", info.name).
		Interface("args", args).
		Interface("kwargs", kw).
		Msgf("Function %s called with following params: %v, %v", info.name, args, map[string]any(kw))

	defer func() {
		if r := recover(); r != nil {
			ev := c.record(scope, zerolog.ErrorLevel, site).
				Str("function", info.name).
				Bool("panic", true)
			if perr, ok := r.(error); ok {
				ev = ev.Err(perr)
			}
			ev.Str(tracebackFieldName, string(debug.Stack())).Msg(fmt.Sprint(r))
			panic(r)
		}
	}()

	res, err = call()
	if err != nil {
		c.record(scope, zerolog.ErrorLevel, site).
			Str("function", info.name).
			Stack().
			Err(err).
			Str(tracebackFieldName, string(debug.Stack())).
			Msg(err.Error())
	}
	return res, err
}

func (c *CallLogger) prepare(scope string) error {
	if err := c.svc.Initialize(); err != nil {
		return err
	}
	return c.svc.attachHandler(scope, FormatterCall)
}

// record starts an event stamped with an explicit call site rather than the
// frame that happens to create it.
func (c *CallLogger) record(scope *Scope, level zerolog.Level, site string) LogEvent {
	e := scope.begin(level)
	if e == nil {
		return newLogEvent(nil)
	}
	if site != emptyString {
		e.Str(zerolog.CallerFieldName, site)
	}
	return newTrackedLogEvent(e, c.svc)
}

// callSite reports the location skip frames above its caller.
func callSite(skip int) string {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return emptyString
	}
	return zerolog.CallerMarshalFunc(pc, file, line)
}
