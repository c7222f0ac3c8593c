package logsetup

import (
	stderrs "errors"
	"fmt"
	"runtime"
	"strings"
	"testing"
	"time"

	pkgerrs "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const thisPackage = "github.com/Station-Manager/logsetup"

// wrapConfig sends nothing through root so only the attached call handler
// writes to the console.
func wrapConfig() *Config {
	cfg := testConfig()
	cfg.Root = LoggerConfig{Level: "debug"}
	cfg.Formatters[FormatterCall] = FormatterConfig{Format: "{{.Name}} - {{.Level}} - {{.Message}} @{{.Path}}:{{.Line}}"}
	return cfg
}

var errSentinel = stderrs.New("bad input")

func addKw(arg int, kw Kwargs) (int, error) {
	return arg + kw["key_arg"].(int), nil
}

func add2(a, b int) (int, error) { return a + b, nil }

func add3(a, b, c int) (int, error) { return a + b + c, nil }

func greet() (string, error) { return "hi", nil }

func shout(s string) (string, error) { return strings.ToUpper(s), nil }

func failing(string) (int, error) { return 0, errSentinel }

func failingWithStack() (int, error) { return 0, pkgerrs.New("with stack") }

func exploding() (int, error) { panic("boom") }

func countCalls(out *safeBuffer) int {
	return strings.Count(out.String(), "called with following params")
}

func TestWrapKw(t *testing.T) {
	svc, out := newTestService(t, wrapConfig())
	calls := NewCallLogger(svc)

	wrapped := WrapKw(calls, addKw)
	res, err := wrapped(2, Kwargs{"key_arg": 3})
	_, file, line, _ := runtime.Caller(0)

	require.NoError(t, err)
	assert.Equal(t, 5, res)

	lines := out.Lines()
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0],
		thisPackage+" - WARNING - Function addKw called with following params: [2], map[key_arg:3]"), lines[0])
	assert.Contains(t, lines[0], fmt.Sprintf("@%s:%d", file, line-1))
	assert.Contains(t, lines[0], "args=[2]")
	assert.Contains(t, lines[0], `kwargs={"key_arg":3}`)
	assert.Contains(t, lines[0], "function=addKw")
}

func TestWrapPositional(t *testing.T) {
	svc, out := newTestService(t, wrapConfig())
	calls := NewCallLogger(svc, LevelInfo)

	s, err := Wrap0(calls, greet)()
	require.NoError(t, err)
	assert.Equal(t, "hi", s)

	s, err = Wrap1(calls, shout)("quiet")
	require.NoError(t, err)
	assert.Equal(t, "QUIET", s)

	n, err := Wrap2(calls, add2)(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = Wrap3(calls, add3)(1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	lines := out.Lines()
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], " - INFO - Function greet called with following params: [], map[]")
	assert.Contains(t, lines[1], "Function shout called with following params: [quiet], map[]")
	assert.Contains(t, lines[2], "Function add2 called with following params: [1 2], map[]")
	assert.Contains(t, lines[3], "Function add3 called with following params: [1 2 3], map[]")
}

func TestWrapReturnsErrorUnchanged(t *testing.T) {
	svc, out := newTestService(t, wrapConfig())
	wrapped := Wrap1(NewCallLogger(svc), failing)

	res, err := wrapped("x")
	assert.Equal(t, 0, res)
	require.Error(t, err)
	assert.Same(t, errSentinel, err)

	logged := out.String()
	assert.Equal(t, 1, countCalls(out))
	assert.Equal(t, 1, strings.Count(logged, thisPackage+" - ERROR - bad input @"))
	assert.Contains(t, logged, "error=")
	assert.Contains(t, logged, "goroutine ")
	assert.NotContains(t, logged, "Stack (most recent call first):")
}

func TestWrapLogsErrorStack(t *testing.T) {
	svc, out := newTestService(t, wrapConfig())

	_, err := Wrap0(NewCallLogger(svc), failingWithStack)()
	require.EqualError(t, err, "with stack")

	logged := out.String()
	assert.Contains(t, logged, " - ERROR - with stack @")
	assert.Contains(t, logged, "Stack (most recent call first):")
	assert.Contains(t, logged, "wrap_test.go")
}

func TestWrapRepanics(t *testing.T) {
	svc, out := newTestService(t, wrapConfig())
	wrapped := Wrap0(NewCallLogger(svc), exploding)

	assert.PanicsWithValue(t, "boom", func() { _, _ = wrapped() })

	logged := out.String()
	assert.Equal(t, 1, countCalls(out))
	assert.Equal(t, 1, strings.Count(logged, " - ERROR - boom @"))
	assert.Contains(t, logged, "panic=true")
	assert.Contains(t, logged, "goroutine ")
}

func TestWrapRepanicsErrorValue(t *testing.T) {
	svc, out := newTestService(t, wrapConfig())
	wrapped := Wrap0(NewCallLogger(svc), func() (int, error) { panic(errSentinel) })

	assert.PanicsWithError(t, errSentinel.Error(), func() { _, _ = wrapped() })
	assert.Contains(t, out.String(), " - ERROR - bad input @")
}

func TestWrapAttachesOneHandlerPerScope(t *testing.T) {
	svc, out := newTestService(t, wrapConfig())
	calls := NewCallLogger(svc)
	first := Wrap0(calls, greet)
	second := Wrap2(NewCallLogger(svc), add2)

	for i := 0; i < 2; i++ {
		_, err := first()
		require.NoError(t, err)
		_, err = second(i, i)
		require.NoError(t, err)
	}

	assert.Equal(t, 4, countCalls(out))
	assert.Len(t, out.Lines(), 4)
	assert.Len(t, svc.router.Load().attached, 1)
	assert.Contains(t, svc.router.Load().attached, thisPackage)
}

func TestWrapInitializesLazily(t *testing.T) {
	out := &safeBuffer{}
	svc := &Service{Config: wrapConfig(), WorkingDir: t.TempDir(), Console: out}
	t.Cleanup(func() { _ = svc.Close() })

	wrapped := Wrap0(NewCallLogger(svc), greet)
	assert.False(t, svc.isInitialized.Load())

	_, err := wrapped()
	require.NoError(t, err)
	assert.True(t, svc.isInitialized.Load())
	assert.Equal(t, 1, countCalls(out))
}

func TestWrapPropagatesToConfiguredHandlers(t *testing.T) {
	cfg := wrapConfig()
	cfg.Root = LoggerConfig{Level: "debug", Handlers: []string{"file"}}
	svc, out := newTestService(t, cfg)

	_, err := Wrap1(NewCallLogger(svc), failing)("y")
	require.Error(t, err)

	assert.Equal(t, 1, countCalls(out))
	file := readLog(t, svc, testLogFile)
	assert.Contains(t, file, "WARNING "+thisPackage+" Function failing called with following params: [y], map[]")
	assert.Contains(t, file, "ERROR "+thisPackage+" bad input")
}

func TestDescribe(t *testing.T) {
	info := describe(addKw)
	assert.Equal(t, thisPackage, info.pkg)
	assert.Equal(t, "addKw", info.name)

	info = describe(strings.ToUpper)
	assert.Equal(t, "strings", info.pkg)
	assert.Equal(t, "ToUpper", info.name)

	info = describe(yaml.Marshal)
	assert.Equal(t, "gopkg.in/yaml.v3", info.pkg)
	assert.Equal(t, "Marshal", info.name)
}

func checkName(name string) error {
	if name == "" {
		return errSentinel
	}
	return nil
}

func TestWrapErr(t *testing.T) {
	svc, out := newTestService(t, wrapConfig())
	wrapped := WrapErr(NewCallLogger(svc), checkName)

	require.NoError(t, wrapped("ok"))
	assert.Same(t, errSentinel, wrapped(""))

	logged := out.String()
	assert.Equal(t, 2, countCalls(out))
	assert.Contains(t, logged, "Function checkName called with following params: [ok], map[]")
	assert.Equal(t, 1, strings.Count(logged, " - ERROR - bad input @"))
}

func TestWrappedCallsDoNotDelayClose(t *testing.T) {
	cfg := wrapConfig()
	cfg.ShutdownTimeoutMS = 2000
	svc, out := newTestService(t, cfg)
	calls := NewCallLogger(svc)

	_, err := Wrap2(calls, add2)(1, 2)
	require.NoError(t, err)
	_, err = Wrap1(calls, failing)("z")
	require.Error(t, err)
	assert.Panics(t, func() { _, _ = Wrap0(calls, exploding)() })

	start := time.Now()
	require.NoError(t, svc.Close())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 3, countCalls(out))
}
