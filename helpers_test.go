package logsetup

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// safeBuffer is shared by several handlers, each with its own lock.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *safeBuffer) Lines() []string {
	s := strings.TrimRight(b.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

const testLogFile = "logs/test.log"

// testConfig routes root to a console handler at debug and a file handler at
// warning. Both render "LEVEL name message".
func testConfig() *Config {
	return &Config{
		Version: 1,
		Formatters: map[string]FormatterConfig{
			"plain": {Format: "{{.Level}} {{.Name}} {{.Message}}"},
		},
		Handlers: map[string]HandlerConfig{
			"console": {Kind: KindConsole, Level: "debug", Formatter: "plain", NoColor: true},
			"file": {
				Kind:        KindRotatingFile,
				Level:       "warning",
				Formatter:   "plain",
				Filename:    testLogFile,
				MaxBytes:    1 << 20,
				BackupCount: 3,
			},
		},
		Root: LoggerConfig{Level: "debug", Handlers: []string{"console", "file"}},
	}
}

func newTestService(t testing.TB, cfg *Config) (*Service, *safeBuffer) {
	t.Helper()
	out := &safeBuffer{}
	svc := &Service{Config: cfg, WorkingDir: t.TempDir(), Console: out}
	require.NoError(t, svc.Initialize())
	t.Cleanup(func() { _ = svc.Close() })
	return svc, out
}

func readLog(t testing.TB, svc *Service, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(svc.WorkingDir, name))
	require.NoError(t, err)
	return string(data)
}

func boolPtr(b bool) *bool { return &b }

func hookFunc(f func(msg string)) zerolog.Hook {
	return zerolog.HookFunc(func(_ *zerolog.Event, _ zerolog.Level, msg string) { f(msg) })
}
