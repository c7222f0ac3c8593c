package logsetup

import (
	"io"
	"os"
	"path/filepath"

	"github.com/Station-Manager/errors"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const megabyte = 1024 * 1024

// handler is one configured sink. A single handler value is shared by every
// scope that names it, so each sink is opened once.
type handler struct {
	name   string
	level  zerolog.Level
	writer zerolog.LevelWriter
	closer io.Closer
}

func (s *Service) buildHandlers(cfg *Config) (map[string]*handler, error) {
	const op errors.Op = "logsetup.buildHandlers"

	formatters := make(map[string]*formatter, len(cfg.Formatters))
	for name, fc := range cfg.Formatters {
		f, err := compileFormatter(fc)
		if err != nil {
			return nil, errors.New(op).Err(err).Msg(errMsgBadTemplate)
		}
		formatters[name] = f
	}

	handlers := make(map[string]*handler, len(cfg.Handlers))
	for _, name := range sortedKeys(cfg.Handlers) {
		h, err := s.newHandler(name, cfg.Handlers[name], formatters[cfg.Handlers[name].Formatter])
		if err != nil {
			closeHandlers(handlers)
			return nil, err
		}
		handlers[name] = h
	}
	return handlers, nil
}

func (s *Service) newHandler(name string, hc HandlerConfig, f *formatter) (*handler, error) {
	level := zerolog.TraceLevel
	if hc.Level != emptyString {
		l, err := parseLevel(hc.Level)
		if err != nil {
			return nil, err
		}
		level = l
	}

	var (
		out    io.Writer
		closer io.Closer
		color  bool
	)
	switch hc.Kind {
	case KindConsole:
		out = s.consoleStream(hc.Stream)
		color = !hc.NoColor && isTerminal(out)
		out = zerolog.SyncWriter(out)
	case KindRotatingFile:
		rf, err := NewRotatingFile(s.resolvePath(hc.Filename), hc.MaxBytes, hc.BackupCount)
		if err != nil {
			return nil, err
		}
		out, closer = rf, rf
	case KindRollingFile:
		lj := s.initializeRollingFileLogger(hc)
		out, closer = lj, lj
	}

	return &handler{
		name:  name,
		level: level,
		writer: &zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: f.consoleWriter(out, color)},
			Level:  level,
		},
		closer: closer,
	}, nil
}

// initializeRollingFileLogger sizes lumberjack in whole megabytes, its
// smallest unit.
func (s *Service) initializeRollingFileLogger(hc HandlerConfig) *lumberjack.Logger {
	maxSizeMB := int(hc.MaxBytes / megabyte)
	if maxSizeMB <= 0 {
		maxSizeMB = 1
	}
	return &lumberjack.Logger{
		Filename:   s.resolvePath(hc.Filename),
		MaxSize:    maxSizeMB,
		MaxBackups: hc.BackupCount,
		MaxAge:     hc.MaxAgeDays,
		Compress:   hc.Compress,
		LocalTime:  true,
	}
}

func (s *Service) consoleStream(stream string) io.Writer {
	if s.Console != nil {
		return s.Console
	}
	if stream == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

func (s *Service) resolvePath(name string) string {
	if filepath.IsAbs(name) || s.WorkingDir == emptyString {
		return name
	}
	return filepath.Join(s.WorkingDir, name)
}

// ensureLogFiles creates the parent directory and an empty file for every
// file handler. Existing files are left untouched.
func (s *Service) ensureLogFiles(cfg *Config) error {
	const op errors.Op = "logsetup.ensureLogFiles"
	for _, name := range sortedKeys(cfg.Handlers) {
		hc := cfg.Handlers[name]
		if !hc.isFile() {
			continue
		}
		path := s.resolvePath(hc.Filename)
		if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
			return errors.New(op).Err(err).Msg(errMsgLogDir)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return errors.New(op).Err(err).Msg(errMsgLogFile)
		}
		if err = f.Close(); err != nil {
			return errors.New(op).Err(err).Msg(errMsgLogFile)
		}
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// lastResortHandler receives records from scopes that resolve to no
// handler at all, so warnings are never silently lost.
func (s *Service) lastResortHandler() *handler {
	f, _ := compileFormatter(FormatterConfig{Format: "{{.Level}} { {{.Path}}:{{.Line}} } - {{.Message}}"})
	var out io.Writer = os.Stderr
	if s.Console != nil {
		out = s.Console
	}
	return &handler{
		name:  "lastResort",
		level: zerolog.WarnLevel,
		writer: &zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: f.consoleWriter(zerolog.SyncWriter(out), false)},
			Level:  zerolog.WarnLevel,
		},
	}
}

func closeHandlers(handlers map[string]*handler) {
	for _, h := range handlers {
		if h.closer != nil {
			_ = h.closer.Close()
		}
	}
}
