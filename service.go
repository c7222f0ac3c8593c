package logsetup

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/Station-Manager/errors"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// Service owns one applied logging configuration: its sinks and the routing
// table scopes resolve against.
type Service struct {
	// Config is applied by Initialize. Nil means DefaultConfig().
	Config *Config
	// WorkingDir anchors relative log file paths. Empty means the process
	// working directory.
	WorkingDir string
	// Console, when set, replaces stdout/stderr for console handlers.
	Console io.Writer

	mu            sync.RWMutex
	wg            sync.WaitGroup
	router        atomic.Pointer[router]
	isInitialized atomic.Bool
	handlers      map[string]*handler

	scopesMu sync.Mutex
	scopes   map[string]*Scope
}

// NewService returns a service for cfg rooted at workingDir.
func NewService(cfg *Config, workingDir string) *Service {
	return &Service{Config: cfg, WorkingDir: workingDir}
}

var defaultService = &Service{}

// Default returns the process-wide service used by SetupLog.
func Default() *Service {
	return defaultService
}

// SetupLog initializes the process-wide service with DefaultConfig. It is
// meant to run once at startup; later calls return nil without changing
// anything.
func SetupLog() error {
	return Default().Initialize()
}

// Initialize validates the configuration, creates the log directory and
// file(s) and installs the routing table. Calling it again after success is
// a no-op. Any failure leaves the service uninitialized.
func (s *Service) Initialize() error {
	const op errors.Op = "logsetup.Service.Initialize"
	if s == nil {
		return errors.New(op).Msg(errMsgNilService)
	}
	if s.isInitialized.Load() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isInitialized.Load() {
		return nil
	}

	if s.Config == nil {
		s.Config = DefaultConfig()
	}
	cfg := s.Config

	if err := validateConfig(cfg); err != nil {
		return err
	}
	if err := s.ensureLogFiles(cfg); err != nil {
		return err
	}
	handlers, err := s.buildHandlers(cfg)
	if err != nil {
		return err
	}
	s.handlers = handlers

	r := &router{
		cfg:        cfg,
		handlers:   handlers,
		attached:   map[string]*handler{},
		lastResort: s.lastResortHandler(),
		disabled:   map[string]bool{},
	}
	if cfg.DisableExistingLoggers {
		s.scopesMu.Lock()
		for name := range s.scopes {
			if name != emptyString && !r.covered(name) {
				r.disabled[name] = true
			}
		}
		s.scopesMu.Unlock()
	}

	s.router.Store(r)
	s.isInitialized.Store(true)
	return nil
}

// Logger returns the scope for a dotted name; "" is the root. The same
// *Scope is returned for the same name.
func (s *Service) Logger(name string) *Scope {
	s.scopesMu.Lock()
	defer s.scopesMu.Unlock()
	if s.scopes == nil {
		s.scopes = make(map[string]*Scope)
	}
	if sc, ok := s.scopes[name]; ok {
		return sc
	}
	sc := &Scope{name: name, svc: s}
	s.scopes[name] = sc
	return sc
}

// Root returns the root scope.
func (s *Service) Root() *Scope {
	return s.Logger(emptyString)
}

// attachHandler adds a console handler using formatter fmtName to scope,
// at most once per scope.
func (s *Service) attachHandler(scope, fmtName string) error {
	const op errors.Op = "logsetup.Service.attachHandler"

	if r := s.router.Load(); r != nil && r.attached[scope] != nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.router.Load()
	if r == nil || !s.isInitialized.Load() {
		return errors.New(op).Msg(errMsgNotInitialized)
	}
	if _, ok := r.attached[scope]; ok {
		return nil
	}

	fc, ok := r.cfg.Formatters[fmtName]
	if !ok {
		fc = DefaultConfig().Formatters[FormatterCall]
	}
	f, err := compileFormatter(fc)
	if err != nil {
		return errors.New(op).Err(err).Msg(errMsgBadTemplate)
	}
	h, err := s.newHandler(scope, HandlerConfig{Kind: KindConsole, Stream: "stderr"}, f)
	if err != nil {
		return err
	}
	s.router.Store(r.withAttached(scope, h))
	return nil
}

// Close stops routing, waits up to ShutdownTimeoutMS for events already
// started, then closes every file sink. It is safe to call more than once.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	if !s.isInitialized.Load() {
		s.mu.Unlock()
		return nil
	}
	s.isInitialized.Store(false)
	timeout := time.Duration(s.Config.ShutdownTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultShutdownMillis * time.Millisecond
	}
	handlers := s.handlers
	s.handlers = nil
	s.router.Store(nil)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		_, _ = os.Stderr.WriteString("logsetup: shutdown timeout waiting for in-flight log events\n")
	}

	var g errgroup.Group
	for _, h := range handlers {
		if h.closer == nil {
			continue
		}
		g.Go(h.closer.Close)
	}
	return g.Wait()
}

// Hook installs zerolog hooks on every scope logger built from now on.
func (s *Service) Hook(hooks ...zerolog.Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.router.Load()
	if r == nil {
		return
	}
	s.router.Store(r.withHooks(hooks))
}
