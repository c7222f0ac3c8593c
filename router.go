package logsetup

import (
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// router is the installed routing table. It is immutable once stored; adding
// a call handler swaps in a copy with an empty cache.
type router struct {
	cfg        *Config
	handlers   map[string]*handler
	attached   map[string]*handler
	lastResort *handler
	disabled   map[string]bool
	hooks      []zerolog.Hook

	cache sync.Map // scope name -> *zerolog.Logger
}

func (r *router) clone() *router {
	attached := make(map[string]*handler, len(r.attached)+1)
	for k, v := range r.attached {
		attached[k] = v
	}
	return &router{
		cfg:        r.cfg,
		handlers:   r.handlers,
		attached:   attached,
		lastResort: r.lastResort,
		disabled:   r.disabled,
		hooks:      r.hooks,
	}
}

func (r *router) withAttached(scope string, h *handler) *router {
	c := r.clone()
	c.attached[scope] = h
	return c
}

func (r *router) withHooks(hooks []zerolog.Hook) *router {
	c := r.clone()
	c.hooks = append(append([]zerolog.Hook(nil), r.hooks...), hooks...)
	return c
}

func (r *router) logger(name string) *zerolog.Logger {
	if v, ok := r.cache.Load(name); ok {
		return v.(*zerolog.Logger)
	}
	l := r.build(name)
	actual, _ := r.cache.LoadOrStore(name, l)
	return actual.(*zerolog.Logger)
}

func (r *router) build(name string) *zerolog.Logger {
	if r.disabled[name] {
		nop := zerolog.Nop()
		return &nop
	}

	var writers []io.Writer
	for n, done := name, false; !done; n, done = parentScope(n) {
		if h, ok := r.attached[n]; ok {
			writers = append(writers, h.writer)
		}
		lc, ok := r.scope(n)
		if !ok {
			continue
		}
		for _, hn := range lc.Handlers {
			writers = append(writers, r.handlers[hn].writer)
		}
		if !lc.propagates() {
			break
		}
	}
	if len(writers) == 0 {
		writers = append(writers, r.lastResort.writer)
	}

	l := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(r.effectiveLevel(name)).
		With().Str(scopeFieldName, name).Logger()
	if len(r.hooks) > 0 {
		l = l.Hook(r.hooks...)
	}
	return &l
}

// effectiveLevel is the level of the nearest scope in the chain that sets one.
func (r *router) effectiveLevel(name string) zerolog.Level {
	for n, done := name, false; !done; n, done = parentScope(n) {
		if lc, ok := r.scope(n); ok && lc.Level != emptyString {
			if l, err := parseLevel(lc.Level); err == nil {
				return l
			}
		}
	}
	l, _ := parseLevel(defaultRootLevel)
	return l
}

func (r *router) scope(name string) (LoggerConfig, bool) {
	if name == emptyString {
		return r.cfg.Root, true
	}
	lc, ok := r.cfg.Loggers[name]
	return lc, ok
}

// covered reports whether name or one of its non-root ancestors is configured.
func (r *router) covered(name string) bool {
	for n, done := name, false; !done && n != emptyString; n, done = parentScope(n) {
		if _, ok := r.cfg.Loggers[n]; ok {
			return true
		}
	}
	return false
}

// parentScope returns the parent of a dotted scope name. done is true once
// name is the root.
func parentScope(name string) (parent string, done bool) {
	if name == emptyString {
		return emptyString, true
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], false
	}
	return emptyString, false
}
