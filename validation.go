package logsetup

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Station-Manager/errors"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate
var once sync.Once

func validateConfig(cfg *Config) error {
	const op errors.Op = "logsetup.validateConfig"
	if cfg == nil {
		return errors.New(op).Msg(errMsgNilConfig)
	}

	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
			_, err := parseLevel(fl.Field().String())
			return err == nil
		})
	})

	if err := validate.Struct(cfg); err != nil {
		return errors.New(op).Err(err).Msg(errMsgConfigInvalid)
	}

	if err := validateReferences(cfg); err != nil {
		return errors.New(op).Err(err).Msg(errMsgConfigInvalid)
	}

	return nil
}

// validateReferences checks that every scope names defined handlers and every
// handler names a defined formatter whose template parses. Names are visited
// in sorted order so the reported error is stable.
func validateReferences(cfg *Config) error {
	const op errors.Op = "logsetup.validateReferences"

	for _, name := range sortedKeys(cfg.Handlers) {
		h := cfg.Handlers[name]
		f, ok := cfg.Formatters[h.Formatter]
		if !ok {
			return errors.New(op).Msg(fmt.Sprintf("%s handler=%q formatter=%q", errMsgUnknownFormat, name, h.Formatter))
		}
		if _, err := compileFormatter(f); err != nil {
			return errors.New(op).Err(err).Msg(fmt.Sprintf("%s formatter=%q", errMsgBadTemplate, h.Formatter))
		}
	}

	check := func(scope string, lc LoggerConfig) error {
		for _, h := range lc.Handlers {
			if _, ok := cfg.Handlers[h]; !ok {
				return errors.New(op).Msg(fmt.Sprintf("%s logger=%q handler=%q", errMsgUnknownHandler, scope, h))
			}
		}
		return nil
	}
	if err := check(emptyString, cfg.Root); err != nil {
		return err
	}
	for _, name := range sortedKeys(cfg.Loggers) {
		if err := check(name, cfg.Loggers[name]); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate reports whether cfg is structurally valid and all of its handler
// and formatter references resolve.
func (c *Config) Validate() error {
	return validateConfig(c)
}
