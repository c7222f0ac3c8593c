package logsetup

import (
	"os"

	"github.com/Station-Manager/errors"
	"gopkg.in/yaml.v3"
)

// Config describes formatters, handlers and logger scopes. It mirrors the
// usual dictionary-style logging schema: handlers reference formatters by
// name and scopes reference handlers by name.
type Config struct {
	Version                int                        `yaml:"version" validate:"eq=1"`
	DisableExistingLoggers bool                       `yaml:"disable_existing_loggers"`
	Formatters             map[string]FormatterConfig `yaml:"formatters" validate:"required,min=1,dive"`
	Handlers               map[string]HandlerConfig   `yaml:"handlers" validate:"required,min=1,dive"`
	Root                   LoggerConfig               `yaml:"root"`
	Loggers                map[string]LoggerConfig    `yaml:"loggers" validate:"omitempty,dive,keys,required,endkeys"`
	// ShutdownTimeoutMS bounds how long Close waits for in-flight events.
	ShutdownTimeoutMS int `yaml:"shutdown_timeout_ms" validate:"gte=0"`
}

// FormatterConfig is a text/template rendered against each record.
// Available fields: .Time .Level .Name .Path .Line .Message
type FormatterConfig struct {
	Format     string `yaml:"format" validate:"required"`
	DateFormat string `yaml:"datefmt"`
}

// HandlerConfig is a single sink.
type HandlerConfig struct {
	Kind      string `yaml:"kind" validate:"required,oneof=console rotating_file rolling_file"`
	Level     string `yaml:"level" validate:"omitempty,loglevel"`
	Formatter string `yaml:"formatter" validate:"required"`
	NoColor   bool   `yaml:"no_color"`

	// console
	Stream string `yaml:"stream" validate:"omitempty,oneof=stdout stderr"`

	// rotating_file and rolling_file
	Filename    string `yaml:"filename" validate:"required_unless=Kind console"`
	MaxBytes    int64  `yaml:"max_bytes" validate:"gte=0"`
	BackupCount int    `yaml:"backup_count" validate:"gte=0"`

	// rolling_file only
	MaxAgeDays int  `yaml:"max_age_days" validate:"gte=0"`
	Compress   bool `yaml:"compress"`
}

// LoggerConfig is a named routing scope. An empty Level inherits the level of
// the nearest configured ancestor. A nil Propagate means true.
type LoggerConfig struct {
	Level     string   `yaml:"level" validate:"omitempty,loglevel"`
	Handlers  []string `yaml:"handlers" validate:"dive,required"`
	Propagate *bool    `yaml:"propagate"`
}

func (c LoggerConfig) propagates() bool {
	return c.Propagate == nil || *c.Propagate
}

func (h HandlerConfig) isFile() bool {
	return h.Kind == KindRotatingFile || h.Kind == KindRollingFile
}

// DefaultConfig returns the fixed configuration installed by SetupLog: a
// console handler at debug and a rotating file handler at warning, shared by
// the root scope and the non-propagating "plugins" scope.
func DefaultConfig() *Config {
	noPropagate := false
	return &Config{
		Version:                1,
		DisableExistingLoggers: false,
		Formatters: map[string]FormatterConfig{
			FormatterShort: {
				Format: "[{{.Time}}]  {{.Level}} { {{.Path}}:{{.Line}}  }\n\t{{.Message}}",
			},
			FormatterShortLine: {
				Format: "[{{.Time}}]  {{.Level}} { {{.Path}}:{{.Line}} } - {{.Message}}",
			},
			FormatterCall: {
				Format: "{{.Time}} - {{.Name}} - {{.Level}} - {{.Message}}",
			},
		},
		Handlers: map[string]HandlerConfig{
			HandlerConsole: {
				Kind:      KindConsole,
				Level:     defaultConsoleLevel,
				Formatter: FormatterShort,
				Stream:    "stdout",
			},
			HandlerFile: {
				Kind:        KindRotatingFile,
				Level:       defaultFileLevel,
				Formatter:   FormatterShort,
				Filename:    DefaultLogFile,
				MaxBytes:    DefaultMaxBytes,
				BackupCount: DefaultBackupCount,
				NoColor:     true,
			},
		},
		Root: LoggerConfig{
			Level:    "debug",
			Handlers: []string{HandlerConsole, HandlerFile},
		},
		Loggers: map[string]LoggerConfig{
			PluginsScope: {
				Level:     "debug",
				Handlers:  []string{HandlerConsole, HandlerFile},
				Propagate: &noPropagate,
			},
		},
		ShutdownTimeoutMS: defaultShutdownMillis,
	}
}

// LoadConfig reads a YAML logging configuration. The result is not validated;
// Service.Initialize does that.
func LoadConfig(path string) (*Config, error) {
	const op errors.Op = "logsetup.LoadConfig"
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(op).Err(err).Msg(errMsgReadConfig)
	}

	cfg := &Config{}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(op).Err(err).Msg(errMsgDecodeConfig)
	}
	return cfg, nil
}
