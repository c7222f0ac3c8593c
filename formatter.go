package logsetup

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/rs/zerolog"
)

// record is what a formatter template sees.
type record struct {
	Time    string
	Level   string
	Name    string
	Path    string
	Line    int
	Message string
}

type formatter struct {
	tmpl       *template.Template
	dateFormat string
}

func compileFormatter(cfg FormatterConfig) (*formatter, error) {
	tmpl, err := template.New("record").Option("missingkey=zero").Parse(cfg.Format)
	if err != nil {
		return nil, err
	}
	df := cfg.DateFormat
	if df == emptyString {
		df = defaultDateFormat
	}
	return &formatter{tmpl: tmpl, dateFormat: df}, nil
}

// consoleWriter renders zerolog JSON events as text through the template.
// Structured fields follow the rendered header as key=value pairs; stacks
// go on the lines after.
func (f *formatter) consoleWriter(out io.Writer, color bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    !color,
		PartsOrder: []string{headerFieldName},
		FieldsExclude: []string{
			headerFieldName,
			scopeFieldName,
			zerolog.ErrorStackFieldName,
			tracebackFieldName,
		},
		FormatPrepare: func(evt map[string]interface{}) error {
			evt[headerFieldName] = f.header(evt, color)
			return nil
		},
		FormatPartValueByName: func(v interface{}, _ string) string {
			s, _ := v.(string)
			return s
		},
		FormatExtra: writeStacks,
	}
}

func (f *formatter) header(evt map[string]interface{}, color bool) string {
	rec := record{
		Time:    f.timestamp(evt[zerolog.TimestampFieldName]),
		Level:   levelName(stringField(evt, zerolog.LevelFieldName)),
		Name:    stringField(evt, scopeFieldName),
		Message: stringField(evt, zerolog.MessageFieldName),
	}
	if rec.Name == emptyString {
		rec.Name = "root"
	}
	if color {
		rec.Level = colorizeLevel(rec.Level)
	}
	rec.Path, rec.Line = splitCaller(stringField(evt, zerolog.CallerFieldName))

	var buf strings.Builder
	if err := f.tmpl.Execute(&buf, rec); err != nil {
		return fmt.Sprintf("[format error: %v] %s", err, rec.Message)
	}
	return buf.String()
}

func (f *formatter) timestamp(v interface{}) string {
	s, _ := v.(string)
	if s == emptyString {
		return time.Now().Format(f.dateFormat)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	return t.Local().Format(f.dateFormat)
}

func stringField(evt map[string]interface{}, key string) string {
	switch v := evt[key].(type) {
	case string:
		return v
	case nil:
		return emptyString
	default:
		return fmt.Sprint(v)
	}
}

// splitCaller splits zerolog's "file:line" caller value.
func splitCaller(caller string) (string, int) {
	i := strings.LastIndexByte(caller, ':')
	if i < 0 {
		return caller, 0
	}
	line, err := strconv.Atoi(caller[i+1:])
	if err != nil {
		return caller, 0
	}
	return caller[:i], line
}

// writeStacks appends the pkg/errors stack and the traceback, one frame per line.
func writeStacks(evt map[string]interface{}, buf *bytes.Buffer) error {
	if frames, ok := evt[zerolog.ErrorStackFieldName].([]interface{}); ok && len(frames) > 0 {
		buf.WriteString("\nStack (most recent call first):")
		for _, fr := range frames {
			m, ok := fr.(map[string]interface{})
			if !ok {
				continue
			}
			fmt.Fprintf(buf, "\n  %v:%v in %v", m["source"], m["line"], m["func"])
		}
	}
	if tb, ok := evt[tracebackFieldName].(string); ok && tb != emptyString {
		buf.WriteByte('\n')
		buf.WriteString(strings.TrimRight(tb, "\n"))
	}
	return nil
}

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorMagenta = "\x1b[35m"
	colorBold    = "\x1b[1m"
)

func colorizeLevel(name string) string {
	var c string
	switch name {
	case "DEBUG":
		c = colorMagenta
	case "INFO":
		c = colorGreen
	case "WARNING":
		c = colorYellow
	case "ERROR":
		c = colorRed
	case "CRITICAL":
		c = colorBold + colorRed
	default:
		return name
	}
	return c + name + colorReset
}
