package logsetup

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/rs/zerolog"
)

// Dump logs the structure of v at debug level, one record per line.
// Structs show exported fields; maps and slices show their elements
// (slices capped at ten). Cycles and deep nesting are cut short.
func (s *Scope) Dump(v interface{}) {
	if !s.Enabled(zerolog.DebugLevel) {
		return
	}

	d := &dumper{}
	if v == nil {
		d.linef("Dump: <nil>")
	} else {
		dumpValue(d, v, "", make(map[uintptr]bool), 0)
	}

	for _, line := range d.lines {
		e := s.begin(zerolog.DebugLevel)
		if e == nil {
			return
		}
		newTrackedLogEvent(e.Caller(1), s.svc).Msg(line)
	}
}

type dumper struct {
	lines []string
}

func (d *dumper) linef(format string, args ...interface{}) {
	d.lines = append(d.lines, strings.TrimPrefix(fmt.Sprintf(format, args...), ": "))
}

const (
	maxDumpDepth    = 10
	maxDumpElements = 10
)

func dumpValue(d *dumper, v interface{}, prefix string, visited map[uintptr]bool, depth int) {
	if depth > maxDumpDepth {
		d.linef("%s: <max depth reached>", prefix)
		return
	}
	val, ok := d.deref(reflect.ValueOf(v), prefix, visited)
	if !ok {
		return
	}

	switch val.Kind() {
	case reflect.Struct:
		d.dumpStruct(val, prefix, visited, depth)
	case reflect.Map:
		d.linef("%s: %s (len: %d) {", prefix, val.Type(), val.Len())
		iter := val.MapRange()
		for iter.Next() {
			dumpValue(d, iter.Value().Interface(), fmt.Sprintf("%s[%v]", prefix, iter.Key().Interface()), visited, depth+1)
		}
		d.linef("%s: }", prefix)
	case reflect.Slice, reflect.Array:
		d.linef("%s: %s (len: %d, cap: %d) {", prefix, val.Type(), val.Len(), val.Cap())
		for i := 0; i < val.Len() && i < maxDumpElements; i++ {
			elem := val.Index(i)
			if !elem.CanInterface() {
				elem = reflect.Zero(elem.Type())
			}
			dumpValue(d, elem.Interface(), fmt.Sprintf("%s[%d]", prefix, i), visited, depth+1)
		}
		if val.Len() > maxDumpElements {
			d.linef("%s: ... (%d more elements)", prefix, val.Len()-maxDumpElements)
		}
		d.linef("%s: }", prefix)
	default:
		if val.CanInterface() {
			d.linef("%s: %v", prefix, val.Interface())
		} else {
			d.linef("%s: %v", prefix, v)
		}
	}
}

// deref follows interfaces and pointers. It reports false, after writing a
// line, for nil values and for pointers already visited in this dump.
func (d *dumper) deref(val reflect.Value, prefix string, visited map[uintptr]bool) (reflect.Value, bool) {
	for val.Kind() == reflect.Interface || val.Kind() == reflect.Ptr {
		if val.IsNil() {
			d.linef("%s: <nil>", prefix)
			return val, false
		}
		if val.Kind() == reflect.Ptr {
			ptr := val.Pointer()
			if visited[ptr] {
				d.linef("%s: <circular reference>", prefix)
				return val, false
			}
			visited[ptr] = true
		}
		val = val.Elem()
	}
	if !val.IsValid() {
		d.linef("%s: <nil>", prefix)
		return val, false
	}
	return val, true
}

func (d *dumper) dumpStruct(val reflect.Value, prefix string, visited map[uintptr]bool, depth int) {
	typ := val.Type()
	if prefix == "" {
		d.linef("Struct: %s", typ.Name())
	} else {
		d.linef("%s: %s {", prefix, typ.Name())
	}
	for i := 0; i < val.NumField(); i++ {
		fv := val.Field(i)
		if !fv.CanInterface() {
			continue
		}
		name := typ.Field(i).Name
		if prefix != "" {
			name = prefix + "." + name
		}
		dumpValue(d, fv.Interface(), name, visited, depth+1)
	}
	if prefix != "" {
		d.linef("%s: }", prefix)
	}
}
