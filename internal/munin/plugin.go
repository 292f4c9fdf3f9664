// Package munin writes the Munin plugin text protocol.
package munin

import (
	"fmt"
	"io"
	"regexp"
)

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Field is one data source of a graph. Draw and Colour are optional.
type Field struct {
	Name   string
	Label  string
	Info   string
	Draw   string
	Colour string
}

type Graph struct {
	Title    string
	VLabel   string
	Category string
	Info     string
	Fields   []Field
}

type Value struct {
	Field string
	Value int64
}

// ValidateFieldName reports whether Munin accepts name as a data source name
func ValidateFieldName(name string) error {
	if !fieldNamePattern.MatchString(name) {
		return fmt.Errorf("invalid field name %q", name)
	}
	return nil
}

// errWriter keeps the first write error so a block of lines can be written
// without checking each one
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) line(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format+"\n", args...)
}

// WriteConfig writes the answer to "config"
func (g *Graph) WriteConfig(w io.Writer) error {
	for _, f := range g.Fields {
		if err := ValidateFieldName(f.Name); err != nil {
			return err
		}
	}

	ew := &errWriter{w: w}
	ew.line("graph_title %s", g.Title)
	ew.line("graph_vlabel %s", g.VLabel)
	ew.line("graph_category %s", g.Category)
	ew.line("graph_info %s", g.Info)

	for _, f := range g.Fields {
		ew.line("%s.label %s", f.Name, f.Label)
		if f.Info != "" {
			ew.line("%s.info %s", f.Name, f.Info)
		}
		if f.Draw != "" {
			ew.line("%s.draw %s", f.Name, f.Draw)
		}
		if f.Colour != "" {
			ew.line("%s.colour %s", f.Name, f.Colour)
		}
	}

	return ew.err
}

// WriteValues writes one "<field>.value <n>" line per value, in order
func WriteValues(w io.Writer, values []Value) error {
	for _, v := range values {
		if err := ValidateFieldName(v.Field); err != nil {
			return err
		}
	}

	ew := &errWriter{w: w}
	for _, v := range values {
		ew.line("%s.value %d", v.Field, v.Value)
	}

	return ew.err
}
