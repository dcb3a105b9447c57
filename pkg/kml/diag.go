package kml

import (
	"fmt"
	"log/slog"
	"strings"
)

// Sink receives every non-fatal finding of parsing, specialization and
// graph building. It never decides how findings are displayed.
type Sink interface {
	Warn(item *Item, msg string)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(item *Item, msg string)

// Warn calls f(item, msg).
func (f SinkFunc) Warn(item *Item, msg string) { f(item, msg) }

// Discard drops every finding.
var Discard Sink = SinkFunc(func(*Item, string) {})

// Diagnostic is a single recorded finding.
type Diagnostic struct {
	Item    *Item
	Line    int
	Message string
}

func (d Diagnostic) Error() string {
	if d.Line > 0 {
		return fmt.Sprintf("line %d: %s", d.Line, d.Message)
	}
	return d.Message
}

// Collector records findings in arrival order.
type Collector struct {
	Diagnostics []Diagnostic
}

// Warn records a finding.
func (c *Collector) Warn(item *Item, msg string) {
	line := 0
	if item != nil {
		line = item.Line
	}
	c.Diagnostics = append(c.Diagnostics, Diagnostic{Item: item, Line: line, Message: msg})
}

// Len returns the number of findings.
func (c *Collector) Len() int {
	return len(c.Diagnostics)
}

// For returns the findings attached to item.
func (c *Collector) For(item *Item) []Diagnostic {
	var out []Diagnostic
	for _, d := range c.Diagnostics {
		if d.Item == item {
			out = append(out, d)
		}
	}
	return out
}

// Contains reports whether any finding message contains substr,
// case-insensitively.
func (c *Collector) Contains(substr string) bool {
	substr = strings.ToLower(substr)
	for _, d := range c.Diagnostics {
		if strings.Contains(strings.ToLower(d.Message), substr) {
			return true
		}
	}
	return false
}

// LogSink writes findings to a structured logger at warn level.
type LogSink struct {
	Logger *slog.Logger
}

// Warn logs msg with the originating item and line.
func (s LogSink) Warn(item *Item, msg string) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if item == nil {
		logger.Warn(msg)
		return
	}
	if name := item.String(); name != "" {
		logger.Warn(msg, "item", name, "line", item.Line)
		return
	}
	logger.Warn(msg, "line", item.Line)
}

// Tee forwards every finding to all sinks.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(item *Item, msg string) {
		for _, s := range sinks {
			s.Warn(item, msg)
		}
	})
}
