package kml

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// maxLineSize bounds a single line read by Load.
const maxLineSize = 4 * 1024 * 1024

// Option configures Parse and Load.
type Option func(*parser)

// WithSink routes parse and specialization findings to s.
func WithSink(s Sink) Option {
	return func(p *parser) { p.sink = s }
}

// WithRegistry replaces the default identifiers.
func WithRegistry(r Registry) Option {
	return func(p *parser) { p.registry = r }
}

type parser struct {
	sink     Sink
	registry Registry

	roots   []*Item
	stack   []*Item // open nodes, innermost last
	pending *Item   // tag line still waiting for its "{"
}

// Parse builds the item tree of a document from its lines.
//
// A line is either "name = value", a bare tag followed by a "{" line (or
// "TAG {" on one line), or "}". Malformed structure is reported through the
// sink and never aborts the parse. When the top level contains anything
// other than nodes, every top-level item is wrapped in a ghost node named
// after source.
func Parse(source string, lines []string, opts ...Option) []*Item {
	p := &parser{
		sink:     Discard,
		registry: DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(p)
	}

	for i, line := range lines {
		p.line(i+1, line)
	}
	p.finish(len(lines))

	roots := p.roots
	for _, r := range roots {
		if !r.IsNode() {
			ghost := NewGhost(filepath.Base(source))
			ghost.sink = p.sink
			_ = ghost.AddRange(roots)
			roots = []*Item{ghost}
			break
		}
	}
	for _, r := range roots {
		r.CanBeDeleted = false
	}
	return roots
}

// Load reads lines from r and parses them. Only read errors are returned.
func Load(source string, r io.Reader, opts ...Option) ([]*Item, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}
	return Parse(source, lines, opts...), nil
}

func (p *parser) warnLine(line int, format string, args ...any) {
	p.sink.Warn(&Item{Kind: KindNode, Line: line}, fmt.Sprintf(format, args...))
}

func (p *parser) line(n int, raw string) {
	t := strings.TrimSpace(raw)
	if t == "" {
		return
	}

	if p.pending != nil {
		tag := p.pending
		p.pending = nil
		if t == "{" {
			p.open(tag)
			return
		}
		p.warnLine(tag.Line, "node %q has no block, treating it as empty", tag.Name)
		p.open(tag)
		p.close(tag.Line)
	}

	switch {
	case t == "}":
		p.close(n)

	case t == "{":
		p.warnLine(n, "block without tag")
		p.open(&Item{Kind: KindNode, Line: n, CanBeDeleted: true})

	case strings.HasSuffix(t, "{") && !strings.Contains(t, "="):
		tag := strings.TrimSpace(strings.TrimSuffix(t, "{"))
		p.open(&Item{Kind: KindNode, Name: tag, Line: n, CanBeDeleted: true})

	case strings.Contains(t, "="):
		i := strings.Index(t, "=")
		a := &Item{
			Kind:         KindAttrib,
			Line:         n,
			Name:         strings.TrimSpace(t[:i]),
			Value:        strings.TrimSpace(t[i+1:]),
			CanBeDeleted: true,
		}
		p.add(a)

	default:
		p.pending = &Item{Kind: KindNode, Name: t, Line: n, CanBeDeleted: true}
	}
}

// add appends it to the innermost open node, or to the top level.
func (p *parser) add(it *Item) {
	if len(p.stack) == 0 {
		p.roots = append(p.roots, it)
		return
	}
	_ = p.stack[len(p.stack)-1].Add(it)
}

func (p *parser) open(n *Item) {
	n.sink = p.sink
	p.add(n)
	p.stack = append(p.stack, n)
}

// close pops the innermost node and offers it to the registry.
func (p *parser) close(line int) {
	if len(p.stack) == 0 {
		p.warnLine(line, "unmatched '}'")
		return
	}
	n := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]

	parent := n.parent
	repl := p.registry.Identify(n)
	if repl == n {
		return
	}
	if parent != nil {
		_ = parent.Replace(n, repl)
		return
	}
	for i, r := range p.roots {
		if r == n {
			p.roots[i] = repl
			repl.parent = nil
			return
		}
	}
}

func (p *parser) finish(lastLine int) {
	if p.pending != nil {
		tag := p.pending
		p.pending = nil
		p.warnLine(tag.Line, "node %q has no block, treating it as empty", tag.Name)
		p.open(tag)
		p.close(tag.Line)
	}
	for len(p.stack) > 0 {
		n := p.stack[len(p.stack)-1]
		p.warnLine(n.Line, "node %q is not closed", n.Name)
		p.close(lastLine)
	}
}
