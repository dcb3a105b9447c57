package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/kmlgraph/pkg/graph"
)

// rewriteQuery turns a query as users write it into zygomys source:
//
//   - kebab-case names become underscores (dock-state -> dock_state), since
//     zygomys reads a hyphen inside a symbol as subtraction;
//   - ; and ;; comments become //;
//   - a :face keyword becomes the face name as a string literal
//     (:top -> "top"). Any other keyword is an error at its position.
//
// Double-quoted strings pass through untouched.
func rewriteQuery(source string) (string, []EvalError) {
	r := &queryRewriter{src: source, line: 1, col: 1}
	r.out.Grow(len(source))
	for !r.eof() {
		c := r.peek(0)
		switch {
		case c == '"':
			r.str()
		case c == ';':
			r.comment()
		case c == ':' && isLetter(r.peek(1)):
			r.keyword()
		case c == '-' && r.pos > 0 && isIdentChar(r.src[r.pos-1]) && isLetter(r.peek(1)):
			r.out.WriteByte('_')
			r.advance()
		default:
			r.copy()
		}
	}
	return r.out.String(), r.errs
}

type queryRewriter struct {
	src       string
	pos       int
	line, col int // 1-based position of src[pos]

	out  strings.Builder
	errs []EvalError
}

func (r *queryRewriter) eof() bool { return r.pos >= len(r.src) }

// peek returns the byte n positions ahead, or 0 past the end.
func (r *queryRewriter) peek(n int) byte {
	if r.pos+n >= len(r.src) {
		return 0
	}
	return r.src[r.pos+n]
}

func (r *queryRewriter) advance() {
	if r.src[r.pos] == '\n' {
		r.line++
		r.col = 1
	} else {
		r.col++
	}
	r.pos++
}

func (r *queryRewriter) copy() {
	r.out.WriteByte(r.src[r.pos])
	r.advance()
}

func (r *queryRewriter) str() {
	r.copy()
	for !r.eof() && r.peek(0) != '"' {
		if r.peek(0) == '\\' && r.pos+1 < len(r.src) {
			r.copy()
		}
		r.copy()
	}
	if !r.eof() {
		r.copy()
	}
}

func (r *queryRewriter) comment() {
	r.out.WriteString("//")
	for !r.eof() && r.peek(0) == ';' {
		r.advance()
	}
	for !r.eof() && r.peek(0) != '\n' {
		r.copy()
	}
}

func (r *queryRewriter) keyword() {
	line, col := r.line, r.col
	r.advance() // ':'
	start := r.pos
	for !r.eof() && isKeywordChar(r.peek(0)) {
		r.advance()
	}
	name := r.src[start:r.pos]

	f, err := graph.ParseFace(name)
	if err != nil {
		r.errs = append(r.errs, EvalError{
			Line:    line,
			Col:     col,
			Part:    -1,
			Message: fmt.Sprintf("unknown keyword :%s, expected one of %s", name, faceKeywords()),
		})
		r.out.WriteString("nil")
		return
	}
	fmt.Fprintf(&r.out, "%q", f.String())
}

// faceKeywords lists the accepted keywords for error messages.
func faceKeywords() string {
	names := make([]string, len(graph.Faces))
	for i, f := range graph.Faces {
		names[i] = ":" + f.String()
	}
	return strings.Join(names, " ")
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isKeywordChar(c byte) bool {
	return isIdentChar(c) || c == '-'
}
