// Package engine evaluates part queries. A query is a Lisp predicate run in
// a sandboxed zygomys environment once per part of an attachment
// structure; the parts for which it returns true are selected.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/kmlgraph/pkg/graph"
	"github.com/chazu/kmlgraph/pkg/kml"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in the query.
type EvalError struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Part    int    `json:"part"` // index of the part being evaluated, -1 if not part-specific
	Message string `json:"message"`
}

func (e EvalError) Error() string {
	var b strings.Builder
	if e.Part >= 0 {
		fmt.Fprintf(&b, "part %d: ", e.Part)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	b.WriteString(e.Message)
	return b.String()
}

// Engine wraps the zygomys interpreter for part queries.
// It is safe for concurrent use; every part is evaluated in a fresh
// sandboxed environment for determinism.
type Engine struct {
	// Timeout bounds a whole Select call. Zero means DefaultTimeout.
	Timeout time.Duration

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine instance.
func NewEngine() *Engine {
	return &Engine{}
}

// Select evaluates expr against every part of s and returns the parts for
// which it is truthy, in index order.
//
// Return semantics:
//   - On success: returns parts + nil errors + nil error
//   - On parse/eval failure: returns nil parts + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Select(s *graph.Structure, expr string) ([]*kml.Item, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	timeout := e.Timeout
	e.mu.Unlock()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		parts, evalErrs, err := e.selectParts(s, expr)
		ch <- evalResult{parts: parts, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation, timeout)
}

func (e *Engine) selectParts(s *graph.Structure, expr string) ([]*kml.Item, []EvalError, error) {
	// An empty query selects everything.
	if strings.TrimSpace(expr) == "" {
		return append([]*kml.Item(nil), s.Parts()...), nil, nil
	}

	source, errs := rewriteQuery(expr)
	if len(errs) > 0 {
		return nil, errs, nil
	}
	var selected []*kml.Item
	for i, p := range s.Parts() {
		if p.Part() == nil {
			continue
		}
		ok, evalErrs := evaluate(source, &queryContext{s: s, part: p, index: i})
		if len(evalErrs) > 0 {
			return nil, evalErrs, nil
		}
		if ok {
			selected = append(selected, p)
		}
	}
	return selected, nil, nil
}

// evaluate runs preprocessed source for one part in a fresh sandbox.
func evaluate(source string, qc *queryContext) (bool, []EvalError) {
	// Sandbox mode prevents queries from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, qc)

	if err := env.LoadString(source); err != nil {
		return false, partErrors(parseZygomysError(err), -1)
	}
	res, err := env.Run()
	if err != nil {
		return false, partErrors(parseZygomysError(err), qc.index)
	}
	return truthy(res), nil
}

// truthy follows Lisp conventions: nil and false are false, as is the
// integer zero; everything else is true.
func truthy(s zygo.Sexp) bool {
	switch v := s.(type) {
	case nil:
		return false
	case *zygo.SexpBool:
		return v.Val
	case *zygo.SexpInt:
		return v.Val != 0
	case *zygo.SexpSentinel:
		return v != zygo.SexpNull
	}
	return true
}

func partErrors(errs []EvalError, part int) []EvalError {
	for i := range errs {
		errs[i].Part = part
	}
	return errs
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Part:    -1,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Part: -1, Message: strings.TrimSpace(msg)}}
}
