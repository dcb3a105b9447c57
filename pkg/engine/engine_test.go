package engine

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chazu/kmlgraph/pkg/graph"
	"github.com/chazu/kmlgraph/pkg/kml"
)

const vesselFixture = `VESSEL
{
	name = Probe
	PART
	{
		name = pod
		uid = 1
		parent = 0
		position = 0,0,0
		attN = bottom, 1
		RESOURCE
		{
			name = MonoPropellant
			amount = 10
			maxAmount = 40
		}
	}
	PART
	{
		name = tank
		uid = 2
		parent = 0
		position = 0,-1,0
		attN = top, 0
		attN = bottom, 2
		RESOURCE
		{
			name = LiquidFuel
			amount = 360
			maxAmount = 360
		}
	}
	PART
	{
		name = port
		uid = 3
		parent = 1
		position = 0,-2,0
		attN = top, 1
		MODULE
		{
			name = ModuleDockingNode
			state = Docked (docker)
			dockUId = 77
		}
	}
}`

// buildFixture parses the fixture vessel and builds its structure.
func buildFixture(t *testing.T) *graph.Structure {
	t.Helper()
	roots := kml.Parse("probe.sfs", strings.Split(vesselFixture, "\n"))
	vessels := kml.Vessels(roots)
	if len(vessels) != 1 {
		t.Fatalf("expected 1 vessel, got %d", len(vessels))
	}
	return graph.BuildVessel(vessels[0], kml.Discard)
}

// names returns the "name" attribute of each part.
func names(parts []*kml.Item) string {
	var out []string
	for _, p := range parts {
		out = append(out, p.AttribValue("name"))
	}
	return strings.Join(out, ",")
}

func TestSelect(t *testing.T) {
	s := buildFixture(t)
	eng := NewEngine()

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"empty selects all", "", "pod,tank,port"},
		{"whitespace selects all", "  \n\t ", "pod,tank,port"},
		{"docks", "(is-dock)", "port"},
		{"no grapples", "(is-grapple)", ""},
		{"repair", "(needs-repair)", "port"},
		{"roots", "(is-root)", "pod"},
		{"resource name ignores case", `(has-resource "liquidfuel")`, "tank"},
		{"low resources", "(and (>= (resource-ratio) 0) (< (resource-ratio) 0.5))", "pod"},
		{"named resource ratio", `(== (resource-ratio "LiquidFuel") 1.0)`, "tank"},
		{"attached count", "(== (attached-count) 2)", "tank"},
		{"attached on face", "(> (attached-count :top) 0)", "tank,port"},
		{"part name", `(== (part-name) "tank")`, "tank"},
		{"uid", `(== (part-uid) "3")`, "port"},
		{"index", "(== (part-index) 1)", "tank"},
		{"dock state", `(== (dock-state) "Docked (docker)")`, "port"},
		{"attrib", `(== (attrib "position") "0,-1,0")`, "tank"},
		{"surface", "(> (surface-count) 0)", ""},
		{"docked", "(> (docked-count) 0)", ""},
		{"comment", "; all docks\n(is-dock)", "port"},
		{"not", "(not (is-dock))", "pod,tank"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts, evalErrs, err := eng.Select(s, tt.query)
			if err != nil {
				t.Fatalf("unexpected fatal error: %v", err)
			}
			if len(evalErrs) > 0 {
				t.Fatalf("unexpected eval errors: %v", evalErrs)
			}
			if got := names(parts); got != tt.want {
				t.Errorf("Select(%q) = [%s], want [%s]", tt.query, got, tt.want)
			}
		})
	}
}

func TestSelectSyntaxError(t *testing.T) {
	s := buildFixture(t)
	eng := NewEngine()

	// Unmatched paren is a parse error.
	parts, evalErrs, err := eng.Select(s, "(is-dock")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if parts != nil {
		t.Fatal("expected nil parts on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for syntax error")
	}
	if evalErrs[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
	if evalErrs[0].Part != -1 {
		t.Errorf("parse errors are not part-specific, got part %d", evalErrs[0].Part)
	}
}

func TestSelectRuntimeErrors(t *testing.T) {
	s := buildFixture(t)
	eng := NewEngine()

	for _, q := range []string{
		"(+ 1 undefined-symbol)",
		"(has-resource 1)",
		"(has-resource)",
		"(attached-count :sideways)",
		`(attrib)`,
	} {
		t.Run(q, func(t *testing.T) {
			parts, evalErrs, err := eng.Select(s, q)
			if err != nil {
				t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
			}
			if parts != nil {
				t.Errorf("expected nil parts, got %v", parts)
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected an eval error")
			}
		})
	}
}

func TestSelectDeterministic(t *testing.T) {
	s := buildFixture(t)
	eng := NewEngine()

	// Multiple evaluations of the same query select the same parts.
	for i := 0; i < 5; i++ {
		parts, evalErrs, err := eng.Select(s, "(is-dock)")
		if err != nil || len(evalErrs) > 0 {
			t.Fatalf("iteration %d: %v %v", i, err, evalErrs)
		}
		if names(parts) != "port" {
			t.Errorf("iteration %d: got [%s]", i, names(parts))
		}
	}
}

func TestSelectConcurrentCallsAreSafe(t *testing.T) {
	s := buildFixture(t)
	eng := NewEngine()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Superseded results are reported as errors, never as wrong data.
			parts, _, err := eng.Select(s, "(is-root)")
			if err == nil && names(parts) != "pod" {
				t.Errorf("got [%s]", names(parts))
			}
		}()
	}
	wg.Wait()
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Part: -1, Message: "something went wrong"}
	s := e.Error()
	if !strings.Contains(s, "line 5") {
		t.Errorf("Error() should contain line info, got: %s", s)
	}
	if !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() should contain message, got: %s", s)
	}

	// No line info.
	e2 := EvalError{Part: 2, Message: "no location"}
	s2 := e2.Error()
	if strings.Contains(s2, "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", s2)
	}
	if !strings.HasPrefix(s2, "part 2: ") {
		t.Errorf("Error() should name the part, got: %s", s2)
	}
}

func TestWaitTimeout(t *testing.T) {
	var mu sync.Mutex
	var gen uint64 = 1
	ch := make(chan evalResult) // never sends

	start := time.Now()
	_, _, err := waitWithTimeout(ch, 1, &mu, &gen, 20*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout error message, got: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout took far longer than configured")
	}
}

func TestWaitDiscardsStaleGeneration(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(2) // current generation is 2

	ch := make(chan evalResult, 1)
	ch <- evalResult{}

	// Pass generation 1 (stale).
	_, _, err := waitWithTimeout(ch, 1, &mu, &gen, time.Second)
	if err == nil {
		t.Fatal("expected error for stale generation")
	}
	if !strings.Contains(err.Error(), "superseded") {
		t.Errorf("expected superseded error, got: %v", err)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{
			name:     "error on line format",
			msg:      "Error on line 5: unexpected token\n",
			wantLine: 5,
			wantMsg:  "unexpected token",
		},
		{
			name:     "no line info",
			msg:      "some generic error",
			wantLine: 0,
			wantMsg:  "some generic error",
		},
		{
			name:     "line format lowercase",
			msg:      "error on line 12: missing paren",
			wantLine: 12,
			wantMsg:  "missing paren",
		},
		{
			name:     "short line format",
			msg:      "line 3: bad token",
			wantLine: 3,
			wantMsg:  "bad token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

// errString is a simple error type for testing.
type errString string

func (e errString) Error() string { return string(e) }
