package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/chazu/kmlgraph/pkg/graph"
	"github.com/chazu/kmlgraph/pkg/kml"
	zygo "github.com/glycerine/zygomys/zygo"
)

// queryContext is the part a query is currently evaluated against.
type queryContext struct {
	s     *graph.Structure
	part  *kml.Item
	index int
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toFace converts a face name to a graph.Face. Keywords such as :top
// reach builtins already rewritten to their name.
func toFace(s zygo.Sexp) (graph.Face, error) {
	name, err := toString(s)
	if err != nil {
		return 0, fmt.Errorf("expected face: %w", err)
	}
	f, err := graph.ParseFace(name)
	if err != nil {
		return 0, fmt.Errorf("%w, expected %s", err, faceKeywords())
	}
	return f, nil
}

func sexpBool(b bool) zygo.Sexp     { return &zygo.SexpBool{Val: b} }
func sexpString(s string) zygo.Sexp { return &zygo.SexpStr{S: s} }
func sexpInt(n int) zygo.Sexp       { return &zygo.SexpInt{Val: int64(n)} }

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// builtin is a query function without access to the interpreter.
type builtin func(qc *queryContext, args []zygo.Sexp) (zygo.Sexp, error)

// builtins maps query names (kebab-case, as written by users) to their
// implementations.
var builtins = map[string]builtin{
	// (part-name) -> display name, falling back to the craft name.
	"part-name": func(qc *queryContext, _ []zygo.Sexp) (zygo.Sexp, error) {
		if name := qc.part.AttribValue("name"); name != "" {
			return sexpString(name), nil
		}
		return sexpString(qc.part.Part().CraftName), nil
	},

	// (part-uid)
	"part-uid": func(qc *queryContext, _ []zygo.Sexp) (zygo.Sexp, error) {
		return sexpString(qc.part.Part().UID), nil
	},

	// (part-index) -> position in the vessel's part list.
	"part-index": func(qc *queryContext, _ []zygo.Sexp) (zygo.Sexp, error) {
		return sexpInt(qc.index), nil
	},

	// (attrib "name") -> raw attribute value, "" when absent.
	"attrib": func(qc *queryContext, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("attrib requires an attribute name")
		}
		name, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("attrib: %w", err)
		}
		return sexpString(qc.part.AttribValue(name)), nil
	},

	// (is-root) -> true when the part has no resolved parent.
	"is-root": func(qc *queryContext, _ []zygo.Sexp) (zygo.Sexp, error) {
		return sexpBool(qc.s.Parent(qc.part) == nil), nil
	},

	"is-dock": func(qc *queryContext, _ []zygo.Sexp) (zygo.Sexp, error) {
		return sexpBool(qc.part.Dock() != nil), nil
	},

	"is-grapple": func(qc *queryContext, _ []zygo.Sexp) (zygo.Sexp, error) {
		return sexpBool(qc.part.IsGrapple()), nil
	},

	// (dock-state) -> declared state, "" for parts that are no docks.
	"dock-state": func(qc *queryContext, _ []zygo.Sexp) (zygo.Sexp, error) {
		if d := qc.part.Dock(); d != nil {
			return sexpString(d.State), nil
		}
		return sexpString(""), nil
	},

	"needs-repair": func(qc *queryContext, _ []zygo.Sexp) (zygo.Sexp, error) {
		d := qc.part.Dock()
		return sexpBool(d != nil && d.NeedsRepair), nil
	},

	// (has-resource "LiquidFuel")
	"has-resource": func(qc *queryContext, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("has-resource requires a resource name")
		}
		name, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("has-resource: %w", err)
		}
		return sexpBool(qc.part.Part().HasResource(name)), nil
	},

	// (resource-ratio) -> worst amount/maxAmount over all resources.
	// (resource-ratio "Oxidizer") -> worst ratio of that resource only.
	// Both return -1 when the part holds no matching resource.
	"resource-ratio": func(qc *queryContext, args []zygo.Sexp) (zygo.Sexp, error) {
		p := qc.part.Part()
		if len(args) == 0 {
			return &zygo.SexpFloat{Val: p.WorstResourceRatio()}, nil
		}
		name, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("resource-ratio: %w", err)
		}
		worst := -1.0
		for _, r := range p.Resources {
			rd := r.Resource()
			if rd == nil || !strings.EqualFold(rd.Name, name) {
				continue
			}
			if ratio := rd.AmountRatio(); worst < 0 || ratio < worst {
				worst = ratio
			}
		}
		return &zygo.SexpFloat{Val: worst}, nil
	},

	// (attached-count) -> distinct parts linked by node attachments.
	// (attached-count :top) -> parts attached on the part's top face.
	"attached-count": func(qc *queryContext, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) == 0 {
			return sexpInt(qc.s.AttachedCount(qc.part)), nil
		}
		f, err := toFace(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("attached-count: %w", err)
		}
		return sexpInt(len(qc.s.Attached(qc.part, f))), nil
	},

	// (surface-count) -> parts surface attached to this part.
	"surface-count": func(qc *queryContext, _ []zygo.Sexp) (zygo.Sexp, error) {
		return sexpInt(len(qc.s.SurfaceAttached(qc.part))), nil
	},

	// (docked-count) -> parts linked by a dock or grapple.
	"docked-count": func(qc *queryContext, _ []zygo.Sexp) (zygo.Sexp, error) {
		return sexpInt(len(qc.s.Docked(qc.part))), nil
	},
}

// registerBuiltins installs the query builtins into a zygomys environment.
// Names are registered in the underscore form rewriteQuery produces.
func registerBuiltins(env *zygo.Zlisp, qc *queryContext) {
	for name, fn := range builtins {
		env.AddFunction(strings.ReplaceAll(name, "-", "_"),
			func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
				return fn(qc, args)
			})
	}
}

// Builtins returns the sorted query function names, for help output.
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
