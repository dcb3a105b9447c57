package graph

import (
	"fmt"
	"slices"
)

// ValidationSeverity indicates whether a validation finding means the
// structure is broken or is merely suspicious.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // structure is inconsistent
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Part     int                // index of the part with the problem, -1 if structure-level
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Part < 0 {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] part %d: %s", e.Severity, e.Part, e.Message)
}

// Validate checks the invariants a built structure must hold and returns
// the findings. An empty slice means the structure is consistent. This
// function is read-only.
func Validate(s *Structure) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateSymmetry(s)...)
	errs = append(errs, validateParentCycles(s)...)
	errs = append(errs, validateReachable(s)...)
	return errs
}

// validateSymmetry checks that every resolved link is recorded on both
// sides: node attachments on opposite faces, surface attachments and dock
// links.
func validateSymmetry(s *Structure) []ValidationError {
	var errs []ValidationError
	for i := range s.links {
		l := &s.links[i]
		for _, f := range Faces {
			for _, j := range l.attachedTo[f] {
				if !slices.Contains(s.links[j].attached[f.Opposite()], i) {
					errs = append(errs, ValidationError{
						Part:     i,
						Message:  fmt.Sprintf("attached to part %d on %s, but part %d does not list it on %s", j, f, j, f.Opposite()),
						Severity: SeverityError,
					})
				}
			}
			for _, j := range l.attached[f] {
				if !slices.Contains(s.links[j].attachedTo[f.Opposite()], i) {
					errs = append(errs, ValidationError{
						Part:     i,
						Message:  fmt.Sprintf("part %d listed on %s, but it is not attached to this part on %s", j, f, f.Opposite()),
						Severity: SeverityError,
					})
				}
			}
		}

		if t := l.surfaceTo; t >= 0 && !slices.Contains(s.links[t].surfaceAttached, i) {
			errs = append(errs, ValidationError{
				Part:     i,
				Message:  fmt.Sprintf("surface attached to part %d, which does not list it", t),
				Severity: SeverityError,
			})
		}
		for _, j := range l.surfaceAttached {
			if s.links[j].surfaceTo != i {
				errs = append(errs, ValidationError{
					Part:     i,
					Message:  fmt.Sprintf("lists part %d as surface attached, but it is attached elsewhere", j),
					Severity: SeverityError,
				})
			}
		}
		for _, j := range l.docked {
			if !slices.Contains(s.links[j].docked, i) {
				errs = append(errs, ValidationError{
					Part:     i,
					Message:  fmt.Sprintf("docked to part %d, which does not list the link", j),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// validateParentCycles walks the parent chains with 3-colour marking.
// White = unvisited, gray = on the current chain, black = known to end at a
// root. Reaching a gray part means the chain loops.
func validateParentCycles(s *Structure) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, len(s.links))
	var errs []ValidationError

	for start := range s.links {
		if color[start] != white {
			continue
		}
		var chain []int
		i := start
		for i >= 0 && color[i] == white {
			color[i] = gray
			chain = append(chain, i)
			i = s.links[i].parent
		}
		if i >= 0 && color[i] == gray {
			errs = append(errs, ValidationError{
				Part:     i,
				Message:  fmt.Sprintf("cycle detected: part %d is its own ancestor", i),
				Severity: SeverityError,
			})
		}
		for _, c := range chain {
			color[c] = black
		}
	}
	return errs
}

// validateReachable warns about parts that cannot be reached from any root
// by following parent links downwards (orphans).
func validateReachable(s *Structure) []ValidationError {
	if len(s.links) == 0 {
		return nil
	}

	children := make([][]int, len(s.links))
	for i := range s.links {
		if p := s.links[i].parent; p >= 0 {
			children[p] = append(children[p], i)
		}
	}

	reachable := make([]bool, len(s.links))
	queue := make([]int, 0, len(s.roots))
	for _, r := range s.roots {
		if !reachable[r] {
			reachable[r] = true
			queue = append(queue, r)
		}
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, c := range children[current] {
			if !reachable[c] {
				reachable[c] = true
				queue = append(queue, c)
			}
		}
	}

	var errs []ValidationError
	for i, ok := range reachable {
		if !ok {
			errs = append(errs, ValidationError{
				Part:     i,
				Message:  fmt.Sprintf("part %q is not reachable from any root (orphan)", s.parts[i].String()),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}
