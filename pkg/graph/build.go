package graph

import (
	"fmt"
	"slices"

	"github.com/chazu/kmlgraph/pkg/kml"
)

// Build resolves the raw indices of parts into a Structure. parts must be
// the complete, ordered part list of one vessel; list position is the part
// index every raw attribute refers to. Items without a part payload are
// treated as unattached roots.
//
// Contradictions never abort the build. They are reported to sink and, for
// dock parts, set DockData.NeedsRepair. Repair flags are reset first so a
// rebuild after edits starts clean. Build must not run concurrently on
// overlapping part lists.
func Build(parts []*kml.Item, sink kml.Sink) *Structure {
	if sink == nil {
		sink = kml.Discard
	}
	s := newStructure(parts)
	b := &builder{s: s, sink: sink}

	for _, p := range parts {
		if d := p.Dock(); d != nil {
			d.NeedsRepair = false
		}
	}
	for i := range parts {
		b.resolve(i)
	}
	return s
}

// BuildVessel builds the structure of a vessel item.
func BuildVessel(vessel *kml.Item, sink kml.Sink) *Structure {
	return Build(vessel.Parts(), sink)
}

type builder struct {
	s    *Structure
	sink kml.Sink
}

func (b *builder) warn(it *kml.Item, format string, args ...any) {
	b.sink.Warn(it, fmt.Sprintf(format, args...))
}

func (b *builder) resolve(i int) {
	s := b.s
	part := s.parts[i]
	data := part.Part()
	if data == nil {
		s.roots = append(s.roots, i)
		return
	}

	b.resolveParent(i, part, data)
	b.resolveNodes(i, part, data)
	b.resolveSurface(i, part, data)
	if part.Dock() != nil {
		b.checkDockPartner(i, part)
	}
}

func (b *builder) resolveParent(i int, part *kml.Item, data *kml.PartData) {
	s := b.s
	pi := data.ParentIndex
	switch {
	case pi == i:
		s.roots = append(s.roots, i)
		return
	case pi < 0 || pi >= len(s.parts):
		b.warn(part, "part's parent part index [%d] does not point to a valid part", pi)
		s.roots = append(s.roots, i)
		return
	}

	s.links[i].parent = pi
	if slices.Contains(data.NodeIndices, pi) || data.SurfaceIndex == pi {
		return
	}

	parent := s.parts[pi]
	switch {
	case part.Dock() != nil && parent.Dock() != nil:
		b.checkParentDock(i, pi)
	case parent.IsGrapple():
		b.checkParentGrapple(i, pi)
	default:
		// A part attached by surface to its parent's node is unusual but
		// happens after docking, so the parent's surface link also counts.
		if pd := parent.Part(); pd == nil || pd.SurfaceIndex != i {
			b.warn(part, "part not attached to parent part: %s", parent)
		}
	}
}

func (b *builder) resolveNodes(i int, part *kml.Item, data *kml.PartData) {
	s := b.s
	for _, p := range data.NodeIndices {
		if p < 0 || p >= len(s.parts) {
			b.warn(part, "part supposed to be node attached to part index [%d], which does not point to a valid part", p)
			continue
		}
		other := s.parts[p]
		od := other.Part()
		if od == nil {
			b.warn(part, "part supposed to be node attached to %s, which is not a part", other)
			continue
		}

		s.attach(i, p, classifyParts(data.Position, od.Position))
		if slices.Contains(od.NodeIndices, i) {
			continue
		}
		switch {
		case other.IsGrapple():
			b.checkGrappleAttachment(p, i, part)
		case part.IsGrapple():
			b.checkGrappleAttachment(i, p, part)
		default:
			b.warn(part, "part node attachment not responded from other part: %s", other)
		}
	}
}

func (b *builder) resolveSurface(i int, part *kml.Item, data *kml.PartData) {
	s := b.s
	si := data.SurfaceIndex
	switch {
	case si >= 0 && si < len(s.parts):
		s.links[i].surfaceTo = si
		s.links[si].surfaceAttached = append(s.links[si].surfaceAttached, i)
	case si != -1:
		b.warn(part, "part supposed to be surface attached to part index [%d], which does not point to a valid part", si)
	}
}
