package graph

import (
	"slices"

	"github.com/chazu/kmlgraph/pkg/kml"
)

// links holds the resolved relationships of one part as indices into the
// structure's part list. -1 means "none".
type links struct {
	parent          int
	attachedTo      [numFaces][]int // parts this part is attached to, by this part's face
	attached        [numFaces][]int // parts attached to this part, by this part's face
	surfaceTo       int
	surfaceAttached []int
	docked          []int
}

// Structure is the resolved attachment graph of one vessel. It owns no
// parts; the part list it was built from remains the owner.
type Structure struct {
	parts []*kml.Item
	index map[*kml.Item]int
	links []links
	roots []int
}

func newStructure(parts []*kml.Item) *Structure {
	s := &Structure{
		parts: parts,
		index: make(map[*kml.Item]int, len(parts)),
		links: make([]links, len(parts)),
	}
	for i, p := range parts {
		s.index[p] = i
		s.links[i].parent = -1
		s.links[i].surfaceTo = -1
	}
	return s
}

// Len returns the number of parts.
func (s *Structure) Len() int { return len(s.parts) }

// Parts returns the part list in index order.
func (s *Structure) Parts() []*kml.Item { return s.parts }

// Part returns the part at index i, or nil when i is out of range.
func (s *Structure) Part(i int) *kml.Item {
	if i < 0 || i >= len(s.parts) {
		return nil
	}
	return s.parts[i]
}

// Index returns the position of p in the part list, or -1.
func (s *Structure) Index(p *kml.Item) int {
	if i, ok := s.index[p]; ok {
		return i
	}
	return -1
}

// Roots returns the parts without a resolved parent, in index order.
func (s *Structure) Roots() []*kml.Item { return s.items(s.roots) }

// Parent returns the resolved parent of p, or nil for roots.
func (s *Structure) Parent(p *kml.Item) *kml.Item {
	l := s.linksOf(p)
	if l == nil {
		return nil
	}
	return s.Part(l.parent)
}

// Children returns the parts whose resolved parent is p.
func (s *Structure) Children(p *kml.Item) []*kml.Item {
	i := s.Index(p)
	if i < 0 {
		return nil
	}
	var out []*kml.Item
	for j := range s.links {
		if s.links[j].parent == i {
			out = append(out, s.parts[j])
		}
	}
	return out
}

// AttachedTo returns the parts p is node-attached to on face f of p.
func (s *Structure) AttachedTo(p *kml.Item, f Face) []*kml.Item {
	l := s.linksOf(p)
	if l == nil || !validFace(f) {
		return nil
	}
	return s.items(l.attachedTo[f])
}

// Attached returns the parts node-attached to face f of p.
func (s *Structure) Attached(p *kml.Item, f Face) []*kml.Item {
	l := s.linksOf(p)
	if l == nil || !validFace(f) {
		return nil
	}
	return s.items(l.attached[f])
}

// AttachedCount returns the number of distinct parts linked to p by node
// attachments in either direction.
func (s *Structure) AttachedCount(p *kml.Item) int {
	l := s.linksOf(p)
	if l == nil {
		return 0
	}
	seen := make(map[int]bool)
	for f := range numFaces {
		for _, j := range l.attachedTo[f] {
			seen[j] = true
		}
		for _, j := range l.attached[f] {
			seen[j] = true
		}
	}
	return len(seen)
}

// SurfaceTarget returns the part p is surface-attached to, or nil.
func (s *Structure) SurfaceTarget(p *kml.Item) *kml.Item {
	l := s.linksOf(p)
	if l == nil {
		return nil
	}
	return s.Part(l.surfaceTo)
}

// SurfaceAttached returns the parts surface-attached to p.
func (s *Structure) SurfaceAttached(p *kml.Item) []*kml.Item {
	l := s.linksOf(p)
	if l == nil {
		return nil
	}
	return s.items(l.surfaceAttached)
}

// Docked returns the parts linked to p by a docking or grappling device.
func (s *Structure) Docked(p *kml.Item) []*kml.Item {
	l := s.linksOf(p)
	if l == nil {
		return nil
	}
	return s.items(l.docked)
}

// NeedsRepair returns the dock parts flagged during the build.
func (s *Structure) NeedsRepair() []*kml.Item {
	var out []*kml.Item
	for _, p := range s.parts {
		if d := p.Dock(); d != nil && d.NeedsRepair {
			out = append(out, p)
		}
	}
	return out
}

func (s *Structure) linksOf(p *kml.Item) *links {
	i := s.Index(p)
	if i < 0 {
		return nil
	}
	return &s.links[i]
}

func (s *Structure) items(idx []int) []*kml.Item {
	if len(idx) == 0 {
		return nil
	}
	out := make([]*kml.Item, len(idx))
	for k, i := range idx {
		out[k] = s.parts[i]
	}
	return out
}

// attach records that part sits on face f of other. Both sides are updated.
// Every attN occurrence is appended, repeated ones included.
func (s *Structure) attach(part, other int, f Face) {
	s.links[other].attached[f] = append(s.links[other].attached[f], part)
	s.links[part].attachedTo[f.Opposite()] = append(s.links[part].attachedTo[f.Opposite()], other)
}

// dock records a dock or grapple link on both sides. A pair is reached from
// both of its parts, so the link is stored once.
func (s *Structure) dock(a, b int) {
	s.links[a].docked = appendUnique(s.links[a].docked, b)
	s.links[b].docked = appendUnique(s.links[b].docked, a)
}

func validFace(f Face) bool { return f >= 0 && int(f) < numFaces }

func appendUnique(list []int, v int) []int {
	if slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}
