package kml

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Attribute names recognized on PART nodes, compared case-insensitively.
const (
	attribCraftName = "part"
	attribUID       = "uid"
	attribParent    = "parent"
	attribNode      = "attn"
	attribSurface   = "srfn"
	attribPosition  = "position"
)

// unusedNode is the index the format writes for an empty attachment node.
const unusedNode = -1

// IsPartNode reports whether n has the shape of a vessel part.
func IsPartNode(n *Item) bool {
	return n.IsNode() && strings.EqualFold(n.Name, "PART")
}

func newPartData(n *Item) PartData {
	origin := OriginOther
	if p := n.parent; p != nil && strings.EqualFold(p.Name, "VESSEL") {
		origin = OriginVessel
	}
	return PartData{
		Origin:       origin,
		ParentIndex:  -1,
		SurfaceIndex: -1,
	}
}

// NewPart builds a part from a completed generic node. The node's children
// move to the part and are specialized as they are re-added.
func NewPart(n *Item) *Item {
	d := newPartData(n)
	return specialize(n, KindPart, &d)
}

// specialize creates the replacement item for n and moves its children.
func specialize(n *Item, kind Kind, data ItemData) *Item {
	it := &Item{
		Kind:         kind,
		Line:         n.Line,
		CanBeDeleted: n.CanBeDeleted,
		Name:         n.Name,
		Data:         data,
		parent:       n.parent,
		sink:         n.sink,
	}
	items := n.items
	n.items = nil
	for _, c := range items {
		_ = it.Add(c)
	}
	return it
}

// accept extracts derived fields from a child being added to host.
func (p *PartData) accept(host, child *Item) {
	if child.Kind == KindResource {
		p.addResource(child)
		return
	}
	if child.Kind != KindAttrib {
		return
	}

	switch strings.ToLower(child.Name) {
	case attribCraftName:
		p.CraftName = child.Value
		child.CanBeDeleted = false
		child.OnChange(func(a *Item, _ string) { p.CraftName = a.Value })

	case attribUID:
		p.UID = child.Value
		child.CanBeDeleted = false
		child.OnChange(func(a *Item, _ string) { p.UID = a.Value })

	case attribParent:
		if idx, err := strconv.Atoi(strings.TrimSpace(child.Value)); err == nil {
			p.ParentIndex = idx
		} else {
			host.warn("unreadable parent part: %s", child)
		}
		child.CanBeDeleted = false
		child.OnChange(func(a *Item, _ string) {
			if idx, err := strconv.Atoi(strings.TrimSpace(a.Value)); err == nil {
				p.ParentIndex = idx
			}
		})

	case attribNode:
		// "top, 12", "bottom, -1", "top2, 3"
		idx, ok := parseIndexPair(child.Value)
		switch {
		case !ok:
			host.warn("bad formatted part node attachment: %s", child)
		case idx >= 0:
			p.NodeIndices = append(p.NodeIndices, idx)
			child.CanBeDeleted = false
		case idx != unusedNode:
			host.warn("negative part node attachment index: %s", child)
		}

	case attribSurface:
		// "srfAttach, 12"
		idx, ok := parseIndexPair(child.Value)
		switch {
		case !ok:
			host.warn("bad formatted part surface attachment: %s", child)
		case idx >= 0 && p.SurfaceIndex < 0:
			p.SurfaceIndex = idx
			child.CanBeDeleted = false
		case idx >= 0:
			host.warn("more than one surface attachment is not allowed, already attached to [%d], could not attach to [%d]", p.SurfaceIndex, idx)
		case idx != unusedNode:
			host.warn("negative part surface attachment index: %s", child)
		}

	case attribPosition:
		// "0.1,0,-0.3E-07"
		if pos, ok := parsePosition(child.Value); ok {
			p.Position = pos
			child.CanBeDeleted = false
		} else {
			host.warn("bad formatted part position: %s", child)
		}
		child.OnChange(func(a *Item, _ string) {
			if pos, ok := parsePosition(a.Value); ok {
				p.Position = pos
			}
		})
	}
}

func (p *PartData) addResource(res *Item) {
	p.Resources = append(p.Resources, res)
	name := res.Resource().Name
	if i, found := slices.BinarySearch(p.ResourceTypes, name); !found {
		p.ResourceTypes = slices.Insert(p.ResourceTypes, i, name)
	}
	res.Resource().lock(res)
}

// HasResources reports whether the part holds any resource block.
func (p *PartData) HasResources() bool {
	return len(p.Resources) > 0
}

// WorstResourceRatio returns the lowest amount ratio over all resources, or
// -1 when the part has none.
func (p *PartData) WorstResourceRatio() float64 {
	if !p.HasResources() {
		return -1.0
	}
	worst := 1.0
	for _, r := range p.Resources {
		if ratio := r.Resource().AmountRatio(); ratio < worst {
			worst = ratio
		}
	}
	return worst
}

// HasResource reports whether any resource of the given type is present,
// compared case-insensitively.
func (p *PartData) HasResource(name string) bool {
	for _, t := range p.ResourceTypes {
		if strings.EqualFold(t, name) {
			return true
		}
	}
	return false
}

// partString renders "PART [index, root] (name)".
func (it *Item) partString() string {
	var b strings.Builder
	b.WriteString(it.Name)
	if v := it.parent; v != nil && strings.EqualFold(v.Name, "VESSEL") {
		if idx := slices.Index(v.Parts(), it); idx >= 0 {
			fmt.Fprintf(&b, " [%d", idx)
			if p := it.Part(); p != nil && p.ParentIndex == idx {
				b.WriteString(", root")
			}
			b.WriteString("]")
		}
	}
	if name := it.AttribValue("name"); name != "" {
		b.WriteString(" (" + name + ")")
	} else if p := it.Part(); p != nil && p.CraftName != "" {
		b.WriteString(" (" + p.CraftName + ")")
	}
	return b.String()
}

// parseIndexPair parses "<slot>, <index>".
func parseIndexPair(value string) (int, bool) {
	items := strings.Split(value, ",")
	if len(items) != 2 {
		return 0, false
	}
	idx, err := strconv.Atoi(strings.TrimSpace(items[1]))
	if err != nil {
		return 0, false
	}
	return idx, true
}

// parsePosition parses three comma separated floats. Parsing does not
// depend on the process locale and accepts exponent notation.
func parsePosition(value string) (v3.Vec, bool) {
	items := strings.Split(value, ",")
	if len(items) != 3 {
		return v3.Vec{}, false
	}
	var xyz [3]float64
	for i, s := range items {
		f, ok := parseCoord(strings.TrimSpace(s))
		if !ok {
			return v3.Vec{}, false
		}
		xyz[i] = f
	}
	return v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}, true
}

// parseCoord parses one decimal coordinate. Hex floats, Inf and NaN are
// accepted by strconv but never written by the game, so they are rejected.
func parseCoord(s string) (float64, bool) {
	digits := strings.TrimLeft(s, "+-")
	if len(digits) > 1 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
