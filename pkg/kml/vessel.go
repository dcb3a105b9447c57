package kml

import (
	"strconv"
	"strings"
)

// IsVesselNode reports whether n has the shape of a vessel block.
func IsVesselNode(n *Item) bool {
	return n.IsNode() && strings.EqualFold(n.Name, "VESSEL")
}

// NewVessel builds a vessel from a completed generic node.
func NewVessel(n *Item) *Item {
	return specialize(n, KindVessel, &VesselData{RootIndex: -1})
}

func (v *VesselData) accept(host, child *Item) {
	if child.Kind != KindAttrib || !strings.EqualFold(child.Name, "root") {
		return
	}
	if idx, err := strconv.Atoi(strings.TrimSpace(child.Value)); err == nil {
		v.RootIndex = idx
	} else {
		host.warn("unreadable vessel root part: %s", child)
	}
	child.OnChange(func(a *Item, _ string) {
		if idx, err := strconv.Atoi(strings.TrimSpace(a.Value)); err == nil {
			v.RootIndex = idx
		}
	})
}

// Parts returns the part children of a node in declaration order. For a
// vessel this is the flat part list every part index refers to.
func (it *Item) Parts() []*Item {
	var parts []*Item
	for _, c := range it.items {
		if c.Part() != nil {
			parts = append(parts, c)
		}
	}
	return parts
}

// Collect walks items and their descendants and returns every item of the
// given kind in declaration order.
func Collect(items []*Item, kind Kind) []*Item {
	var out []*Item
	for _, it := range items {
		if it.Kind == kind {
			out = append(out, it)
		}
		if it.IsNode() {
			out = append(out, Collect(it.items, kind)...)
		}
	}
	return out
}

// Vessels returns every vessel below items.
func Vessels(items []*Item) []*Item {
	return Collect(items, KindVessel)
}
