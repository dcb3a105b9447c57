package kml

import (
	"strconv"
	"strings"
)

// IsResourceNode reports whether n has the shape of a resource block.
func IsResourceNode(n *Item) bool {
	return n.IsNode() && strings.EqualFold(n.Name, "RESOURCE")
}

// NewResource builds a resource from a completed generic node.
func NewResource(n *Item) *Item {
	return specialize(n, KindResource, &ResourceData{})
}

func (r *ResourceData) accept(host, child *Item) {
	if child.Kind != KindAttrib {
		return
	}
	switch strings.ToLower(child.Name) {
	case "name":
		r.Name = child.Value
		child.OnChange(func(a *Item, _ string) { r.Name = a.Value })
	case "amount":
		r.Amount = r.parseAmount(host, child, r.Amount)
		child.OnChange(func(a *Item, _ string) { r.Amount = r.parseAmount(host, a, r.Amount) })
	case "maxamount":
		r.MaxAmount = r.parseAmount(host, child, r.MaxAmount)
		child.OnChange(func(a *Item, _ string) { r.MaxAmount = r.parseAmount(host, a, r.MaxAmount) })
	}
}

func (r *ResourceData) parseAmount(host, a *Item, prev float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(a.Value), 64)
	if err != nil {
		host.warn("bad formatted resource amount: %s", a)
		return prev
	}
	return f
}

// lock marks the quantity attributes non-deletable once the resource
// belongs to a part.
func (r *ResourceData) lock(res *Item) {
	for _, a := range res.Attribs() {
		switch strings.ToLower(a.Name) {
		case "amount", "maxamount":
			a.CanBeDeleted = false
		}
	}
}
