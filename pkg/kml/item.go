package kml

import (
	"errors"
	"fmt"
	"strings"
)

// Kind enumerates the shapes an Item can take.
type Kind int

const (
	KindAttrib   Kind = iota // name = value leaf
	KindNode                 // generic tagged block
	KindGhost                // synthetic grouping node, never written
	KindPart                 // vessel part
	KindDock                 // docking port or grapple part
	KindResource             // resource block inside a part
	KindVessel               // vessel block owning the flat part list
)

func (k Kind) String() string {
	switch k {
	case KindAttrib:
		return "attrib"
	case KindNode:
		return "node"
	case KindGhost:
		return "ghost"
	case KindPart:
		return "part"
	case KindDock:
		return "dock"
	case KindResource:
		return "resource"
	case KindVessel:
		return "vessel"
	default:
		return "unknown"
	}
}

var (
	// ErrNotContainer is returned when adding a child to an attribute.
	ErrNotContainer = errors.New("kml: attributes cannot contain children")
	// ErrNotDeletable is returned when deleting an item whose CanBeDeleted flag is false.
	ErrNotDeletable = errors.New("kml: item cannot be deleted")
	// ErrNotChild is returned when an item is not found in its container.
	ErrNotChild = errors.New("kml: item is not a child of this node")
)

// ChangeFunc is called synchronously after an attribute value changes.
type ChangeFunc func(a *Item, old string)

// Item is the single element type of a document tree. Attributes and nodes
// share the line number, container back-reference and deletion flag; the
// Kind discriminant decides which of the remaining fields are meaningful.
type Item struct {
	Kind         Kind
	Line         int  // 1-based source line, 0 when built in code
	CanBeDeleted bool // cleared for attributes that back a derived field

	// Name is the attribute name, or the node tag for every other kind.
	Name string
	// Value is the attribute value. Empty for nodes.
	Value string

	// Data carries the kind-specific payload of specialized nodes.
	Data ItemData

	parent   *Item
	items    []*Item
	onChange []ChangeFunc
	sink     Sink
}

// NewAttrib creates a deletable attribute.
func NewAttrib(name, value string) *Item {
	return &Item{Kind: KindAttrib, Name: name, Value: value, CanBeDeleted: true}
}

// NewNode creates an empty, deletable node with the given tag.
func NewNode(tag string) *Item {
	return &Item{Kind: KindNode, Name: tag, CanBeDeleted: true}
}

// NewGhost creates a ghost node. Its children are written as if they
// belonged to whatever encloses the ghost.
func NewGhost(tag string) *Item {
	return &Item{Kind: KindGhost, Name: tag}
}

// IsNode reports whether the item can hold children.
func (it *Item) IsNode() bool {
	return it.Kind != KindAttrib
}

// Tag returns the node tag. It is empty for attributes.
func (it *Item) Tag() string {
	if !it.IsNode() {
		return ""
	}
	return it.Name
}

// Parent returns the containing node, or nil for top-level items.
func (it *Item) Parent() *Item {
	return it.parent
}

// SetSink attaches a diagnostics sink. Items without their own sink report
// through the nearest ancestor that has one.
func (it *Item) SetSink(s Sink) {
	it.sink = s
}

func (it *Item) warn(format string, args ...any) {
	for cur := it; cur != nil; cur = cur.parent {
		if cur.sink != nil {
			cur.sink.Warn(it, fmt.Sprintf(format, args...))
			return
		}
	}
}

// Items returns all children in declaration order, attributes and nodes
// interleaved. The returned slice must not be modified.
func (it *Item) Items() []*Item {
	return it.items
}

// Attribs returns only the attribute children in declaration order.
func (it *Item) Attribs() []*Item {
	var attribs []*Item
	for _, c := range it.items {
		if c.Kind == KindAttrib {
			attribs = append(attribs, c)
		}
	}
	return attribs
}

// Children returns only the node children in declaration order.
func (it *Item) Children() []*Item {
	var nodes []*Item
	for _, c := range it.items {
		if c.IsNode() {
			nodes = append(nodes, c)
		}
	}
	return nodes
}

// Flatten returns every transitive descendant in declaration order, each
// node followed by its own descendants.
func (it *Item) Flatten() []*Item {
	var out []*Item
	for _, c := range it.items {
		out = append(out, c)
		if c.IsNode() {
			out = append(out, c.Flatten()...)
		}
	}
	return out
}

// Attrib returns the first attribute whose name matches case-insensitively.
func (it *Item) Attrib(name string) *Item {
	for _, c := range it.items {
		if c.Kind == KindAttrib && strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// AttribValue returns the value of the named attribute, or "".
func (it *Item) AttribValue(name string) string {
	if a := it.Attrib(name); a != nil {
		return a.Value
	}
	return ""
}

// Add appends child to the node, running the specialization hook of the
// receiving node first. Attributes refuse children with ErrNotContainer.
func (it *Item) Add(child *Item) error {
	if !it.IsNode() {
		return ErrNotContainer
	}
	child.parent = it
	it.accept(child)
	it.items = append(it.items, child)
	return nil
}

// AddRange adds every item in order, stopping at the first error.
func (it *Item) AddRange(items []*Item) error {
	for _, c := range items {
		if err := it.Add(c); err != nil {
			return err
		}
	}
	return nil
}

// Replace swaps old for repl at the same position.
func (it *Item) Replace(old, repl *Item) error {
	for i, c := range it.items {
		if c == old {
			it.items[i] = repl
			repl.parent = it
			old.parent = nil
			return nil
		}
	}
	return ErrNotChild
}

// Delete removes the item from its container and detaches it. Items whose
// CanBeDeleted flag is false are left untouched and ErrNotDeletable is
// returned.
func (it *Item) Delete() error {
	if !it.CanBeDeleted {
		return ErrNotDeletable
	}
	if it.parent == nil {
		return nil
	}
	p := it.parent
	for i, c := range p.items {
		if c == it {
			p.items = append(p.items[:i:i], p.items[i+1:]...)
			it.parent = nil
			return nil
		}
	}
	it.parent = nil
	return ErrNotChild
}

// OnChange registers fn to run after each SetValue on this attribute.
func (it *Item) OnChange(fn ChangeFunc) {
	it.onChange = append(it.onChange, fn)
}

// SetValue updates an attribute value and notifies registered callbacks in
// registration order. Setting the current value is a no-op.
func (it *Item) SetValue(v string) {
	if it.Value == v {
		return
	}
	old := it.Value
	it.Value = v
	for _, fn := range it.onChange {
		fn(it, old)
	}
}

// String returns a display string derived from the tag and identity
// attributes.
func (it *Item) String() string {
	switch it.Kind {
	case KindAttrib:
		return it.Name + " = " + it.Value
	case KindGhost:
		return it.Name
	case KindPart, KindDock:
		return it.partString()
	case KindResource:
		if r := it.Resource(); r != nil {
			return fmt.Sprintf("%s (%s, %g/%g)", it.Name, r.Name, r.Amount, r.MaxAmount)
		}
	}
	if name := it.AttribValue("name"); name != "" {
		return it.Name + " (" + name + ")"
	}
	return it.Name
}
