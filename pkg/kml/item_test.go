package kml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddKeepsDeclarationOrder(t *testing.T) {
	n := NewNode("PART")
	require.NoError(t, n.Add(NewAttrib("name", "fuelTank")))
	child := NewNode("MODULE")
	require.NoError(t, n.Add(child))
	require.NoError(t, n.Add(NewAttrib("uid", "42")))

	items := n.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "name", items[0].Name)
	assert.Same(t, child, items[1])
	assert.Equal(t, "uid", items[2].Name)

	assert.Len(t, n.Attribs(), 2)
	assert.Equal(t, []*Item{child}, n.Children())
	assert.Same(t, n, child.Parent())
}

func TestAttribRefusesChildren(t *testing.T) {
	a := NewAttrib("name", "x")
	err := a.Add(NewAttrib("y", "z"))
	assert.ErrorIs(t, err, ErrNotContainer)
	assert.Empty(t, a.Items())
}

func TestFlattenIsDepthFirst(t *testing.T) {
	root := NewNode("GAME")
	a := NewAttrib("version", "1.0")
	vessel := NewNode("VESSEL")
	part := NewNode("PART")
	pname := NewAttrib("name", "pod")
	after := NewAttrib("mode", "x")

	require.NoError(t, root.Add(a))
	require.NoError(t, root.Add(vessel))
	require.NoError(t, vessel.Add(part))
	require.NoError(t, part.Add(pname))
	require.NoError(t, root.Add(after))

	assert.Equal(t, []*Item{a, vessel, part, pname, after}, root.Flatten())
}

func TestEmptyNodeIsValid(t *testing.T) {
	n := NewNode("EMPTY")
	assert.Empty(t, n.Items())
	assert.Empty(t, n.Attribs())
	assert.Empty(t, n.Children())
	assert.Empty(t, n.Flatten())
	assert.Equal(t, "EMPTY", n.String())
}

func TestDelete(t *testing.T) {
	n := NewNode("NODE")
	a := NewAttrib("a", "1")
	b := NewAttrib("b", "2")
	require.NoError(t, n.AddRange([]*Item{a, b}))

	require.NoError(t, a.Delete())
	assert.Nil(t, a.Parent())
	assert.Equal(t, []*Item{b}, n.Items())

	b.CanBeDeleted = false
	assert.ErrorIs(t, b.Delete(), ErrNotDeletable)
	assert.Equal(t, []*Item{b}, n.Items())
	assert.Same(t, n, b.Parent())
}

func TestReplaceKeepsPosition(t *testing.T) {
	n := NewNode("NODE")
	a, b, c := NewAttrib("a", "1"), NewNode("B"), NewAttrib("c", "3")
	require.NoError(t, n.AddRange([]*Item{a, b, c}))

	repl := NewNode("B2")
	require.NoError(t, n.Replace(b, repl))
	assert.Equal(t, []*Item{a, repl, c}, n.Items())
	assert.Nil(t, b.Parent())
	assert.Same(t, n, repl.Parent())

	assert.ErrorIs(t, n.Replace(b, repl), ErrNotChild)
}

func TestSetValueNotifies(t *testing.T) {
	a := NewAttrib("uid", "1")
	var calls []string
	a.OnChange(func(it *Item, old string) {
		calls = append(calls, old+"->"+it.Value)
	})

	a.SetValue("2")
	a.SetValue("2")
	a.SetValue("3")
	assert.Equal(t, []string{"1->2", "2->3"}, calls)
}

func TestDisplayString(t *testing.T) {
	n := NewNode("MODULE")
	assert.Equal(t, "MODULE", n.String())
	require.NoError(t, n.Add(NewAttrib("name", "ModuleEngines")))
	assert.Equal(t, "MODULE (ModuleEngines)", n.String())
	assert.Equal(t, "name = ModuleEngines", n.Items()[0].String())

	// A resource without its payload falls back to the plain tag.
	r := &Item{Kind: KindResource, Name: "RESOURCE"}
	assert.Equal(t, "RESOURCE", r.String())
}

func TestKindString(t *testing.T) {
	tests := map[Kind]string{
		KindAttrib:   "attrib",
		KindNode:     "node",
		KindGhost:    "ghost",
		KindPart:     "part",
		KindDock:     "dock",
		KindResource: "resource",
		KindVessel:   "vessel",
		Kind(99):     "unknown",
	}
	for k, want := range tests {
		assert.Equal(t, want, k.String())
	}
}
