package kml

import "strings"

// Module names that turn a part into a dock.
const (
	ModuleDockingNode = "ModuleDockingNode"
	ModuleGrappleNode = "ModuleGrappleNode"
)

// Dock states, compared case-insensitively.
const (
	StateDocker     = "Docked (docker)"
	StateDockee     = "Docked (dockee)"
	StateSameVessel = "Docked (same vessel)"
	StateGrappled   = "Grappled"
	StateDisengage  = "Disengage"
	StateReady      = "Ready"
)

// dockModule returns the first MODULE child naming a docking or grappling
// module, and its type.
func dockModule(n *Item) (*Item, DockType, bool) {
	for _, c := range n.items {
		if !c.IsNode() || !strings.EqualFold(c.Name, "MODULE") {
			continue
		}
		switch name := c.AttribValue("name"); {
		case strings.EqualFold(name, ModuleDockingNode):
			return c, DockTypeDock, true
		case strings.EqualFold(name, ModuleGrappleNode):
			return c, DockTypeGrapple, true
		}
	}
	return nil, 0, false
}

// IsDockNode reports whether n is a part carrying a docking or grappling
// module.
func IsDockNode(n *Item) bool {
	if !IsPartNode(n) {
		return false
	}
	_, _, ok := dockModule(n)
	return ok
}

// NewDock builds a dock part from a completed generic node.
func NewDock(n *Item) *Item {
	d := &DockData{PartData: newPartData(n)}
	it := specialize(n, KindDock, d)
	module, typ, ok := dockModule(it)
	if !ok {
		return it
	}
	d.Type = typ
	if a := module.Attrib("state"); a != nil {
		d.State = a.Value
		a.CanBeDeleted = false
		a.OnChange(func(a *Item, _ string) { d.State = a.Value })
	}
	if a := module.Attrib("dockUId"); a != nil {
		d.DockUID = a.Value
		a.CanBeDeleted = false
		a.OnChange(func(a *Item, _ string) { d.DockUID = a.Value })
	}
	return it
}

// StateIs compares a dock state case-insensitively.
func StateIs(state, want string) bool {
	return strings.EqualFold(strings.TrimSpace(state), want)
}

// IsDocked reports whether the state claims an active link to a partner.
func IsDocked(state string) bool {
	return StateIs(state, StateDocker) || StateIs(state, StateDockee) ||
		StateIs(state, StateSameVessel) || StateIs(state, StateGrappled)
}

// IsGrapple reports whether it is a grappling device.
func (it *Item) IsGrapple() bool {
	d := it.Dock()
	return d != nil && d.Type == DockTypeGrapple
}
