package kml

// Identifier inspects a completed generic node and returns a specialized
// replacement, or nil to leave the node unchanged.
type Identifier func(n *Item) *Item

// Registry is an ordered list of identifiers. The first identifier that
// returns a replacement wins.
type Registry []Identifier

// Identify runs the registry against n. It returns n itself when no
// identifier matches or when n is already specialized.
func (r Registry) Identify(n *Item) *Item {
	if n.Kind != KindNode {
		return n
	}
	for _, id := range r {
		if repl := id(n); repl != nil {
			return repl
		}
	}
	return n
}

// IdentifyPart upgrades PART nodes, choosing the dock variant when a
// docking or grappling module is present.
func IdentifyPart(n *Item) *Item {
	if !IsPartNode(n) {
		return nil
	}
	if IsDockNode(n) {
		return NewDock(n)
	}
	return NewPart(n)
}

// IdentifyResource upgrades RESOURCE nodes.
func IdentifyResource(n *Item) *Item {
	if !IsResourceNode(n) {
		return nil
	}
	return NewResource(n)
}

// IdentifyVessel upgrades VESSEL nodes.
func IdentifyVessel(n *Item) *Item {
	if !IsVesselNode(n) {
		return nil
	}
	return NewVessel(n)
}

// DefaultRegistry returns the identifiers for vessel documents.
func DefaultRegistry() Registry {
	return Registry{IdentifyPart, IdentifyResource, IdentifyVessel}
}
