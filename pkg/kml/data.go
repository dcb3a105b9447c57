package kml

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ItemData is the interface for kind-specific item payloads.
type ItemData interface {
	itemData() // marker method restricting implementations to this package
}

// ---------------------------------------------------------------------------
// Part
// ---------------------------------------------------------------------------

// PartOrigin tells where a part node was found.
type PartOrigin int

const (
	OriginVessel PartOrigin = iota // regular child of a VESSEL node
	OriginOther                    // e.g. a craft file or a detached PART block
)

func (o PartOrigin) String() string {
	if o == OriginVessel {
		return "vessel"
	}
	return "other"
}

// PartData holds the fields extracted from a part's attributes while they
// are added. Indices are raw and unresolved; graph.Build resolves them.
type PartData struct {
	Origin    PartOrigin
	CraftName string // value of the "part" attribute (craft files)
	UID       string
	Position  v3.Vec

	// ParentIndex is the position of the parent in the vessel's part list.
	// It equals the part's own index for the root part; -1 if never set.
	ParentIndex int
	// NodeIndices lists the non-negative attN indices in declaration order.
	NodeIndices []int
	// SurfaceIndex is the first valid srfN index, or -1.
	SurfaceIndex int

	Resources     []*Item  // KindResource children in declaration order
	ResourceTypes []string // distinct resource names, sorted

	// Visited is free for graph walks done by callers.
	Visited bool
}

func (*PartData) itemData() {}

// ---------------------------------------------------------------------------
// Dock
// ---------------------------------------------------------------------------

// DockType distinguishes plain docking ports from grappling devices.
type DockType int

const (
	DockTypeDock    DockType = iota // ModuleDockingNode
	DockTypeGrapple                 // ModuleGrappleNode
)

func (t DockType) String() string {
	switch t {
	case DockTypeDock:
		return "dock"
	case DockTypeGrapple:
		return "grapple"
	default:
		return "unknown"
	}
}

// DockData is a part that can link to another part by unique id.
type DockData struct {
	PartData

	Type    DockType
	State   string // module "state", e.g. "Docked (docker)"
	DockUID string // module "dockUId", uid of the linked part

	// NeedsRepair is set by the attachment builder when the declared state
	// contradicts the counterpart.
	NeedsRepair bool
}

func (*DockData) itemData() {}

// ---------------------------------------------------------------------------
// Resource
// ---------------------------------------------------------------------------

// ResourceData tracks quantity and capacity of one resource block.
type ResourceData struct {
	Name      string
	Amount    float64
	MaxAmount float64
}

func (*ResourceData) itemData() {}

// AmountRatio returns Amount/MaxAmount. A resource without capacity counts
// as full.
func (r *ResourceData) AmountRatio() float64 {
	if r.MaxAmount <= 0 {
		return 1.0
	}
	return r.Amount / r.MaxAmount
}

// ---------------------------------------------------------------------------
// Vessel
// ---------------------------------------------------------------------------

// VesselData holds vessel-level attributes.
type VesselData struct {
	// RootIndex is the "root" attribute, the index of the root part, or -1.
	RootIndex int
}

func (*VesselData) itemData() {}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Part returns the part payload for parts and docks, nil otherwise.
func (it *Item) Part() *PartData {
	switch d := it.Data.(type) {
	case *PartData:
		return d
	case *DockData:
		return &d.PartData
	}
	return nil
}

// Dock returns the dock payload, or nil.
func (it *Item) Dock() *DockData {
	d, _ := it.Data.(*DockData)
	return d
}

// Resource returns the resource payload, or nil.
func (it *Item) Resource() *ResourceData {
	d, _ := it.Data.(*ResourceData)
	return d
}

// Vessel returns the vessel payload, or nil.
func (it *Item) Vessel() *VesselData {
	d, _ := it.Data.(*VesselData)
	return d
}

// accept dispatches the specialization hook of the receiving node.
func (it *Item) accept(child *Item) {
	switch d := it.Data.(type) {
	case *PartData:
		d.accept(it, child)
	case *DockData:
		d.PartData.accept(it, child)
	case *ResourceData:
		d.accept(it, child)
	case *VesselData:
		d.accept(it, child)
	}
}
