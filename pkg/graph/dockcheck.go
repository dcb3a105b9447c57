package graph

import (
	"github.com/chazu/kmlgraph/pkg/kml"
)

// The checks below compare the declared states of linked dock and grapple
// parts. Every branch either records the link on both parts or reports the
// contradiction and flags the dock parts for repair. They only touch the
// structure's links and the NeedsRepair flags.

// checkParentDock handles a dock part whose parent is a dock part without
// any node or surface attachment between them.
func (b *builder) checkParentDock(i, pi int) {
	docker, dockee := b.s.parts[i], b.s.parts[pi]
	dr, de := docker.Dock(), dockee.Dock()

	switch {
	case kml.StateIs(dr.State, kml.StateDocker):
		if !kml.StateIs(de.State, kml.StateDockee) {
			b.warn(dockee, "dock part is parent of other docker part, docking state should be '%s' but is '%s', other dock: %s",
				kml.StateDockee, de.State, docker)
			dr.NeedsRepair, de.NeedsRepair = true, true
			return
		}
		b.s.dock(pi, i)
	case kml.StateIs(dr.State, kml.StateDockee):
		if !kml.StateIs(de.State, kml.StateDocker) {
			b.warn(dockee, "dock part is parent of other dockee part, docking state should be '%s' but is '%s', other dock: %s",
				kml.StateDocker, de.State, docker)
			dr.NeedsRepair, de.NeedsRepair = true, true
			return
		}
		b.s.dock(pi, i)
	default:
		switch {
		case kml.StateIs(de.State, kml.StateDockee):
			b.warn(docker, "dock part is docked to parent dockee part, docking state should be '%s' but is '%s', parent dock: %s",
				kml.StateDocker, dr.State, dockee)
		case kml.StateIs(de.State, kml.StateDocker):
			b.warn(docker, "dock part is docked to parent docker part, docking state should be '%s' but is '%s', parent dock: %s",
				kml.StateDockee, dr.State, dockee)
		default:
			b.warn(docker, "dock part is docked to parent dock part, docking state should be '%s' or '%s' but is '%s', parent dock: %s",
				kml.StateDocker, kml.StateDockee, dr.State, dockee)
			b.warn(dockee, "dock part is parent of other dock part, docking state should be '%s' or '%s' but is '%s', other dock: %s",
				kml.StateDockee, kml.StateDocker, de.State, docker)
		}
		dr.NeedsRepair, de.NeedsRepair = true, true
	}
}

// checkParentGrapple handles a part whose parent is a grappling device
// without any node or surface attachment between them.
func (b *builder) checkParentGrapple(i, pi int) {
	part, grapple := b.s.parts[i], b.s.parts[pi]
	g := grapple.Dock()
	uid := part.Part().UID

	switch {
	case g.DockUID != uid:
		b.warn(part, "part not attached or grappled by parent grappling part: %s", grapple)
		b.warn(grapple, "grappling part is parent of other part, but is not grappled to it: %s", part)
	case !kml.StateIs(g.State, kml.StateGrappled):
		b.warn(part, "part grappled by parent part, docking state should be '%s' but is '%s', parent grapple: %s",
			kml.StateGrappled, g.State, grapple)
		b.warn(grapple, "grappling part is parent of grappled part, docking state should be '%s' but is '%s', grappled part: %s",
			kml.StateGrappled, g.State, part)
	default:
		// Grappled, but a grapple is expected to hold a node attachment too.
		b.s.dock(pi, i)
		b.warn(part, "part is docked but not attached to parent grappling part: %s", grapple)
		b.warn(grapple, "grappling part is parent and docked but not attached to grappled part: %s", part)
	}
	g.NeedsRepair = true
}

// checkGrappleAttachment handles a node attachment from reporter that the
// target did not reciprocate, where one side is a grappling device. gi is
// the grapple's index and ti the index of the part it should hold.
func (b *builder) checkGrappleAttachment(gi, ti int, reporter *kml.Item) {
	grapple, target := b.s.parts[gi], b.s.parts[ti]
	g := grapple.Dock()
	fromGrapple := reporter == grapple

	switch {
	case g.DockUID != target.Part().UID:
		if fromGrapple {
			b.warn(reporter, "grappling part node attachment not responded from other grappled part: %s", target)
		} else {
			b.warn(reporter, "part node attachment not responded from other grappling part: %s", grapple)
		}
		g.NeedsRepair = true
	case !kml.StateIs(g.State, kml.StateGrappled):
		if fromGrapple {
			b.warn(reporter, "grappling part grappled attached part, docking state should be '%s' but is '%s', attached part: %s",
				kml.StateGrappled, g.State, target)
		} else {
			b.warn(reporter, "part grappled by other grappling part, docking state should be '%s' but is '%s', other grapple: %s",
				kml.StateGrappled, g.State, grapple)
		}
		g.NeedsRepair = true
	default:
		b.s.dock(gi, ti)
	}
}

// checkDockPartner looks up the part a dock claims to be linked to by uid.
// Links through the parent were checked during parent resolution.
func (b *builder) checkDockPartner(i int, part *kml.Item) {
	s := b.s
	d := part.Dock()
	oi := b.findUID(d.DockUID, i)

	if oi < 0 {
		switch {
		case kml.IsDocked(d.State):
			b.warn(part, "dock part supposed to be attached to (uid %s), which does not point to a valid part", d.DockUID)
			d.NeedsRepair = true
		case kml.StateIs(d.State, kml.StateDisengage):
			// Left over from an undocking that did not finish; the partner
			// is now another vessel. Other idle states are fine.
			b.warn(part, "dock part state should be '%s' but is '%s'", kml.StateReady, d.State)
			d.NeedsRepair = true
		}
		return
	}

	other := s.parts[oi]
	if oi == s.links[i].parent || other.Part().ParentIndex == i {
		return
	}
	if !kml.IsDocked(d.State) {
		return
	}

	s.dock(i, oi)
	od := other.Dock()
	if od == nil {
		if d.Type != kml.DockTypeGrapple {
			b.warn(part, "dock part is no grappling device, so it should be only docked to other dock parts, but is docked to: %s", other)
			d.NeedsRepair = true
		}
		return
	}

	switch {
	case od.DockUID != d.UID:
		b.warn(part, "dock part docked to other dock part, but docking not responded from other side, other dock: %s", other)
		d.NeedsRepair, od.NeedsRepair = true, true
	case kml.StateIs(od.State, kml.StateDockee):
		if !kml.StateIs(d.State, kml.StateSameVessel) {
			b.warn(part, "dock part is docked to dockee part, docking state should be '%s' but is '%s', dockee part: %s",
				kml.StateSameVessel, d.State, other)
			d.NeedsRepair, od.NeedsRepair = true, true
		}
	case kml.StateIs(od.State, kml.StateSameVessel):
		if !kml.StateIs(d.State, kml.StateDockee) {
			b.warn(part, "dock part is docked to same vessel docking part, docking state should be '%s' but is '%s', same vessel docking part: %s",
				kml.StateDockee, d.State, other)
			d.NeedsRepair, od.NeedsRepair = true, true
		}
	default:
		b.warn(part, "dock part is docked to other dock part, docking state should be '%s' or '%s' but is '%s', other dock: %s",
			kml.StateSameVessel, kml.StateDockee, d.State, other)
		d.NeedsRepair, od.NeedsRepair = true, true
	}
}

// findUID returns the index of the first part other than self whose uid
// equals uid, or -1. An empty uid never matches.
func (b *builder) findUID(uid string, self int) int {
	if uid == "" {
		return -1
	}
	for j, p := range b.s.parts {
		if j == self {
			continue
		}
		if pd := p.Part(); pd != nil && pd.UID == uid {
			return j
		}
	}
	return -1
}
