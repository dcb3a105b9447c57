// Package graph resolves the raw part indices of a vessel into the
// attachment structure: parent hierarchy, six directional node attachments,
// surface attachments and dock/grapple links.
//
// Resolved links live in a Structure, an arena indexed by part position.
// Parts never own each other; every relationship is a lookup.
package graph
