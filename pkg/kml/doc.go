// Package kml implements the document model for the hierarchical save-file
// format: named nodes holding ordered attributes and child nodes. Nodes that
// describe vessel parts, resources and vessels are upgraded in place into
// specialized items once all of their children are known.
package kml
