package graph

import (
	"fmt"
	"math"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Axis identifies a principal axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// Face is one of the six sides a part can be attached on.
type Face int

const (
	FaceTop    Face = iota // +Y
	FaceBottom             // -Y
	FaceFront              // +Z
	FaceBack               // -Z
	FaceLeft               // -X
	FaceRight              // +X
)

// numFaces is the number of Face values.
const numFaces = 6

// Faces lists all faces in declaration order.
var Faces = [numFaces]Face{FaceTop, FaceBottom, FaceFront, FaceBack, FaceLeft, FaceRight}

var faceNames = [numFaces]string{"top", "bottom", "front", "back", "left", "right"}

func (f Face) String() string {
	if f < 0 || int(f) >= numFaces {
		return fmt.Sprintf("Face(%d)", int(f))
	}
	return faceNames[f]
}

// Opposite returns the face on the other side of the same axis.
func (f Face) Opposite() Face {
	switch f {
	case FaceTop:
		return FaceBottom
	case FaceBottom:
		return FaceTop
	case FaceFront:
		return FaceBack
	case FaceBack:
		return FaceFront
	case FaceLeft:
		return FaceRight
	default:
		return FaceLeft
	}
}

// Axis returns the axis a face is perpendicular to.
func (f Face) Axis() Axis {
	switch f {
	case FaceLeft, FaceRight:
		return AxisX
	case FaceFront, FaceBack:
		return AxisZ
	default:
		return AxisY
	}
}

// ParseFace parses a face name case-insensitively.
func ParseFace(s string) (Face, error) {
	for i, name := range faceNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Face(i), nil
		}
	}
	return 0, fmt.Errorf("unknown face %q", s)
}

// Classify returns the face of the other part that a part sits on, given
// delta = part position - other position. X wins only when strictly the
// largest magnitude, then Z; everything else, ties included, is Y.
func Classify(delta v3.Vec) Face {
	ax, ay, az := math.Abs(delta.X), math.Abs(delta.Y), math.Abs(delta.Z)
	switch {
	case ax > ay && ax > az:
		if delta.X > 0 {
			return FaceRight
		}
		return FaceLeft
	case az > ax && az > ay:
		if delta.Z > 0 {
			return FaceFront
		}
		return FaceBack
	default:
		if delta.Y > 0 {
			return FaceTop
		}
		return FaceBottom
	}
}

// classifyParts classifies part against other by their positions.
func classifyParts(part, other v3.Vec) Face {
	return Classify(part.Sub(other))
}
