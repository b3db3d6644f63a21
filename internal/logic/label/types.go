package label

import "fmt"

// Type is an accessibility label category.
type Type string

const (
	CurbRamp       Type = "CurbRamp"
	NoCurbRamp     Type = "NoCurbRamp"
	Obstacle       Type = "Obstacle"
	SurfaceProblem Type = "SurfaceProblem"
	NoSidewalk     Type = "NoSidewalk"
	Crosswalk      Type = "Crosswalk"
	Signal         Type = "Signal"
	Occlusion      Type = "Occlusion"
	Other          Type = "Other"
)

var knownTypes = map[Type]struct{}{
	CurbRamp: {}, NoCurbRamp: {}, Obstacle: {}, SurfaceProblem: {}, NoSidewalk: {},
	Crosswalk: {}, Signal: {}, Occlusion: {}, Other: {},
}

// ParseType validates a label type name.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if _, ok := knownTypes[t]; !ok {
		return "", fmt.Errorf("unknown label type %q", s)
	}
	return t, nil
}

// HasSeverity reports whether labels of this type carry a severity rating.
func (t Type) HasSeverity() bool {
	return t != Occlusion && t != Signal
}

// Visibility of a label on the panorama canvas.
type Visibility string

const (
	Visible Visibility = "visible"
	Hidden  Visibility = "hidden"
)

func (v Visibility) valid() bool {
	return v == Visible || v == Hidden
}

func (v Visibility) opposite() Visibility {
	if v == Visible {
		return Hidden
	}
	return Visible
}
