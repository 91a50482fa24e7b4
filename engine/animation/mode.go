package animation

import (
	"fmt"
	"strings"
)

// Type selects how an Animation produces poses.
type Type int

const (
	// TypeInterpolated blends the two keyframes surrounding the current time on every update.
	TypeInterpolated Type = iota
	// TypeBaked reads precomputed poses sampled at a fixed quantum.
	TypeBaked
)

func (t Type) String() string {
	switch t {
	case TypeInterpolated:
		return "interpolated"
	case TypeBaked:
		return "baked"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// ParseType converts a name produced by Type.String back into a Type.
//
// Parameters:
//   - s: the type name, case-insensitive
//
// Returns:
//   - Type: the parsed type
//   - error: ErrUnknownType if s names no type
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "interpolated":
		return TypeInterpolated, nil
	case "baked":
		return TypeBaked, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// playbackMode is the per-mode playback state. Exactly one variant is active at a time.
type playbackMode interface {
	kind() Type
}

// interpolatedState is the keyframe pair being blended.
type interpolatedState struct {
	current, next int
}

func (*interpolatedState) kind() Type { return TypeInterpolated }

// bakedClip is the product of a bake.
type bakedClip struct {
	frames  []Frame
	quantum float64
}

// bakedState plays a baked clip. clip is nil when the mode was selected before any bake.
type bakedState struct {
	clip  *bakedClip
	index int
}

func (*bakedState) kind() Type { return TypeBaked }
