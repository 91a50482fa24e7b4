// Package joint provides the transform-carrying skeleton node and the Pose, a joint hierarchy
// that can be copied, interpolated, composed with a bind pose and resolved into global matrices.
package joint

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform is a decomposed local transform: translation, rotation and scale.
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
}

// IdentityTransform returns the transform with no translation, no rotation and unit scale.
func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Mat4 composes the transform as T * R * S.
//
// Returns:
//   - mgl32.Mat4: the column-major local matrix
func (t Transform) Mat4() mgl32.Mat4 {
	m := mgl32.Translate3D(t.Translation[0], t.Translation[1], t.Translation[2])
	m = m.Mul4(t.Rotation.Normalize().Mat4())
	return m.Mul4(mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
}

// ApproxEqual reports whether every component of t and o differs by at most epsilon.
// Rotations q and -q are treated as equal.
func (t Transform) ApproxEqual(o Transform, epsilon float32) bool {
	r := o.Rotation
	if t.Rotation.Dot(r) < 0 {
		r = r.Scale(-1)
	}
	return near(t.Translation[:], o.Translation[:], epsilon) &&
		near(t.Scale[:], o.Scale[:], epsilon) &&
		near([]float32{t.Rotation.W, t.Rotation.V[0], t.Rotation.V[1], t.Rotation.V[2]},
			[]float32{r.W, r.V[0], r.V[1], r.V[2]}, epsilon)
}

func near(a, b []float32, epsilon float32) bool {
	for i := range a {
		if d := a[i] - b[i]; d > epsilon || d < -epsilon {
			return false
		}
	}
	return true
}

// LerpTransform blends a toward b by factor. Translation and scale are interpolated linearly and
// rotation is slerped along the shortest arc. factor is not clamped, so values outside [0, 1]
// extrapolate.
//
// Parameters:
//   - a: the transform at factor 0
//   - b: the transform at factor 1
//   - factor: the blend weight
//
// Returns:
//   - Transform: the blended transform
func LerpTransform(a, b Transform, factor float32) Transform {
	return Transform{
		Translation: LerpVec3(a.Translation, b.Translation, factor),
		Rotation:    SlerpShortest(a.Rotation, b.Rotation, factor),
		Scale:       LerpVec3(a.Scale, b.Scale, factor),
	}
}

// LerpVec3 interpolates linearly from a to b.
func LerpVec3(a, b mgl32.Vec3, factor float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(factor))
}

// SlerpShortest spherically interpolates from a to b along the shorter of the two arcs and
// returns a unit quaternion.
func SlerpShortest(a, b mgl32.Quat, factor float32) mgl32.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl32.QuatSlerp(a, b, factor).Normalize()
}

// Joint is the payload of a skeleton node.
type Joint struct {
	// Local is the transform relative to the parent joint.
	Local Transform
	// InverseBind maps model space into this joint's bind space.
	InverseBind mgl32.Mat4
	// Global is the model-space transform, valid after Pose.Resolve.
	Global mgl32.Mat4
	// Skin is Global * InverseBind, the matrix consumed by mesh skinning.
	Skin mgl32.Mat4
}

// NewJoint creates a Joint with the given local transform and identity matrices.
func NewJoint(local Transform) Joint {
	return Joint{
		Local:       local,
		InverseBind: mgl32.Ident4(),
		Global:      mgl32.Ident4(),
		Skin:        mgl32.Ident4(),
	}
}

// WorldPosition returns the model-space origin of the joint. Only meaningful after Pose.Resolve.
func (j *Joint) WorldPosition() mgl32.Vec3 {
	return j.Global.Col(3).Vec3()
}
