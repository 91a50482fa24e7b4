package common

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// QuatFromXYZW converts an (x, y, z, w) quaternion array, the layout used by glTF and GPU buffers,
// into an mgl32.Quat.
//
// Parameters:
//   - q: the quaternion components in x, y, z, w order
//
// Returns:
//   - mgl32.Quat: the equivalent quaternion
func QuatFromXYZW(q [4]float32) mgl32.Quat {
	return mgl32.Quat{W: q[3], V: mgl32.Vec3{q[0], q[1], q[2]}}
}

// QuatToXYZW converts an mgl32.Quat into an (x, y, z, w) array.
//
// Parameters:
//   - q: the quaternion to convert
//
// Returns:
//   - [4]float32: the components in x, y, z, w order
func QuatToXYZW(q mgl32.Quat) [4]float32 {
	return [4]float32{q.V[0], q.V[1], q.V[2], q.W}
}

// DecomposeMatrix splits a column-major affine matrix into translation, rotation and scale.
// Shear is not represented; a matrix carrying shear decomposes approximately.
//
// Parameters:
//   - m: the matrix to decompose
//
// Returns:
//   - mgl32.Vec3: the translation (column 3)
//   - mgl32.Quat: the rotation of the scale-normalized upper 3x3
//   - mgl32.Vec3: the scale (length of each basis column)
func DecomposeMatrix(m mgl32.Mat4) (mgl32.Vec3, mgl32.Quat, mgl32.Vec3) {
	translation := mgl32.Vec3{m[12], m[13], m[14]}

	scale := mgl32.Vec3{
		m.Col(0).Vec3().Len(),
		m.Col(1).Vec3().Len(),
		m.Col(2).Vec3().Len(),
	}

	div := scale
	for i := range div {
		if div[i] < 0.0001 {
			div[i] = 1
		}
	}

	r := mgl32.Ident4()
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			r.Set(row, col, m.At(row, col)/div[col])
		}
	}

	return translation, mgl32.Mat4ToQuat(r).Normalize(), scale
}
