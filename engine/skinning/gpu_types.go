package skinning

import (
	"unsafe"

	"github.com/Carmen-Shannon/oxy-anim/common"
)

// GPUJointMatrixSource is the WGSL definition of the JointMatrix struct.
// Matches GPUJointMatrix layout exactly (64 bytes, std430 aligned).
const GPUJointMatrixSource = `struct JointMatrix {
    skin: mat4x4<f32>,
}
`

// GPUJointMatrixSize is the size of one palette entry in bytes.
const GPUJointMatrixSize = 64

// GPUJointMatrix is the GPU-aligned skinning matrix of one joint: global transform times inverse
// bind matrix, column-major.
// Size: 64 bytes (std430 aligned).
type GPUJointMatrix struct {
	Skin [16]float32 // offset 0, size 64 (mat4x4<f32>)
}

// Size returns the size of the GPUJointMatrix struct in bytes.
//
// Returns:
//   - int: The size of the struct in bytes.
func (g *GPUJointMatrix) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUJointMatrix struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload.
func (g *GPUJointMatrix) Marshal() []byte {
	return g.appendTo(make([]byte, 0, GPUJointMatrixSize))
}

// appendTo copies the matrix in host byte order, the order the GPU reads.
func (g *GPUJointMatrix) appendTo(buf []byte) []byte {
	return append(buf, common.SliceToBytes(g.Skin[:])...)
}
