package material

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUDrawDataSize is the byte size of one per-draw record.
const GPUDrawDataSize = 80

// GPUDrawData is the GPU-aligned per-draw record written by material systems for every renderable.
// Shaders index it with the draw's base instance plus the instance index.
// Size: 80 bytes (mat4x4<f32> + vec4<f32>, std430 aligned).
type GPUDrawData struct {
	World        [16]float32 // offset  0: world matrix (mat4x4<f32>)
	DiffuseColor [4]float32  // offset 64: material base color (vec4<f32>)
}

// Size returns the size of the GPUDrawData struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUDrawData) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalInto serializes the record into dst, which must hold at least GPUDrawDataSize bytes.
//
// Parameters:
//   - dst: destination bytes, typically a mapped const buffer range
func (g *GPUDrawData) MarshalInto(dst []byte) {
	for i := range 16 {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(g.World[i]))
	}
	for i := range 4 {
		binary.LittleEndian.PutUint32(dst[64+i*4:], math.Float32bits(g.DiffuseColor[i]))
	}
}
