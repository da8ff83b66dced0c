package lit

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/light_grid"
)

// GPULitPassSize is the byte size of the per-pass block.
const GPULitPassSize = 192

// GPULitPass is the GPU-aligned per-pass block of the lit system.
// Size: 192 bytes (std140 / WGSL uniform aligned).
type GPULitPass struct {
	ViewProj       [16]float32                   // offset   0: view-projection matrix (mat4x4<f32>)
	View           [16]float32                   // offset  64: view matrix (mat4x4<f32>)
	CameraPosition [3]float32                    // offset 128: world-space camera position
	NumLights      uint32                        // offset 140: lights in the light list
	Forward3D      light_grid.GPUForward3DParams // offset 144: cell lookup constants (32 bytes)
	Ambient        [4]float32                    // offset 176: ambient color, w unused
}

// NewGPULitPass snapshots the camera and the grid constants into the pass layout.
//
// Parameters:
//   - c: the pass camera
//   - params: the grid constants
//   - numLights: the light list length
//   - ambient: the ambient color
//
// Returns:
//   - GPULitPass: the populated block
func NewGPULitPass(c camera.Camera, params light_grid.GPUForward3DParams, numLights int, ambient [3]float32) GPULitPass {
	return GPULitPass{
		ViewProj:       c.ViewProjectionMatrix(),
		View:           c.ViewMatrix(),
		CameraPosition: c.Position(),
		NumLights:      uint32(numLights),
		Forward3D:      params,
		Ambient:        [4]float32{ambient[0], ambient[1], ambient[2], 0},
	}
}

// Size returns the size of the GPULitPass struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (192)
func (g *GPULitPass) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalInto serializes the block into dst, which must hold at least GPULitPassSize bytes.
//
// Parameters:
//   - dst: destination bytes, typically a mapped const buffer range
func (g *GPULitPass) MarshalInto(dst []byte) {
	for i := range 16 {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(g.ViewProj[i]))
		binary.LittleEndian.PutUint32(dst[64+i*4:], math.Float32bits(g.View[i]))
	}
	for i := range 3 {
		binary.LittleEndian.PutUint32(dst[128+i*4:], math.Float32bits(g.CameraPosition[i]))
	}
	binary.LittleEndian.PutUint32(dst[140:], g.NumLights)
	g.Forward3D.MarshalInto(dst[144:176])
	for i := range 4 {
		binary.LittleEndian.PutUint32(dst[176+i*4:], math.Float32bits(g.Ambient[i]))
	}
}
