package material

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
)

// Type tags the material system that owns a datablock. The set is closed; the render queue
// dispatches through a fixed [NumTypes] table indexed by Type.
type Type uint8

const (
	TypePbs Type = iota
	TypePbsMobile
	TypeUnlit
	TypeUnlitMobile
	TypeLowLevel
	// NumTypes is the number of material system types.
	NumTypes
)

var typeNames = [NumTypes]string{
	TypePbs:         "pbs",
	TypePbsMobile:   "pbs_mobile",
	TypeUnlit:       "unlit",
	TypeUnlitMobile: "unlit_mobile",
	TypeLowLevel:    "low_level",
}

// String returns the lowercase name of the type.
func (t Type) String() string {
	if t < NumTypes {
		return typeNames[t]
	}
	return "unknown"
}

const (
	// ShaderHashBits is the width of a shader hash as stored in sort keys.
	ShaderHashBits = 10
	// TypeBits is the number of high shader hash bits holding the Type.
	TypeBits = 3
	// VariantBits is the number of low shader hash bits holding the variant index.
	VariantBits = ShaderHashBits - TypeBits

	// MaxVariants is the number of shader variants a single material system can index.
	MaxVariants = 1 << VariantBits
)

// ShaderHash combines a material system type and a variant index into a 10-bit shader hash.
// Variants beyond MaxVariants wrap.
//
// Parameters:
//   - t: the owning material system type
//   - variant: the system-local variant index
//
// Returns:
//   - uint32: the shader hash
func ShaderHash(t Type, variant uint32) uint32 {
	return uint32(t)<<VariantBits | variant&(MaxVariants-1)
}

// TypeOfShaderHash extracts the material system type from a shader hash.
func TypeOfShaderHash(hash uint32) Type {
	return Type(hash >> VariantBits & (1<<TypeBits - 1))
}

// ShaderCache is a compiled shader variant handed out by a material system.
// The render queue compares caches by pointer to detect state changes.
type ShaderCache struct {
	Hash          uint32
	Type          Type
	PipelineState pipeline.PipelineState
}

// PassCache is the per-pass state a material system prepares before a render call.
type PassCache struct {
	Hash           uint32
	Type           Type
	CasterPass     bool
	DualParaboloid bool
	ShadowNodeID   uint64
}
