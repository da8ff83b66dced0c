package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// Macroblock is the rasterizer and depth state shared by many materials.
// Blocks are interned by a Registry, which assigns the id used in sort keys.
type Macroblock struct {
	id uint16

	DepthCheck          bool
	DepthWrite          bool
	DepthFunc           wgpu.CompareFunction
	DepthBias           int32
	DepthBiasSlopeScale float32
	CullMode            wgpu.CullMode
	FrontFace           wgpu.FrontFace
	ScissorTest         bool
	StencilReference    uint32
}

// DefaultMacroblock returns depth tested, depth written, back-face culled state.
func DefaultMacroblock() Macroblock {
	return Macroblock{
		DepthCheck: true,
		DepthWrite: true,
		DepthFunc:  wgpu.CompareFunctionLessEqual,
		CullMode:   wgpu.CullModeBack,
		FrontFace:  wgpu.FrontFaceCCW,
	}
}

// ID returns the registry-assigned id. Blocks not obtained from a Registry report 0.
func (m *Macroblock) ID() uint16 {
	return m.id
}

// Transparency controls how a Blendblock decides whether it belongs to the transparent sort.
type Transparency uint8

const (
	// TransparencyAuto derives transparency from the blend factors.
	TransparencyAuto Transparency = iota
	// TransparencyForced always sorts back to front.
	TransparencyForced
	// TransparencyForcedOpaque always sorts front to back.
	TransparencyForcedOpaque
)

// Blendblock is the color blend state shared by many materials.
type Blendblock struct {
	id uint16

	SeparateBlend       bool
	SrcBlend            wgpu.BlendFactor
	DstBlend            wgpu.BlendFactor
	SrcBlendAlpha       wgpu.BlendFactor
	DstBlendAlpha       wgpu.BlendFactor
	BlendOperation      wgpu.BlendOperation
	BlendOperationAlpha wgpu.BlendOperation
	WriteMask           wgpu.ColorWriteMask
	AlphaToCoverage     bool
	BlendConstant       [4]float64
	Transparency        Transparency
}

// DefaultBlendblock returns replace (opaque) blending.
func DefaultBlendblock() Blendblock {
	return Blendblock{
		SrcBlend:            wgpu.BlendFactorOne,
		DstBlend:            wgpu.BlendFactorZero,
		SrcBlendAlpha:       wgpu.BlendFactorOne,
		DstBlendAlpha:       wgpu.BlendFactorZero,
		BlendOperation:      wgpu.BlendOperationAdd,
		BlendOperationAlpha: wgpu.BlendOperationAdd,
		WriteMask:           wgpu.ColorWriteMaskAll,
	}
}

// AlphaBlendblock returns classic src-alpha over blending.
func AlphaBlendblock() Blendblock {
	b := DefaultBlendblock()
	b.SrcBlend = wgpu.BlendFactorSrcAlpha
	b.DstBlend = wgpu.BlendFactorOneMinusSrcAlpha
	b.DstBlendAlpha = wgpu.BlendFactorOneMinusSrcAlpha
	return b
}

// ID returns the registry-assigned id. Blocks not obtained from a Registry report 0.
func (b *Blendblock) ID() uint16 {
	return b.id
}

// IsTransparent reports whether geometry using this block must be sorted back to front.
// With TransparencyAuto a block is opaque only when the destination factor is zero and
// the source factor does not read the destination.
func (b *Blendblock) IsTransparent() bool {
	switch b.Transparency {
	case TransparencyForced:
		return true
	case TransparencyForcedOpaque:
		return false
	}
	if blendsDestination(b.SrcBlend, b.DstBlend) {
		return true
	}
	return b.SeparateBlend && blendsDestination(b.SrcBlendAlpha, b.DstBlendAlpha)
}

func blendsDestination(src, dst wgpu.BlendFactor) bool {
	if dst != wgpu.BlendFactorZero {
		return true
	}
	switch src {
	case wgpu.BlendFactorDst, wgpu.BlendFactorOneMinusDst,
		wgpu.BlendFactorDstAlpha, wgpu.BlendFactorOneMinusDstAlpha:
		return true
	}
	return false
}

// BlendState converts the block into a wgpu blend state, or nil for replace blending.
//
// Returns:
//   - *wgpu.BlendState: the blend state to use in a color target
func (b *Blendblock) BlendState() *wgpu.BlendState {
	if !b.IsTransparent() && b.SrcBlend == wgpu.BlendFactorOne {
		return nil
	}
	srcAlpha, dstAlpha, opAlpha := b.SrcBlend, b.DstBlend, b.BlendOperation
	if b.SeparateBlend {
		srcAlpha, dstAlpha, opAlpha = b.SrcBlendAlpha, b.DstBlendAlpha, b.BlendOperationAlpha
	}
	return &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			SrcFactor: b.SrcBlend,
			DstFactor: b.DstBlend,
			Operation: b.BlendOperation,
		},
		Alpha: wgpu.BlendComponent{
			SrcFactor: srcAlpha,
			DstFactor: dstAlpha,
			Operation: opAlpha,
		},
	}
}
