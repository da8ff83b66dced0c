package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// pipelineState is the implementation of the PipelineState interface.
// It pairs a compiled shader variant with the fixed-function blocks it was built for.
type pipelineState struct {
	// shaderHash is the 10-bit shader variant hash that identifies this state in sort keys
	shaderHash uint32
	// label is used for debugging and GPU object labels
	label string

	macroblock *Macroblock
	blendblock *Blendblock
	topology   wgpu.PrimitiveTopology

	// renderPipeline is the compiled GPU object, nil for headless backends
	renderPipeline *wgpu.RenderPipeline
}

// PipelineState is a compiled shader variant together with the macroblock, blendblock and
// topology it was built for. Material systems hand these out through their shader caches and
// the render queue binds them whenever the shader cache changes between renderables.
type PipelineState interface {
	// ShaderHash returns the shader variant hash this state was compiled from.
	//
	// Returns:
	//   - uint32: the shader hash
	ShaderHash() uint32

	// Label returns the debug label.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Macroblock returns the rasterizer and depth state.
	//
	// Returns:
	//   - *Macroblock: the macroblock
	Macroblock() *Macroblock

	// Blendblock returns the blend state.
	//
	// Returns:
	//   - *Blendblock: the blendblock
	Blendblock() *Blendblock

	// Topology returns the primitive topology.
	//
	// Returns:
	//   - wgpu.PrimitiveTopology: the topology
	Topology() wgpu.PrimitiveTopology

	// RenderPipeline returns the compiled GPU pipeline, or nil before compilation or on headless backends.
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the GPU pipeline
	RenderPipeline() *wgpu.RenderPipeline

	// SetRenderPipeline sets the compiled GPU pipeline.
	//
	// Parameters:
	//   - p: the WebGPU render pipeline to set
	SetRenderPipeline(p *wgpu.RenderPipeline)
}

var _ PipelineState = &pipelineState{}

// NewPipelineState creates a pipeline state for a shader variant.
// The macroblock and blendblock default to fresh copies of DefaultMacroblock and DefaultBlendblock
// when not supplied through options.
//
// Parameters:
//   - shaderHash: the shader variant hash
//   - opts: a variadic list of PipelineStateBuilderOption functions to configure the state
//
// Returns:
//   - PipelineState: a new PipelineState
func NewPipelineState(shaderHash uint32, opts ...PipelineStateBuilderOption) PipelineState {
	p := &pipelineState{
		shaderHash: shaderHash,
		topology:   wgpu.PrimitiveTopologyTriangleList,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.macroblock == nil {
		mb := DefaultMacroblock()
		p.macroblock = &mb
	}
	if p.blendblock == nil {
		bb := DefaultBlendblock()
		p.blendblock = &bb
	}
	return p
}

func (p *pipelineState) ShaderHash() uint32 {
	return p.shaderHash
}

func (p *pipelineState) Label() string {
	return p.label
}

func (p *pipelineState) Macroblock() *Macroblock {
	return p.macroblock
}

func (p *pipelineState) Blendblock() *Blendblock {
	return p.blendblock
}

func (p *pipelineState) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipelineState) RenderPipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipelineState) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}
