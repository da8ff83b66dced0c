package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineStateBuilderOption is a functional option used to configure a PipelineState during construction.
type PipelineStateBuilderOption func(*pipelineState)

// WithLabel sets the debug label.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - PipelineStateBuilderOption: a function that sets the label
func WithLabel(label string) PipelineStateBuilderOption {
	return func(p *pipelineState) {
		p.label = label
	}
}

// WithMacroblock sets the rasterizer and depth state.
//
// Parameters:
//   - mb: the macroblock, normally obtained from a Registry
//
// Returns:
//   - PipelineStateBuilderOption: a function that sets the macroblock
func WithMacroblock(mb *Macroblock) PipelineStateBuilderOption {
	return func(p *pipelineState) {
		p.macroblock = mb
	}
}

// WithBlendblock sets the blend state.
//
// Parameters:
//   - bb: the blendblock, normally obtained from a Registry
//
// Returns:
//   - PipelineStateBuilderOption: a function that sets the blendblock
func WithBlendblock(bb *Blendblock) PipelineStateBuilderOption {
	return func(p *pipelineState) {
		p.blendblock = bb
	}
}

// WithTopology sets the primitive topology.
//
// Parameters:
//   - topology: the primitive topology (e.g., wgpu.PrimitiveTopologyTriangleList)
//
// Returns:
//   - PipelineStateBuilderOption: a function that sets the topology
func WithTopology(topology wgpu.PrimitiveTopology) PipelineStateBuilderOption {
	return func(p *pipelineState) {
		p.topology = topology
	}
}

// WithRenderPipeline attaches an already compiled GPU pipeline.
//
// Parameters:
//   - rp: the WebGPU render pipeline
//
// Returns:
//   - PipelineStateBuilderOption: a function that sets the render pipeline
func WithRenderPipeline(rp *wgpu.RenderPipeline) PipelineStateBuilderOption {
	return func(p *pipelineState) {
		p.renderPipeline = rp
	}
}
