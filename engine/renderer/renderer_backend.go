package renderer

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command_buffer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/renderable"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only specific power-of-two values are valid for GPU hardware. WebGPU guarantees support for
// 1 (off) and 4; higher values are adapter-dependent.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1). This is the default.
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing.
	MSAA4x MSAASampleCount = 4
)

// BindingKind is what a bind group slot holds. Every slot is its own bind group with the
// resource at binding 0, and textures additionally carry a sampler at binding 1.
type BindingKind uint8

const (
	// BindingConst is a uniform buffer bound with BindConstBuffer.
	BindingConst BindingKind = iota
	// BindingTex is a read-only storage buffer bound with BindTexBuffer.
	BindingTex
	// BindingTexture is a 2D float texture plus filtering sampler bound with BindTexture.
	BindingTexture

	numBindingKinds
)

// String returns the lowercase name of the binding kind.
func (k BindingKind) String() string {
	switch k {
	case BindingConst:
		return "const"
	case BindingTex:
		return "tex"
	case BindingTexture:
		return "texture"
	}
	return "unknown"
}

// ShaderSource is the WGSL program and interface a pipeline state is compiled from.
type ShaderSource struct {
	Label          string
	Code           string
	VertexEntry    string
	FragmentEntry  string
	VertexBuffers  []wgpu.VertexBufferLayout
	BindGroupKinds []BindingKind // indexed by slot
}

// ShaderResolver returns the source for a shader hash.
type ShaderResolver func(shaderHash uint32) (ShaderSource, error)

// RendererBackend is the top-level backend interface for the Renderer.
// It embeds the concrete backend interface for the selected GPU API.
type RendererBackend interface {
	WGPUBackend
}

// WGPUBackend creates GPU buffers for the core and executes command buffers into a render pass.
type WGPUBackend interface {
	buffer.Provider
	command_buffer.Backend

	// BeginPass directs subsequent commands into pass. State bound on a previous pass is forgotten.
	//
	// Parameters:
	//   - pass: the open render pass encoder
	BeginPass(pass *wgpu.RenderPassEncoder)

	// EndPass detaches the current pass. Commands issued afterwards fail.
	EndPass()

	// InitMesh uploads vertex and index data into new GPU buffers and returns the binding that
	// draws from them. The buffers live until Destroy.
	//
	// Parameters:
	//   - label: debug label of the buffers
	//   - vertexData: interleaved vertex bytes
	//   - indexData: index bytes, empty for non-indexed geometry
	//   - indexType: the index width, ignored without index data
	//   - layoutHash: identifies the vertex layout for sort keys
	//
	// Returns:
	//   - *renderable.VertexBinding: the binding
	//   - error: an error if the buffers could not be created
	InitMesh(label string, vertexData, indexData []byte, indexType renderable.IndexType, layoutHash uint32) (*renderable.VertexBinding, error)

	// PipelineCount returns the number of render pipelines compiled so far.
	//
	// Returns:
	//   - int: the compiled pipeline count
	PipelineCount() int

	// Destroy releases every buffer, bind group and pipeline the backend created.
	//
	// Returns:
	//   - error: the joined release errors, if any
	Destroy() error
}
