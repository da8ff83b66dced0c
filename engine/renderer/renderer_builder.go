package renderer

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithTargetSize sets the size of the offscreen render targets.
//
// Parameters:
//   - width: the target width in pixels
//   - height: the target height in pixels
//
// Returns:
//   - RendererBuilderOption: a function that applies the size option to a renderer
func WithTargetSize(width, height int) RendererBuilderOption {
	return func(r *renderer) {
		r.width = width
		r.height = height
	}
}

// WithClearColor sets the color the target is cleared to at the start of each frame.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color option to a renderer
func WithClearColor(c wgpu.Color) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = c
	}
}

// WithMSAA sets the multisample anti-aliasing sample count for the renderer.
// When not specified, the default is MSAAOff.
//
// Parameters:
//   - count: the MSAASampleCount to use
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.sampleCount = count
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithRendererShaders sets the shader resolver handed to the renderer's backend.
//
// Parameters:
//   - resolver: returns the WGSL source of a shader hash
//
// Returns:
//   - RendererBuilderOption: a function that applies the resolver option to a renderer
func WithRendererShaders(resolver ShaderResolver) RendererBuilderOption {
	return func(r *renderer) {
		r.resolver = resolver
	}
}

// WGPUBackendBuilderOption is a functional option applied to a backend during construction via NewWGPUBackend.
type WGPUBackendBuilderOption func(*wgpuRendererBackendImpl)

// WithShaderResolver sets the resolver used to compile pipeline states that arrive without a
// render pipeline.
//
// Parameters:
//   - resolver: returns the WGSL source of a shader hash
//
// Returns:
//   - WGPUBackendBuilderOption: a function that applies the resolver option to a backend
func WithShaderResolver(resolver ShaderResolver) WGPUBackendBuilderOption {
	return func(b *wgpuRendererBackendImpl) {
		b.resolver = resolver
	}
}

// WithColorFormat sets the color target format compiled pipelines render to.
func WithColorFormat(format wgpu.TextureFormat) WGPUBackendBuilderOption {
	return func(b *wgpuRendererBackendImpl) {
		b.colorFormat = format
	}
}

// WithSampleCount sets the multisample count compiled pipelines render with.
func WithSampleCount(count MSAASampleCount) WGPUBackendBuilderOption {
	return func(b *wgpuRendererBackendImpl) {
		b.sampleCount = count
	}
}
