package unlit

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/cogentcore/webgpu/wgpu"
)

// VertexStride is the byte size of one unlit vertex: position vec3 followed by uv vec2.
const VertexStride = 20

const shaderTemplate = `struct Camera {
    view_proj: mat4x4<f32>,
    position: vec3<f32>,
}

struct DrawData {
    world: mat4x4<f32>,
    diffuse: vec4<f32>,
}

@group(%[1]d) @binding(0) var<uniform> camera: Camera;
@group(%[2]d) @binding(0) var<uniform> draws: array<DrawData, %[3]d>;
%[4]s
struct VertexOut {
    @builtin(position) clip: vec4<f32>,
    @location(0) uv: vec2<f32>,
    @location(1) @interpolate(flat) draw: u32,
}

@vertex
fn vs_main(@location(0) position: vec3<f32>, @location(1) uv: vec2<f32>, @builtin(instance_index) instance: u32) -> VertexOut {
    var out: VertexOut;
    let d = draws[instance];
    out.clip = camera.view_proj * d.world * vec4<f32>(position, 1.0);
    out.uv = uv;
    out.draw = instance;
    return out;
}

@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
    var color = draws[in.draw].diffuse;
%[5]s    return color;
}
`

const textureDecl = `@group(%[1]d) @binding(0) var diffuse_map: texture_2d<f32>;
@group(%[1]d) @binding(1) var diffuse_sampler: sampler;
`

const textureSample = "    color = color * textureSample(diffuse_map, diffuse_sampler, in.uv);\n"

// WGSL returns the unlit shader source for a variant.
//
// Parameters:
//   - variant: the VariantTextured / VariantCaster bits
//   - passSlot: bind group of the camera block
//   - drawSlot: bind group of the draw data array
//   - textureSlot: bind group of the diffuse texture
//   - drawsPerBuffer: length of the draw data array
//
// Returns:
//   - string: the WGSL program
func WGSL(variant uint32, passSlot, drawSlot, textureSlot uint16, drawsPerBuffer int) string {
	var decl, sample string
	if variant&VariantTextured != 0 {
		decl = fmt.Sprintf(textureDecl, textureSlot)
		sample = textureSample
	}
	return fmt.Sprintf(shaderTemplate, passSlot, drawSlot, drawsPerBuffer, decl, sample)
}

// vertexLayout is position then uv, tightly packed in one buffer.
var vertexLayout = wgpu.VertexBufferLayout{
	ArrayStride: VertexStride,
	StepMode:    wgpu.VertexStepModeVertex,
	Attributes: []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
	},
}

func (u *unlitSystem) ShaderSource(shaderHash uint32) (renderer.ShaderSource, error) {
	if t := material.TypeOfShaderHash(shaderHash); t != material.TypeUnlit {
		return renderer.ShaderSource{}, fmt.Errorf("unlit: shader hash %#x belongs to %s", shaderHash, t)
	}
	variant := shaderHash & (material.MaxVariants - 1)

	kinds := make([]renderer.BindingKind, max(u.passSlot, u.drawSlot, u.textureSlot)+1)
	if variant&VariantTextured != 0 {
		kinds[u.textureSlot] = renderer.BindingTexture
	} else {
		kinds = kinds[:max(u.passSlot, u.drawSlot)+1]
	}

	var label strings.Builder
	label.WriteString("unlit")
	if variant&VariantTextured != 0 {
		label.WriteString(" textured")
	}
	if variant&VariantCaster != 0 {
		label.WriteString(" caster")
	}
	return renderer.ShaderSource{
		Label:          label.String(),
		Code:           WGSL(variant, u.passSlot, u.drawSlot, u.textureSlot, u.drawsPerBuffer),
		VertexEntry:    "vs_main",
		FragmentEntry:  "fs_main",
		VertexBuffers:  []wgpu.VertexBufferLayout{vertexLayout},
		BindGroupKinds: kinds,
	}, nil
}
