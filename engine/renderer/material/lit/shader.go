package lit

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/cogentcore/webgpu/wgpu"
)

// VertexStride is the byte size of one lit vertex: position vec3, normal vec3, uv vec2.
const VertexStride = 32

const shaderHeader = `struct Pass {
    view_proj: mat4x4<f32>,
    view: mat4x4<f32>,
    position: vec3<f32>,
    num_lights: u32,
    grid: vec4<u32>,   // width, height, num_slices, lights_per_cell
    depth: vec4<f32>,  // min_distance, inv_depth_range
    ambient: vec4<f32>,
}

struct DrawData {
    world: mat4x4<f32>,
    diffuse: vec4<f32>,
}

@group(%[1]d) @binding(0) var<uniform> lit_pass: Pass;
@group(%[2]d) @binding(0) var<uniform> draws: array<DrawData, %[3]d>;

struct VertexOut {
    @builtin(position) clip: vec4<f32>,
    @location(0) view_pos: vec3<f32>,
    @location(1) view_normal: vec3<f32>,
    @location(2) ndc: vec4<f32>,
    @location(3) @interpolate(flat) draw: u32,
}

@vertex
fn vs_main(@location(0) position: vec3<f32>, @location(1) normal: vec3<f32>, @location(2) uv: vec2<f32>, @builtin(instance_index) instance: u32) -> VertexOut {
    var out: VertexOut;
    let d = draws[instance];
    let world = d.world * vec4<f32>(position, 1.0);
    out.clip = lit_pass.view_proj * world;
    out.view_pos = (lit_pass.view * world).xyz;
    out.view_normal = (lit_pass.view * d.world * vec4<f32>(normal, 0.0)).xyz;
    out.ndc = out.clip;
    out.draw = instance;
    return out;
}
`

const casterFragment = `
@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
    return draws[in.draw].diffuse;
}
`

// lightingFragment reads the cell table as packed 16-bit entries: slot 0 of a cell is its light
// count, the following slots index the light list.
const lightingFragment = `
struct Light {
    position: vec3<f32>,
    kind: f32,
    diffuse: vec4<f32>,
    specular: vec4<f32>,
    attenuation: vec4<f32>,    // range, linear, quadratic, 1 / range
    spot_direction: vec4<f32>,
    spot: vec4<f32>,           // 1 / (cos inner - cos outer), cos outer, falloff
}

@group(%[1]d) @binding(0) var<storage, read> grid: array<u32>;
@group(%[2]d) @binding(0) var<storage, read> lights: array<Light>;

const LIGHT_SPOT: f32 = 2.0;

fn grid_entry(i: u32) -> u32 {
    return (grid[i >> 1u] >> ((i & 1u) * 16u)) & 0xffffu;
}

fn cell_base(view_z: f32, uv: vec2<f32>) -> u32 {
    let slices = lit_pass.grid.z;
    let f = saturate((-view_z - lit_pass.depth.x) * lit_pass.depth.y);
    let slice = min(u32(floor(f * f32(slices - 1u))), slices - 1u);
    let res = lit_pass.grid.xy << vec2<u32>(slice);
    let cell = min(vec2<u32>(floor(saturate(uv) * vec2<f32>(res))), res - vec2<u32>(1u));
    let table = lit_pass.grid.x * lit_pass.grid.y * lit_pass.grid.w;
    let slice_offset = ((1u << (2u * slice)) - 1u) / 3u * table;
    return slice_offset + (cell.y * res.x + cell.x) * lit_pass.grid.w;
}

@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
    let ndc = in.ndc.xy / in.ndc.w;
    let uv = vec2<f32>(ndc.x * 0.5 + 0.5, 0.5 - ndc.y * 0.5);
    let base = cell_base(in.view_pos.z, uv);
    let count = grid_entry(base);
    let n = normalize(in.view_normal);

    var light_sum = lit_pass.ambient.rgb;
    for (var i = 1u; i <= count; i = i + 1u) {
        let l = lights[grid_entry(base + i)];
        let to_light = l.position - in.view_pos;
        let dist = length(to_light);
        if (dist >= l.attenuation.x) {
            continue;
        }
        let dir = to_light / max(dist, 1e-4);
        var atten = 1.0 / (1.0 + l.attenuation.y * dist + l.attenuation.z * dist * dist);
        if (l.kind == LIGHT_SPOT) {
            let cos_angle = dot(-dir, normalize(l.spot_direction.xyz));
            atten = atten * pow(saturate((cos_angle - l.spot.y) * l.spot.x), l.spot.z);
        }
        light_sum = light_sum + l.diffuse.rgb * max(dot(n, dir), 0.0) * atten;
    }

    let base_color = draws[in.draw].diffuse;
    return vec4<f32>(base_color.rgb * light_sum, base_color.a);
}
`

// WGSL returns the lit shader source for a variant.
//
// Parameters:
//   - variant: the VariantCaster bit
//   - passSlot: bind group of the pass block
//   - drawSlot: bind group of the draw data array
//   - gridSlot: bind group of the cell table
//   - lightListSlot: bind group of the light list
//   - drawsPerBuffer: length of the draw data array
//
// Returns:
//   - string: the WGSL program
func WGSL(variant uint32, passSlot, drawSlot, gridSlot, lightListSlot uint16, drawsPerBuffer int) string {
	header := fmt.Sprintf(shaderHeader, passSlot, drawSlot, drawsPerBuffer)
	if variant&VariantCaster != 0 {
		return header + casterFragment
	}
	return header + fmt.Sprintf(lightingFragment, gridSlot, lightListSlot)
}

var vertexLayout = wgpu.VertexBufferLayout{
	ArrayStride: VertexStride,
	StepMode:    wgpu.VertexStepModeVertex,
	Attributes: []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
		{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
	},
}

func (l *litSystem) ShaderSource(shaderHash uint32) (renderer.ShaderSource, error) {
	if t := material.TypeOfShaderHash(shaderHash); t != l.materialType {
		return renderer.ShaderSource{}, fmt.Errorf("lit: shader hash %#x belongs to %s", shaderHash, t)
	}
	variant := shaderHash & (material.MaxVariants - 1)

	label := "lit"
	var kinds []renderer.BindingKind
	if variant&VariantCaster != 0 {
		label = "lit caster"
		kinds = make([]renderer.BindingKind, max(l.passSlot, l.drawSlot)+1)
	} else {
		kinds = make([]renderer.BindingKind, max(l.passSlot, l.drawSlot, l.gridSlot, l.lightListSlot)+1)
		kinds[l.gridSlot] = renderer.BindingTex
		kinds[l.lightListSlot] = renderer.BindingTex
	}
	kinds[l.passSlot] = renderer.BindingConst
	kinds[l.drawSlot] = renderer.BindingConst

	return renderer.ShaderSource{
		Label:          label,
		Code:           WGSL(variant, l.passSlot, l.drawSlot, l.gridSlot, l.lightListSlot, l.drawsPerBuffer),
		VertexEntry:    "vs_main",
		FragmentEntry:  "fs_main",
		VertexBuffers:  []wgpu.VertexBufferLayout{vertexLayout},
		BindGroupKinds: kinds,
	}, nil
}
