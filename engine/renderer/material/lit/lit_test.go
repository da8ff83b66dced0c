package lit

import (
	"encoding/binary"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/light_grid"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command_buffer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_queue"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/renderable"
	"github.com/go-gl/mathgl/mgl32"
)

type testRenderable struct {
	db  material.Datablock
	vao *renderable.VertexArrayObject
}

func (r *testRenderable) Datablock(bool) material.Datablock { return r.db }
func (r *testRenderable) Vaos(bool) []*renderable.VertexArrayObject {
	return []*renderable.VertexArrayObject{r.vao}
}
func (r *testRenderable) ShaderHash(casterPass bool) uint32 { return ShaderHash(r.db, casterPass) }
func (r *testRenderable) SubQueue() uint8                   { return 0 }

type testOwner struct {
	world mgl32.Mat4
}

func (o *testOwner) RenderQueueGroup() uint8         { return 0 }
func (o *testOwner) CachedDistanceToCamera() float32 { return 1 }
func (o *testOwner) WorldMatrix() mgl32.Mat4         { return o.world }
func (o *testOwner) VisibilityFlags() uint32         { return 1 }

type staticSource struct {
	lights []light.Light
}

func (s *staticSource) GlobalLights() []light.Light    { return s.lights }
func (s *staticSource) ShadowState() light.ShadowState { return light.ShadowState{} }

type boundBuffer struct {
	slot uint16
	buf  buffer.Buffer
}

type recordingBackend struct {
	types  []command_buffer.CommandType
	consts []boundBuffer
	texs   []boundBuffer
}

func (r *recordingBackend) RequiresIndirect() bool { return true }
func (r *recordingBackend) SetMacroblock(*pipeline.Macroblock) error {
	r.types = append(r.types, command_buffer.CommandSetMacroblock)
	return nil
}
func (r *recordingBackend) SetBlendblock(*pipeline.Blendblock) error {
	r.types = append(r.types, command_buffer.CommandSetBlendblock)
	return nil
}
func (r *recordingBackend) SetPipelineState(pipeline.PipelineState) error {
	r.types = append(r.types, command_buffer.CommandSetPipelineState)
	return nil
}
func (r *recordingBackend) BindVao(*renderable.VertexBinding) error {
	r.types = append(r.types, command_buffer.CommandBindVao)
	return nil
}
func (r *recordingBackend) BindIndirectBuffer(buffer.Buffer) error {
	r.types = append(r.types, command_buffer.CommandBindIndirectBuffer)
	return nil
}
func (r *recordingBackend) BindConstBuffer(slot uint16, b buffer.Buffer, offset, size uint32) error {
	r.consts = append(r.consts, boundBuffer{slot: slot, buf: b})
	r.types = append(r.types, command_buffer.CommandBindConstBuffer)
	return nil
}
func (r *recordingBackend) BindTexBuffer(slot uint16, b buffer.Buffer, offset, size uint32) error {
	r.texs = append(r.texs, boundBuffer{slot: slot, buf: b})
	r.types = append(r.types, command_buffer.CommandBindTexBuffer)
	return nil
}
func (r *recordingBackend) BindTexture(uint16, any) error {
	r.types = append(r.types, command_buffer.CommandBindTexture)
	return nil
}
func (r *recordingBackend) DrawIndexed(*renderable.VertexArrayObject, uint32, uint32) error {
	r.types = append(r.types, command_buffer.CommandDrawIndexed)
	return nil
}
func (r *recordingBackend) DrawStrip(*renderable.VertexArrayObject, uint32, uint32) error {
	r.types = append(r.types, command_buffer.CommandDrawStrip)
	return nil
}
func (r *recordingBackend) StartLegacy() error {
	r.types = append(r.types, command_buffer.CommandStartLegacy)
	return nil
}
func (r *recordingBackend) DrawLegacy(*renderable.VertexArrayObject, command_buffer.LegacyDraw) error {
	r.types = append(r.types, command_buffer.CommandDrawLegacy)
	return nil
}

type fixture struct {
	provider *buffer.MemoryProvider
	registry *pipeline.Registry
	system   Lit
	grid     light_grid.LightGrid
	camera   camera.Camera
	queue    render_queue.RenderQueue
	vao      *renderable.VertexArrayObject
}

func newFixture(t *testing.T, opts ...LitBuilderOption) *fixture {
	t.Helper()
	f := &fixture{
		provider: buffer.NewMemoryProvider(),
		registry: pipeline.NewRegistry(),
		camera:   camera.NewCamera(camera.WithAspect(16.0 / 9.0)),
	}
	src := &staticSource{lights: []light.Light{
		light.NewLight(light.LightTypePoint, light.WithPosition(mgl32.Vec3{0, 0, -10}), light.WithAttenuation(2, 1, 0, 0)),
		light.NewLight(light.LightTypePoint, light.WithPosition(mgl32.Vec3{3, 1, -20}), light.WithAttenuation(3, 1, 0, 0)),
	}}
	f.grid = light_grid.NewLightGrid(f.provider, src,
		light_grid.WithGridSize(16, 9), light_grid.WithSlices(4), light_grid.WithLightsPerCell(8), light_grid.WithDistanceRange(1, 100))
	if err := f.grid.CollectLights(f.camera); err != nil {
		t.Fatalf("CollectLights: %v", err)
	}

	f.system = NewLit(f.provider, opts...)
	f.queue = render_queue.NewRenderQueue(f.provider, render_queue.WithMaterialSystem(material.TypePbs, f.system))
	f.queue.SetPassContext(render_queue.PassContext{Camera: f.camera, LightGrid: f.grid})
	binding := renderable.NewVertexBinding([]any{"vb"}, "ib", renderable.Index32, 1)
	f.vao = renderable.NewVertexArrayObject(binding, 36, 0, 0)
	return f
}

func (f *fixture) datablock() material.Datablock {
	return material.NewDatablock(material.TypePbs,
		material.WithMacroblock(f.registry.MustMacroblock(pipeline.DefaultMacroblock())),
		material.WithBlendblock(f.registry.MustBlendblock(pipeline.DefaultBlendblock())),
		material.WithDiffuseColor(mgl32.Vec4{0.8, 0.6, 0.4, 1}),
	)
}

func (f *fixture) add(n int, casterPass bool) {
	db := f.datablock()
	for i := range n {
		owner := &testOwner{world: mgl32.Translate3D(float32(i), 0, -10)}
		f.queue.AddRenderable(0, 0, casterPass, &testRenderable{db: db, vao: f.vao}, owner, false)
	}
}

func count(types []command_buffer.CommandType, want command_buffer.CommandType) int {
	n := 0
	for _, typ := range types {
		if typ == want {
			n++
		}
	}
	return n
}

func TestLitBindsLightGrid(t *testing.T) {
	f := newFixture(t)
	f.add(3, false)

	backend := &recordingBackend{}
	if err := f.queue.Render(backend, 0, 1, false, false); err != nil {
		t.Fatalf("Render: %v", err)
	}

	want := []command_buffer.CommandType{
		command_buffer.CommandBindIndirectBuffer,
		command_buffer.CommandSetMacroblock,
		command_buffer.CommandSetBlendblock,
		command_buffer.CommandSetPipelineState,
		command_buffer.CommandBindVao,
		command_buffer.CommandBindConstBuffer,
		command_buffer.CommandBindTexBuffer,
		command_buffer.CommandBindTexBuffer,
		command_buffer.CommandBindConstBuffer,
		command_buffer.CommandDrawIndexed,
	}
	if !slices.Equal(backend.types, want) {
		t.Fatalf("got %v, want %v", backend.types, want)
	}

	wantTex := []boundBuffer{
		{slot: 2, buf: f.grid.GridBuffer(f.camera)},
		{slot: 3, buf: f.grid.LightListBuffer(f.camera)},
	}
	if !slices.Equal(backend.texs, wantTex) {
		t.Errorf("got tex binds %+v, want %+v", backend.texs, wantTex)
	}
	if len(backend.consts) != 2 || backend.consts[0].slot != 0 || backend.consts[1].slot != 1 {
		t.Fatalf("got const binds %+v, want slots 0 then 1", backend.consts)
	}

	pass := backend.consts[0].buf.(*buffer.MemoryBuffer).Bytes()
	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(pass[off:]) }
	f32 := func(off int) float32 { return math.Float32frombits(u32(off)) }

	params := f.grid.ShaderParams()
	tests := []struct {
		name string
		got  any
		want any
	}{
		{name: "num lights", got: u32(140), want: uint32(2)},
		{name: "grid width", got: u32(144), want: params.Width},
		{name: "grid height", got: u32(148), want: params.Height},
		{name: "slices", got: u32(152), want: params.NumSlices},
		{name: "lights per cell", got: u32(156), want: params.LightsPerCell},
		{name: "min distance", got: f32(160), want: params.MinDistance},
		{name: "inverse depth range", got: f32(164), want: params.InvDepthRange},
		{name: "ambient", got: f32(176), want: float32(0.05)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	draw := backend.consts[1].buf.(*buffer.MemoryBuffer).Bytes()
	for i := range 3 {
		rec := draw[i*material.GPUDrawDataSize:]
		if got := math.Float32frombits(binary.LittleEndian.Uint32(rec[12*4:])); got != float32(i) {
			t.Errorf("record %d: got translation x %v, want %v", i, got, float32(i))
		}
	}
}

func TestLitBindsGridOncePerFrame(t *testing.T) {
	f := newFixture(t)
	for frame := range 2 {
		f.add(2, false)
		backend := &recordingBackend{}
		if err := f.queue.Render(backend, 0, 1, false, false); err != nil {
			t.Fatalf("frame %d: Render: %v", frame, err)
		}
		if got := count(backend.types, command_buffer.CommandBindTexBuffer); got != 2 {
			t.Errorf("frame %d: got %d tex buffer binds, want 2", frame, got)
		}
		f.queue.Clear()
		f.queue.FrameEnded()
	}
}

func TestLitCasterPassSkipsGrid(t *testing.T) {
	f := newFixture(t)
	f.queue.SetPassContext(render_queue.PassContext{Camera: f.camera})
	f.add(2, true)

	backend := &recordingBackend{}
	if err := f.queue.Render(backend, 0, 1, true, false); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := count(backend.types, command_buffer.CommandBindTexBuffer); got != 0 {
		t.Errorf("got %d tex buffer binds, want 0", got)
	}
	if got := count(backend.types, command_buffer.CommandDrawIndexed); got != 1 {
		t.Errorf("got %d draws, want 1", got)
	}
}

func TestLitRequiresPassContext(t *testing.T) {
	tests := []struct {
		name string
		ctx  func(f *fixture) render_queue.PassContext
	}{
		{name: "no camera", ctx: func(f *fixture) render_queue.PassContext {
			return render_queue.PassContext{LightGrid: f.grid}
		}},
		{name: "no light grid", ctx: func(f *fixture) render_queue.PassContext {
			return render_queue.PassContext{Camera: f.camera}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.queue.SetPassContext(tt.ctx(f))
			f.add(1, false)

			backend := &recordingBackend{}
			if err := f.queue.Render(backend, 0, 1, false, false); err == nil {
				t.Fatal("got nil error, want pass context error")
			}
			if len(backend.types) != 0 {
				t.Errorf("got %v, want nothing executed", backend.types)
			}
		})
	}
}

func TestLitDestroyReleasesBuffers(t *testing.T) {
	f := newFixture(t, WithDrawsPerBuffer(2))
	f.add(5, false)
	if err := f.queue.Render(&recordingBackend{}, 0, 1, false, false); err != nil {
		t.Fatalf("Render: %v", err)
	}
	f.queue.Clear()
	f.queue.FrameEnded()

	if got := f.system.DrawBufferCount(); got != 3 {
		t.Errorf("got %d draw buffers, want 3", got)
	}
	for _, destroy := range []func() error{f.system.Destroy, f.queue.Destroy, f.grid.Destroy} {
		if err := destroy(); err != nil {
			t.Fatalf("Destroy: %v", err)
		}
	}
	if got := f.provider.LiveBuffers(); got != 0 {
		t.Errorf("got %d live buffers, want 0", got)
	}
}

func TestNewLitPanics(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{name: "nil provider", fn: func() { NewLit(nil) }},
		{name: "no draws", fn: func() { NewLit(buffer.NewMemoryProvider(), WithDrawsPerBuffer(0)) }},
		{name: "bad type", fn: func() { NewLit(buffer.NewMemoryProvider(), WithMaterialType(material.NumTypes)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("got no panic, want one")
				}
			}()
			tt.fn()
		})
	}
}

func TestShaderSource(t *testing.T) {
	f := newFixture(t, WithDrawsPerBuffer(64))

	lit, err := f.system.ShaderSource(material.ShaderHash(material.TypePbs, 0))
	if err != nil {
		t.Fatalf("ShaderSource: %v", err)
	}
	wantKinds := []renderer.BindingKind{renderer.BindingConst, renderer.BindingConst, renderer.BindingTex, renderer.BindingTex}
	if !slices.Equal(lit.BindGroupKinds, wantKinds) {
		t.Errorf("lit kinds: got %v, want %v", lit.BindGroupKinds, wantKinds)
	}
	for _, want := range []string{
		"array<DrawData, 64>",
		"@group(2) @binding(0) var<storage, read> grid: array<u32>",
		"@group(3) @binding(0) var<storage, read> lights: array<Light>",
		"fn cell_base(view_z: f32, uv: vec2<f32>) -> u32",
		"let count = grid_entry(base)",
	} {
		if !strings.Contains(lit.Code, want) {
			t.Errorf("lit source misses %q", want)
		}
	}
	if lit.VertexBuffers[0].ArrayStride != VertexStride {
		t.Errorf("got stride %d, want %d", lit.VertexBuffers[0].ArrayStride, VertexStride)
	}

	caster, err := f.system.ShaderSource(material.ShaderHash(material.TypePbs, VariantCaster))
	if err != nil {
		t.Fatalf("ShaderSource: %v", err)
	}
	if want := []renderer.BindingKind{renderer.BindingConst, renderer.BindingConst}; !slices.Equal(caster.BindGroupKinds, want) {
		t.Errorf("caster kinds: got %v, want %v", caster.BindGroupKinds, want)
	}
	if strings.Contains(caster.Code, "var<storage") {
		t.Errorf("caster source declares storage buffers:\n%s", caster.Code)
	}

	if _, err := f.system.ShaderSource(material.ShaderHash(material.TypeUnlit, 0)); err == nil {
		t.Error("got nil error for an unlit shader hash")
	}
}
