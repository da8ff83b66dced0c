package render_queue

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command_buffer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/renderable"
	"github.com/go-gl/mathgl/mgl32"
)

type fakeRenderable struct {
	db       material.Datablock
	vao      *renderable.VertexArrayObject
	hash     uint32
	subQueue uint8
}

func (r *fakeRenderable) Datablock(bool) material.Datablock { return r.db }
func (r *fakeRenderable) Vaos(bool) []*renderable.VertexArrayObject {
	return []*renderable.VertexArrayObject{r.vao}
}
func (r *fakeRenderable) ShaderHash(bool) uint32 { return r.hash }
func (r *fakeRenderable) SubQueue() uint8        { return r.subQueue }

type fakeOwner struct {
	group    uint8
	distance float32
}

func (o *fakeOwner) RenderQueueGroup() uint8         { return o.group }
func (o *fakeOwner) CachedDistanceToCamera() float32 { return o.distance }
func (o *fakeOwner) WorldMatrix() mgl32.Mat4         { return mgl32.Ident4() }
func (o *fakeOwner) VisibilityFlags() uint32         { return 1 }

// fakeMaterialSystem hands out one shader cache per shader hash and sequential base instances.
// With bindEvery > 0 it records a const buffer bind before every bindEvery-th renderable.
type fakeMaterialSystem struct {
	typ       material.Type
	caches    map[uint32]*material.ShaderCache
	bindEvery int

	prepared    int
	filled      int
	preExec     int
	postExec    int
	framesEnded int
}

func newFakeMaterialSystem(t material.Type) *fakeMaterialSystem {
	return &fakeMaterialSystem{typ: t, caches: make(map[uint32]*material.ShaderCache)}
}

func (m *fakeMaterialSystem) Type() material.Type { return m.typ }

func (m *fakeMaterialSystem) PreparePassHash(ctx PassContext, casterPass, dualParaboloid bool) (material.PassCache, error) {
	m.prepared++
	return material.PassCache{Hash: 1, Type: m.typ, CasterPass: casterPass}, nil
}

func (m *fakeMaterialSystem) GetMaterial(last *material.ShaderCache, pass material.PassCache, qr *renderable.QueuedRenderable, casterPass bool) (*material.ShaderCache, error) {
	hash := qr.Renderable.ShaderHash(casterPass)
	if last != nil && last.Hash == hash {
		return last, nil
	}
	c, ok := m.caches[hash]
	if !ok {
		c = &material.ShaderCache{Hash: hash, Type: m.typ, PipelineState: pipeline.NewPipelineState(hash)}
		m.caches[hash] = c
	}
	return c, nil
}

func (m *fakeMaterialSystem) FillBuffersFor(req FillRequest, cb *command_buffer.CommandBuffer) (uint32, error) {
	if m.bindEvery > 0 && m.filled%m.bindEvery == 0 {
		cb.Add(command_buffer.BindConstBuffer(2, nil, 0, 64))
	}
	base := uint32(m.filled)
	m.filled++
	return base, nil
}

func (m *fakeMaterialSystem) PreCommandBufferExecution(*command_buffer.CommandBuffer) error {
	m.preExec++
	return nil
}

func (m *fakeMaterialSystem) PostCommandBufferExecution(*command_buffer.CommandBuffer) {
	m.postExec++
}

func (m *fakeMaterialSystem) FrameEnded() {
	m.framesEnded++
	m.filled = 0
}

// executed is one command as seen by recordingBackend. Indirect draws carry the decoded records.
type executed struct {
	typ      command_buffer.CommandType
	numDraws uint32
	indexed  []command_buffer.DrawIndexedIndirect
	legacy   command_buffer.LegacyDraw
}

type recordingBackend struct {
	indirectOnly bool
	indirect     buffer.Buffer
	calls        []executed
}

func (r *recordingBackend) add(t command_buffer.CommandType) error {
	r.calls = append(r.calls, executed{typ: t})
	return nil
}

func (r *recordingBackend) types() []command_buffer.CommandType {
	out := make([]command_buffer.CommandType, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.typ
	}
	return out
}

func (r *recordingBackend) RequiresIndirect() bool { return r.indirectOnly }
func (r *recordingBackend) SetMacroblock(*pipeline.Macroblock) error {
	return r.add(command_buffer.CommandSetMacroblock)
}
func (r *recordingBackend) SetBlendblock(*pipeline.Blendblock) error {
	return r.add(command_buffer.CommandSetBlendblock)
}
func (r *recordingBackend) SetPipelineState(pipeline.PipelineState) error {
	return r.add(command_buffer.CommandSetPipelineState)
}
func (r *recordingBackend) BindVao(*renderable.VertexBinding) error {
	return r.add(command_buffer.CommandBindVao)
}
func (r *recordingBackend) BindIndirectBuffer(b buffer.Buffer) error {
	r.indirect = b
	return r.add(command_buffer.CommandBindIndirectBuffer)
}
func (r *recordingBackend) BindConstBuffer(uint16, buffer.Buffer, uint32, uint32) error {
	return r.add(command_buffer.CommandBindConstBuffer)
}
func (r *recordingBackend) BindTexBuffer(uint16, buffer.Buffer, uint32, uint32) error {
	return r.add(command_buffer.CommandBindTexBuffer)
}
func (r *recordingBackend) BindTexture(uint16, any) error {
	return r.add(command_buffer.CommandBindTexture)
}
func (r *recordingBackend) DrawIndexed(vao *renderable.VertexArrayObject, offset, numDraws uint32) error {
	data := r.indirect.(*buffer.MemoryBuffer).Bytes()
	e := executed{typ: command_buffer.CommandDrawIndexed, numDraws: numDraws}
	for i := range numDraws {
		at := offset + i*command_buffer.RecordStride
		e.indexed = append(e.indexed, command_buffer.ReadDrawIndexedIndirect(data[at:]))
	}
	r.calls = append(r.calls, e)
	return nil
}
func (r *recordingBackend) DrawStrip(vao *renderable.VertexArrayObject, offset, numDraws uint32) error {
	r.calls = append(r.calls, executed{typ: command_buffer.CommandDrawStrip, numDraws: numDraws})
	return nil
}
func (r *recordingBackend) StartLegacy() error { return r.add(command_buffer.CommandStartLegacy) }
func (r *recordingBackend) DrawLegacy(vao *renderable.VertexArrayObject, d command_buffer.LegacyDraw) error {
	r.calls = append(r.calls, executed{typ: command_buffer.CommandDrawLegacy, legacy: d})
	return nil
}

// fixture bundles the shared state blocks and a queue wired to a fake unlit system.
type fixture struct {
	registry *pipeline.Registry
	provider *buffer.MemoryProvider
	system   *fakeMaterialSystem
	queue    RenderQueue
	binding  *renderable.VertexBinding
	opaque   material.Datablock
}

func newFixture(opts ...RenderQueueBuilderOption) *fixture {
	f := &fixture{
		registry: pipeline.NewRegistry(),
		provider: buffer.NewMemoryProvider(),
		system:   newFakeMaterialSystem(material.TypeUnlit),
	}
	opts = append([]RenderQueueBuilderOption{WithMaterialSystem(material.TypeUnlit, f.system)}, opts...)
	f.queue = NewRenderQueue(f.provider, opts...)
	f.binding = renderable.NewVertexBinding([]any{"vb"}, "ib", renderable.Index32, 1)
	f.opaque = f.datablock(pipeline.DefaultBlendblock(), 0)
	return f
}

func (f *fixture) datablock(blend pipeline.Blendblock, texture uint16) material.Datablock {
	return material.NewDatablock(material.TypeUnlit,
		material.WithMacroblock(f.registry.MustMacroblock(pipeline.DefaultMacroblock())),
		material.WithBlendblock(f.registry.MustBlendblock(blend)),
		material.WithTexture(nil, texture),
	)
}

func (f *fixture) renderableWith(db material.Datablock, vao *renderable.VertexArrayObject) *fakeRenderable {
	return &fakeRenderable{db: db, vao: vao, hash: material.ShaderHash(material.TypeUnlit, 1)}
}
