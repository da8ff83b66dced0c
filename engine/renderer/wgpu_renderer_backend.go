package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command_buffer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/renderable"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrNoPass is returned by command methods called outside BeginPass/EndPass.
	ErrNoPass = errors.New("renderer: no render pass is open")
	// ErrNoIndirectBuffer is returned by indirect draws issued before BindIndirectBuffer.
	ErrNoIndirectBuffer = errors.New("renderer: no indirect buffer is bound")
	// ErrForeignBuffer is returned when a buffer created by another provider is bound.
	ErrForeignBuffer = errors.New("renderer: buffer was not created by this backend")
)

// bindGroupKey identifies a cached single-resource bind group.
type bindGroupKey struct {
	kind     BindingKind
	resource any
	offset   uint32
	size     uint32
}

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	colorFormat wgpu.TextureFormat
	depthFormat wgpu.TextureFormat
	sampleCount MSAASampleCount
	resolver    ShaderResolver

	nextID  uint64
	frame   uint32
	buffers map[uint64]*wgpuBuffer

	layouts    [numBindingKinds]*wgpu.BindGroupLayout
	sampler    *wgpu.Sampler
	bindGroups map[bindGroupKey]*wgpu.BindGroup
	pipelines  map[pipeline.PipelineState]*wgpu.RenderPipeline
	pipeLayout []*wgpu.PipelineLayout
	meshes     []*wgpu.Buffer

	// Pass state, reset by BeginPass
	pass       *wgpu.RenderPassEncoder
	indirect   *wgpuBuffer
	binding    *renderable.VertexBinding
	macroblock *pipeline.Macroblock
	blendblock *pipeline.Blendblock
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

// NewWGPUBackend creates a backend that allocates buffers on device and records commands into
// the pass given to BeginPass.
//
// Parameters:
//   - device: the wgpu device to create buffers, bind groups and pipelines on
//   - queue: the device queue buffer uploads are written to
//   - opts: a variadic list of WGPUBackendBuilderOption functions to configure the backend
//
// Returns:
//   - WGPUBackend: the backend
func NewWGPUBackend(device *wgpu.Device, queue *wgpu.Queue, opts ...WGPUBackendBuilderOption) WGPUBackend {
	if device == nil || queue == nil {
		panic("renderer: NewWGPUBackend requires a non-nil device and queue")
	}
	b := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		device:      device,
		queue:       queue,
		colorFormat: wgpu.TextureFormatBGRA8Unorm,
		depthFormat: wgpu.TextureFormatDepth24Plus,
		sampleCount: MSAAOff,
		buffers:     make(map[uint64]*wgpuBuffer),
		bindGroups:  make(map[bindGroupKey]*wgpu.BindGroup),
		pipelines:   make(map[pipeline.PipelineState]*wgpu.RenderPipeline),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *wgpuRendererBackendImpl) CreateTexBuffer(size int, usage buffer.Usage) (buffer.Buffer, error) {
	return b.createBuffer(buffer.KindTex, size, usage)
}

func (b *wgpuRendererBackendImpl) CreateIndirectBuffer(size int, usage buffer.Usage) (buffer.Buffer, error) {
	return b.createBuffer(buffer.KindIndirect, size, usage)
}

func (b *wgpuRendererBackendImpl) CreateConstBuffer(size int, usage buffer.Usage) (buffer.Buffer, error) {
	return b.createBuffer(buffer.KindConst, size, usage)
}

func (b *wgpuRendererBackendImpl) createBuffer(kind buffer.Kind, size int, usage buffer.Usage) (buffer.Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("renderer: create %s buffer of %d bytes: %w", kind, size, buffer.ErrOutOfRange)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	padded := alignUp(size, 4)
	b.nextID++
	gpu, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: fmt.Sprintf("%s buffer %d", kind, b.nextID),
		Size:  uint64(padded),
		Usage: bufferUsage(kind),
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: create %s buffer of %d bytes: %w", kind, size, err)
	}

	buf := &wgpuBuffer{
		id:     b.nextID,
		kind:   kind,
		usage:  usage,
		gpu:    gpu,
		size:   size,
		shadow: make([]byte, padded),
		flush:  b.writeBuffer,
	}
	b.buffers[buf.id] = buf
	common.Logger().Debug("gpu buffer created", "kind", kind.String(), "size", size, "id", buf.id)
	return buf, nil
}

func (b *wgpuRendererBackendImpl) InitMesh(label string, vertexData, indexData []byte, indexType renderable.IndexType, layoutHash uint32) (*renderable.VertexBinding, error) {
	if len(vertexData) == 0 {
		return nil, fmt.Errorf("renderer: mesh %q has no vertex data", label)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	vb, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Vertex Buffer",
		Size:  uint64(alignUp(len(vertexData), 4)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: mesh %q vertex buffer: %w", label, err)
	}
	b.queue.WriteBuffer(vb, 0, padTo4(vertexData))
	b.meshes = append(b.meshes, vb)

	var index any
	if len(indexData) == 0 {
		indexType = renderable.IndexNone
	} else {
		ib, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: label + " Index Buffer",
			Size:  uint64(alignUp(len(indexData), 4)),
			Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("renderer: mesh %q index buffer: %w", label, err)
		}
		b.queue.WriteBuffer(ib, 0, padTo4(indexData))
		b.meshes = append(b.meshes, ib)
		index = ib
	}

	common.Logger().Debug("mesh uploaded", "label", label, "vertex_bytes", len(vertexData), "index_bytes", len(indexData))
	return renderable.NewVertexBinding([]any{vb}, index, indexType, layoutHash), nil
}

// padTo4 returns data extended with zeros to a multiple of 4 bytes, as queue writes require.
func padTo4(data []byte) []byte {
	if n := alignUp(len(data), 4); n != len(data) {
		padded := make([]byte, n)
		copy(padded, data)
		return padded
	}
	return data
}

func (b *wgpuRendererBackendImpl) writeBuffer(gpu *wgpu.Buffer, offset uint64, data []byte) {
	b.queue.WriteBuffer(gpu, offset, data)
}

func (b *wgpuRendererBackendImpl) DestroyBuffer(buf buffer.Buffer) error {
	if buf == nil {
		return nil
	}
	wb, ok := buf.(*wgpuBuffer)
	if !ok {
		return ErrForeignBuffer
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if wb.destroyed {
		return buffer.ErrBufferDestroyed
	}
	wb.destroyed = true
	delete(b.buffers, wb.id)
	for key, bg := range b.bindGroups {
		if key.resource == wb {
			bg.Release()
			delete(b.bindGroups, key)
		}
	}
	wb.gpu.Destroy()
	wb.gpu.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) FrameCount() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frame
}

func (b *wgpuRendererBackendImpl) AdvanceFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frame++
}

func (b *wgpuRendererBackendImpl) BeginPass(pass *wgpu.RenderPassEncoder) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pass = pass
	b.indirect = nil
	b.binding = nil
	b.macroblock = nil
	b.blendblock = nil
}

func (b *wgpuRendererBackendImpl) EndPass() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pass = nil
}

func (b *wgpuRendererBackendImpl) RequiresIndirect() bool {
	return true
}

// SetMacroblock applies the dynamic part of the block. Depth and raster state are baked into
// the pipeline compiled for each PipelineState.
func (b *wgpuRendererBackendImpl) SetMacroblock(mb *pipeline.Macroblock) error {
	if b.pass == nil {
		return ErrNoPass
	}
	b.macroblock = mb
	b.pass.SetStencilReference(mb.StencilReference)
	return nil
}

func (b *wgpuRendererBackendImpl) SetBlendblock(bb *pipeline.Blendblock) error {
	if b.pass == nil {
		return ErrNoPass
	}
	b.blendblock = bb
	b.pass.SetBlendConstant(&wgpu.Color{
		R: bb.BlendConstant[0],
		G: bb.BlendConstant[1],
		B: bb.BlendConstant[2],
		A: bb.BlendConstant[3],
	})
	return nil
}

func (b *wgpuRendererBackendImpl) SetPipelineState(pso pipeline.PipelineState) error {
	if b.pass == nil {
		return ErrNoPass
	}
	rp := pso.RenderPipeline()
	if rp == nil {
		var err error
		if rp, err = b.compile(pso); err != nil {
			return err
		}
	}
	b.pass.SetPipeline(rp)
	return nil
}

func (b *wgpuRendererBackendImpl) BindVao(binding *renderable.VertexBinding) error {
	if b.pass == nil {
		return ErrNoPass
	}
	for i, vb := range binding.VertexBuffers {
		buf, ok := vb.(*wgpu.Buffer)
		if !ok {
			return fmt.Errorf("renderer: vertex buffer %d of binding %d is %T, want *wgpu.Buffer", i, binding.ID(), vb)
		}
		b.pass.SetVertexBuffer(uint32(i), buf, 0, wgpu.WholeSize)
	}
	if binding.IndexBuffer != nil {
		buf, ok := binding.IndexBuffer.(*wgpu.Buffer)
		if !ok {
			return fmt.Errorf("renderer: index buffer of binding %d is %T, want *wgpu.Buffer", binding.ID(), binding.IndexBuffer)
		}
		b.pass.SetIndexBuffer(buf, binding.IndexFormat(), 0, wgpu.WholeSize)
	}
	b.binding = binding
	return nil
}

func (b *wgpuRendererBackendImpl) BindIndirectBuffer(buf buffer.Buffer) error {
	wb, ok := buf.(*wgpuBuffer)
	if !ok {
		return ErrForeignBuffer
	}
	b.indirect = wb
	return nil
}

func (b *wgpuRendererBackendImpl) BindConstBuffer(slot uint16, buf buffer.Buffer, offset, size uint32) error {
	return b.bindBuffer(BindingConst, slot, buf, offset, size)
}

func (b *wgpuRendererBackendImpl) BindTexBuffer(slot uint16, buf buffer.Buffer, offset, size uint32) error {
	return b.bindBuffer(BindingTex, slot, buf, offset, size)
}

func (b *wgpuRendererBackendImpl) bindBuffer(kind BindingKind, slot uint16, buf buffer.Buffer, offset, size uint32) error {
	if b.pass == nil {
		return ErrNoPass
	}
	wb, ok := buf.(*wgpuBuffer)
	if !ok {
		return ErrForeignBuffer
	}
	bg, err := b.bindGroup(bindGroupKey{kind: kind, resource: wb, offset: offset, size: size})
	if err != nil {
		return err
	}
	b.pass.SetBindGroup(uint32(slot), bg, nil)
	return nil
}

func (b *wgpuRendererBackendImpl) BindTexture(slot uint16, texture any) error {
	if b.pass == nil {
		return ErrNoPass
	}
	view, ok := texture.(*wgpu.TextureView)
	if !ok {
		return fmt.Errorf("renderer: texture for slot %d is %T, want *wgpu.TextureView", slot, texture)
	}
	bg, err := b.bindGroup(bindGroupKey{kind: BindingTexture, resource: view})
	if err != nil {
		return err
	}
	b.pass.SetBindGroup(uint32(slot), bg, nil)
	return nil
}

// DrawIndexed replays numDraws records. WebGPU has no multi-draw, so each record is its own
// indirect draw.
func (b *wgpuRendererBackendImpl) DrawIndexed(vao *renderable.VertexArrayObject, offset, numDraws uint32) error {
	if b.pass == nil {
		return ErrNoPass
	}
	if b.indirect == nil {
		return ErrNoIndirectBuffer
	}
	for i := range numDraws {
		b.pass.DrawIndexedIndirect(b.indirect.gpu, uint64(offset)+uint64(i)*command_buffer.RecordStride)
	}
	return nil
}

func (b *wgpuRendererBackendImpl) DrawStrip(vao *renderable.VertexArrayObject, offset, numDraws uint32) error {
	if b.pass == nil {
		return ErrNoPass
	}
	if b.indirect == nil {
		return ErrNoIndirectBuffer
	}
	for i := range numDraws {
		b.pass.DrawIndirect(b.indirect.gpu, uint64(offset)+uint64(i)*command_buffer.RecordStride)
	}
	return nil
}

func (b *wgpuRendererBackendImpl) StartLegacy() error {
	if b.pass == nil {
		return ErrNoPass
	}
	return nil
}

func (b *wgpuRendererBackendImpl) DrawLegacy(vao *renderable.VertexArrayObject, d command_buffer.LegacyDraw) error {
	if b.pass == nil {
		return ErrNoPass
	}
	if vao.Indexed() {
		b.pass.DrawIndexed(d.Count, d.InstanceCount, d.First, d.BaseVertex, d.BaseInstance)
		return nil
	}
	b.pass.Draw(d.Count, d.InstanceCount, d.First, d.BaseInstance)
	return nil
}

func (b *wgpuRendererBackendImpl) PipelineCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pipelines)
}

func (b *wgpuRendererBackendImpl) Destroy() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, bg := range b.bindGroups {
		bg.Release()
		delete(b.bindGroups, key)
	}
	for id, buf := range b.buffers {
		buf.destroyed = true
		buf.gpu.Destroy()
		buf.gpu.Release()
		delete(b.buffers, id)
	}
	for pso, rp := range b.pipelines {
		pso.SetRenderPipeline(nil)
		rp.Release()
		delete(b.pipelines, pso)
	}
	for _, pl := range b.pipeLayout {
		pl.Release()
	}
	b.pipeLayout = nil
	for _, m := range b.meshes {
		m.Destroy()
		m.Release()
	}
	b.meshes = nil
	for i, l := range b.layouts {
		if l != nil {
			l.Release()
			b.layouts[i] = nil
		}
	}
	if b.sampler != nil {
		b.sampler.Release()
		b.sampler = nil
	}
	return nil
}

// bindGroup returns the cached bind group for key, creating it and its layout on first use.
func (b *wgpuRendererBackendImpl) bindGroup(key bindGroupKey) (*wgpu.BindGroup, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if bg, ok := b.bindGroups[key]; ok {
		return bg, nil
	}
	layout, err := b.layout(key.kind)
	if err != nil {
		return nil, err
	}

	var entries []wgpu.BindGroupEntry
	switch key.kind {
	case BindingTexture:
		if b.sampler == nil {
			b.sampler, err = b.device.CreateSampler(&wgpu.SamplerDescriptor{
				Label:         "Default Sampler",
				AddressModeU:  wgpu.AddressModeRepeat,
				AddressModeV:  wgpu.AddressModeRepeat,
				AddressModeW:  wgpu.AddressModeRepeat,
				MagFilter:     wgpu.FilterModeLinear,
				MinFilter:     wgpu.FilterModeLinear,
				MipmapFilter:  wgpu.MipmapFilterModeLinear,
				MaxAnisotropy: 1,
			})
			if err != nil {
				return nil, fmt.Errorf("renderer: create sampler: %w", err)
			}
		}
		entries = []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: key.resource.(*wgpu.TextureView)},
			{Binding: 1, Sampler: b.sampler},
		}
	default:
		buf := key.resource.(*wgpuBuffer)
		size := uint64(key.size)
		if size == 0 {
			size = wgpu.WholeSize
		}
		entries = []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: buf.gpu, Offset: uint64(key.offset), Size: size},
		}
	}

	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   key.kind.String() + " Bind Group",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: create %s bind group: %w", key.kind, err)
	}
	b.bindGroups[key] = bg
	return bg, nil
}

// layout returns the shared bind group layout of a binding kind. Callers hold b.mu.
func (b *wgpuRendererBackendImpl) layout(kind BindingKind) (*wgpu.BindGroupLayout, error) {
	if l := b.layouts[kind]; l != nil {
		return l, nil
	}
	l, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   kind.String() + " Bind Group Layout",
		Entries: layoutEntries(kind),
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: create %s bind group layout: %w", kind, err)
	}
	b.layouts[kind] = l
	return l, nil
}

// layoutEntries returns the bind group layout entries of a binding kind.
func layoutEntries(kind BindingKind) []wgpu.BindGroupLayoutEntry {
	switch kind {
	case BindingTexture:
		tex := wgpu.BindGroupLayoutEntry{Binding: 0, Visibility: wgpu.ShaderStageFragment}
		tex.Texture.SampleType = wgpu.TextureSampleTypeFloat
		tex.Texture.ViewDimension = wgpu.TextureViewDimension2D
		samp := wgpu.BindGroupLayoutEntry{Binding: 1, Visibility: wgpu.ShaderStageFragment}
		samp.Sampler.Type = wgpu.SamplerBindingTypeFiltering
		return []wgpu.BindGroupLayoutEntry{tex, samp}
	case BindingTex:
		e := wgpu.BindGroupLayoutEntry{Binding: 0, Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment}
		e.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		return []wgpu.BindGroupLayoutEntry{e}
	}
	e := wgpu.BindGroupLayoutEntry{Binding: 0, Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment}
	e.Buffer.Type = wgpu.BufferBindingTypeUniform
	return []wgpu.BindGroupLayoutEntry{e}
}

// compile builds the render pipeline of pso from the resolver's source and stores it on pso.
func (b *wgpuRendererBackendImpl) compile(pso pipeline.PipelineState) (*wgpu.RenderPipeline, error) {
	if b.resolver == nil {
		return nil, fmt.Errorf("renderer: pipeline %q is not compiled and no shader resolver is set", pso.Label())
	}
	src, err := b.resolver(pso.ShaderHash())
	if err != nil {
		return nil, fmt.Errorf("renderer: resolve shader %#x: %w", pso.ShaderHash(), err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: src.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: src.Code,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: create shader module %q: %w", src.Label, err)
	}
	defer module.Release()

	groupLayouts := make([]*wgpu.BindGroupLayout, len(src.BindGroupKinds))
	for i, kind := range src.BindGroupKinds {
		if groupLayouts[i], err = b.layout(kind); err != nil {
			return nil, err
		}
	}
	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            pso.Label(),
		BindGroupLayouts: groupLayouts,
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: create pipeline layout %q: %w", pso.Label(), err)
	}
	b.pipeLayout = append(b.pipeLayout, pipelineLayout)

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  pso.Label() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: src.VertexEntry,
			Buffers:    src.VertexBuffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: src.FragmentEntry,
			Targets:    []wgpu.ColorTargetState{colorTargetState(b.colorFormat, pso.Blendblock())},
		},
		Primitive: primitiveState(pso),
		Multisample: wgpu.MultisampleState{
			Count:                  uint32(b.sampleCount),
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: pso.Blendblock() != nil && pso.Blendblock().AlphaToCoverage,
		},
		DepthStencil: depthStencilState(b.depthFormat, pso.Macroblock()),
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: create render pipeline %q: %w", pso.Label(), err)
	}

	pso.SetRenderPipeline(created)
	b.pipelines[pso] = created
	common.Logger().Debug("render pipeline compiled", "label", pso.Label(), "shader", pso.ShaderHash())
	return created, nil
}

// primitiveState converts the topology and raster fields of a pipeline state.
func primitiveState(pso pipeline.PipelineState) wgpu.PrimitiveState {
	state := wgpu.PrimitiveState{
		Topology:  pso.Topology(),
		FrontFace: wgpu.FrontFaceCCW,
		CullMode:  wgpu.CullModeBack,
	}
	if mb := pso.Macroblock(); mb != nil {
		state.FrontFace = mb.FrontFace
		state.CullMode = mb.CullMode
	}
	if state.Topology == wgpu.PrimitiveTopologyTriangleStrip || state.Topology == wgpu.PrimitiveTopologyLineStrip {
		state.StripIndexFormat = wgpu.IndexFormatUint32
	}
	return state
}

// depthStencilState converts a macroblock into depth state. A disabled depth check compares
// with Always so the depth buffer can still be written.
func depthStencilState(format wgpu.TextureFormat, mb *pipeline.Macroblock) *wgpu.DepthStencilState {
	if mb == nil {
		def := pipeline.DefaultMacroblock()
		mb = &def
	}
	compare := mb.DepthFunc
	if !mb.DepthCheck {
		compare = wgpu.CompareFunctionAlways
	}
	return &wgpu.DepthStencilState{
		Format:              format,
		DepthWriteEnabled:   mb.DepthWrite,
		DepthCompare:        compare,
		DepthBias:           mb.DepthBias,
		DepthBiasSlopeScale: mb.DepthBiasSlopeScale,
		StencilFront: wgpu.StencilFaceState{
			Compare: wgpu.CompareFunctionAlways,
		},
		StencilBack: wgpu.StencilFaceState{
			Compare: wgpu.CompareFunctionAlways,
		},
	}
}

// colorTargetState converts a blendblock into the single color target of a pipeline.
func colorTargetState(format wgpu.TextureFormat, bb *pipeline.Blendblock) wgpu.ColorTargetState {
	if bb == nil {
		def := pipeline.DefaultBlendblock()
		bb = &def
	}
	return wgpu.ColorTargetState{
		Format:    format,
		Blend:     bb.BlendState(),
		WriteMask: bb.WriteMask,
	}
}
