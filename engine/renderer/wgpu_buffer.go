package renderer

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/buffer"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuBuffer is a buffer.Buffer backed by a GPU buffer and a CPU shadow copy.
// Map hands out a range of the shadow; Unmap uploads that range through flush.
type wgpuBuffer struct {
	id    uint64
	kind  buffer.Kind
	usage buffer.Usage

	gpu    *wgpu.Buffer
	size   int
	shadow []byte // size rounded up to 4 bytes
	flush  func(gpu *wgpu.Buffer, offset uint64, data []byte)

	mapped    bool
	mapOffset int
	mapSize   int
	destroyed bool
}

var _ buffer.Buffer = &wgpuBuffer{}

func (b *wgpuBuffer) ID() uint64          { return b.id }
func (b *wgpuBuffer) Kind() buffer.Kind   { return b.kind }
func (b *wgpuBuffer) Usage() buffer.Usage { return b.usage }
func (b *wgpuBuffer) Size() int           { return b.size }
func (b *wgpuBuffer) IsMapped() bool      { return b.mapped }

func (b *wgpuBuffer) Map(offset, size int) ([]byte, error) {
	if b.destroyed {
		return nil, buffer.ErrBufferDestroyed
	}
	if b.mapped {
		return nil, buffer.ErrBufferMapped
	}
	if err := buffer.CheckRange(offset, size, b.size); err != nil {
		return nil, err
	}
	b.mapped = true
	b.mapOffset = offset
	b.mapSize = size
	return b.shadow[offset : offset+size : offset+size], nil
}

// Unmap uploads the mapped range. WebGPU has no persistent mappings, so UnmapKeepPersistent
// behaves like UnmapAll.
func (b *wgpuBuffer) Unmap(opt buffer.UnmapOption) error {
	if !b.mapped {
		return buffer.ErrBufferNotMapped
	}
	b.mapped = false
	// queue writes must start and end on 4-byte boundaries
	start := b.mapOffset &^ 3
	end := min(alignUp(b.mapOffset+b.mapSize, 4), len(b.shadow))
	if end > start && b.flush != nil {
		b.flush(b.gpu, uint64(start), b.shadow[start:end])
	}
	return nil
}

// GPUBuffer returns the underlying wgpu buffer.
func (b *wgpuBuffer) GPUBuffer() *wgpu.Buffer {
	return b.gpu
}

func alignUp(v, a int) int {
	return (v + a - 1) / a * a
}

// bufferUsage maps a buffer kind to its wgpu usage flags.
func bufferUsage(kind buffer.Kind) wgpu.BufferUsage {
	switch kind {
	case buffer.KindIndirect:
		return wgpu.BufferUsageIndirect | wgpu.BufferUsageCopyDst
	case buffer.KindConst:
		return wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
	}
	return wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
}
