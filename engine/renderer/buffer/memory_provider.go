package buffer

import (
	"fmt"
	"sync"
)

// MemoryBuffer is a Buffer backed by host memory. Every Unmap counts as one write.
type MemoryBuffer struct {
	id        uint64
	kind      Kind
	usage     Usage
	data      []byte
	mapped    bool
	destroyed bool
	writes    int
	provider  *MemoryProvider
}

var _ Buffer = &MemoryBuffer{}

func (b *MemoryBuffer) ID() uint64     { return b.id }
func (b *MemoryBuffer) Kind() Kind     { return b.kind }
func (b *MemoryBuffer) Usage() Usage   { return b.usage }
func (b *MemoryBuffer) Size() int      { return len(b.data) }
func (b *MemoryBuffer) IsMapped() bool { return b.mapped }

func (b *MemoryBuffer) Map(offset, size int) ([]byte, error) {
	if b.destroyed {
		return nil, ErrBufferDestroyed
	}
	if b.mapped {
		return nil, ErrBufferMapped
	}
	if err := CheckRange(offset, size, len(b.data)); err != nil {
		return nil, err
	}
	b.mapped = true
	return b.data[offset : offset+size : offset+size], nil
}

func (b *MemoryBuffer) Unmap(opt UnmapOption) error {
	if !b.mapped {
		return ErrBufferNotMapped
	}
	b.mapped = false
	b.writes++
	b.provider.recordWrite()
	return nil
}

// Bytes returns the buffer's full contents. The slice aliases the buffer.
func (b *MemoryBuffer) Bytes() []byte { return b.data }

// Writes returns how many times the buffer was unmapped after a write.
func (b *MemoryBuffer) Writes() int { return b.writes }

// Destroyed reports whether the buffer was released through its provider.
func (b *MemoryBuffer) Destroyed() bool { return b.destroyed }

// MemoryProvider is a headless Provider that keeps every buffer in host memory.
// It is used for CPU-only runs and by tests to observe GPU writes.
type MemoryProvider struct {
	mu        *sync.Mutex
	nextID    uint64
	frame     uint32
	live      map[uint64]*MemoryBuffer
	writes    int
	created   int
	destroyed int
}

var _ Provider = &MemoryProvider{}

// NewMemoryProvider creates an empty in-memory provider at frame 0.
//
// Returns:
//   - *MemoryProvider: the provider
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		mu:   &sync.Mutex{},
		live: make(map[uint64]*MemoryBuffer),
	}
}

func (p *MemoryProvider) create(kind Kind, size int, usage Usage) (Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("buffer: cannot create %s buffer of %d bytes", kind, size)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	b := &MemoryBuffer{
		id:       p.nextID,
		kind:     kind,
		usage:    usage,
		data:     make([]byte, size),
		provider: p,
	}
	p.live[b.id] = b
	p.created++
	return b, nil
}

func (p *MemoryProvider) CreateTexBuffer(size int, usage Usage) (Buffer, error) {
	return p.create(KindTex, size, usage)
}

func (p *MemoryProvider) CreateIndirectBuffer(size int, usage Usage) (Buffer, error) {
	return p.create(KindIndirect, size, usage)
}

func (p *MemoryProvider) CreateConstBuffer(size int, usage Usage) (Buffer, error) {
	return p.create(KindConst, size, usage)
}

func (p *MemoryProvider) DestroyBuffer(b Buffer) error {
	if b == nil {
		return nil
	}
	mb, ok := b.(*MemoryBuffer)
	if !ok {
		return fmt.Errorf("buffer: %T was not created by MemoryProvider", b)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.live[mb.id]; !ok {
		return fmt.Errorf("buffer %d: %w", mb.id, ErrBufferDestroyed)
	}
	delete(p.live, mb.id)
	mb.destroyed = true
	p.destroyed++
	return nil
}

func (p *MemoryProvider) FrameCount() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frame
}

func (p *MemoryProvider) AdvanceFrame() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frame++
}

func (p *MemoryProvider) recordWrite() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes++
}

// Writes returns the total number of buffer writes across all buffers.
func (p *MemoryProvider) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

// LiveBuffers returns the number of buffers created and not yet destroyed.
func (p *MemoryProvider) LiveBuffers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

// Created returns the number of buffers ever created.
func (p *MemoryProvider) Created() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created
}

// DestroyedCount returns the number of buffers released through DestroyBuffer.
func (p *MemoryProvider) DestroyedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}
