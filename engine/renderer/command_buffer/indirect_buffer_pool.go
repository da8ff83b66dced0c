package command_buffer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/buffer"
)

// IndirectBufferPool recycles indirect buffers across frames.
// A buffer claimed with Get stays in use until FrameEnded and is never handed out twice in one frame.
type IndirectBufferPool struct {
	provider buffer.Provider
	free     []buffer.Buffer
	used     []buffer.Buffer
}

// NewIndirectBufferPool creates an empty pool allocating through provider.
//
// Parameters:
//   - provider: creates and destroys the buffers
//
// Returns:
//   - *IndirectBufferPool: the pool
func NewIndirectBufferPool(provider buffer.Provider) *IndirectBufferPool {
	if provider == nil {
		panic("command_buffer: NewIndirectBufferPool requires a non-nil Provider")
	}
	return &IndirectBufferPool{provider: provider}
}

// Get claims a buffer able to hold numDraws records. The smallest free buffer that fits is reused;
// otherwise a buffer of exactly numDraws records is created.
//
// Parameters:
//   - numDraws: the number of records needed
//
// Returns:
//   - buffer.Buffer: the claimed buffer
//   - error: a wrapped provider error
func (p *IndirectBufferPool) Get(numDraws int) (buffer.Buffer, error) {
	if numDraws <= 0 {
		panic("command_buffer: IndirectBufferPool.Get requires numDraws > 0")
	}
	need := numDraws * RecordStride

	best := -1
	for i, b := range p.free {
		if b.Size() >= need && (best < 0 || b.Size() < p.free[best].Size()) {
			best = i
		}
	}
	if best >= 0 {
		b := p.free[best]
		p.free = append(p.free[:best], p.free[best+1:]...)
		p.used = append(p.used, b)
		return b, nil
	}

	b, err := p.provider.CreateIndirectBuffer(need, buffer.UsageDynamic)
	if err != nil {
		return nil, fmt.Errorf("command_buffer: create indirect buffer for %d draws: %w", numDraws, err)
	}
	common.Logger().Debug("indirect buffer allocated", "draws", numDraws, "bytes", need, "pooled", len(p.free)+len(p.used)+1)
	p.used = append(p.used, b)
	return b, nil
}

// FrameEnded returns every buffer claimed this frame to the free list.
func (p *IndirectBufferPool) FrameEnded() {
	p.free = append(p.free, p.used...)
	clear(p.used)
	p.used = p.used[:0]
}

// FreeCount returns the number of buffers available for reuse.
func (p *IndirectBufferPool) FreeCount() int { return len(p.free) }

// UsedCount returns the number of buffers claimed this frame.
func (p *IndirectBufferPool) UsedCount() int { return len(p.used) }

// Destroy releases every pooled buffer.
//
// Returns:
//   - error: all provider errors joined
func (p *IndirectBufferPool) Destroy() error {
	var errs []error
	for _, b := range append(p.free, p.used...) {
		if err := p.provider.DestroyBuffer(b); err != nil {
			errs = append(errs, err)
		}
	}
	p.free, p.used = nil, nil
	return errors.Join(errs...)
}
