package material

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/buffer"
)

// DrawPool hands out GPUDrawData records from pooled const buffers. One buffer is mapped at a
// time; when it is full the next one is taken from the free list or created. Buffers used during
// a frame return to the free list on FrameEnded.
type DrawPool struct {
	provider  buffer.Provider
	perBuffer int
	label     string

	free    []buffer.Buffer
	used    []buffer.Buffer
	current buffer.Buffer
	data    []byte
	next    int
}

// NewDrawPool creates a pool whose buffers hold perBuffer records each.
//
// Parameters:
//   - provider: creates the const buffers
//   - perBuffer: records per buffer
//   - label: owner name used in log records and errors
//
// Returns:
//   - *DrawPool: the pool
func NewDrawPool(provider buffer.Provider, perBuffer int, label string) *DrawPool {
	if provider == nil {
		panic("material: NewDrawPool requires a non-nil Provider")
	}
	if perBuffer < 1 {
		panic("material: NewDrawPool requires at least one record per buffer")
	}
	return &DrawPool{provider: provider, perBuffer: perBuffer, label: label}
}

// Next reserves one record.
//
// Returns:
//   - []byte: GPUDrawDataSize bytes to write the record into
//   - uint32: the record index inside the current buffer, used as base instance
//   - bool: true when the record starts a new buffer that must be bound before drawing
//   - error: a wrapped create or map error
func (p *DrawPool) Next() ([]byte, uint32, bool, error) {
	fresh := false
	if p.current == nil || p.next == p.perBuffer {
		if err := p.advance(); err != nil {
			return nil, 0, false, err
		}
		fresh = true
	}
	at := p.next * GPUDrawDataSize
	index := uint32(p.next)
	p.next++
	return p.data[at : at+GPUDrawDataSize], index, fresh, nil
}

// Current returns the buffer the last record was written to, or nil.
func (p *DrawPool) Current() buffer.Buffer {
	return p.current
}

// PerBuffer returns the number of records one buffer holds.
func (p *DrawPool) PerBuffer() int {
	return p.perBuffer
}

// Count returns the number of buffers owned by the pool.
func (p *DrawPool) Count() int {
	return len(p.free) + len(p.used)
}

func (p *DrawPool) advance() error {
	if err := p.Flush(); err != nil {
		return err
	}
	var b buffer.Buffer
	if n := len(p.free); n > 0 {
		b = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		var err error
		b, err = p.provider.CreateConstBuffer(p.perBuffer*GPUDrawDataSize, buffer.UsageDynamic)
		if err != nil {
			return fmt.Errorf("%s: create draw buffer: %w", p.label, err)
		}
		common.Logger().Debug("draw buffer allocated", "owner", p.label, "draws", p.perBuffer, "buffers", len(p.used)+1)
	}
	data, err := b.Map(0, b.Size())
	if err != nil {
		return fmt.Errorf("%s: map draw buffer: %w", p.label, err)
	}
	p.used = append(p.used, b)
	p.current = b
	p.data = data
	p.next = 0
	return nil
}

// Flush unmaps the current buffer. The next record starts a new buffer.
//
// Returns:
//   - error: a wrapped unmap error
func (p *DrawPool) Flush() error {
	if p.current == nil {
		return nil
	}
	err := p.current.Unmap(buffer.UnmapAll)
	p.current = nil
	p.data = nil
	if err != nil {
		return fmt.Errorf("%s: unmap draw buffer: %w", p.label, err)
	}
	return nil
}

// FrameEnded returns every buffer used this frame to the free list.
func (p *DrawPool) FrameEnded() {
	_ = p.Flush()
	p.free = append(p.free, p.used...)
	clear(p.used)
	p.used = p.used[:0]
}

// Destroy releases every buffer of the pool.
//
// Returns:
//   - error: the joined provider errors
func (p *DrawPool) Destroy() error {
	_ = p.Flush()
	var errs []error
	for _, b := range append(p.free, p.used...) {
		if err := p.provider.DestroyBuffer(b); err != nil {
			errs = append(errs, err)
		}
	}
	p.free, p.used = nil, nil
	return errors.Join(errs...)
}
