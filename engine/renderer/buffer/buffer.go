// Package buffer defines the GPU buffer contract used by the light grid, the render queue and the material systems.
package buffer

import (
	"errors"
)

var (
	// ErrBufferMapped is returned when mapping a buffer that is already mapped.
	ErrBufferMapped = errors.New("buffer: buffer is already mapped")
	// ErrBufferNotMapped is returned when unmapping a buffer that is not mapped.
	ErrBufferNotMapped = errors.New("buffer: buffer is not mapped")
	// ErrOutOfRange is returned when a mapped range exceeds the buffer size.
	ErrOutOfRange = errors.New("buffer: range out of bounds")
	// ErrBufferDestroyed is returned when using a buffer after DestroyBuffer.
	ErrBufferDestroyed = errors.New("buffer: buffer was destroyed")
)

// Kind identifies what a buffer is bound as.
type Kind uint8

const (
	// KindTex is a read-only storage buffer sampled by shaders (light grid, light list).
	KindTex Kind = iota
	// KindIndirect holds draw argument records consumed by indirect draws.
	KindIndirect
	// KindConst is a uniform buffer.
	KindConst
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindTex:
		return "tex"
	case KindIndirect:
		return "indirect"
	case KindConst:
		return "const"
	}
	return "unknown"
}

// Usage is a hint about how often the CPU rewrites the buffer.
type Usage uint8

const (
	// UsageDefault buffers are written rarely.
	UsageDefault Usage = iota
	// UsageDynamic buffers are rewritten every frame.
	UsageDynamic
	// UsageDynamicPersistent buffers are rewritten every frame and may stay mapped between writes.
	UsageDynamicPersistent
)

// UnmapOption controls what Unmap does with a persistent mapping.
type UnmapOption uint8

const (
	// UnmapAll flushes the mapped range and releases the mapping.
	UnmapAll UnmapOption = iota
	// UnmapKeepPersistent flushes the mapped range but keeps a persistent mapping alive.
	UnmapKeepPersistent
)

// Buffer is a GPU buffer whose contents are written through Map/Unmap.
type Buffer interface {
	// ID returns a provider-unique id.
	ID() uint64

	// Kind returns what the buffer is bound as.
	Kind() Kind

	// Usage returns the usage hint given at creation.
	Usage() Usage

	// Size returns the capacity in bytes.
	Size() int

	// Map exposes [offset, offset+size) for writing. The slice stays valid until Unmap.
	//
	// Parameters:
	//   - offset: first byte of the range
	//   - size: length of the range
	//
	// Returns:
	//   - []byte: the writable range
	//   - error: ErrBufferMapped, ErrOutOfRange or ErrBufferDestroyed
	Map(offset, size int) ([]byte, error)

	// Unmap flushes the mapped range to the GPU.
	//
	// Parameters:
	//   - opt: whether a persistent mapping is kept
	//
	// Returns:
	//   - error: ErrBufferNotMapped if nothing is mapped
	Unmap(opt UnmapOption) error

	// IsMapped reports whether a range is currently mapped.
	IsMapped() bool
}

// Provider creates and destroys buffers and supplies the frame counter.
type Provider interface {
	// CreateTexBuffer creates a storage buffer of size bytes.
	CreateTexBuffer(size int, usage Usage) (Buffer, error)

	// CreateIndirectBuffer creates a draw argument buffer of size bytes.
	CreateIndirectBuffer(size int, usage Usage) (Buffer, error)

	// CreateConstBuffer creates a uniform buffer of size bytes.
	CreateConstBuffer(size int, usage Usage) (Buffer, error)

	// DestroyBuffer releases b. Destroying a nil buffer is a no-op.
	DestroyBuffer(b Buffer) error

	// FrameCount returns the number of frames completed so far.
	FrameCount() uint32

	// AdvanceFrame marks the end of the current frame.
	AdvanceFrame()
}

// CheckRange validates a map request against a buffer of the given size.
//
// Parameters:
//   - offset: first byte of the range
//   - size: length of the range
//   - capacity: buffer size in bytes
//
// Returns:
//   - error: ErrOutOfRange wrapped with the offending values, or nil
func CheckRange(offset, size, capacity int) error {
	if offset < 0 || size < 0 || offset+size > capacity {
		return rangeError{offset: offset, size: size, capacity: capacity}
	}
	return nil
}
