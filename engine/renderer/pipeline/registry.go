package pipeline

import (
	"errors"
	"fmt"
	"sync"
)

// MaxBlocks is the number of distinct macroblocks or blendblocks a Registry can hold.
// Block ids occupy 10 bits of the render sort key.
const MaxBlocks = 1 << 10

// ErrRegistryFull is returned when a registry has handed out MaxBlocks ids of one kind.
var ErrRegistryFull = errors.New("pipeline: block registry full")

// Registry interns Macroblocks and Blendblocks so that equal state shares one pointer and one id.
// Id 0 is never assigned so that unregistered blocks are distinguishable.
type Registry struct {
	mu          *sync.Mutex
	macroblocks map[Macroblock]*Macroblock
	blendblocks map[Blendblock]*Blendblock
}

// NewRegistry creates an empty registry.
//
// Returns:
//   - *Registry: the registry
func NewRegistry() *Registry {
	return &Registry{
		mu:          &sync.Mutex{},
		macroblocks: make(map[Macroblock]*Macroblock),
		blendblocks: make(map[Blendblock]*Blendblock),
	}
}

// Macroblock returns the interned block equal to desc, registering it on first use.
//
// Parameters:
//   - desc: the wanted state; its id is ignored
//
// Returns:
//   - *Macroblock: the shared block
//   - error: ErrRegistryFull when no id is left
func (r *Registry) Macroblock(desc Macroblock) (*Macroblock, error) {
	desc.id = 0
	r.mu.Lock()
	defer r.mu.Unlock()
	if mb, ok := r.macroblocks[desc]; ok {
		return mb, nil
	}
	if len(r.macroblocks)+1 >= MaxBlocks {
		return nil, fmt.Errorf("macroblock: %w", ErrRegistryFull)
	}
	mb := desc
	mb.id = uint16(len(r.macroblocks) + 1)
	r.macroblocks[desc] = &mb
	return &mb, nil
}

// Blendblock returns the interned block equal to desc, registering it on first use.
//
// Parameters:
//   - desc: the wanted state; its id is ignored
//
// Returns:
//   - *Blendblock: the shared block
//   - error: ErrRegistryFull when no id is left
func (r *Registry) Blendblock(desc Blendblock) (*Blendblock, error) {
	desc.id = 0
	r.mu.Lock()
	defer r.mu.Unlock()
	if bb, ok := r.blendblocks[desc]; ok {
		return bb, nil
	}
	if len(r.blendblocks)+1 >= MaxBlocks {
		return nil, fmt.Errorf("blendblock: %w", ErrRegistryFull)
	}
	bb := desc
	bb.id = uint16(len(r.blendblocks) + 1)
	r.blendblocks[desc] = &bb
	return &bb, nil
}

// MustMacroblock is Macroblock that panics when the registry is full.
func (r *Registry) MustMacroblock(desc Macroblock) *Macroblock {
	mb, err := r.Macroblock(desc)
	if err != nil {
		panic(err)
	}
	return mb
}

// MustBlendblock is Blendblock that panics when the registry is full.
func (r *Registry) MustBlendblock(desc Blendblock) *Blendblock {
	bb, err := r.Blendblock(desc)
	if err != nil {
		panic(err)
	}
	return bb
}
