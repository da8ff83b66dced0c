package pipeline

import (
	"errors"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestBlendblockIsTransparent(t *testing.T) {
	tests := []struct {
		name string
		make func() Blendblock
		want bool
	}{
		{"replace", DefaultBlendblock, false},
		{"alpha", AlphaBlendblock, true},
		{"multiply by destination", func() Blendblock {
			b := DefaultBlendblock()
			b.SrcBlend = wgpu.BlendFactorDst
			return b
		}, true},
		{"forced opaque alpha", func() Blendblock {
			b := AlphaBlendblock()
			b.Transparency = TransparencyForcedOpaque
			return b
		}, false},
		{"forced transparent replace", func() Blendblock {
			b := DefaultBlendblock()
			b.Transparency = TransparencyForced
			return b
		}, true},
		{"separate alpha additive", func() Blendblock {
			b := DefaultBlendblock()
			b.SeparateBlend = true
			b.DstBlendAlpha = wgpu.BlendFactorOne
			return b
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.make()
			if got := b.IsTransparent(); got != tt.want {
				t.Errorf("IsTransparent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegistryInterns(t *testing.T) {
	r := NewRegistry()
	a := r.MustMacroblock(DefaultMacroblock())
	b := r.MustMacroblock(DefaultMacroblock())
	if a != b {
		t.Fatalf("equal macroblocks were not interned")
	}
	if a.ID() == 0 {
		t.Errorf("registered macroblock has id 0")
	}

	noDepth := DefaultMacroblock()
	noDepth.DepthWrite = false
	c := r.MustMacroblock(noDepth)
	if c == a || c.ID() == a.ID() {
		t.Errorf("distinct macroblocks share id %d", c.ID())
	}

	opaque := r.MustBlendblock(DefaultBlendblock())
	alpha := r.MustBlendblock(AlphaBlendblock())
	if opaque.ID() == alpha.ID() {
		t.Errorf("distinct blendblocks share id %d", opaque.ID())
	}
}

func TestRegistryFull(t *testing.T) {
	r := NewRegistry()
	var err error
	for i := range MaxBlocks {
		mb := DefaultMacroblock()
		mb.DepthBias = int32(i)
		if _, err = r.Macroblock(mb); err != nil {
			break
		}
	}
	if !errors.Is(err, ErrRegistryFull) {
		t.Errorf("error = %v, want ErrRegistryFull", err)
	}
}

func TestNewPipelineStateDefaults(t *testing.T) {
	p := NewPipelineState(42, WithLabel("test"))
	if p.ShaderHash() != 42 || p.Label() != "test" {
		t.Errorf("got (%d, %q), want (42, \"test\")", p.ShaderHash(), p.Label())
	}
	if p.Macroblock() == nil || p.Blendblock() == nil {
		t.Fatalf("default blocks not set")
	}
	if p.Topology() != wgpu.PrimitiveTopologyTriangleList {
		t.Errorf("Topology() = %v, want triangle list", p.Topology())
	}
	if p.Blendblock().BlendState() != nil {
		t.Errorf("default blendblock produced a blend state")
	}
}
