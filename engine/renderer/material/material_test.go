package material

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
)

func TestShaderHashCarriesType(t *testing.T) {
	for typ := range NumTypes {
		for _, variant := range []uint32{0, 1, MaxVariants - 1, MaxVariants + 3} {
			h := ShaderHash(typ, variant)
			if h >= 1<<ShaderHashBits {
				t.Fatalf("ShaderHash(%v, %d) = %d exceeds %d bits", typ, variant, h, ShaderHashBits)
			}
			if got := TypeOfShaderHash(h); got != typ {
				t.Errorf("TypeOfShaderHash(ShaderHash(%v, %d)) = %v", typ, variant, got)
			}
		}
	}
}

func TestNewDatablockCasterDefaults(t *testing.T) {
	r := pipeline.NewRegistry()
	mb := r.MustMacroblock(pipeline.DefaultMacroblock())
	bb := r.MustBlendblock(pipeline.AlphaBlendblock())

	d := NewDatablock(TypeUnlit, WithName("glass"), WithMacroblock(mb), WithBlendblock(bb), WithTexture("tex", 9))
	if d.Macroblock(true) != mb || d.Blendblock(true) != bb {
		t.Errorf("caster blocks did not default to regular blocks")
	}
	if d.Type() != TypeUnlit || d.TextureHash() != 9 || d.Texture() != "tex" {
		t.Errorf("got (%v, %d, %v), want (unlit, 9, tex)", d.Type(), d.TextureHash(), d.Texture())
	}
}

func TestNewDatablockPanicsWithoutBlocks(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("NewDatablock without blocks did not panic")
		}
	}()
	NewDatablock(TypePbs)
}
