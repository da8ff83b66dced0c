package sort_key

import (
	"math/rand/v2"
	"testing"
)

func TestOpaqueKeysFollowDepth(t *testing.T) {
	base := Attributes{SubQueue: 2, Macroblock: 5, Shader: 130, Mesh: 900, Texture: 77}
	rng := rand.New(rand.NewPCG(1, 2))
	for range 1000 {
		d1 := rng.Float32() * 1000
		d2 := rng.Float32() * 1000
		if d1 >= d2 {
			continue
		}
		a, b := base, base
		a.Depth, b.Depth = d1, d2
		if ka, kb := Encode(a), Encode(b); ka > kb {
			t.Fatalf("opaque key(%v) = %#x > key(%v) = %#x", d1, ka, d2, kb)
		}
	}
}

func TestTransparentKeysInvertDepth(t *testing.T) {
	base := Attributes{SubQueue: 1, Transparent: true, Macroblock: 3, Shader: 9, Mesh: 12}
	rng := rand.New(rand.NewPCG(3, 4))
	for range 1000 {
		d1 := rng.Float32() * 1000
		d2 := rng.Float32() * 1000
		if d1 >= d2 {
			continue
		}
		a, b := base, base
		a.Depth, b.Depth = d1, d2
		if ka, kb := Encode(a), Encode(b); ka < kb {
			t.Fatalf("transparent key(%v) = %#x < key(%v) = %#x", d1, ka, d2, kb)
		}
	}
}

func TestSubQueueDominates(t *testing.T) {
	low := Encode(Attributes{
		SubQueue: 0, Transparent: true, Macroblock: 1023, Shader: 1023,
		Mesh: 1<<14 - 1, Texture: 2047, Depth: -1e30,
	})
	high := Encode(Attributes{SubQueue: 1, Depth: 0})
	if low >= high {
		t.Errorf("sub queue 0 key %#x >= sub queue 1 key %#x", low, high)
	}

	opaque := Encode(Attributes{SubQueue: 4, Macroblock: 1023, Shader: 1023, Mesh: 1<<14 - 1, Texture: 2047, Depth: 1e30})
	transparent := Encode(Attributes{SubQueue: 4, Transparent: true, Depth: 1e30})
	if opaque >= transparent {
		t.Errorf("opaque key %#x >= transparent key %#x in same sub queue", opaque, transparent)
	}
}

func TestQuantizeDepthMonotonic(t *testing.T) {
	values := []float32{-1e30, -1000, -1, -0.5, 0, 0.5, 1, 1000, 1e30}
	for i := 1; i < len(values); i++ {
		lo, hi := QuantizeDepth(values[i-1]), QuantizeDepth(values[i])
		if lo > hi {
			t.Errorf("QuantizeDepth(%v) = %d > QuantizeDepth(%v) = %d", values[i-1], lo, values[i], hi)
		}
		if hi > 0x7FFF {
			t.Errorf("QuantizeDepth(%v) = %d exceeds 15 bits", values[i], hi)
		}
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   Attributes
		want Fields
	}{
		{
			name: "opaque",
			in:   Attributes{SubQueue: 5, Macroblock: 17, Shader: 300, Mesh: 4000, Texture: 1500, Depth: 12.5},
			want: Fields{SubQueue: 5, Macroblock: 17, Shader: 300, Mesh: 4000, Texture: 1500, Depth: uint16(QuantizeDepth(12.5))},
		},
		{
			name: "transparent drops texture",
			in:   Attributes{SubQueue: 7, Transparent: true, Macroblock: 2, Shader: 1000, Mesh: 16000, Texture: 99, Depth: 3},
			want: Fields{SubQueue: 7, Transparent: true, Macroblock: 2, Shader: 1000, Mesh: 16000, Depth: uint16(^QuantizeDepth(3) & 0x7FFF)},
		},
		{
			name: "wide ids truncate",
			in:   Attributes{Macroblock: 1024 + 6, Shader: 1024 + 8, Mesh: 1<<14 + 2},
			want: Fields{Macroblock: 6, Shader: 8, Mesh: 2, Depth: uint16(QuantizeDepth(0))},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decode(Encode(tt.in)); got != tt.want {
				t.Errorf("Decode(Encode(%+v)) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTransparentReservedBitsZero(t *testing.T) {
	key := Encode(Attributes{Transparent: true, Macroblock: 1023, Shader: 1023, Mesh: 1<<14 - 1, Texture: 2047, Depth: 5})
	const reserved = uint64(1<<11-1) << 49
	if key&reserved != 0 {
		t.Errorf("bits 49..59 = %#x, want 0", key&reserved)
	}
}
