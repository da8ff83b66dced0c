package buffer

import (
	"errors"
	"testing"
)

func TestMemoryBufferMapUnmap(t *testing.T) {
	p := NewMemoryProvider()
	b, err := p.CreateTexBuffer(16, UsageDynamic)
	if err != nil {
		t.Fatalf("CreateTexBuffer: %v", err)
	}
	if b.Kind() != KindTex || b.Size() != 16 {
		t.Fatalf("got kind %v size %d, want tex 16", b.Kind(), b.Size())
	}

	dst, err := b.Map(4, 8)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	dst[0] = 0xAB
	if _, err := b.Map(0, 4); !errors.Is(err, ErrBufferMapped) {
		t.Errorf("second Map error = %v, want ErrBufferMapped", err)
	}
	if err := b.Unmap(UnmapAll); err != nil {
		t.Fatalf("Unmap: %v", err)
	}
	if err := b.Unmap(UnmapAll); !errors.Is(err, ErrBufferNotMapped) {
		t.Errorf("second Unmap error = %v, want ErrBufferNotMapped", err)
	}

	mb := b.(*MemoryBuffer)
	if mb.Bytes()[4] != 0xAB {
		t.Errorf("byte 4 = %#x, want 0xab", mb.Bytes()[4])
	}
	if mb.Writes() != 1 || p.Writes() != 1 {
		t.Errorf("writes = %d/%d, want 1/1", mb.Writes(), p.Writes())
	}
}

func TestMemoryBufferOutOfRange(t *testing.T) {
	p := NewMemoryProvider()
	b, _ := p.CreateConstBuffer(8, UsageDefault)
	if _, err := b.Map(4, 8); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Map error = %v, want ErrOutOfRange", err)
	}
}

func TestMemoryProviderDestroy(t *testing.T) {
	p := NewMemoryProvider()
	b, _ := p.CreateIndirectBuffer(20, UsageDefault)
	if got := p.LiveBuffers(); got != 1 {
		t.Fatalf("LiveBuffers = %d, want 1", got)
	}
	if err := p.DestroyBuffer(b); err != nil {
		t.Fatalf("DestroyBuffer: %v", err)
	}
	if err := p.DestroyBuffer(b); !errors.Is(err, ErrBufferDestroyed) {
		t.Errorf("double destroy error = %v, want ErrBufferDestroyed", err)
	}
	if _, err := b.Map(0, 4); !errors.Is(err, ErrBufferDestroyed) {
		t.Errorf("Map after destroy = %v, want ErrBufferDestroyed", err)
	}
	if p.LiveBuffers() != 0 || p.DestroyedCount() != 1 {
		t.Errorf("live/destroyed = %d/%d, want 0/1", p.LiveBuffers(), p.DestroyedCount())
	}
}

func TestMemoryProviderFrames(t *testing.T) {
	p := NewMemoryProvider()
	for range 3 {
		p.AdvanceFrame()
	}
	if got := p.FrameCount(); got != 3 {
		t.Errorf("FrameCount = %d, want 3", got)
	}
}
