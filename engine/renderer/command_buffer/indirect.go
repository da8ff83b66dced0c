package command_buffer

import (
	"encoding/binary"
)

const (
	// DrawIndexedIndirectSize is the byte size of an indexed indirect record.
	DrawIndexedIndirectSize = 20
	// DrawIndirectSize is the byte size of a non-indexed indirect record.
	DrawIndirectSize = 16
	// RecordStride is the spacing of records in an indirect buffer. Both layouts use it.
	RecordStride = DrawIndexedIndirectSize
)

// DrawIndexedIndirect matches the GPU layout of indexed indirect draw arguments.
type DrawIndexedIndirect struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	BaseInstance  uint32
}

// MarshalInto writes the record into dst, which must hold at least DrawIndexedIndirectSize bytes.
func (d *DrawIndexedIndirect) MarshalInto(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:], d.IndexCount)
	binary.LittleEndian.PutUint32(dst[4:], d.InstanceCount)
	binary.LittleEndian.PutUint32(dst[8:], d.FirstIndex)
	binary.LittleEndian.PutUint32(dst[12:], uint32(d.BaseVertex))
	binary.LittleEndian.PutUint32(dst[16:], d.BaseInstance)
}

// ReadDrawIndexedIndirect decodes a record written by MarshalInto.
func ReadDrawIndexedIndirect(src []byte) DrawIndexedIndirect {
	return DrawIndexedIndirect{
		IndexCount:    binary.LittleEndian.Uint32(src[0:]),
		InstanceCount: binary.LittleEndian.Uint32(src[4:]),
		FirstIndex:    binary.LittleEndian.Uint32(src[8:]),
		BaseVertex:    int32(binary.LittleEndian.Uint32(src[12:])),
		BaseInstance:  binary.LittleEndian.Uint32(src[16:]),
	}
}

// DrawIndirect matches the GPU layout of non-indexed indirect draw arguments.
type DrawIndirect struct {
	VertexCount   uint32
	InstanceCount uint32
	FirstVertex   uint32
	BaseInstance  uint32
}

// MarshalInto writes the record into dst, which must hold at least DrawIndirectSize bytes.
func (d *DrawIndirect) MarshalInto(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:], d.VertexCount)
	binary.LittleEndian.PutUint32(dst[4:], d.InstanceCount)
	binary.LittleEndian.PutUint32(dst[8:], d.FirstVertex)
	binary.LittleEndian.PutUint32(dst[12:], d.BaseInstance)
}

// ReadDrawIndirect decodes a record written by MarshalInto.
func ReadDrawIndirect(src []byte) DrawIndirect {
	return DrawIndirect{
		VertexCount:   binary.LittleEndian.Uint32(src[0:]),
		InstanceCount: binary.LittleEndian.Uint32(src[4:]),
		FirstVertex:   binary.LittleEndian.Uint32(src[8:]),
		BaseInstance:  binary.LittleEndian.Uint32(src[12:]),
	}
}

// SetInstanceCount overwrites the instance count of a record of either layout.
func SetInstanceCount(record []byte, n uint32) {
	binary.LittleEndian.PutUint32(record[4:], n)
}
