package onddisk

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	GroupDescriptorSize32 = 32
	GroupDescriptorSize64 = 64
)

// GroupDescriptor mirrors direktiv-vorteil's pkg/ext4 BlockGroupDescriptor,
// extended with the checksum and high-order fields spec.md §3 requires:
// a 16-bit CRC16 checksum for the classic 32-byte record, or a 32-bit
// CRC32C checksum plus the high halves of every 32-bit-or-smaller pointer
// once 64-bit group descriptors are enabled.
type GroupDescriptor struct {
	BlockBitmapLo     uint32
	InodeBitmapLo     uint32
	InodeTableLo      uint32
	FreeBlocksLo      uint16
	FreeInodesLo      uint16
	DirectoriesLo     uint16
	Flags             uint16
	_                 uint32 // exclude bitmap lo
	BlockBitmapCsumLo uint16
	InodeBitmapCsumLo uint16
	UnusedInodesLo    uint16
	Checksum          uint16 // CRC16 bg_checksum, 32-byte descriptors

	// 64-bit extension, present only when the family enables 64-bit
	// group descriptors (spec.md §4.3's "num_groups*blocks_per_group >
	// 2^32" rule).
	BlockBitmapHi     uint32
	InodeBitmapHi     uint32
	InodeTableHi      uint32
	FreeBlocksHi      uint16
	FreeInodesHi      uint16
	DirectoriesHi     uint16
	UnusedInodesHi    uint16
	_                 uint32 // exclude bitmap hi
	BlockBitmapCsumHi uint16
	InodeBitmapCsumHi uint16
	Checksum32        uint32 // full CRC32C, 64-byte descriptors (spec.md §4.2)
}

// BlockBitmap, InodeBitmap, and InodeTable combine the lo/hi halves into
// a single block address.
func (gd *GroupDescriptor) BlockBitmap() uint64 {
	return uint64(gd.BlockBitmapLo) | uint64(gd.BlockBitmapHi)<<32
}

func (gd *GroupDescriptor) InodeBitmap() uint64 {
	return uint64(gd.InodeBitmapLo) | uint64(gd.InodeBitmapHi)<<32
}

func (gd *GroupDescriptor) InodeTable() uint64 {
	return uint64(gd.InodeTableLo) | uint64(gd.InodeTableHi)<<32
}

func (gd *GroupDescriptor) SetBlockBitmap(addr uint64) {
	gd.BlockBitmapLo = uint32(addr)
	gd.BlockBitmapHi = uint32(addr >> 32)
}

func (gd *GroupDescriptor) SetInodeBitmap(addr uint64) {
	gd.InodeBitmapLo = uint32(addr)
	gd.InodeBitmapHi = uint32(addr >> 32)
}

func (gd *GroupDescriptor) SetInodeTable(addr uint64) {
	gd.InodeTableLo = uint32(addr)
	gd.InodeTableHi = uint32(addr >> 32)
}

func (gd *GroupDescriptor) FreeBlocks() uint32 {
	return uint32(gd.FreeBlocksLo) | uint32(gd.FreeBlocksHi)<<16
}

func (gd *GroupDescriptor) FreeInodes() uint32 {
	return uint32(gd.FreeInodesLo) | uint32(gd.FreeInodesHi)<<16
}

// Marshal writes the descriptor in its canonical little-endian layout,
// truncated to 32 bytes unless is64 is set.
func (gd *GroupDescriptor) Marshal(is64 bool) []byte {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, gd); err != nil {
		panic(err)
	}
	b := buf.Bytes()
	if is64 {
		return b[:GroupDescriptorSize64]
	}
	return b[:GroupDescriptorSize32]
}

// UnmarshalGroupDescriptor parses a group descriptor record.
func UnmarshalGroupDescriptor(b []byte, is64 bool) (*GroupDescriptor, error) {
	size := GroupDescriptorSize32
	if is64 {
		size = GroupDescriptorSize64
	}
	if len(b) < size {
		return nil, fmt.Errorf("onddisk: short group descriptor buffer (want %d bytes, got %d)", size, len(b))
	}

	padded := make([]byte, GroupDescriptorSize64)
	copy(padded, b[:size])

	gd := &GroupDescriptor{}
	if err := binary.Read(bytes.NewReader(padded), binary.LittleEndian, gd); err != nil {
		return nil, err
	}
	return gd, nil
}

// ZeroChecksum returns a copy of raw with the relevant checksum field
// zeroed (bg_checksum for 32-byte descriptors, the CRC32C field for
// 64-byte ones).
func (gd GroupDescriptor) ZeroChecksum(raw []byte, is64 bool) []byte {
	out := make([]byte, len(raw))
	copy(out, raw)
	if is64 {
		for i := 0x3C; i < 0x40 && i < len(out); i++ {
			out[i] = 0
		}
		return out
	}
	if len(out) > 0x1F {
		out[0x1E] = 0
		out[0x1F] = 0
	}
	return out
}
