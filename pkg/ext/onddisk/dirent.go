package onddisk

import (
	"bytes"
	"encoding/binary"
)

// File type codes used in directory entries (spec.md §4.6), matching
// direktiv-vorteil's pkg/ext4 FTYPE_* constants.
const (
	FTypeUnknown     = 0x0
	FTypeRegularFile = 0x1
	FTypeDir         = 0x2
	FTypeSymlink     = 0x7
	FTypeChecksum    = 0xDE // ext4_dir_entry_tail's fake "file type"
)

// DirEntry2 is the fixed-size header of an ext4_dir_entry_2 record
// (spec.md §4.6): inode, rec_len, name_len, file_type, followed by the
// name bytes (padded to a 4-byte boundary and consumed by rec_len).
type DirEntry2 struct {
	Inode    uint32
	RecLen   uint16
	NameLen  uint8
	FileType uint8
}

const DirEntryHeaderSize = 8

// MinDirEntryLen returns the minimum rec_len for a directory entry
// holding the given name: 8-byte header plus the name, rounded up to a
// 4-byte boundary.
func MinDirEntryLen(name string) uint16 {
	return uint16(align(8+len(name), 4))
}

func align(n, to int) int {
	return ((n + to - 1) / to) * to
}

// MarshalDirEntry writes one directory entry (header + name + zero
// padding out to RecLen) into the destination block slice at off.
func MarshalDirEntry(dst []byte, off int, e *DirEntry2, name string) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, e); err != nil {
		panic(err)
	}
	buf.WriteString(name)
	b := buf.Bytes()
	copy(dst[off:], b)
	for i := off + len(b); i < off+int(e.RecLen); i++ {
		dst[i] = 0
	}
}

// UnmarshalDirEntry reads one directory entry at off.
func UnmarshalDirEntry(block []byte, off int) (*DirEntry2, string, error) {
	if off+DirEntryHeaderSize > len(block) {
		return nil, "", errDirEntryOverrun
	}
	e := &DirEntry2{}
	if err := binary.Read(bytes.NewReader(block[off:off+DirEntryHeaderSize]), binary.LittleEndian, e); err != nil {
		return nil, "", err
	}
	end := off + DirEntryHeaderSize + int(e.NameLen)
	if end > len(block) {
		return nil, "", errDirEntryOverrun
	}
	return e, string(block[off+DirEntryHeaderSize : end]), nil
}

var errDirEntryOverrun = dirEntryOverrunError{}

type dirEntryOverrunError struct{}

func (dirEntryOverrunError) Error() string { return "onddisk: directory entry overruns block" }

// DirEntryTail is ext4_dir_entry_tail: a fake zero-length entry at the
// end of a directory block that stores the block's CRC32C checksum when
// the family uses metadata checksums (spec.md §4.6).
type DirEntryTail struct {
	Inode    uint32 // always 0
	RecLen   uint16 // always 12
	NameLen  uint8  // always 0
	FileType uint8  // always FTypeChecksum
	Checksum uint32
}

const DirEntryTailSize = 12

func MarshalDirEntryTail(t *DirEntryTail) []byte {
	return marshalLE(t)
}

// UnmarshalDirEntryTail reads an ext4_dir_entry_tail record from the
// final DirEntryTailSize bytes of a directory block.
func UnmarshalDirEntryTail(b []byte) *DirEntryTail {
	t := &DirEntryTail{}
	if err := binary.Read(bytes.NewReader(b[:DirEntryTailSize]), binary.LittleEndian, t); err != nil {
		panic(err)
	}
	return t
}
