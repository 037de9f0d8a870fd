// Package onddisk holds the byte-exact on-disk records described in
// spec.md §3: superblock, group descriptor, inode, and directory entry.
// Each type's Marshal/Unmarshal pair is a pure function with no I/O, so
// they can be tested directly against golden byte strings (spec.md §4.4).
package onddisk

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	Magic          = 0xEF53
	SuperblockSize = 1024
)

// Superblock mirrors the real ext2/3/4 on-disk superblock record,
// generalized from direktiv-vorteil's pkg/ext4 Superblock struct with the
// label, checksum seed, and checksum fields the teacher left unpopulated.
// Field order and padding reproduce the canonical offsets; Magic sits at
// byte 56, FeatureCompat/Incompat/ROCompat at 92/96/100, UUID at 104,
// Label at 120, and Checksum in the final four bytes (1020..1024), all as
// named by spec.md §6.
type Superblock struct {
	TotalInodes         uint32
	TotalBlocks         uint32
	_                   uint32
	UnallocatedBlocks   uint32
	UnallocatedInodes   uint32
	FirstDataBlock      uint32
	LogBlockSize        uint32
	LogClusterSize      uint32
	BlocksPerGroup      uint32
	ClustersPerGroup    uint32
	InodesPerGroup      uint32
	LastMountTime       uint32
	LastWrittenTime     uint32
	_                   uint16
	MountsCheckInterval uint16
	Signature           uint16
	State               uint16
	ErrorProtocol       uint16
	VersionMinor        uint16
	TimeLastCheck       uint32
	TimeCheckInterval   uint32
	_                   uint32
	VersionMajor        uint32
	ResUID              uint16
	ResGID              uint16
	FirstIno            uint32
	InodeSize           uint16
	BlockGroupNumber    uint16
	FeatureCompat       uint32
	FeatureIncompat     uint32
	FeatureROCompat     uint32
	UUID                [16]byte
	Label               [16]byte
	_                   [64]byte
	_                   uint32
	PreallocBlocks      uint8
	PreallocDirBlocks   uint8
	ReservedGDTBlocks   uint16
	JournalUUID         [16]byte
	JournalInum         uint32
	_                   uint32
	_                   uint32
	HashSeed            [4]uint32
	DefHashVersion      uint8
	JnlBackupType       uint8
	DescSize            uint16
	DefaultMountOpts    uint32
	_                   uint32
	_                   uint32
	_                   [17]uint32
	_                   uint32
	_                   uint32
	_                   uint32
	_                   uint16
	_                   uint16
	Flags               uint32
	_                   uint16
	_                   uint16
	_                   uint64
	_                   uint32
	LogGroupsPerFlex    uint8
	ChecksumType        uint8
	_                   uint16
	_                   uint64
	_                   uint32
	_                   uint32
	_                   uint64
	_                   uint32
	_                   uint32
	_                   uint32
	_                   uint32
	_                   uint64
	_                   [32]uint8
	_                   uint32
	_                   uint32
	_                   uint32
	_                   uint32
	_                   uint64
	_                   [32]uint8
	MountOptions        [64]uint8
	_                   uint32
	_                   uint32
	_                   uint32
	BackupBGs           [2]uint32
	_                   [4]uint8
	_                   [16]uint8
	_                   uint32
	_                   uint32
	ChecksumSeed        uint32
	_                   uint8
	_                   uint8
	_                   uint8
	_                   uint8
	_                   uint8
	_                   uint8
	_                   [2]uint8
	_                   uint16
	_                   uint16
	_                   uint32 // s_orphan_file_inum
	_                   [94]uint32
	Checksum            uint32
}

// Marshal writes the superblock in its canonical little-endian layout.
// binary.Write on a struct with explicit fixed-width fields is
// byte-exact and portable to big-endian hosts, matching spec.md §9's
// "Endianness" note.
func (sb *Superblock) Marshal() []byte {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, sb); err != nil {
		panic(err)
	}
	b := buf.Bytes()
	if len(b) != SuperblockSize {
		panic("onddisk: superblock struct is not 1024 bytes")
	}
	return b
}

// UnmarshalSuperblock parses a 1024-byte superblock record.
func UnmarshalSuperblock(b []byte) (*Superblock, error) {
	if len(b) < SuperblockSize {
		return nil, fmt.Errorf("onddisk: short superblock buffer (want %d bytes, got %d)", SuperblockSize, len(b))
	}
	sb := &Superblock{}
	if err := binary.Read(bytes.NewReader(b[:SuperblockSize]), binary.LittleEndian, sb); err != nil {
		return nil, err
	}
	return sb, nil
}

// ZeroChecksum returns a copy of raw with the checksum field (the last
// four bytes) zeroed, for checksum computation per spec.md §4.2.
func ZeroChecksum(raw []byte) []byte {
	out := make([]byte, len(raw))
	copy(out, raw)
	for i := len(out) - 4; i < len(out); i++ {
		out[i] = 0
	}
	return out
}
