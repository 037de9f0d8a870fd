// Package dirbuilder materializes the two directories spec.md §4.6
// requires every freshly formatted filesystem to contain: the root
// directory (inode 2) and lost+found (spec.md's reserved recovery
// directory). It adapts direktiv-vorteil's pkg/ext4 dir.go — which
// builds arbitrary caller-supplied directory trees via its dentry/
// writeDentry helpers and a TEA-based htree hash for large directories —
// down to the two fixed, well-known directories a formatter emits, and
// adds the metadata_csum directory-block tail the teacher's htree-only
// hashing never needed to produce.
package dirbuilder

import (
	"github.com/vorteil/extfmt/pkg/ext/checksum"
	"github.com/vorteil/extfmt/pkg/ext/family"
	"github.com/vorteil/extfmt/pkg/ext/onddisk"
)

// LostFoundName is the reserved recovery directory's name.
const LostFoundName = "lost+found"

// Entry is one name/inode/type pair to place in a directory block.
type Entry struct {
	Name     string
	Inode    uint32
	FileType uint8
}

// BuildBlock lays entries one after another inside a single blockSize
// block, growing the final entry's rec_len to consume whatever space is
// left (the classic linear-directory layout ext2/ext3/ext4 all support,
// regardless of whether dir_index is set — htree indexing is an
// optional acceleration structure, never mandatory, so a freshly
// formatted filesystem with only two small directories never needs
// one). If fam.UsesMetadataCsum, the last 12 bytes of the block are
// reserved for an ext4_dir_entry_tail checksum record.
func BuildBlock(blockSize int64, entries []Entry, fam family.Params, uuid [16]byte, dirInode, generation uint32) []byte {
	block := make([]byte, blockSize)

	tailSpace := int64(0)
	if fam.UsesMetadataCsum {
		tailSpace = onddisk.DirEntryTailSize
	}

	off := 0
	for i, ent := range entries {
		e := &onddisk.DirEntry2{
			Inode:    ent.Inode,
			NameLen:  uint8(len(ent.Name)),
			FileType: ent.FileType,
		}

		minLen := int64(onddisk.MinDirEntryLen(ent.Name))
		last := i == len(entries)-1
		if last {
			e.RecLen = uint16(int64(blockSize) - int64(off) - tailSpace)
		} else {
			e.RecLen = uint16(minLen)
		}
		onddisk.MarshalDirEntry(block, off, e, ent.Name)
		off += int(e.RecLen)
	}

	if fam.UsesMetadataCsum {
		tailOff := int(blockSize) - onddisk.DirEntryTailSize
		tail := &onddisk.DirEntryTail{RecLen: onddisk.DirEntryTailSize, FileType: onddisk.FTypeChecksum}
		zeroed := make([]byte, blockSize)
		copy(zeroed, block)
		copy(zeroed[tailOff:], onddisk.MarshalDirEntryTail(tail))
		tail.Checksum = checksum.DirTail(uuid, dirInode, generation, zeroed)
		copy(block[tailOff:], onddisk.MarshalDirEntryTail(tail))
	}

	return block
}

// BuildRoot returns the single data block for the root directory
// (inode 2): "." and ".." both point at rootInode, followed by an
// entry for lost+found.
func BuildRoot(blockSize int64, rootInode, lostFoundInode uint32, fam family.Params, uuid [16]byte, generation uint32) []byte {
	entries := []Entry{
		{Name: ".", Inode: rootInode, FileType: onddisk.FTypeDir},
		{Name: "..", Inode: rootInode, FileType: onddisk.FTypeDir},
		{Name: LostFoundName, Inode: lostFoundInode, FileType: onddisk.FTypeDir},
	}
	return BuildBlock(blockSize, entries, fam, uuid, rootInode, generation)
}

// BuildLostFound returns the single data block for lost+found: "." and
// ".." only, ".." pointing back at rootInode.
func BuildLostFound(blockSize int64, lostFoundInode, rootInode uint32, fam family.Params, uuid [16]byte, generation uint32) []byte {
	entries := []Entry{
		{Name: ".", Inode: lostFoundInode, FileType: onddisk.FTypeDir},
		{Name: "..", Inode: rootInode, FileType: onddisk.FTypeDir},
	}
	return BuildBlock(blockSize, entries, fam, uuid, lostFoundInode, generation)
}

// teaHashSeed is the default htree hash seed ext2fsprogs uses when a
// directory is created without an explicit s_hash_seed (spec.md leaves
// htree indexing optional; this is retained so a future index-block
// builder has a seed to hash against, per direktiv-vorteil's dir.go
// teaHash/teaTransform).
var teaHashSeed = [4]uint32{0x67452301, 0xEFCDAB89, 0x98BADCFE, 0x10325476}

// HashName computes the legacy TEA htree hash of name, the
// same algorithm direktiv-vorteil's pkg/ext4 dir.go uses to order
// dentries within an htree leaf block.
func HashName(name string) uint32 {
	buf := sliceStringForHashing(name)
	hash := teaHashSeed
	for _, chunk := range buf {
		hash = teaTransform(hash, chunk)
	}
	return hash[1] &^ 1
}

func sliceStringForHashing(name string) [][4]uint32 {
	padded := append([]byte(name), 0, 0, 0)
	n := (len(padded) / 4) * 4
	if n == 0 {
		n = 4
		padded = append(padded, make([]byte, 4-len(padded))...)
	}
	var out [][4]uint32
	for off := 0; off+16 <= len(padded) || off < n; off += 16 {
		var block [4]uint32
		for i := 0; i < 4; i++ {
			base := off + i*4
			for b := 0; b < 4 && base+b < len(padded); b++ {
				block[i] |= uint32(padded[base+b]) << uint(b*8)
			}
		}
		out = append(out, block)
		if off+16 >= n {
			break
		}
	}
	if len(out) == 0 {
		out = append(out, [4]uint32{})
	}
	return out
}

func teaTransform(hash [4]uint32, chunk [4]uint32) [4]uint32 {
	const delta = 0x9E3779B9
	a, b := hash[0], hash[1]
	sum := uint32(0)
	for i := 0; i < 16; i++ {
		sum += delta
		a += ((b << 4) + chunk[0]) ^ (b + sum) ^ ((b >> 5) + chunk[1])
		b += ((a << 4) + chunk[2]) ^ (a + sum) ^ ((a >> 5) + chunk[3])
	}
	return [4]uint32{hash[0] + a, hash[1] + b, hash[2], hash[3]}
}
