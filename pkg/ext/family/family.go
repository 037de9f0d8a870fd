// Package family defines the capability record that lets the formatter
// driver emit ext2, ext3, or ext4 images from a single generic
// implementation, toggling only feature bits and layout rules.
package family

// Name identifies one of the three supported ext variants.
type Name string

const (
	Ext2 Name = "ext2"
	Ext3 Name = "ext3"
	Ext4 Name = "ext4"
)

// Compat, incompat, and ro-compat feature bits (values match the on-disk
// ext4 feature bitmaps; ext2/ext3 simply leave the higher bits unset).
const (
	CompatDirPrealloc  = 0x1
	CompatHasJournal   = 0x4
	CompatResizeInode  = 0x10
	CompatDirIndex     = 0x20
	CompatSparseSuper2 = 0x200
)

const (
	IncompatFiletype   = 0x2
	IncompatRecover    = 0x4
	IncompatExtents    = 0x40
	Incompat64Bit      = 0x80
	IncompatFlexBG     = 0x200
	IncompatInlineData = 0x8000
)

const (
	ROCompatSparseSuper   = 0x1
	ROCompatLargeFile     = 0x2
	ROCompatHugeFile      = 0x8
	ROCompatGDTChecksum   = 0x10
	ROCompatMetadataCsum  = 0x400
)

// Params is the capability record spec.md §3 calls "family parameters":
// the three ext2/ext3/ext4 constructors below are the only concrete
// values. Generic algorithms in pkg/ext/* take a Params instead of
// switching on Name, so the formatter driver is written once.
type Params struct {
	Name Name

	HasJournal          bool
	UsesExtents         bool
	Uses64Bit           bool
	UsesMetadataCsum    bool
	SupportsDirIndex    bool
	SupportsFlexBG      bool

	InodeSize     uint16 // 128 for ext2, 256 otherwise
	FlexBGSize    int64  // groups per flex group, only meaningful when SupportsFlexBG

	FeatureCompat   uint32
	FeatureIncompat uint32
	FeatureROCompat uint32
}

// Ext2 returns the capability record for an ext2 filesystem: no journal,
// no extents, 32-bit only, no metadata checksums, 128-byte inodes.
func Ext2() Params {
	return Params{
		Name:          Ext2,
		InodeSize:     128,
		FeatureCompat: CompatDirPrealloc | CompatResizeInode,
		FeatureIncompat: IncompatFiletype,
		FeatureROCompat: ROCompatSparseSuper,
	}
}

// Ext3 adds a journal, the RECOVER incompat flag, and 256-byte inodes on
// top of ext2's layout rules, but still uses indirect block pointers
// rather than extents.
func Ext3() Params {
	p := Ext2()
	p.Name = Ext3
	p.InodeSize = 256
	p.HasJournal = true
	p.FeatureCompat |= CompatHasJournal
	p.FeatureIncompat |= IncompatRecover
	return p
}

// Ext4 enables extents, flex_bg, metadata checksums, and (for large
// devices) 64-bit group descriptors. uses64Bit should be set by the
// caller once device size is known (spec.md §4.3: "choose 64-bit
// automatically when num_groups*blocks_per_group > 2^32").
func Ext4(uses64Bit bool) Params {
	return Params{
		Name:             Ext4,
		HasJournal:       true,
		UsesExtents:      true,
		Uses64Bit:        uses64Bit,
		UsesMetadataCsum: true,
		SupportsDirIndex: true,
		SupportsFlexBG:   true,
		InodeSize:        256,
		FlexBGSize:       16,
		FeatureCompat:    CompatDirPrealloc | CompatHasJournal | CompatResizeInode | CompatDirIndex | CompatSparseSuper2,
		FeatureIncompat: func() uint32 {
			f := uint32(IncompatFiletype | IncompatExtents | IncompatFlexBG | IncompatRecover)
			if uses64Bit {
				f |= Incompat64Bit
			}
			return f
		}(),
		// ROCompatGDTChecksum and ROCompatMetadataCsum are mutually
		// exclusive on-disk: metadata_csum supersedes the older
		// gdt_csum scheme and carries its own group descriptor
		// checksum field, so ext4 only ever sets the former.
		FeatureROCompat: ROCompatSparseSuper | ROCompatLargeFile | ROCompatHugeFile | ROCompatMetadataCsum,
	}
}

// For constructs a Params from a Name, applying the 64-bit decision for
// ext4. It is the single switch-on-name site the formatter driver (and
// validation) is allowed to have, per spec.md §4.8.
func For(name Name, uses64Bit bool) (Params, bool) {
	switch name {
	case Ext2:
		return Ext2(), true
	case Ext3:
		return Ext3(), true
	case Ext4:
		return Ext4(uses64Bit), true
	default:
		return Params{}, false
	}
}

// GroupDescriptorSize returns 64 when the family uses 64-bit group
// descriptors, else the classic 32-byte record.
func (p Params) GroupDescriptorSize() int {
	if p.Uses64Bit {
		return 64
	}
	return 32
}
