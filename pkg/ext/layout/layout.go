// Package layout computes the block/group topology of an ext2/ext3/ext4
// filesystem from a device size, block size, and family parameters
// (spec.md §4.3). It generalizes direktiv-vorteil's pkg/ext4 layout.go
// and super.go (which hardcoded a single 4 KiB block size and a
// build-a-minimum-size-image use case) to spec.md's
// format-a-given-size-device use case across all three families, and
// adds the sparse_super backup placement and 64-bit descriptor switch
// the teacher never implemented.
package layout

import (
	"github.com/vorteil/extfmt/pkg/ext/family"
	"github.com/vorteil/extfmt/pkg/ext/fserr"
)

// Defaults and bounds named in spec.md §3/§4.3.
const (
	MinBlocks           = 8
	DefaultInodeRatio   = 16 * 1024 // one inode per 16 KiB of disk
	MinInodesPerGroup   = 2048
	GrowthFactor        = 1024 // reserved GDT blocks allow this much growth
	DefaultFlexBGSize   = 16
)

// Group describes one block group's metadata placement.
type Group struct {
	Index             int64
	HasSuperblockCopy bool // this group carries a superblock + GDT backup
	BlockBitmapBlock  int64
	InodeBitmapBlock  int64
	InodeTableBlock   int64
	MetadataBlocks    int64 // total blocks this group reserves for metadata
	BlocksInGroup     int64 // may be < BlocksPerGroup in the final group
}

// FilesystemLayout is the complete plan spec.md §4.3 calls for.
type FilesystemLayout struct {
	BlockSize           int64
	TotalBlocks         int64
	BlocksPerGroup      int64
	NumGroups           int64
	InodesPerGroup      int64
	InodeSize           uint16
	FirstDataBlock      int64
	ReservedGDTBlocks   int64
	FlexBGSize          int64
	GroupsPerFlex       int64
	Uses64Bit           bool
	GroupDescriptorSize int
	GDTBlocksPerCopy    int64 // blocks one group descriptor table copy occupies
	Groups              []Group
}

// SparseSuperGroups returns every group index that carries a backup
// superblock + GDT copy: group 0, group 1, and powers of 3, 5, and 7, up
// to num_groups (spec.md's "sparse_super" rule).
func SparseSuperGroups(numGroups int64) []int64 {
	is := map[int64]bool{}
	if numGroups > 0 {
		is[0] = true
	}
	if numGroups > 1 {
		is[1] = true
	}
	for _, base := range []int64{3, 5, 7} {
		for p := base; p < numGroups; p *= base {
			is[p] = true
		}
	}
	var groups []int64
	for g := int64(0); g < numGroups; g++ {
		if is[g] {
			groups = append(groups, g)
		}
	}
	return groups
}

func divide(a, b int64) int64 { return (a + b - 1) / b }
func align(a, b int64) int64  { return divide(a, b) * b }

// Plan computes a FilesystemLayout for a device of deviceSize bytes using
// blockSize and the given family. want64Bit lets the caller force 64-bit
// group descriptors; Plan additionally forces them on regardless of the
// request once num_groups*blocks_per_group exceeds 2^32, per spec.md
// §4.3. inodeRatio overrides DefaultInodeRatio when positive (spec.md
// §4.2's Tunables.InodeRatio).
func Plan(deviceSize, blockSize int64, fam family.Params, want64Bit bool, inodeRatio int64) (*FilesystemLayout, error) {
	if inodeRatio <= 0 {
		inodeRatio = DefaultInodeRatio
	}
	if blockSize != 1024 && blockSize != 2048 && blockSize != 4096 {
		return nil, fserr.New(fserr.InvalidInput, "block size %d is not one of 1024, 2048, 4096", blockSize)
	}

	totalBlocks := deviceSize / blockSize
	if totalBlocks < MinBlocks {
		return nil, fserr.New(fserr.DeviceTooSmall, "device has only %d blocks of size %d, need at least %d", totalBlocks, blockSize, MinBlocks)
	}

	blocksPerGroup := 8 * blockSize
	numGroups := divide(totalBlocks, blocksPerGroup)

	uses64Bit := want64Bit
	if fam.Name == family.Ext4 && uint64(numGroups)*uint64(blocksPerGroup) > 1<<32 {
		uses64Bit = true
	}
	gdSize := 32
	if uses64Bit {
		gdSize = 64
	}

	inodeSize := fam.InodeSize
	if inodeSize == 0 {
		inodeSize = 128
	}
	inodesPerBlock := blockSize / int64(inodeSize)

	totalInodeTarget := divide(deviceSize, inodeRatio)
	inodesPerGroup := divide(totalInodeTarget, numGroups)
	if inodesPerGroup < MinInodesPerGroup {
		inodesPerGroup = MinInodesPerGroup
	}
	if cap := 8 * blockSize; inodesPerGroup > cap {
		inodesPerGroup = cap
	}
	inodesPerGroup = align(inodesPerGroup, inodesPerBlock)

	descriptorsPerBlock := blockSize / int64(gdSize)
	groupDescriptors := align(numGroups*GrowthFactor, descriptorsPerBlock)
	gdtBlocks := divide(groupDescriptors, descriptorsPerBlock)
	reservedGDTBlocks := gdtBlocks - divide(numGroups, descriptorsPerBlock)
	if reservedGDTBlocks < 0 {
		reservedGDTBlocks = 0
	}
	// The reserve is capped at blockSize/4 blocks so that it still fits
	// inside a group on very large devices.
	if maxReserved := blockSize / 4; reservedGDTBlocks > maxReserved {
		reservedGDTBlocks = maxReserved
		gdtBlocks = divide(numGroups, descriptorsPerBlock) + reservedGDTBlocks
	}

	flexBGSize := fam.FlexBGSize
	if !fam.SupportsFlexBG || flexBGSize <= 0 {
		flexBGSize = 1
	}
	groupsPerFlex := flexBGSize
	if groupsPerFlex > numGroups {
		groupsPerFlex = numGroups
	}
	if groupsPerFlex < 1 {
		groupsPerFlex = 1
	}
	// s_log_groups_per_flex is reported to reflect the family's flex_bg
	// grouping size, but block/inode bitmap and inode table placement
	// below stays classic per-group: each group is self-contained
	// rather than having its metadata consolidated into the first group
	// of its flex. A reader never infers bitmap/table locations from
	// flex_bg grouping — it always follows the group descriptor's
	// explicit pointers — so this is a conforming, if less
	// write-optimized, layout.

	firstDataBlock := int64(0)
	if blockSize == 1024 {
		firstDataBlock = 1
	}

	fsl := &FilesystemLayout{
		BlockSize:           blockSize,
		TotalBlocks:         totalBlocks,
		BlocksPerGroup:      blocksPerGroup,
		NumGroups:           numGroups,
		InodesPerGroup:      inodesPerGroup,
		InodeSize:           inodeSize,
		FirstDataBlock:      firstDataBlock,
		ReservedGDTBlocks:   reservedGDTBlocks,
		FlexBGSize:          flexBGSize,
		GroupsPerFlex:       groupsPerFlex,
		Uses64Bit:           uses64Bit,
		GroupDescriptorSize: gdSize,
		GDTBlocksPerCopy:    gdtBlocks,
	}

	sparse := map[int64]bool{}
	for _, g := range SparseSuperGroups(numGroups) {
		sparse[g] = true
	}

	inodeTableBlocksPerGroup := divide(inodesPerGroup, inodesPerBlock)
	superOverheadBlocks := int64(1) + gdtBlocks // superblock + GDT, sparse_super groups only

	fsl.Groups = make([]Group, numGroups)
	for g := int64(0); g < numGroups; g++ {
		groupBase := firstDataBlock + g*blocksPerGroup

		var overhead int64
		if sparse[g] {
			overhead = superOverheadBlocks
		}

		blockBitmapBlock := groupBase + overhead
		inodeBitmapBlock := blockBitmapBlock + 1
		inodeTableBlock := inodeBitmapBlock + 1

		blocksInGroup := blocksPerGroup
		if (g+1)*blocksPerGroup > totalBlocks {
			blocksInGroup = totalBlocks - g*blocksPerGroup
		}

		metadataBlocks := overhead + 2 + inodeTableBlocksPerGroup

		if blocksInGroup-metadataBlocks < MinBlocks {
			return nil, fserr.New(fserr.DeviceTooSmall,
				"group %d has only %d blocks left for data after %d blocks of metadata, need at least %d",
				g, blocksInGroup-metadataBlocks, metadataBlocks, MinBlocks)
		}

		fsl.Groups[g] = Group{
			Index:             g,
			HasSuperblockCopy: sparse[g],
			BlockBitmapBlock:  blockBitmapBlock,
			InodeBitmapBlock:  inodeBitmapBlock,
			InodeTableBlock:   inodeTableBlock,
			MetadataBlocks:    metadataBlocks,
			BlocksInGroup:     blocksInGroup,
		}
	}

	return fsl, nil
}

// TotalInodes is the filesystem-wide inode count (num_groups * inodes
// per group).
func (l *FilesystemLayout) TotalInodes() int64 {
	return l.NumGroups * l.InodesPerGroup
}
