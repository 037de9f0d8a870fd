// Package format implements the Formatter capability spec.md §1/§6
// defines: validate options, dry-run a layout, and write a complete
// ext2/ext3/ext4 filesystem to a Device. It generalizes
// direktiv-vorteil's pkg/ext4 Compiler — which built one 4 KiB-block
// ext4 image for a caller-supplied file tree — into a family-parametric
// driver over pkg/ext/family, pkg/ext/layout, pkg/ext/onddisk,
// pkg/ext/checksum, pkg/ext/bitmap, and pkg/ext/dirbuilder, following
// the same "plan, then commit in phases" shape as
// Compiler.Precompile/Compiler.Compile.
package format

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vorteil/extfmt/pkg/elog"
	"github.com/vorteil/extfmt/pkg/ext/bitmap"
	"github.com/vorteil/extfmt/pkg/ext/checksum"
	"github.com/vorteil/extfmt/pkg/ext/device"
	"github.com/vorteil/extfmt/pkg/ext/dirbuilder"
	"github.com/vorteil/extfmt/pkg/ext/family"
	"github.com/vorteil/extfmt/pkg/ext/fserr"
	"github.com/vorteil/extfmt/pkg/ext/layout"
	"github.com/vorteil/extfmt/pkg/ext/onddisk"
	"github.com/vorteil/extfmt/pkg/ext/verify"
)

// Reserved inode numbers, fixed by the ext2/3/4 on-disk format itself
// (spec.md §3).
const (
	InodeBadBlocks   = 1
	InodeRoot        = 2
	InodeResize      = 7
	InodeJournal     = 8
	InodeLostFound   = 11
	FirstNonReserved = 11
)

// FormatOptions is spec.md §6's FormatOptions record, with cluster_size
// renamed BlockSize to match Go's io-package naming and the
// family/tunables split spec.md §9 resolves.
type FormatOptions struct {
	Family      family.Name
	BlockSize   int64
	VolumeLabel string
	UUID        [16]byte // all-zero requests a fresh random UUID
	Use64Bit    bool

	// JournalPopulated is the caller's "journal populated" flag
	// (spec.md §9 "do not guess"), default false. Format writes the
	// reserved journal inode as a bare reservation (no data blocks, no
	// journal superblock) whether or not it is set.
	JournalPopulated bool

	// VerifyAfterFormat requests a full pkg/ext/verify pass (primary and
	// backup superblock agreement, the primary superblock checksum, block
	// bitmap accounting) after
	// the device is flushed. Format always re-reads and checks the
	// primary superblock regardless of this flag (spec.md §4.7 phase
	// 11); this flag only controls the deeper, more expensive pass.
	VerifyAfterFormat bool

	Tunables Tunables
}

// Tunables holds the few knobs spec.md's Open Questions resolved to
// keep caller-overridable via pkg/ext/format/config rather than hardcode
// (e.g. inode ratio). See pkg/ext/format/config.go.
type Tunables struct {
	InodeRatio        int64
	ReservedBlocksPct float64
}

// WriteRange names one span of bytes Format would write, for callers that
// want to show a user exactly what a real run would touch (spec.md §4.7's
// dry-run requirement).
type WriteRange struct {
	Offset  int64
	Length  int64
	Purpose string
}

// SimulationReport is what DryRun returns: the layout plan without
// writing anything, for callers that want to show a user what would
// happen (spec.md §6).
type SimulationReport struct {
	Family         family.Name
	BlockSize      int64
	TotalBlocks    int64
	FreeBlocks     int64
	TotalInodes    int64
	FreeInodes     int64
	NumGroups      int64
	Uses64Bit      bool
	ReservedGroups []int64 // groups carrying a superblock+GDT backup

	MetadataBytes      int64 // bytes every group's superblock/GDT/bitmaps/inode table consume, plus the root and lost+found data blocks
	EstimatedUserBytes int64 // bytes left over for file data once metadata and reserved inodes are accounted for
	Warnings           []string
	WriteRanges        []WriteRange // every span Format would write, in the order it would write them
}

// Formatter is the top-level driver. It holds no per-format state; all
// state lives in the run created by Format/DryRun, matching
// direktiv-vorteil's Compiler's statelessness between Precompile calls.
type Formatter struct {
	log elog.Logger
}

func New(log elog.Logger) *Formatter {
	return &Formatter{log: log}
}

// SupportedPlatforms names the host OSes pkg/ext/device has a
// platformSectorSize/blockDeviceSize implementation for (spec.md §6).
func (f *Formatter) SupportedPlatforms() []string {
	return []string{"linux", "windows", "darwin"}
}

func resolveFamily(opts FormatOptions) (family.Params, error) {
	fam, ok := family.For(opts.Family, opts.Use64Bit)
	if !ok {
		return family.Params{}, fserr.New(fserr.InvalidInput, "unknown filesystem family %q", opts.Family)
	}
	return fam, nil
}

// ValidateOptions checks FormatOptions against deviceSize without
// touching a Device, the same validation Format runs before it commits
// to any write (spec.md §6).
func (f *Formatter) ValidateOptions(opts FormatOptions, deviceSize int64) error {
	fam, err := resolveFamily(opts)
	if err != nil {
		return err
	}
	if opts.BlockSize == 0 {
		opts.BlockSize = 4096
	}
	_, err = layout.Plan(deviceSize, opts.BlockSize, fam, opts.Use64Bit, opts.Tunables.InodeRatio)
	if err != nil {
		return err
	}
	if len(opts.VolumeLabel) > 16 {
		return fserr.New(fserr.InvalidInput, "volume label %q exceeds 16 bytes", opts.VolumeLabel)
	}
	return nil
}

// DryRun plans the layout and reports what Format would produce, without
// performing any I/O.
func (f *Formatter) DryRun(opts FormatOptions, deviceSize int64) (*SimulationReport, error) {
	var warnings []string
	if opts.BlockSize == 0 {
		warnings = append(warnings, "block size defaulted to 4096")
	}

	fam, err := resolveFamily(opts)
	if err != nil {
		return nil, err
	}
	if opts.BlockSize == 0 {
		opts.BlockSize = 4096
	}
	pl, err := layout.Plan(deviceSize, opts.BlockSize, fam, opts.Use64Bit, opts.Tunables.InodeRatio)
	if err != nil {
		return nil, err
	}
	if fam.Name == family.Ext4 && pl.Uses64Bit && !opts.Use64Bit {
		warnings = append(warnings, "64-bit group descriptors enabled automatically: device exceeds the 32-bit group addressing limit")
	}

	run := &run{opts: opts, fam: fam, layout: pl}
	run.reserveBuiltins()

	var freeBlocks, freeInodes, metadataBlocks int64
	for gi, g := range pl.Groups {
		freeBlocks += run.groupFreeBlocks(int64(gi))
		freeInodes += pl.InodesPerGroup
		metadataBlocks += g.MetadataBlocks
	}
	freeInodes -= FirstNonReserved // inodes 1..11 are consumed
	metadataBlocks += 2            // root and lost+found data blocks, also never available to the caller

	return &SimulationReport{
		Family:             opts.Family,
		BlockSize:          pl.BlockSize,
		TotalBlocks:        pl.TotalBlocks,
		FreeBlocks:         freeBlocks,
		TotalInodes:        pl.TotalInodes(),
		FreeInodes:         freeInodes,
		NumGroups:          pl.NumGroups,
		Uses64Bit:          pl.Uses64Bit,
		ReservedGroups:     layout.SparseSuperGroups(pl.NumGroups),
		MetadataBytes:      metadataBlocks * pl.BlockSize,
		EstimatedUserBytes: freeBlocks * pl.BlockSize,
		Warnings:           warnings,
		WriteRanges:        run.writeRanges(),
	}, nil
}

// Format writes a complete filesystem to dev in this phase order:
// validate, plan, zero critical regions, emit the root and lost+found
// directories and their inodes, emit the reserved inodes, emit per-group
// block and inode bitmaps, and only then emit superblock+GDT (primary and
// backups); it then flushes and re-reads the primary superblock.
func (f *Formatter) Format(ctx context.Context, dev device.Device, opts FormatOptions) error {
	if opts.BlockSize == 0 {
		opts.BlockSize = 4096
	}
	if err := f.ValidateOptions(opts, dev.TotalSize()); err != nil {
		return err
	}
	fam, err := resolveFamily(opts)
	if err != nil {
		return err
	}

	pl, err := layout.Plan(dev.TotalSize(), opts.BlockSize, fam, opts.Use64Bit, opts.Tunables.InodeRatio)
	if err != nil {
		return err
	}

	if opts.UUID == ([16]byte{}) {
		id := uuid.New()
		copy(opts.UUID[:], id[:])
	}

	r := &run{opts: opts, fam: fam, layout: pl, dev: dev, log: f.log}
	r.reserveBuiltins()

	if f.log != nil {
		f.log.Infof("formatting %s filesystem: %d blocks of %d bytes across %d groups", fam.Name, pl.TotalBlocks, pl.BlockSize, pl.NumGroups)
	}

	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := r.zeroCriticalRegions(); err != nil {
		return err
	}
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := r.writeRootAndLostFound(); err != nil {
		return err
	}
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := r.writeReservedInodes(); err != nil {
		return err
	}
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := r.writeBitmapsAndInodeTables(); err != nil {
		return err
	}
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := r.writeSuperblocksAndGDTs(); err != nil {
		return err
	}

	if err := dev.Flush(); err != nil {
		return err
	}

	if err := verify.VerifyPrimarySuperblock(dev, opts.Family, opts.BlockSize, opts.Use64Bit, opts.Tunables.InodeRatio); err != nil {
		return err
	}
	if opts.VerifyAfterFormat {
		report, err := verify.Verify(dev, opts.Family, opts.BlockSize, opts.Use64Bit, opts.Tunables.InodeRatio)
		if err != nil {
			return err
		}
		if !report.OK() {
			return fserr.New(fserr.ChecksumMismatch, "post-format verification found %d problem(s): %v", len(report.Problems), report.Problems)
		}
	}

	if f.log != nil {
		f.log.Infof("format complete")
	}
	return nil
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fserr.Wrap(fserr.UserCancelled, ctx.Err(), "format cancelled")
	default:
		return nil
	}
}

// run carries all mutable state for one Format/DryRun invocation —
// direktiv-vorteil's Compiler keeps the equivalent state (planner,
// super, data) as embedded structs on a single long-lived Compiler;
// here it's a short-lived value scoped to one call, since Formatter
// itself is stateless between calls.
type run struct {
	opts   FormatOptions
	fam    family.Params
	layout *layout.FilesystemLayout
	dev    device.Device
	log    elog.Logger

	blockBitmaps []*bitmap.Bitmap
	inodeBitmaps []*bitmap.Bitmap
	generation   uint32
}

func (r *run) blockSize() int64 { return r.layout.BlockSize }

func (r *run) reserveBuiltins() {
	r.blockBitmaps = make([]*bitmap.Bitmap, len(r.layout.Groups))
	r.inodeBitmaps = make([]*bitmap.Bitmap, len(r.layout.Groups))
	for gi, g := range r.layout.Groups {
		bb := bitmap.New(r.blockSize())
		bb.MarkUnavailableTail(g.BlocksInGroup)
		bb.SetRange(0, g.MetadataBlocks)
		r.blockBitmaps[gi] = bb

		ib := bitmap.New(r.blockSize())
		ib.MarkUnavailableTail(r.layout.InodesPerGroup)
		r.inodeBitmaps[gi] = ib
	}
	// Reserved inodes 1..11 all live in group 0.
	r.inodeBitmaps[0].SetRange(0, FirstNonReserved)

	// root and lost+found each occupy one data block, allocated right
	// after group 0's own metadata blocks.
	rootBlock := r.layout.Groups[0].MetadataBlocks
	lostFoundBlock := rootBlock + 1
	r.blockBitmaps[0].Set(rootBlock)
	r.blockBitmaps[0].Set(lostFoundBlock)
}

func (r *run) groupFreeBlocks(gi int64) int64 {
	return r.blockBitmaps[gi].FreeCount(r.layout.Groups[gi].BlocksInGroup)
}

// groupAbsoluteBlock converts a block number local to group gi (where 0
// is that group's first block) into an absolute device block number.
func (r *run) groupAbsoluteBlock(gi int64, localBlock int64) int64 {
	return r.layout.FirstDataBlock + gi*r.layout.BlocksPerGroup + localBlock
}

func (r *run) writeAt(absBlock int64, data []byte) error {
	_, err := r.dev.WriteAt(data, absBlock*r.blockSize())
	if err != nil {
		return fserr.Wrap(fserr.IoError, err, "writing block %d", absBlock)
	}
	return nil
}

// writeRanges lists every byte span Format would write, in the same phase
// order Format itself uses, for DryRun callers that want to show a user
// exactly what a real run would touch (spec.md §4.7).
func (r *run) writeRanges() []WriteRange {
	var out []WriteRange
	bs := r.blockSize()

	if r.layout.FirstDataBlock == 1 {
		out = append(out, WriteRange{Offset: 0, Length: bs, Purpose: "boot sector (zeroed)"})
	}
	for gi, g := range r.layout.Groups {
		base := r.groupAbsoluteBlock(int64(gi), 0)
		out = append(out, WriteRange{
			Offset:  base * bs,
			Length:  g.MetadataBlocks * bs,
			Purpose: fmt.Sprintf("group %d metadata region (zeroed)", gi),
		})
	}

	rootBlock := r.groupAbsoluteBlock(0, r.layout.Groups[0].MetadataBlocks)
	out = append(out, WriteRange{Offset: rootBlock * bs, Length: bs, Purpose: "root directory data block"})
	out = append(out, WriteRange{Offset: (rootBlock + 1) * bs, Length: bs, Purpose: "lost+found directory data block"})

	// Inodes 2 (root) through 11 (lost+found) span the first few blocks of
	// group 0's inode table; each of those blocks holds at least one of
	// the inodes Format writes.
	inodesPerBlock := bs / int64(r.fam.InodeSize)
	firstInodeBlock := r.layout.Groups[0].InodeTableBlock
	for blk := firstInodeBlock; blk <= firstInodeBlock+(InodeLostFound-1)/inodesPerBlock; blk++ {
		out = append(out, WriteRange{Offset: blk * bs, Length: bs, Purpose: "group 0 inode table block (root, lost+found, and reserved inodes)"})
	}

	for gi, g := range r.layout.Groups {
		out = append(out, WriteRange{Offset: g.BlockBitmapBlock * bs, Length: bs, Purpose: fmt.Sprintf("group %d block bitmap", gi)})
		out = append(out, WriteRange{Offset: g.InodeBitmapBlock * bs, Length: bs, Purpose: fmt.Sprintf("group %d inode bitmap", gi)})
	}

	for gi, g := range r.layout.Groups {
		if !g.HasSuperblockCopy {
			continue
		}
		base := r.groupAbsoluteBlock(int64(gi), 0)
		sbOff := base * bs
		if bs != 1024 {
			sbOff += 1024
		}
		purpose := "primary superblock"
		if gi != 0 {
			purpose = fmt.Sprintf("backup superblock (group %d)", gi)
		}
		out = append(out, WriteRange{Offset: sbOff, Length: onddisk.SuperblockSize, Purpose: purpose})
		out = append(out, WriteRange{
			Offset:  (base + 1) * bs,
			Length:  r.layout.GDTBlocksPerCopy * bs,
			Purpose: fmt.Sprintf("group descriptor table copy (group %d)", gi),
		})
	}

	return out
}

// zeroCriticalRegions clears the boot sector and every group's metadata
// blocks so padding bytes read back as zero instead of stale device
// contents (spec.md §4.7 phase 1).
func (r *run) zeroCriticalRegions() error {
	zero := make([]byte, r.blockSize())
	// With 1024-byte blocks the boot sector is device block 0, which lies
	// before group 0; otherwise it is part of group 0's first block.
	if r.layout.FirstDataBlock == 1 {
		if err := r.writeAt(0, zero); err != nil {
			return err
		}
	}
	for gi, g := range r.layout.Groups {
		for b := int64(0); b < g.MetadataBlocks; b++ {
			if err := r.writeAt(r.groupAbsoluteBlock(int64(gi), b), zero); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeRootAndLostFound emits the two directories' data blocks and the
// inode records that describe them.
func (r *run) writeRootAndLostFound() error {
	rootBlock := r.groupAbsoluteBlock(0, r.layout.Groups[0].MetadataBlocks)
	lostFoundBlock := rootBlock + 1

	rootData := dirbuilder.BuildRoot(r.blockSize(), InodeRoot, InodeLostFound, r.fam, r.opts.UUID, r.generation)
	if err := r.writeAt(rootBlock, rootData); err != nil {
		return err
	}
	lfData := dirbuilder.BuildLostFound(r.blockSize(), InodeLostFound, InodeRoot, r.fam, r.opts.UUID, r.generation)
	if err := r.writeAt(lostFoundBlock, lfData); err != nil {
		return err
	}

	rootInode := r.newDirInode(rootBlock, r.blockSize(), 3)
	lfInode := r.newDirInode(lostFoundBlock, r.blockSize(), 2)

	return r.writeInodes(map[int64]*onddisk.Inode{
		InodeRoot:      rootInode,
		InodeLostFound: lfInode,
	})
}

func (r *run) newDirInode(dataBlock, blockSize int64, linkCount uint16) *onddisk.Inode {
	in := &onddisk.Inode{
		Mode:       onddisk.InodeTypeDirectory | 0755,
		LinksCount: linkCount,
		SizeLo:     uint32(blockSize),
		BlocksLo:   uint32(blockSize / 512),
	}
	if r.fam.UsesExtents {
		in.Flags |= onddisk.ExtentsFlag
		hdr := onddisk.MarshalExtentHeader(&onddisk.ExtentHeader{Magic: onddisk.ExtentMagic, Entries: 1, Max: 4, Depth: 0})
		ext := onddisk.MarshalExtent(&onddisk.Extent{Block: 0, Len: 1, StartLo: uint32(dataBlock)})
		copy(in.Block[:], append(hdr, ext...))
	} else {
		// Classic indirect block pointer: the first of 12 direct
		// pointers is enough for a single-block directory.
		in.Block[0] = byte(dataBlock)
		in.Block[1] = byte(dataBlock >> 8)
		in.Block[2] = byte(dataBlock >> 16)
		in.Block[3] = byte(dataBlock >> 24)
	}
	return in
}

// writeReservedInodes reserves the resize inode (#7, spec.md §9
// "generalized ... the teacher never implemented for families other
// than ext4") and, when the family carries a journal, the journal inode
// (#8). Both are written with only a mode and a link count: no data
// blocks, and no journal superblock even when JournalPopulated is set.
func (r *run) writeReservedInodes() error {
	inodes := map[int64]*onddisk.Inode{}

	if r.fam.FeatureCompat&family.CompatResizeInode != 0 {
		inodes[InodeResize] = &onddisk.Inode{
			Mode:       onddisk.InodeTypeRegularFile | 0600,
			LinksCount: 1,
		}
	}

	if r.fam.HasJournal {
		ji := &onddisk.Inode{
			Mode:       onddisk.InodeTypeRegularFile | 0600,
			LinksCount: 1,
		}
		if r.opts.JournalPopulated {
			// A fully populated journal needs data blocks and a
			// journal superblock written into the first one; Format
			// writes neither, so the flag leaves the inode unchanged.
			ji.Flags |= 0 // left as a bare reservation; replay is out of scope regardless of this flag
		}
		inodes[InodeJournal] = ji
	}

	if len(inodes) == 0 {
		return nil
	}
	return r.writeInodes(inodes)
}

// writeInodes marshals and writes the given inode numbers into their
// group's inode table, computing each one's metadata_csum checksum when
// the family requires it. Inode table block numbers recorded in the
// layout are already absolute device block numbers.
func (r *run) writeInodes(inodes map[int64]*onddisk.Inode) error {
	inodesPerBlock := r.blockSize() / int64(r.fam.InodeSize)
	for num, in := range inodes {
		idx := num - 1 // inode numbers are 1-based
		gi := idx / r.layout.InodesPerGroup
		within := idx % r.layout.InodesPerGroup
		absBlock := r.layout.Groups[gi].InodeTableBlock + within/inodesPerBlock
		offsetInBlock := (within % inodesPerBlock) * int64(r.fam.InodeSize)

		raw := in.Marshal(r.fam.InodeSize)
		if r.fam.UsesMetadataCsum {
			zeroed := onddisk.ZeroChecksum(raw, r.fam.InodeSize)
			sum := checksum.Inode(r.opts.UUID, uint32(num), in.Generation, zeroed)
			in.ChecksumLo = uint16(sum)
			if r.fam.InodeSize >= onddisk.InodeSize256 {
				in.ChecksumHi = uint16(sum >> 16)
			}
			raw = in.Marshal(r.fam.InodeSize)
		}

		buf := make([]byte, r.blockSize())
		if _, err := r.dev.ReadAt(buf, absBlock*r.blockSize()); err != nil {
			// Inode tables were zeroed in zeroCriticalRegions; a read
			// failure here means the device itself is unreadable.
			return fserr.Wrap(fserr.IoError, err, "reading inode table block for inode %d", num)
		}
		copy(buf[offsetInBlock:], raw)
		if err := r.writeAt(absBlock, buf); err != nil {
			return err
		}
	}
	return nil
}

// writeBitmapsAndInodeTables flushes every group's precomputed block and
// inode bitmaps to disk. Inode table contents for unused inodes stay
// zeroed from zeroCriticalRegions.
func (r *run) writeBitmapsAndInodeTables() error {
	for gi, g := range r.layout.Groups {
		if err := r.writeAt(g.BlockBitmapBlock, r.blockBitmaps[gi].Bytes()); err != nil {
			return err
		}
		if err := r.writeAt(g.InodeBitmapBlock, r.inodeBitmaps[gi].Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// writeSuperblocksAndGDTs emits the primary superblock and group
// descriptor table in group 0, then every sparse_super backup
// copy, each with s_block_group_nr set to its own group index (spec.md
// §4.4's primary/backup agreement invariant, except for that one
// field).
func (r *run) writeSuperblocksAndGDTs() error {
	for gi, g := range r.layout.Groups {
		if !g.HasSuperblockCopy {
			continue
		}
		sb := r.buildSuperblock(int64(gi))
		gdts := r.buildGroupDescriptors()

		base := r.groupAbsoluteBlock(int64(gi), 0)

		if err := r.writeSuperblockAt(base, sb); err != nil {
			return err
		}
		if err := r.writeGDTAt(base+1, gdts); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) writeSuperblockAt(groupFirstBlock int64, sb *onddisk.Superblock) error {
	raw := sb.Marshal()
	if r.fam.UsesMetadataCsum {
		zeroed := onddisk.ZeroChecksum(raw)
		sum := checksum.Superblock(r.opts.UUID, zeroed)
		sb.Checksum = sum
		raw = sb.Marshal()
	}
	// The superblock always lives 1024 bytes into the device from the
	// start of its group: for a 1024-byte block size that's the whole
	// of the group's first block (block 0 device-wide is a reserved
	// boot sector, so first_data_block=1 already accounts for it);
	// for larger block sizes it's an offset into the group's first
	// block, whose remainder stays unused padding.
	byteOff := groupFirstBlock * r.blockSize()
	if r.blockSize() != 1024 {
		byteOff += 1024
	}
	if _, err := r.dev.WriteAt(raw, byteOff); err != nil {
		return fserr.Wrap(fserr.IoError, err, "writing superblock")
	}
	return nil
}

func (r *run) writeGDTAt(firstBlock int64, gdts []*onddisk.GroupDescriptor) error {
	entrySize := r.layout.GroupDescriptorSize
	gdtBlocks := r.layout.GDTBlocksPerCopy
	buf := make([]byte, r.blockSize()*gdtBlocks)
	for i, gd := range gdts {
		raw := gd.Marshal(r.layout.Uses64Bit)
		copy(buf[i*entrySize:], raw)
	}
	for b := int64(0); b < gdtBlocks; b++ {
		chunk := buf[b*r.blockSize() : (b+1)*r.blockSize()]
		if err := r.writeAt(firstBlock+b, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) buildSuperblock(groupIdx int64) *onddisk.Superblock {
	l := r.layout
	sb := &onddisk.Superblock{
		TotalInodes:       uint32(l.TotalInodes()),
		TotalBlocks:       uint32(l.TotalBlocks),
		FirstDataBlock:    uint32(l.FirstDataBlock),
		LogBlockSize:      uint32(log2(l.BlockSize) - 10),
		LogClusterSize:    uint32(log2(l.BlockSize) - 10),
		BlocksPerGroup:    uint32(l.BlocksPerGroup),
		ClustersPerGroup:  uint32(l.BlocksPerGroup),
		InodesPerGroup:    uint32(l.InodesPerGroup),
		Signature:         onddisk.Magic,
		State:             1, // cleanly unmounted
		FirstIno:          FirstNonReserved,
		InodeSize:         r.fam.InodeSize,
		BlockGroupNumber:  uint16(groupIdx),
		FeatureCompat:     r.fam.FeatureCompat,
		FeatureIncompat:   r.fam.FeatureIncompat,
		FeatureROCompat:   r.fam.FeatureROCompat,
		UUID:              r.opts.UUID,
		ReservedGDTBlocks: uint16(l.ReservedGDTBlocks),
		VersionMajor:      1,
		DescSize:          uint16(l.GroupDescriptorSize),
	}
	copy(sb.Label[:], r.opts.VolumeLabel)

	if r.fam.SupportsFlexBG {
		sb.LogGroupsPerFlex = uint8(log2(l.GroupsPerFlex))
	}
	if r.fam.UsesMetadataCsum {
		sb.ChecksumType = 1 // EXT4_CRC32C_CHKSUM
		sb.ChecksumSeed = checksum.ExtSeed(r.opts.UUID)
	}
	if r.fam.HasJournal {
		sb.JournalInum = InodeJournal
	}

	var unallocBlocks, unallocInodes int64
	for gi := range l.Groups {
		unallocBlocks += r.groupFreeBlocks(int64(gi))
	}
	unallocInodes = l.TotalInodes() - FirstNonReserved
	sb.UnallocatedBlocks = uint32(unallocBlocks)
	sb.UnallocatedInodes = uint32(unallocInodes)

	backups := layout.SparseSuperGroups(l.NumGroups)
	for i := 0; i < 2 && i < len(backups); i++ {
		sb.BackupBGs[i] = uint32(backups[i])
	}

	return sb
}

func (r *run) buildGroupDescriptors() []*onddisk.GroupDescriptor {
	out := make([]*onddisk.GroupDescriptor, len(r.layout.Groups))
	for gi, g := range r.layout.Groups {
		gd := &onddisk.GroupDescriptor{}
		gd.SetBlockBitmap(uint64(g.BlockBitmapBlock))
		gd.SetInodeBitmap(uint64(g.InodeBitmapBlock))
		gd.SetInodeTable(uint64(g.InodeTableBlock))
		free := uint32(r.groupFreeBlocks(int64(gi)))
		gd.FreeBlocksLo = uint16(free)
		gd.FreeBlocksHi = uint16(free >> 16)
		freeInodes := uint32(r.layout.InodesPerGroup)
		if gi == 0 {
			freeInodes -= FirstNonReserved
		}
		gd.FreeInodesLo = uint16(freeInodes)
		gd.FreeInodesHi = uint16(freeInodes >> 16)
		if gi == 0 {
			gd.DirectoriesLo = 2 // root + lost+found
		}

		if r.fam.UsesMetadataCsum && r.layout.Uses64Bit {
			raw := gd.Marshal(r.layout.Uses64Bit)
			zeroed := gd.ZeroChecksum(raw, r.layout.Uses64Bit)
			gd.Checksum32 = checksum.GroupDescriptor64(r.opts.UUID, uint32(gi), zeroed)
		} else if r.fam.UsesMetadataCsum || r.fam.FeatureROCompat&family.ROCompatGDTChecksum != 0 {
			raw := gd.Marshal(r.layout.Uses64Bit)
			zeroed := gd.ZeroChecksum(raw, r.layout.Uses64Bit)
			gd.Checksum = checksum.GroupDescriptor32(r.opts.UUID, uint32(gi), zeroed)
		}
		out[gi] = gd
	}
	return out
}

func log2(n int64) int64 {
	var l int64
	for n > 1 {
		n >>= 1
		l++
	}
	return l
}
