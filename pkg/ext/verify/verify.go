// Package verify re-reads a freshly formatted device and checks part of
// its invariants: the primary superblock's magic number and, under
// metadata_csum, its checksum; agreement of every backup superblock with
// the primary (except s_block_group_nr and s_checksum); and that no
// group's block bitmap marks more blocks used than the group holds. It
// does not check group descriptor checksums, inode bitmaps, or free
// block/inode counts against the descriptors or the superblock. It follows direktiv-vorteil's own test style
// (super_test.go's offsetOf-based byte inspection) generalized into a
// reusable runtime check rather than a test-only helper.
package verify

import (
	"bytes"
	"fmt"
	"math/bits"

	"github.com/vorteil/extfmt/pkg/ext/checksum"
	"github.com/vorteil/extfmt/pkg/ext/device"
	"github.com/vorteil/extfmt/pkg/ext/family"
	"github.com/vorteil/extfmt/pkg/ext/fserr"
	"github.com/vorteil/extfmt/pkg/ext/layout"
	"github.com/vorteil/extfmt/pkg/ext/onddisk"
)

// Report collects every problem Verify found. A zero-value Report
// (Problems == nil) means the filesystem checked out clean.
type Report struct {
	Problems []string
}

func (r *Report) fail(format string, args ...interface{}) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// OK reports whether no problems were recorded.
func (r *Report) OK() bool { return len(r.Problems) == 0 }

// VerifyPrimarySuperblock re-reads only the primary superblock (magic and,
// when the family carries one, its metadata_csum) without touching backups
// or bitmaps. This is the minimal check spec.md §4.7 phase 11 requires
// Format to run after every flush, as opposed to the full Verify a caller
// opts into with FormatOptions.VerifyAfterFormat.
func VerifyPrimarySuperblock(dev device.Device, fam family.Name, blockSize int64, use64Bit bool, inodeRatio int64) error {
	famParams, ok := family.For(fam, use64Bit)
	if !ok {
		return fserr.New(fserr.InvalidInput, "unknown family %q", fam)
	}
	pl, err := layout.Plan(dev.TotalSize(), blockSize, famParams, use64Bit, inodeRatio)
	if err != nil {
		return err
	}
	buf := make([]byte, onddisk.SuperblockSize)
	if _, err := dev.ReadAt(buf, superblockByteOffset(pl, 0)); err != nil {
		return fserr.Wrap(fserr.IoError, err, "reading primary superblock")
	}
	sb, err := onddisk.UnmarshalSuperblock(buf)
	if err != nil {
		return err
	}
	if sb.Signature != onddisk.Magic {
		return fserr.New(fserr.ChecksumMismatch, "primary superblock magic %#x != %#x", sb.Signature, onddisk.Magic)
	}
	if famParams.UsesMetadataCsum {
		zeroed := onddisk.ZeroChecksum(buf)
		want := checksum.Superblock(sb.UUID, zeroed)
		if want != sb.Checksum {
			return fserr.New(fserr.ChecksumMismatch, "primary superblock checksum mismatch: on-disk %#x, computed %#x", sb.Checksum, want)
		}
	}
	return nil
}

// Verify re-reads dev assuming it was formatted for the given family at
// blockSize, and runs the checks listed in the package doc.
func Verify(dev device.Device, fam family.Name, blockSize int64, use64Bit bool, inodeRatio int64) (*Report, error) {
	report := &Report{}

	famParams, ok := family.For(fam, use64Bit)
	if !ok {
		return nil, fserr.New(fserr.InvalidInput, "unknown family %q", fam)
	}

	pl, err := layout.Plan(dev.TotalSize(), blockSize, famParams, use64Bit, inodeRatio)
	if err != nil {
		return nil, err
	}

	primaryBuf := make([]byte, onddisk.SuperblockSize)
	if _, err := dev.ReadAt(primaryBuf, superblockByteOffset(pl, 0)); err != nil {
		return nil, fserr.Wrap(fserr.IoError, err, "reading primary superblock")
	}
	primary, err := onddisk.UnmarshalSuperblock(primaryBuf)
	if err != nil {
		return nil, err
	}
	if primary.Signature != onddisk.Magic {
		report.fail("primary superblock magic %#x != %#x", primary.Signature, onddisk.Magic)
	}
	if famParams.UsesMetadataCsum {
		zeroed := onddisk.ZeroChecksum(primaryBuf)
		want := checksum.Superblock(primary.UUID, zeroed)
		if want != primary.Checksum {
			report.fail("primary superblock checksum mismatch: on-disk %#x, computed %#x", primary.Checksum, want)
		}
	}

	for gi, g := range pl.Groups {
		if !g.HasSuperblockCopy || gi == 0 {
			continue
		}
		buf := make([]byte, onddisk.SuperblockSize)
		if _, err := dev.ReadAt(buf, superblockByteOffset(pl, int64(gi))); err != nil {
			return nil, fserr.Wrap(fserr.IoError, err, "reading backup superblock in group %d", gi)
		}
		backup, err := onddisk.UnmarshalSuperblock(buf)
		if err != nil {
			return nil, err
		}
		compareSuperblocks(report, int64(gi), primary, backup)
	}

	for gi, g := range pl.Groups {
		bitmapBuf := make([]byte, pl.BlockSize)
		if _, err := dev.ReadAt(bitmapBuf, g.BlockBitmapBlock*pl.BlockSize); err != nil {
			return nil, fserr.Wrap(fserr.IoError, err, "reading block bitmap for group %d", gi)
		}
		used := popcount(bitmapBuf)
		free := g.BlocksInGroup - used
		if free < 0 {
			report.fail("group %d: block bitmap reports more used blocks than the group has", gi)
		}
	}

	return report, nil
}

func superblockByteOffset(pl *layout.FilesystemLayout, gi int64) int64 {
	groupFirst := pl.FirstDataBlock + gi*pl.BlocksPerGroup
	off := groupFirst * pl.BlockSize
	if pl.BlockSize != 1024 {
		off += 1024
	}
	return off
}

func compareSuperblocks(report *Report, gi int64, primary, backup *onddisk.Superblock) {
	p := *primary
	b := *backup
	p.BlockGroupNumber = 0
	b.BlockGroupNumber = 0
	p.Checksum = 0
	b.Checksum = 0
	if !bytes.Equal(p.Marshal(), b.Marshal()) {
		report.fail("backup superblock in group %d disagrees with the primary (fields other than s_block_group_nr)", gi)
	}
	if backup.BlockGroupNumber != uint16(gi) {
		report.fail("backup superblock in group %d has s_block_group_nr=%d, want %d", gi, backup.BlockGroupNumber, gi)
	}
}

func popcount(b []byte) int64 {
	var n int64
	for _, by := range b {
		n += int64(bits.OnesCount8(by))
	}
	return n
}
