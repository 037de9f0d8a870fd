package layout

import (
	"testing"

	"github.com/vorteil/extfmt/pkg/ext/family"
)

func TestPlanRejectsDeviceTooSmall(t *testing.T) {
	_, err := Plan(1024, 4096, family.Ext4(false), false, 0)
	if err == nil {
		t.Fatal("expected an error for a device smaller than 8 blocks")
	}
}

func TestPlanRejectsBadBlockSize(t *testing.T) {
	_, err := Plan(64*1024*1024, 3000, family.Ext4(false), false, 0)
	if err == nil {
		t.Fatal("expected an error for a non-standard block size")
	}
}

func TestPlanBasicExt4Layout(t *testing.T) {
	const size = 64 * 1024 * 1024 // 64 MiB
	l, err := Plan(size, 4096, family.Ext4(false), false, 0)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if l.BlockSize != 4096 {
		t.Errorf("BlockSize = %d, want 4096", l.BlockSize)
	}
	if l.TotalBlocks != size/4096 {
		t.Errorf("TotalBlocks = %d, want %d", l.TotalBlocks, size/4096)
	}
	if l.BlocksPerGroup != 8*4096 {
		t.Errorf("BlocksPerGroup = %d, want %d", l.BlocksPerGroup, 8*4096)
	}
	if len(l.Groups) != int(l.NumGroups) {
		t.Fatalf("len(Groups) = %d, want %d", len(l.Groups), l.NumGroups)
	}
	if !l.Groups[0].HasSuperblockCopy {
		t.Error("group 0 must always carry a superblock copy")
	}
}

func TestSparseSuperGroups(t *testing.T) {
	got := SparseSuperGroups(30)
	want := map[int64]bool{0: true, 1: true, 3: true, 5: true, 7: true, 9: true, 25: true, 27: true}
	for _, g := range got {
		if !want[g] {
			t.Errorf("unexpected sparse_super group %d", g)
		}
		delete(want, g)
	}
	if len(want) != 0 {
		t.Errorf("missing expected sparse_super groups: %v", want)
	}
}

func TestPlanChoose64BitAutomatically(t *testing.T) {
	// A device whose group count times blocks-per-group would exceed
	// 2^32 must force 64-bit descriptors even if the caller didn't ask.
	const hugeGroups = (int64(1) << 32) / (8 * 4096)
	l, err := Plan((hugeGroups+2)*8*4096*4096, 4096, family.Ext4(false), false, 0)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !l.Uses64Bit {
		t.Error("Plan should force 64-bit descriptors once num_groups*blocks_per_group exceeds 2^32")
	}
}

func TestPlanSmallestValidDevice(t *testing.T) {
	// A device with only MinBlocks blocks total can't possibly also hold
	// its own superblock/GDT/bitmaps/inode table; a device has to be
	// large enough to leave at least MinBlocks free *after* metadata.
	const size = 4096 * 1024 // 4096 blocks of 1024 bytes
	l, err := Plan(size, 1024, family.Ext2(), false, 0)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if l.FirstDataBlock != 1 {
		t.Errorf("FirstDataBlock = %d, want 1 for 1024-byte blocks", l.FirstDataBlock)
	}
	g := l.Groups[0]
	if g.BlocksInGroup-g.MetadataBlocks < MinBlocks {
		t.Errorf("group 0 leaves only %d usable blocks after metadata, want at least %d",
			g.BlocksInGroup-g.MetadataBlocks, MinBlocks)
	}
}

func TestPlanRejectsDeviceTooSmallAfterMetadata(t *testing.T) {
	// 16 blocks of 4 KiB is well above MinBlocks in raw size, but its
	// single group's metadata (superblock/GDT/bitmaps/inode table) takes
	// up far more than 16 blocks, leaving no room for data.
	_, err := Plan(16*4096, 4096, family.Ext4(false), false, 0)
	if err == nil {
		t.Fatal("expected an error for a device that can't hold its own metadata")
	}
}
