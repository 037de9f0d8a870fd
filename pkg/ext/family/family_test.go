package family

import "testing"

func TestForDispatchesByName(t *testing.T) {
	cases := []struct {
		name    Name
		wantOK  bool
		journal bool
	}{
		{Ext2, true, false},
		{Ext3, true, true},
		{Ext4, true, true},
		{"exfat", false, false},
	}
	for _, c := range cases {
		p, ok := For(c.name, false)
		if ok != c.wantOK {
			t.Fatalf("For(%q) ok = %v, want %v", c.name, ok, c.wantOK)
		}
		if ok && p.HasJournal != c.journal {
			t.Errorf("For(%q).HasJournal = %v, want %v", c.name, p.HasJournal, c.journal)
		}
	}
}

func TestExt4Uses64BitFlag(t *testing.T) {
	p32 := Ext4(false)
	if p32.Uses64Bit || p32.FeatureIncompat&Incompat64Bit != 0 {
		t.Error("Ext4(false) should not enable 64-bit descriptors")
	}

	p64 := Ext4(true)
	if !p64.Uses64Bit || p64.FeatureIncompat&Incompat64Bit == 0 {
		t.Error("Ext4(true) should enable 64-bit descriptors")
	}
}

func TestGroupDescriptorSize(t *testing.T) {
	if Ext2().GroupDescriptorSize() != 32 {
		t.Error("ext2 should use 32-byte group descriptors")
	}
	if Ext4(true).GroupDescriptorSize() != 64 {
		t.Error("64-bit ext4 should use 64-byte group descriptors")
	}
}

func TestExt3BuildsOnExt2(t *testing.T) {
	e2 := Ext2()
	e3 := Ext3()
	if e3.InodeSize != 256 {
		t.Errorf("Ext3 should use 256-byte inodes, got %d (ext2 uses %d)", e3.InodeSize, e2.InodeSize)
	}
	if e3.FeatureCompat&CompatHasJournal == 0 {
		t.Error("Ext3 must set the has_journal compat flag")
	}
	if e2.FeatureCompat&CompatHasJournal != 0 {
		t.Error("Ext2 must not set the has_journal compat flag")
	}
}

func TestExt4NeverUsesIndirectBlocks(t *testing.T) {
	if !Ext4(false).UsesExtents {
		t.Error("ext4 must always use extents")
	}
	if Ext2().UsesExtents || Ext3().UsesExtents {
		t.Error("ext2/ext3 must use indirect block pointers, not extents")
	}
}
