package format

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/vorteil/extfmt/pkg/ext/device"
	"github.com/vorteil/extfmt/pkg/ext/family"
	"github.com/vorteil/extfmt/pkg/ext/onddisk"
)

func testOptions(fam family.Name) FormatOptions {
	return FormatOptions{
		Family:      fam,
		BlockSize:   1024,
		VolumeLabel: "testvol",
		Tunables:    DefaultTunables(),
	}
}

func TestValidateOptionsRejectsUnknownFamily(t *testing.T) {
	f := New(nil)
	err := f.ValidateOptions(FormatOptions{Family: "btrfs", BlockSize: 1024}, 16*1024*1024)
	if err == nil {
		t.Fatal("expected an error for an unknown family")
	}
}

func TestValidateOptionsRejectsLongLabel(t *testing.T) {
	f := New(nil)
	opts := testOptions(family.Ext4)
	opts.VolumeLabel = "this-label-is-definitely-too-long"
	if err := f.ValidateOptions(opts, 16*1024*1024); err == nil {
		t.Fatal("expected an error for an oversized volume label")
	}
}

func TestDryRunReportsPlan(t *testing.T) {
	f := New(nil)
	report, err := f.DryRun(testOptions(family.Ext4), 16*1024*1024)
	if err != nil {
		t.Fatalf("DryRun: %v", err)
	}
	if report.NumGroups < 1 {
		t.Error("expected at least one block group")
	}
	if report.FreeInodes <= 0 || report.FreeInodes >= report.TotalInodes {
		t.Errorf("FreeInodes = %d, want between 0 and TotalInodes(%d)", report.FreeInodes, report.TotalInodes)
	}
	if report.FreeBlocks <= 0 || report.FreeBlocks >= report.TotalBlocks {
		t.Errorf("FreeBlocks = %d, want between 0 and TotalBlocks(%d)", report.FreeBlocks, report.TotalBlocks)
	}
}

func formatTempDevice(t *testing.T, fam family.Name, size int64) (*device.FileDevice, FormatOptions) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.img")
	d, err := device.CreateFile(path, size, 512)
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	opts := testOptions(fam)
	f := New(nil)
	if err := f.Format(context.Background(), d, opts); err != nil {
		t.Fatalf("Format: %v", err)
	}
	return d, opts
}

func TestFormatExt2ProducesValidPrimarySuperblock(t *testing.T) {
	d, _ := formatTempDevice(t, family.Ext2, 16*1024*1024)

	buf := make([]byte, 1024)
	if _, err := d.ReadAt(buf, 1024); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	sb, err := onddisk.UnmarshalSuperblock(buf)
	if err != nil {
		t.Fatalf("UnmarshalSuperblock: %v", err)
	}
	if sb.Signature != onddisk.Magic {
		t.Errorf("Signature = %#x, want %#x", sb.Signature, onddisk.Magic)
	}
	if sb.FirstIno != FirstNonReserved {
		t.Errorf("FirstIno = %d, want %d", sb.FirstIno, FirstNonReserved)
	}
	if sb.State != 1 {
		t.Errorf("State = %d, want 1 (clean)", sb.State)
	}
}

func TestFormatExt4SetsExtentsAndMetadataCsum(t *testing.T) {
	d, _ := formatTempDevice(t, family.Ext4, 32*1024*1024)

	buf := make([]byte, 1024)
	if _, err := d.ReadAt(buf, 1024); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	sb, err := onddisk.UnmarshalSuperblock(buf)
	if err != nil {
		t.Fatalf("UnmarshalSuperblock: %v", err)
	}
	if sb.FeatureIncompat&family.IncompatExtents == 0 {
		t.Error("ext4 superblock should set the extents incompat feature")
	}
	if sb.ChecksumType != 1 {
		t.Error("ext4 (metadata_csum family) superblock should record checksum type 1")
	}
}

func TestFormatWritesRootAndLostFoundInodes(t *testing.T) {
	d, opts := formatTempDevice(t, family.Ext2, 16*1024*1024)
	_ = opts

	buf := make([]byte, 1024)
	if _, err := d.ReadAt(buf, 1024); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	sb, err := onddisk.UnmarshalSuperblock(buf)
	if err != nil {
		t.Fatalf("UnmarshalSuperblock: %v", err)
	}
	if sb.UnallocatedInodes >= sb.TotalInodes {
		t.Error("formatting should have consumed at least the reserved inodes")
	}
}

func TestFormatRejectsDeviceTooSmall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.img")
	d, err := device.CreateFile(path, 4096, 512)
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	defer d.Close()

	f := New(nil)
	err = f.Format(context.Background(), d, testOptions(family.Ext4))
	if err == nil {
		t.Fatal("expected an error formatting a too-small device")
	}
}

func TestFormatHonorsCancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.img")
	d, err := device.CreateFile(path, 16*1024*1024, 512)
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := New(nil)
	if err := f.Format(ctx, d, testOptions(family.Ext4)); err == nil {
		t.Fatal("expected Format to fail with an already-cancelled context")
	}
}
