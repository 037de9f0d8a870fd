package detect

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/vorteil/extfmt/pkg/ext/device"
	"github.com/vorteil/extfmt/pkg/ext/family"
	"github.com/vorteil/extfmt/pkg/ext/format"
)

func formatAndReadSuperblock(t *testing.T, fam family.Name) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.img")
	d, err := device.CreateFile(path, 16*1024*1024, 512)
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	defer d.Close()

	f := format.New(nil)
	opts := format.FormatOptions{
		Family:      fam,
		BlockSize:   1024,
		VolumeLabel: "mylabel",
		Tunables:    format.DefaultTunables(),
	}
	if err := f.Format(context.Background(), d, opts); err != nil {
		t.Fatalf("Format: %v", err)
	}

	buf := make([]byte, 1024)
	if _, err := d.ReadAt(buf, 1024); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	return buf
}

func TestDetectClassifiesExt2(t *testing.T) {
	res, err := Detect(formatAndReadSuperblock(t, family.Ext2))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if res.Family != family.Ext2 {
		t.Errorf("Family = %q, want %q", res.Family, family.Ext2)
	}
	if res.BlockSize != 1024 {
		t.Errorf("BlockSize = %d, want 1024", res.BlockSize)
	}
	if res.Label != "mylabel" {
		t.Errorf("Label = %q, want %q", res.Label, "mylabel")
	}
}

func TestDetectClassifiesExt3(t *testing.T) {
	res, err := Detect(formatAndReadSuperblock(t, family.Ext3))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if res.Family != family.Ext3 {
		t.Errorf("Family = %q, want %q", res.Family, family.Ext3)
	}
}

func TestDetectClassifiesExt4(t *testing.T) {
	res, err := Detect(formatAndReadSuperblock(t, family.Ext4))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if res.Family != family.Ext4 {
		t.Errorf("Family = %q, want %q", res.Family, family.Ext4)
	}
}

func TestDetectRejectsBadMagic(t *testing.T) {
	buf := make([]byte, 1024)
	if _, err := Detect(buf); err == nil {
		t.Fatal("expected an error for a buffer with no ext2/3/4 magic number")
	}
}

func TestDetectRejectsShortBuffer(t *testing.T) {
	if _, err := Detect(make([]byte, 10)); err == nil {
		t.Fatal("expected an error for a too-short buffer")
	}
}
