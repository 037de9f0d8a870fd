package onddisk

import (
	"bytes"
	"testing"
)

func TestInodeRoundTrip256(t *testing.T) {
	in := &Inode{
		Mode:       InodeTypeDirectory | 0755,
		LinksCount: 2,
		SizeLo:     4096,
		Generation: 7,
	}
	raw := in.Marshal(InodeSize256)
	if len(raw) != InodeSize256 {
		t.Fatalf("marshaled inode is %d bytes, want %d", len(raw), InodeSize256)
	}

	got, err := UnmarshalInode(raw, InodeSize256)
	if err != nil {
		t.Fatalf("UnmarshalInode: %v", err)
	}
	if got.Mode != in.Mode || got.LinksCount != in.LinksCount || got.SizeLo != in.SizeLo {
		t.Errorf("round trip mismatch: got %+v", got)
	}
}

func TestInodeRoundTrip128(t *testing.T) {
	in := &Inode{Mode: InodeTypeRegularFile | 0644, LinksCount: 1}
	raw := in.Marshal(InodeSize128)
	if len(raw) != InodeSize128 {
		t.Fatalf("marshaled inode is %d bytes, want %d", len(raw), InodeSize128)
	}
	got, err := UnmarshalInode(raw, InodeSize128)
	if err != nil {
		t.Fatalf("UnmarshalInode: %v", err)
	}
	if got.Mode != in.Mode {
		t.Errorf("round trip lost Mode: got %#x, want %#x", got.Mode, in.Mode)
	}
}

func TestInodeChecksumOffsets(t *testing.T) {
	in := &Inode{}
	if off := offsetOf(in, &in.ChecksumLo); off != 0x7C {
		t.Errorf("ChecksumLo is at offset %#x, want 0x7C", off)
	}
	in2 := &Inode{}
	if off := offsetOf(in2, &in2.ChecksumHi); off != 0x82 {
		t.Errorf("ChecksumHi is at offset %#x, want 0x82", off)
	}
}

func TestInodeZeroChecksum(t *testing.T) {
	in := &Inode{ChecksumLo: 0xABCD, ChecksumHi: 0x1234}
	raw := in.Marshal(InodeSize256)
	zeroed := ZeroChecksum(raw, InodeSize256)
	if zeroed[0x7C] != 0 || zeroed[0x7D] != 0 {
		t.Errorf("ZeroChecksum left ChecksumLo non-zero")
	}
	if zeroed[0x82] != 0 || zeroed[0x83] != 0 {
		t.Errorf("ZeroChecksum left ChecksumHi non-zero")
	}
	if bytes.Equal(raw, zeroed) {
		t.Errorf("ZeroChecksum should have changed the buffer")
	}
}

func TestExtentMarshalSizes(t *testing.T) {
	if got := len(MarshalExtentHeader(&ExtentHeader{})); got != 12 {
		t.Errorf("ExtentHeader marshals to %d bytes, want 12", got)
	}
	if got := len(MarshalExtentIndex(&ExtentIndex{})); got != 12 {
		t.Errorf("ExtentIndex marshals to %d bytes, want 12", got)
	}
	if got := len(MarshalExtent(&Extent{})); got != 12 {
		t.Errorf("Extent marshals to %d bytes, want 12", got)
	}
}
