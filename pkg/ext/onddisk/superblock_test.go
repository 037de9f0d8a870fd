package onddisk

import (
	"bytes"
	"encoding/binary"
	"reflect"
	"testing"
	"unsafe"
)

// offsetOf mirrors direktiv-vorteil's pkg/ext4 test helper of the same
// name: zero the struct, poison one field's first byte, marshal it, and
// find where the poison byte landed.
func offsetOf(obj, field interface{}) int {
	if err := binary.Read(bytes.NewReader(make([]byte, 4096)), binary.LittleEndian, obj); err != nil {
		panic(err)
	}

	ptr := (*uint8)(unsafe.Pointer(reflect.ValueOf(field).Pointer()))
	*ptr = 0xFF

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, obj); err != nil {
		panic(err)
	}

	for i, b := range buf.Bytes() {
		if b == 0xFF {
			return i
		}
	}
	panic("poison byte not found")
}

func TestSuperblockFieldOffsets(t *testing.T) {
	cases := []struct {
		name   string
		offset int
	}{
		{"Signature", 56},
		{"FeatureIncompat", 96},
		{"FeatureROCompat", 100},
		{"UUID", 104},
		{"Label", 120},
	}

	for _, c := range cases {
		sb := &Superblock{}
		got := offsetOf(sb, fieldByName(sb, c.name))
		if got != c.offset {
			t.Errorf("Superblock.%s is at offset %d, want %d", c.name, got, c.offset)
		}
	}
}

func fieldByName(sb *Superblock, name string) interface{} {
	v := reflect.ValueOf(sb).Elem().FieldByName(name)
	return v.Addr().Interface()
}

func TestSuperblockMarshalSize(t *testing.T) {
	sb := &Superblock{}
	b := sb.Marshal()
	if len(b) != SuperblockSize {
		t.Fatalf("marshaled superblock is %d bytes, want %d", len(b), SuperblockSize)
	}
}

func TestSuperblockRoundTrip(t *testing.T) {
	sb := &Superblock{
		TotalInodes:     1024,
		TotalBlocks:     4096,
		Signature:       Magic,
		FeatureIncompat: 0x42,
		InodeSize:       256,
	}
	copy(sb.UUID[:], []byte("0123456789abcdef"))
	copy(sb.Label[:], []byte("mylabel"))

	raw := sb.Marshal()
	got, err := UnmarshalSuperblock(raw)
	if err != nil {
		t.Fatalf("UnmarshalSuperblock: %v", err)
	}

	if got.TotalInodes != sb.TotalInodes || got.TotalBlocks != sb.TotalBlocks {
		t.Errorf("round trip changed inode/block counts: got %+v", got)
	}
	if got.Signature != Magic {
		t.Errorf("round trip lost magic: got %#x", got.Signature)
	}
	if got.UUID != sb.UUID {
		t.Errorf("round trip changed UUID")
	}
	if got.Label != sb.Label {
		t.Errorf("round trip changed label")
	}
}

func TestUnmarshalSuperblockShortBuffer(t *testing.T) {
	_, err := UnmarshalSuperblock(make([]byte, 10))
	if err == nil {
		t.Fatal("expected an error for a short buffer")
	}
}

func TestZeroChecksum(t *testing.T) {
	sb := &Superblock{Checksum: 0xDEADBEEF}
	raw := sb.Marshal()
	zeroed := ZeroChecksum(raw)
	if len(zeroed) != len(raw) {
		t.Fatalf("ZeroChecksum changed length")
	}
	for i := len(zeroed) - 4; i < len(zeroed); i++ {
		if zeroed[i] != 0 {
			t.Errorf("ZeroChecksum left a non-zero byte at %d", i)
		}
	}
	// original buffer must be untouched
	if bytes.Equal(raw, zeroed) {
		t.Errorf("ZeroChecksum should not have been a no-op given a non-zero checksum")
	}
}
