package checksum

import "testing"

func TestChecksumDeterministic(t *testing.T) {
	b := []byte("ext4 checksum test vector")
	if Checksum(b) != Checksum(b) {
		t.Fatal("Checksum is not deterministic")
	}
}

func TestUpdateMatchesChecksumFromZeroSeed(t *testing.T) {
	b := []byte("some metadata bytes")
	if Update(0, b) != Checksum(b) {
		t.Errorf("Update(0, b) should equal Checksum(b)")
	}
}

func TestExtSeedDeterministic(t *testing.T) {
	var uuid [16]byte
	copy(uuid[:], []byte("0123456789abcdef"))
	s1 := ExtSeed(uuid)
	s2 := ExtSeed(uuid)
	if s1 != s2 {
		t.Fatal("ExtSeed is not deterministic for the same UUID")
	}

	var other [16]byte
	copy(other[:], []byte("fedcba9876543210"))
	if ExtSeed(other) == s1 {
		t.Fatal("different UUIDs produced the same seed")
	}
}

func TestLE32(t *testing.T) {
	got := LE32(0x01020304)
	want := []byte{0x04, 0x03, 0x02, 0x01}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("LE32(0x01020304) = %x, want %x", got, want)
		}
	}
}

func TestSuperblockChecksumExcludesItsOwnField(t *testing.T) {
	var uuid [16]byte
	copy(uuid[:], []byte("0123456789abcdef"))

	sb := make([]byte, 1024)
	sum1 := Superblock(uuid, sb)

	// Changing only the last 4 bytes (the checksum slot) must not change
	// the computed checksum, since Superblock only covers bytes [0:1020).
	sb2 := make([]byte, 1024)
	copy(sb2, sb)
	sb2[1023] = 0xFF
	sum2 := Superblock(uuid, sb2)

	if sum1 != sum2 {
		t.Errorf("Superblock checksum changed when only the checksum slot changed")
	}
}

func TestGroupDescriptor64DiffersFrom32Algorithm(t *testing.T) {
	var uuid [16]byte
	desc := make([]byte, 64)
	sum64 := GroupDescriptor64(uuid, 0, desc)
	sum32 := GroupDescriptor32(uuid, 0, desc[:32])
	if uint32(sum32) == sum64 {
		t.Errorf("CRC16 and CRC32C group descriptor checksums should not coincide")
	}
}

func TestInodeAndDirTailShareSeedRule(t *testing.T) {
	var uuid [16]byte
	copy(uuid[:], []byte("0123456789abcdef"))
	buf := make([]byte, 256)

	inodeSum := Inode(uuid, 2, 0, buf)
	dirSum := DirTail(uuid, 2, 0, buf)
	if inodeSum != dirSum {
		t.Errorf("Inode and DirTail follow the same seed rule and should agree on the same input")
	}
}
