// Package bitmap builds the block and inode bitmaps spec.md §4.5
// describes: block-sized bit arrays where bit i set means block/inode i
// in the group is allocated. Generalized from direktiv-vorteil's
// pkg/ext4 fillBlockUsageBitmap/writeBlockBitmap/writeInodeBitmap, which
// hardcoded a fixed 4 KiB block size and never marked trailing
// out-of-range bits for anything but the block bitmap.
package bitmap

import "math/bits"

// Bitmap is one group's worth of bits, stored as a block-sized byte
// slice (bit i lives at byte i/8, bit i%8).
type Bitmap struct {
	bits []byte
}

// New allocates a bitmap sized to hold blockSize*8 bits, all initially
// clear.
func New(blockSize int64) *Bitmap {
	return &Bitmap{bits: make([]byte, blockSize)}
}

// Set marks bit i as allocated.
func (b *Bitmap) Set(i int64) {
	b.bits[i/8] |= 1 << uint(i%8)
}

// SetRange marks bits [from, to) as allocated.
func (b *Bitmap) SetRange(from, to int64) {
	for i := from; i < to; i++ {
		b.Set(i)
	}
}

// IsSet reports whether bit i is allocated.
func (b *Bitmap) IsSet(i int64) bool {
	return b.bits[i/8]&(1<<uint(i%8)) != 0
}

// MarkUnavailableTail sets every bit from validBits to the end of the
// bitmap, the "bits past end-of-group are set (unavailable)" rule for
// the final, possibly-partial group (spec.md §3 invariant list).
func (b *Bitmap) MarkUnavailableTail(validBits int64) {
	total := int64(len(b.bits)) * 8
	b.SetRange(validBits, total)
}

// Popcount returns the number of set bits.
func (b *Bitmap) Popcount() int64 {
	var n int64
	for _, by := range b.bits {
		n += int64(bits.OnesCount8(by))
	}
	return n
}

// FreeCount returns blocksInGroup - Popcount(), the free-block/free-inode
// accounting rule of spec.md §4.5 and the invariant checked in spec.md
// §8 property 4.
func (b *Bitmap) FreeCount(itemsInGroup int64) int64 {
	return itemsInGroup - b.Popcount()
}

// Bytes returns the raw bitmap bytes, ready to write to disk.
func (b *Bitmap) Bytes() []byte {
	return b.bits
}
