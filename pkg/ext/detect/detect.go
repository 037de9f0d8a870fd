// Package detect classifies an existing filesystem image by reading
// back its superblock, the read side of what pkg/ext/format writes
// (spec.md §4.9's "Filesystem Detector"). It is grounded on the same
// magic-number and feature-bit check other_examples' go-diskfs ext4
// superblock reader performs before it will mount an image.
package detect

import (
	"github.com/vorteil/extfmt/pkg/ext/family"
	"github.com/vorteil/extfmt/pkg/ext/fserr"
	"github.com/vorteil/extfmt/pkg/ext/onddisk"
)

// Result reports what Detect found.
type Result struct {
	Family    family.Name
	BlockSize int64
	UUID      [16]byte
	Label     string
}

// Detect reads a 1024-byte buffer captured at byte offset 1024 of the
// device (the primary superblock's fixed location, spec.md §3) and
// classifies it.
func Detect(sbBytes []byte) (*Result, error) {
	sb, err := onddisk.UnmarshalSuperblock(sbBytes)
	if err != nil {
		return nil, err
	}
	if sb.Signature != onddisk.Magic {
		return nil, fserr.New(fserr.InvalidInput, "superblock magic %#x does not match ext2/3/4 (%#x)", sb.Signature, onddisk.Magic)
	}

	name := family.Ext2
	switch {
	case sb.FeatureIncompat&family.IncompatExtents != 0:
		name = family.Ext4
	case sb.FeatureCompat&family.CompatHasJournal != 0:
		name = family.Ext3
	}

	blockSize := int64(1024) << sb.LogBlockSize

	label := ""
	for _, b := range sb.Label {
		if b == 0 {
			break
		}
		label += string(rune(b))
	}

	return &Result{
		Family:    name,
		BlockSize: blockSize,
		UUID:      sb.UUID,
		Label:     label,
	}, nil
}
