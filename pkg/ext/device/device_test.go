package device

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vorteil/extfmt/pkg/ext/fserr"
)

func TestCreateFileReportsExactSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.ext4")
	d, err := CreateFile(path, 64*1024, 512)
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	defer d.Close()

	if d.TotalSize() != 64*1024 {
		t.Errorf("TotalSize() = %d, want %d", d.TotalSize(), 64*1024)
	}
	if d.SectorSize() != 512 {
		t.Errorf("SectorSize() = %d, want 512", d.SectorSize())
	}
}

func TestFileDeviceReadWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.ext4")
	d, err := CreateFile(path, 4096, 512)
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	defer d.Close()

	want := bytes.Repeat([]byte{0xAB}, 128)
	if _, err := d.WriteAt(want, 1024); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	if err := d.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got := make([]byte, len(want))
	if _, err := d.ReadAt(got, 1024); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Error("read back data does not match what was written")
	}
}

func TestOpenFileMissingDeviceReturnsDeviceNotFound(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "does-not-exist"), 512)
	if err == nil {
		t.Fatal("expected an error opening a nonexistent device")
	}
	if !errors.Is(err, fserr.Sentinel(fserr.DeviceNotFound)) {
		t.Errorf("expected a DeviceNotFound error, got %v", err)
	}
}

func TestZeroDeviceOverwritesExistingData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.ext4")
	d, err := CreateFile(path, 8192, 512)
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	defer d.Close()

	if _, err := d.WriteAt(bytes.Repeat([]byte{0xFF}, 8192), 0); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}

	if err := ZeroDevice(d, 1024); err != nil {
		t.Fatalf("ZeroDevice: %v", err)
	}

	got := make([]byte, 8192)
	if _, err := d.ReadAt(got, 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if !bytes.Equal(got, make([]byte, 8192)) {
		t.Error("ZeroDevice should have overwritten every byte with zero")
	}
}

func TestCreateFileDefaultsSectorSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.ext4")
	d, err := CreateFile(path, 4096, 0)
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	defer d.Close()
	if d.SectorSize() != 512 {
		t.Errorf("SectorSize() = %d, want default 512", d.SectorSize())
	}
}

func TestMain_usesTempDirNotCwd(t *testing.T) {
	// sanity check that t.TempDir() gives an isolated directory so these
	// tests never collide with a real device path on the host.
	if _, err := os.Stat(t.TempDir()); err != nil {
		t.Fatalf("t.TempDir(): %v", err)
	}
}
