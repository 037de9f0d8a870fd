//go:build linux

package device

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// platformSectorSize asks the kernel for the logical block size of the
// device backing f, falling back to 512 when f isn't a block device
// (e.g. a plain regular file image).
func platformSectorSize(f *os.File) int64 {
	var size int32
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), unix.BLKSSZGET, uintptr(unsafe.Pointer(&size)))
	if errno != 0 || size <= 0 {
		return 512
	}
	return int64(size)
}

// blockDeviceSize asks the kernel for the total size of a block device
// that reports zero from stat(2), via BLKGETSIZE64.
func blockDeviceSize(f *os.File) (int64, error) {
	var size uint64
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&size)))
	if errno != 0 {
		return 0, errno
	}
	return int64(size), nil
}
