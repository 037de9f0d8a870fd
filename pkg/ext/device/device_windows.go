//go:build windows

package device

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// platformSectorSize queries the volume's disk geometry via
// DeviceIoControl(IOCTL_DISK_GET_DRIVE_GEOMETRY), falling back to 512
// when the handle isn't a raw disk (e.g. a plain image file).
func platformSectorSize(f *os.File) int64 {
	type diskGeometry struct {
		Cylinders         int64
		MediaType         uint32
		TracksPerCylinder uint32
		SectorsPerTrack   uint32
		BytesPerSector    uint32
	}

	var geom diskGeometry
	var bytesReturned uint32
	const ioctlDiskGetDriveGeometry = 0x70000

	err := windows.DeviceIoControl(
		windows.Handle(f.Fd()),
		ioctlDiskGetDriveGeometry,
		nil, 0,
		(*byte)(unsafe.Pointer(&geom)), uint32(unsafe.Sizeof(geom)),
		&bytesReturned, nil,
	)
	if err != nil || geom.BytesPerSector == 0 {
		return 512
	}
	return int64(geom.BytesPerSector)
}

func blockDeviceSize(f *os.File) (int64, error) {
	cur, err := f.Seek(0, os.SEEK_CUR)
	if err != nil {
		return 0, err
	}
	end, err := f.Seek(0, os.SEEK_END)
	if err != nil {
		return 0, err
	}
	if _, err := f.Seek(cur, os.SEEK_SET); err != nil {
		return 0, err
	}
	return end, nil
}
