//go:build windows

package volume

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

// IOCTL_VOLUME_GET_VOLUME_DISK_EXTENTS
const ioctlVolumeGetVolumeDiskExtents = 0x00560000

// DiskNumbers returns the physical disks backing volume ("C:").
func DiskNumbers(volume string) ([]int, error) {
	path, err := windows.UTF16PtrFromString(`\\.\` + volume)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateFile(path, 0,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil, windows.OPEN_EXISTING, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", volume, err)
	}
	defer windows.CloseHandle(h)

	// Spanned volumes may need more than the initial room for 16 extents.
	size := extentsHeaderSize + 16*extentSize
	for {
		buf := make([]byte, size)
		var n uint32
		err = windows.DeviceIoControl(h, ioctlVolumeGetVolumeDiskExtents,
			nil, 0, &buf[0], uint32(len(buf)), &n, nil)
		if errors.Is(err, windows.ERROR_MORE_DATA) && size < 1<<16 {
			size *= 4
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("disk extents of %s: %w", volume, err)
		}
		return parseDiskExtents(buf[:n])
	}
}
