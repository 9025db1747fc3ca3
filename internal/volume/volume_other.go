//go:build !windows

package volume

// DiskNumbers returns the physical disks backing volume ("C:").
func DiskNumbers(volume string) ([]int, error) {
	return nil, ErrUnsupported
}
