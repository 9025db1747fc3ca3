// Package volume maps logical volumes (drive letters) to the physical disk
// numbers that back them.
package volume

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ErrUnsupported is returned where volume extents cannot be queried.
var ErrUnsupported = errors.New("volume lookup unsupported on this platform")

const (
	extentsHeaderSize = 8
	extentSize        = 24
)

// Mapping is one volume and the disks it spans.
type Mapping struct {
	Volume string `json:"volume" yaml:"volume"`
	Disks  []int  `json:"disks,omitempty" yaml:"disks,omitempty"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ParseVolume accepts "C", "c:", `C:\` or "C:/" and returns "C:".
func ParseVolume(s string) (string, error) {
	v := strings.TrimSpace(s)
	v = strings.TrimRight(v, `\/`)
	v = strings.TrimSuffix(v, ":")
	if len(v) != 1 {
		return "", fmt.Errorf("invalid volume %q", s)
	}
	c := v[0] &^ 0x20
	if c < 'A' || c > 'Z' {
		return "", fmt.Errorf("invalid volume %q", s)
	}
	return string(c) + ":", nil
}

// SystemVolume returns the volume Windows booted from, "C:" when unknown.
func SystemVolume() string {
	if v, err := ParseVolume(os.Getenv("SystemDrive")); err == nil {
		return v
	}
	return "C:"
}

// parseDiskExtents decodes a VOLUME_DISK_EXTENTS buffer: a uint32 extent
// count, 4 bytes of padding, then 24-byte DISK_EXTENT entries whose first
// field is the uint32 disk number.
func parseDiskExtents(buf []byte) ([]int, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("disk extents: short buffer (%d bytes)", len(buf))
	}
	count := int(binary.LittleEndian.Uint32(buf))
	if need := extentsHeaderSize + count*extentSize; count > 0 && len(buf) < need {
		return nil, fmt.Errorf("disk extents: %d extents need %d bytes, have %d", count, need, len(buf))
	}

	seen := make(map[int]struct{}, count)
	disks := make([]int, 0, count)
	for i := 0; i < count; i++ {
		off := extentsHeaderSize + i*extentSize
		n := int(binary.LittleEndian.Uint32(buf[off:]))
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		disks = append(disks, n)
	}
	sort.Ints(disks)
	return disks, nil
}

// Resolve maps every volume to its disks and returns the mappings along
// with the union of all disk numbers. A volume that cannot be resolved is
// reported in its mapping and contributes no disks.
func Resolve(log *zap.Logger, volumes []string) ([]Mapping, []int) {
	if log == nil {
		log = zap.NewNop()
	}
	var (
		mappings []Mapping
		all      []int
	)
	seen := make(map[int]struct{})
	for _, raw := range volumes {
		m := Mapping{Volume: raw}
		v, err := ParseVolume(raw)
		if err == nil {
			m.Volume = v
			m.Disks, err = DiskNumbers(v)
		}
		if err != nil {
			m.Error = err.Error()
			log.Warn("Cannot resolve volume", zap.String("volume", raw), zap.Error(err))
		}
		for _, n := range m.Disks {
			if _, ok := seen[n]; !ok {
				seen[n] = struct{}{}
				all = append(all, n)
			}
		}
		mappings = append(mappings, m)
	}
	sort.Ints(all)
	return mappings, all
}
