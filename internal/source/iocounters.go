package source

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/go-tangra/go-tangra-diskhealth/internal/health"
)

var virtualDiskPrefixes = []string{"loop", "ram", "zram", "dm-", "sr", "fd"}

// IOCounters enumerates block devices through gopsutil on hosts without WMI.
// It only knows device names and serials.
type IOCounters struct {
	counters func(ctx context.Context) (map[string]disk.IOCountersStat, error)
}

// NewIOCounters returns the gopsutil disk provider.
func NewIOCounters() *IOCounters {
	return &IOCounters{
		counters: func(ctx context.Context) (map[string]disk.IOCountersStat, error) {
			return disk.IOCountersWithContext(ctx)
		},
	}
}

func (c *IOCounters) Name() string { return "gopsutil" }

func (c *IOCounters) Collect(ctx context.Context, emit func(health.Observation)) error {
	stats, err := c.counters(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "not implemented") {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return fmt.Errorf("read disk counters: %w", err)
	}
	obs := countersToObservations(stats)
	if len(obs) == 0 {
		return fmt.Errorf("%w: no block devices reported", ErrUnavailable)
	}
	for _, o := range obs {
		emit(o)
	}
	return nil
}

// countersToObservations keeps whole physical devices, dropping virtual
// devices and partitions, in name order.
func countersToObservations(stats map[string]disk.IOCountersStat) []health.Observation {
	names := make([]string, 0, len(stats))
	for name := range stats {
		if isVirtualDisk(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var out []health.Observation
	for _, name := range names {
		if isPartitionOf(name, names) {
			continue
		}
		st := stats[name]
		o := health.Observation{
			Source:       NameDiskEnumeration,
			FriendlyName: name,
			SerialNumber: strings.TrimSpace(st.SerialNumber),
		}
		health.DeriveKeys(&o)
		out = append(out, o)
	}
	return out
}

func isVirtualDisk(name string) bool {
	for _, p := range virtualDiskPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// isPartitionOf reports whether name is another device's name followed by
// a partition number, as in sda1 or nvme0n1p2.
func isPartitionOf(name string, all []string) bool {
	for _, other := range all {
		if other == name {
			continue
		}
		if suffix, ok := strings.CutPrefix(name, other); ok && isPartitionSuffix(suffix) {
			return true
		}
	}
	return false
}

func isPartitionSuffix(s string) bool {
	s = strings.TrimPrefix(s, "p")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
