package reconcile

import (
	"sort"
	"strings"

	"github.com/go-tangra/go-tangra-diskhealth/internal/health"
)

// Sorted returns the records in presentation order: target volumes first,
// then by disk number with unknown numbers last, then by friendly name.
// Remaining ties fall back to serial, model and first key so identical
// inputs always produce the same order.
func Sorted(records []*health.Record) []*health.Record {
	out := make([]*health.Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j])
	})
	return out
}

func less(a, b *health.Record) bool {
	if a.IsTargetVolume != b.IsTargetVolume {
		return a.IsTargetVolume
	}

	switch {
	case a.DiskNumber != nil && b.DiskNumber == nil:
		return true
	case a.DiskNumber == nil && b.DiskNumber != nil:
		return false
	case a.DiskNumber != nil && *a.DiskNumber != *b.DiskNumber:
		return *a.DiskNumber < *b.DiskNumber
	}

	if c := compareFold(a.FriendlyName, b.FriendlyName); c != 0 {
		return c < 0
	}
	if c := compareFold(a.SerialNumber, b.SerialNumber); c != 0 {
		return c < 0
	}
	if c := compareFold(a.Model, b.Model); c != 0 {
		return c < 0
	}
	return firstKey(a) < firstKey(b)
}

func compareFold(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func firstKey(r *health.Record) string {
	if len(r.Keys) == 0 {
		return ""
	}
	return r.Keys[0]
}
