package reconcile

import "github.com/go-tangra/go-tangra-diskhealth/internal/health"

// MarkTargets flags every record whose disk number is in diskNumbers and
// returns how many records were flagged. Flags are never cleared.
func MarkTargets(records []*health.Record, diskNumbers []int) int {
	if len(diskNumbers) == 0 {
		return 0
	}
	want := make(map[int]struct{}, len(diskNumbers))
	for _, n := range diskNumbers {
		want[n] = struct{}{}
	}

	marked := 0
	for _, rec := range records {
		if rec.DiskNumber == nil {
			continue
		}
		if _, ok := want[*rec.DiskNumber]; ok {
			rec.IsTargetVolume = true
			marked++
		}
	}
	return marked
}
