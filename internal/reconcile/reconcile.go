package reconcile

import (
	"go.uber.org/zap"

	"github.com/go-tangra/go-tangra-diskhealth/internal/health"
)

// Run folds the observation batches in the order given (one batch per
// source, highest priority first), flags the target disks and returns the
// records in presentation order.
func Run(log *zap.Logger, batches [][]health.Observation, targetDisks []int) []*health.Record {
	c := NewContext(log)
	for _, batch := range batches {
		for _, obs := range batch {
			c.Fold(obs)
		}
	}
	records := c.Records()
	if n := MarkTargets(records, targetDisks); n > 0 {
		c.log.Debug("Target disks marked", zap.Int("records", n), zap.Ints("disks", targetDisks))
	}
	return Sorted(records)
}
