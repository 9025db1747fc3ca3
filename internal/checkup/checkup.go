// Package checkup runs one full disk health pass: collect from every source,
// reconcile, mark the target disks and wrap the result in a report.
package checkup

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/go-tangra/go-tangra-diskhealth/internal/hostinfo"
	"github.com/go-tangra/go-tangra-diskhealth/internal/reconcile"
	"github.com/go-tangra/go-tangra-diskhealth/internal/report"
	"github.com/go-tangra/go-tangra-diskhealth/internal/source"
	"github.com/go-tangra/go-tangra-diskhealth/internal/volume"
)

// Options controls a pass.
type Options struct {
	// Volumes are resolved to disk numbers and marked as targets.
	Volumes []string
	// Disks are marked as targets directly.
	Disks []int
	// Timeout bounds each source call.
	Timeout time.Duration
}

// Checkup runs passes against a fixed set of adapters.
type Checkup struct {
	log      *zap.Logger
	opts     Options
	adapters []source.Adapter

	resolveVolumes func(*zap.Logger, []string) ([]volume.Mapping, []int)
	hostInfo       func(*zap.Logger) hostinfo.Info
}

// New returns a checkup over adapters, or over source.Defaults when none
// are given.
func New(log *zap.Logger, opts Options, adapters ...source.Adapter) *Checkup {
	if log == nil {
		log = zap.NewNop()
	}
	if len(adapters) == 0 {
		adapters = source.Defaults(log)
	}
	return &Checkup{
		log:            log,
		opts:           opts,
		adapters:       adapters,
		resolveVolumes: volume.Resolve,
		hostInfo:       hostinfo.Collect,
	}
}

// Run performs one pass. Source failures are recorded in the report and
// never fail the pass; only a cancelled ctx does.
func (c *Checkup) Run(ctx context.Context) (*report.Report, error) {
	start := time.Now()

	batches, results := source.NewRunner(c.log, c.opts.Timeout).Run(ctx, c.adapters...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		mappings []volume.Mapping
		disks    []int
	)
	if len(c.opts.Volumes) > 0 {
		mappings, disks = c.resolveVolumes(c.log, c.opts.Volumes)
	}
	targets := mergeInts(c.opts.Disks, disks)

	records := reconcile.Run(c.log, batches, targets)

	rep := report.New(c.hostInfo(c.log), records)
	rep.Volumes = mappings
	rep.TargetDisks = targets
	rep.Sources = results

	c.log.Info("Checkup finished",
		zap.Int("devices", rep.Summary.Total),
		zap.Int("at_risk", rep.Summary.AtRisk),
		zap.Ints("target_disks", targets),
		zap.Duration("took", time.Since(start)))
	return rep, nil
}

func mergeInts(a, b []int) []int {
	seen := make(map[int]struct{}, len(a)+len(b))
	out := make([]int, 0, len(a)+len(b))
	for _, list := range [][]int{a, b} {
		for _, n := range list {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out
}
