// Package report wraps the reconciled device records of one checkup pass
// together with the host and source context they were taken in.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/go-tangra/go-tangra-diskhealth/internal/health"
	"github.com/go-tangra/go-tangra-diskhealth/internal/hostinfo"
	"github.com/go-tangra/go-tangra-diskhealth/internal/source"
	"github.com/go-tangra/go-tangra-diskhealth/internal/volume"
)

// Report is the result of one checkup pass.
type Report struct {
	ID          string           `json:"id" yaml:"id"`
	CollectedAt time.Time        `json:"collected_at" yaml:"collected_at"`
	Host        hostinfo.Info    `json:"host" yaml:"host"`
	Volumes     []volume.Mapping `json:"volumes,omitempty" yaml:"volumes,omitempty"`
	TargetDisks []int            `json:"target_disks,omitempty" yaml:"target_disks,omitempty"`
	Sources     []source.Result  `json:"sources" yaml:"sources"`
	Records     []*health.Record `json:"records" yaml:"records"`
	Summary     Summary          `json:"summary" yaml:"summary"`
}

// Summary counts records by condition.
type Summary struct {
	Total            int  `json:"total" yaml:"total"`
	AtRisk           int  `json:"at_risk" yaml:"at_risk"`
	PredictedFailure int  `json:"predicted_failure" yaml:"predicted_failure"`
	Unhealthy        int  `json:"unhealthy" yaml:"unhealthy"`
	Targets          int  `json:"targets" yaml:"targets"`
	TargetAtRisk     bool `json:"target_at_risk" yaml:"target_at_risk"`
}

// New assembles a report. Records are kept in the order given.
func New(host hostinfo.Info, records []*health.Record) *Report {
	if records == nil {
		records = []*health.Record{}
	}
	return &Report{
		ID:          uuid.NewString(),
		CollectedAt: time.Now().UTC(),
		Host:        host,
		Records:     records,
		Summary:     Summarize(records),
	}
}

// Summarize counts the records.
func Summarize(records []*health.Record) Summary {
	var s Summary
	for _, r := range records {
		if r == nil {
			continue
		}
		s.Total++
		if r.AtRisk() {
			s.AtRisk++
		}
		if r.PredictFailure == health.PredictAtRisk {
			s.PredictedFailure++
		}
		if r.HealthStatus != nil && *r.HealthStatus >= health.HealthUnhealthy {
			s.Unhealthy++
		}
		if r.IsTargetVolume {
			s.Targets++
			if r.AtRisk() {
				s.TargetAtRisk = true
			}
		}
	}
	return s
}

// Healthy reports whether no record is at risk.
func (r *Report) Healthy() bool { return r.Summary.AtRisk == 0 }
