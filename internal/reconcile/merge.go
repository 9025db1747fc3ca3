package reconcile

import (
	"fmt"

	"github.com/go-tangra/go-tangra-diskhealth/internal/health"
)

// Merge folds obs into rec. Scalar fields are first-non-empty-wins, the
// failure prediction only moves towards AtRisk, and set fields only grow.
func Merge(rec *health.Record, obs *health.Observation) {
	if obs.DiskNumber != nil {
		switch {
		case rec.DiskNumber == nil:
			n := *obs.DiskNumber
			rec.DiskNumber = &n
		case *rec.DiskNumber != *obs.DiskNumber:
			rec.Notes.Add(conflictNote(obs))
		}
	}
	if rec.FriendlyName == "" {
		rec.FriendlyName = obs.FriendlyName
	}
	if rec.Model == "" {
		rec.Model = obs.Model
	}
	if rec.SerialNumber == "" {
		rec.SerialNumber = obs.SerialNumber
	}
	if rec.SizeBytes == 0 {
		rec.SizeBytes = obs.SizeBytes
	}
	if rec.HealthStatus == nil && obs.HealthStatus != nil {
		s := *obs.HealthStatus
		rec.HealthStatus = &s
	}

	rec.PredictFailure = rec.PredictFailure.Combine(obs.PredictFailure)

	rec.OperationalStatus.Add(obs.OperationalStatus...)
	rec.Notes.Add(obs.Notes...)
	rec.Sources.Add(obs.Source)
}

// conflictNote marks a record that absorbed an observation of another disk
// through a shared weak key.
func conflictNote(obs *health.Observation) string {
	return fmt.Sprintf("also reported as disk %d by %s", *obs.DiskNumber, obs.Source)
}
