package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-tangra/go-tangra-diskhealth/internal/health"
)

const wmiNamespace = `root\WMI`

type msStorageDriverFailurePredictStatus struct {
	InstanceName   string
	PredictFailure bool
	Reason         uint32
	Active         bool
}

const failurePredictQuery = "SELECT InstanceName, PredictFailure, Reason, Active FROM MSStorageDriver_FailurePredictStatus"

// FailurePredict reads the drive's own SMART failure prediction. The
// provider only identifies disks by instance name.
type FailurePredict struct {
	query queryFunc
}

// NewFailurePredict returns the MSStorageDriver_FailurePredictStatus adapter.
func NewFailurePredict() *FailurePredict {
	return &FailurePredict{query: wmiQuery}
}

func (f *FailurePredict) Name() string { return NameFailurePrediction }

func (f *FailurePredict) Collect(ctx context.Context, emit func(health.Observation)) error {
	var rows []msStorageDriverFailurePredictStatus
	if err := f.query(ctx, failurePredictQuery, wmiNamespace, &rows); err != nil {
		return fmt.Errorf("query MSStorageDriver_FailurePredictStatus: %w", err)
	}
	for _, row := range rows {
		emit(row.observation())
	}
	return nil
}

func (r msStorageDriverFailurePredictStatus) observation() health.Observation {
	o := health.Observation{
		Source:       NameFailurePrediction,
		InstanceName: strings.TrimSpace(r.InstanceName),
	}
	switch {
	case !r.Active:
		o.Notes = append(o.Notes, "failure prediction inactive")
	case r.PredictFailure:
		o.PredictFailure = health.PredictAtRisk
		o.Notes = append(o.Notes, fmt.Sprintf("failure predicted (reason 0x%02X)", r.Reason))
	default:
		o.PredictFailure = health.PredictHealthy
	}
	health.DeriveKeys(&o)
	return o
}
