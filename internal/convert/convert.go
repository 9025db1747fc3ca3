package convert

import (
	"encoding/json"
	"fmt"
	"time"

	collectorv1 "github.com/go-tangra/go-tangra-diskhealth/api/collector/v1"
	"github.com/go-tangra/go-tangra-diskhealth/internal/report"
	"github.com/go-tangra/go-tangra-diskhealth/internal/store"
)

// ReportToRecord converts a submitted report to a store record. The summary
// is recomputed from the records rather than trusted from the agent.
func ReportToRecord(rep *report.Report) (*store.ReportRecord, error) {
	rep.Summary = report.Summarize(rep.Records)

	jsonBytes, err := json.Marshal(rep)
	if err != nil {
		return nil, fmt.Errorf("marshal report to JSON: %w", err)
	}

	collectedAt := rep.CollectedAt
	if collectedAt.IsZero() {
		collectedAt = time.Now().UTC()
	}

	return &store.ReportRecord{
		ReportID:     rep.ID,
		Hostname:     rep.Host.Hostname,
		SystemUUID:   rep.Host.UUID,
		SystemSerial: rep.Host.SerialNumber,
		Devices:      rep.Summary.Total,
		AtRisk:       rep.Summary.AtRisk,
		TargetAtRisk: rep.Summary.TargetAtRisk,
		CollectedAt:  collectedAt,
		ReportJSON:   string(jsonBytes),
	}, nil
}

// RecordToReport converts a store record back to a report.
func RecordToReport(rec *store.ReportRecord) (*report.Report, error) {
	var rep report.Report
	if err := json.Unmarshal([]byte(rec.ReportJSON), &rep); err != nil {
		return nil, fmt.Errorf("unmarshal report JSON: %w", err)
	}
	return &rep, nil
}

// RecordToSummary converts a store record to a ReportSummary message.
func RecordToSummary(rec *store.ReportRecord) *collectorv1.ReportSummary {
	return &collectorv1.ReportSummary{
		Id:           rec.ID,
		ReportId:     rec.ReportID,
		Hostname:     rec.Hostname,
		SystemUuid:   rec.SystemUUID,
		Devices:      int32(rec.Devices),
		AtRisk:       int32(rec.AtRisk),
		TargetAtRisk: rec.TargetAtRisk,
		CollectedAt:  rec.CollectedAt,
		StoredAt:     rec.StoredAt,
	}
}
