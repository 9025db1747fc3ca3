// Package collectorv1 defines the disk health collector API shared by the
// agent and the collector: request and response messages, the gRPC service
// descriptor and the HTTP routes. Messages travel as JSON on both transports.
package collectorv1

import (
	"time"

	"github.com/go-tangra/go-tangra-diskhealth/internal/report"
)

// CommandType names a command the collector pushes to an agent.
type CommandType string

const (
	// CommandRescan asks the agent to run a checkup and submit the report.
	CommandRescan CommandType = "rescan"
)

type SubmitReportRequest struct {
	Report *report.Report `json:"report"`
}

type SubmitReportResponse struct {
	Id       int64     `json:"id"`
	StoredAt time.Time `json:"stored_at"`
}

type GetReportRequest struct {
	Id int64 `json:"id"`
}

type GetReportResponse struct {
	Id       int64          `json:"id"`
	Report   *report.Report `json:"report"`
	StoredAt time.Time      `json:"stored_at"`
}

// ListReportsRequest filters the archive. Time bounds are RFC 3339.
type ListReportsRequest struct {
	Hostname        string `json:"hostname,omitempty"`
	SystemUuid      string `json:"system_uuid,omitempty"`
	AtRiskOnly      bool   `json:"at_risk_only,omitempty"`
	CollectedAfter  string `json:"collected_after,omitempty"`
	CollectedBefore string `json:"collected_before,omitempty"`
	PageSize        int32  `json:"page_size,omitempty"`
	Page            int32  `json:"page,omitempty"`
}

type ReportSummary struct {
	Id           int64     `json:"id"`
	ReportId     string    `json:"report_id"`
	Hostname     string    `json:"hostname"`
	SystemUuid   string    `json:"system_uuid"`
	Devices      int32     `json:"devices"`
	AtRisk       int32     `json:"at_risk"`
	TargetAtRisk bool      `json:"target_at_risk"`
	CollectedAt  time.Time `json:"collected_at"`
	StoredAt     time.Time `json:"stored_at"`
}

type ListReportsResponse struct {
	Reports    []*ReportSummary `json:"reports"`
	TotalCount int32            `json:"total_count"`
}

type DeleteReportRequest struct {
	Id int64 `json:"id"`
}

type DeleteReportResponse struct{}

type GetLatestByHostnameRequest struct {
	Hostname string `json:"hostname"`
}

type GetLatestByHostnameResponse = GetReportResponse

type StreamCommandsRequest struct {
	ClientId      string `json:"client_id"`
	ClientVersion string `json:"client_version"`
}

type Command struct {
	CommandId   string      `json:"command_id"`
	CommandType CommandType `json:"command_type"`
}

type RescanRequest struct {
	Hostname string `json:"hostname"`
}

type RescanResponse struct {
	Sent      bool   `json:"sent"`
	CommandId string `json:"command_id"`
}

type ListConnectedAgentsRequest struct{}

type ConnectedAgent struct {
	ClientId    string    `json:"client_id"`
	Version     string    `json:"version"`
	ConnectedAt time.Time `json:"connected_at"`
}

type ListConnectedAgentsResponse struct {
	Agents []*ConnectedAgent `json:"agents"`
}
