package server

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	collectorv1 "github.com/go-tangra/go-tangra-diskhealth/api/collector/v1"
	"github.com/go-tangra/go-tangra-diskhealth/internal/convert"
	"github.com/go-tangra/go-tangra-diskhealth/internal/metrics"
	"github.com/go-tangra/go-tangra-diskhealth/internal/store"
)

// Handler implements the DiskHealthCollectorService gRPC and HTTP service.
type Handler struct {
	collectorv1.UnimplementedDiskHealthCollectorServiceServer
	store   *store.Store
	cmdReg  *CommandRegistry
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewHandler creates a new handler backed by the given store. m may be nil.
func NewHandler(log *zap.Logger, s *store.Store, reg *CommandRegistry, m *metrics.Metrics) *Handler {
	return &Handler{store: s, cmdReg: reg, metrics: m, log: log}
}

func (h *Handler) SubmitReport(ctx context.Context, req *collectorv1.SubmitReportRequest) (*collectorv1.SubmitReportResponse, error) {
	if req.Report == nil {
		return nil, status.Error(codes.InvalidArgument, "report is required")
	}
	if req.Report.Host.Hostname == "" {
		return nil, status.Error(codes.InvalidArgument, "hostname is required")
	}
	for i, r := range req.Report.Records {
		if r == nil {
			return nil, status.Errorf(codes.InvalidArgument, "record %d is null", i)
		}
	}

	rec, err := convert.ReportToRecord(req.Report)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "convert report: %v", err)
	}

	id, storedAt, err := h.store.Insert(ctx, rec)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "store report: %v", err)
	}

	if h.metrics != nil {
		h.metrics.Observe(req.Report)
	}

	fields := []zap.Field{
		zap.Int64("id", id),
		zap.String("hostname", rec.Hostname),
		zap.Int("devices", rec.Devices),
		zap.Int("at_risk", rec.AtRisk),
	}
	if rec.TargetAtRisk {
		h.log.Warn("Report stored; target volume at risk", fields...)
	} else {
		h.log.Info("Report stored", fields...)
	}

	return &collectorv1.SubmitReportResponse{
		Id:       id,
		StoredAt: storedAt,
	}, nil
}

func (h *Handler) GetReport(ctx context.Context, req *collectorv1.GetReportRequest) (*collectorv1.GetReportResponse, error) {
	rec, err := h.store.Get(ctx, req.Id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, status.Errorf(codes.NotFound, "report %d not found", req.Id)
		}
		return nil, status.Errorf(codes.Internal, "get report: %v", err)
	}
	return h.reportResponse(rec)
}

func (h *Handler) ListReports(ctx context.Context, req *collectorv1.ListReportsRequest) (*collectorv1.ListReportsResponse, error) {
	filter := store.ListFilter{
		Hostname:   req.Hostname,
		SystemUUID: req.SystemUuid,
		AtRiskOnly: req.AtRiskOnly,
		PageSize:   int(req.PageSize),
		Page:       int(req.Page),
	}
	var err error
	if filter.CollectedAfter, err = parseTime("collected_after", req.CollectedAfter); err != nil {
		return nil, err
	}
	if filter.CollectedBefore, err = parseTime("collected_before", req.CollectedBefore); err != nil {
		return nil, err
	}

	records, total, err := h.store.List(ctx, filter)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "list reports: %v", err)
	}

	summaries := make([]*collectorv1.ReportSummary, len(records))
	for i := range records {
		summaries[i] = convert.RecordToSummary(&records[i])
	}

	return &collectorv1.ListReportsResponse{
		Reports:    summaries,
		TotalCount: int32(total),
	}, nil
}

func (h *Handler) DeleteReport(ctx context.Context, req *collectorv1.DeleteReportRequest) (*collectorv1.DeleteReportResponse, error) {
	err := h.store.Delete(ctx, req.Id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, status.Errorf(codes.NotFound, "report %d not found", req.Id)
		}
		return nil, status.Errorf(codes.Internal, "delete report: %v", err)
	}
	return &collectorv1.DeleteReportResponse{}, nil
}

func (h *Handler) GetLatestByHostname(ctx context.Context, req *collectorv1.GetLatestByHostnameRequest) (*collectorv1.GetLatestByHostnameResponse, error) {
	if req.Hostname == "" {
		return nil, status.Error(codes.InvalidArgument, "hostname is required")
	}

	rec, err := h.store.GetLatestByHostname(ctx, req.Hostname)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, status.Errorf(codes.NotFound, "no report found for hostname %q", req.Hostname)
		}
		return nil, status.Errorf(codes.Internal, "get latest report: %v", err)
	}
	return h.reportResponse(rec)
}

func (h *Handler) reportResponse(rec *store.ReportRecord) (*collectorv1.GetReportResponse, error) {
	rep, err := convert.RecordToReport(rec)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "decode report: %v", err)
	}
	return &collectorv1.GetReportResponse{
		Id:       rec.ID,
		Report:   rep,
		StoredAt: rec.StoredAt,
	}, nil
}

func (h *Handler) StreamCommands(req *collectorv1.StreamCommandsRequest, stream grpc.ServerStreamingServer[collectorv1.Command]) error {
	if req.ClientId == "" {
		return status.Error(codes.InvalidArgument, "client_id is required")
	}

	ch := h.cmdReg.Register(req.ClientId, req.ClientVersion)
	h.updateConnected()
	defer func() {
		h.cmdReg.Unregister(req.ClientId, ch)
		h.updateConnected()
	}()

	log := h.log.With(zap.String("client_id", req.ClientId))
	log.Info("Agent connected", zap.String("version", req.ClientVersion))

	for {
		select {
		case cmd, ok := <-ch:
			if !ok {
				log.Info("Agent stream replaced")
				return nil
			}
			if err := stream.Send(cmd); err != nil {
				return err
			}
		case <-stream.Context().Done():
			log.Info("Agent disconnected")
			return stream.Context().Err()
		}
	}
}

func (h *Handler) Rescan(_ context.Context, req *collectorv1.RescanRequest) (*collectorv1.RescanResponse, error) {
	if req.Hostname == "" {
		return nil, status.Error(codes.InvalidArgument, "hostname is required")
	}

	if !h.cmdReg.IsConnected(req.Hostname) {
		return nil, status.Errorf(codes.NotFound, "agent %q is not connected", req.Hostname)
	}

	cmdID := uuid.NewString()
	cmd := &collectorv1.Command{
		CommandId:   cmdID,
		CommandType: collectorv1.CommandRescan,
	}

	if err := h.cmdReg.Send(req.Hostname, cmd); err != nil {
		return nil, status.Errorf(codes.Unavailable, "send rescan command: %v", err)
	}

	h.log.Info("Sent rescan command", zap.String("command_id", cmdID), zap.String("client_id", req.Hostname))

	return &collectorv1.RescanResponse{
		Sent:      true,
		CommandId: cmdID,
	}, nil
}

func (h *Handler) ListConnectedAgents(_ context.Context, _ *collectorv1.ListConnectedAgentsRequest) (*collectorv1.ListConnectedAgentsResponse, error) {
	agents := h.cmdReg.ListConnected()

	out := make([]*collectorv1.ConnectedAgent, len(agents))
	for i, a := range agents {
		out[i] = &collectorv1.ConnectedAgent{
			ClientId:    a.ClientID,
			Version:     a.Version,
			ConnectedAt: a.ConnectedAt,
		}
	}

	return &collectorv1.ListConnectedAgentsResponse{
		Agents: out,
	}, nil
}

func (h *Handler) updateConnected() {
	if h.metrics != nil {
		h.metrics.ConnectedAgents.Set(float64(h.cmdReg.Len()))
	}
}

func parseTime(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s: %v", field, err)
	}
	return &t, nil
}
