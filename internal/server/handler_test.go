package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	kratosencoding "github.com/go-kratos/kratos/v2/encoding"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	collectorv1 "github.com/go-tangra/go-tangra-diskhealth/api/collector/v1"
	"github.com/go-tangra/go-tangra-diskhealth/internal/codec"
	"github.com/go-tangra/go-tangra-diskhealth/internal/health"
	"github.com/go-tangra/go-tangra-diskhealth/internal/hostinfo"
	"github.com/go-tangra/go-tangra-diskhealth/internal/metrics"
	"github.com/go-tangra/go-tangra-diskhealth/internal/report"
	"github.com/go-tangra/go-tangra-diskhealth/internal/store"
)

func newTestHandler(t *testing.T) (*Handler, *metrics.Metrics) {
	t.Helper()
	db, err := store.New(filepath.Join(t.TempDir(), "collector.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m := metrics.New(prometheus.NewRegistry())
	return NewHandler(zaptest.NewLogger(t), db, NewCommandRegistry(), m), m
}

func atRiskReport(host string) *report.Report {
	return report.New(hostinfo.Info{Hostname: host, UUID: "uuid-" + host}, []*health.Record{
		{DiskNumber: health.IntPtr(0), SerialNumber: "WD-1", PredictFailure: health.PredictAtRisk, IsTargetVolume: true},
		{DiskNumber: health.IntPtr(1), SerialNumber: "S-2"},
	})
}

func TestHandler_SubmitAndGet(t *testing.T) {
	h, m := newTestHandler(t)
	ctx := context.Background()
	rep := atRiskReport("WS-042")

	resp, err := h.SubmitReport(ctx, &collectorv1.SubmitReportRequest{Report: rep})
	require.NoError(t, err)
	assert.Positive(t, resp.Id)
	assert.False(t, resp.StoredAt.IsZero())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HostAtRisk.WithLabelValues("WS-042")))

	got, err := h.GetReport(ctx, &collectorv1.GetReportRequest{Id: resp.Id})
	require.NoError(t, err)
	assert.Equal(t, rep.ID, got.Report.ID)
	assert.True(t, got.Report.Summary.TargetAtRisk)
	require.Len(t, got.Report.Records, 2)
	assert.Equal(t, "WD-1", got.Report.Records[0].SerialNumber)

	latest, err := h.GetLatestByHostname(ctx, &collectorv1.GetLatestByHostnameRequest{Hostname: "WS-042"})
	require.NoError(t, err)
	assert.Equal(t, resp.Id, latest.Id)
}

func TestHandler_SubmitValidation(t *testing.T) {
	h, _ := newTestHandler(t)

	_, err := h.SubmitReport(context.Background(), &collectorv1.SubmitReportRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.SubmitReport(context.Background(), &collectorv1.SubmitReportRequest{Report: &report.Report{}})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestHandler_SubmitRejectsNullRecord(t *testing.T) {
	h, m := newTestHandler(t)

	var req collectorv1.SubmitReportRequest
	body := []byte(`{"report":{"host":{"hostname":"WS-042"},"records":[{"serial_number":"WD-1"},null]}}`)
	require.NoError(t, kratosencoding.GetCodec(codec.Name).Unmarshal(body, &req))
	require.Len(t, req.Report.Records, 2)

	var err error
	require.NotPanics(t, func() {
		_, err = h.SubmitReport(context.Background(), &req)
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "record 1")

	list, err := h.ListReports(context.Background(), &collectorv1.ListReportsRequest{})
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)
	assert.Zero(t, testutil.CollectAndCount(m.ReportsReceived))
}

func TestHandler_NotFound(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()

	_, err := h.GetReport(ctx, &collectorv1.GetReportRequest{Id: 99})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = h.DeleteReport(ctx, &collectorv1.DeleteReportRequest{Id: 99})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = h.GetLatestByHostname(ctx, &collectorv1.GetLatestByHostnameRequest{Hostname: "nobody"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = h.GetLatestByHostname(ctx, &collectorv1.GetLatestByHostnameRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestHandler_ListAndDelete(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()

	first, err := h.SubmitReport(ctx, &collectorv1.SubmitReportRequest{Report: atRiskReport("WS-042")})
	require.NoError(t, err)
	_, err = h.SubmitReport(ctx, &collectorv1.SubmitReportRequest{
		Report: report.New(hostinfo.Info{Hostname: "WS-099"}, []*health.Record{{SerialNumber: "X"}}),
	})
	require.NoError(t, err)

	all, err := h.ListReports(ctx, &collectorv1.ListReportsRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.TotalCount)

	risky, err := h.ListReports(ctx, &collectorv1.ListReportsRequest{AtRiskOnly: true})
	require.NoError(t, err)
	require.Len(t, risky.Reports, 1)
	assert.Equal(t, "WS-042", risky.Reports[0].Hostname)
	assert.True(t, risky.Reports[0].TargetAtRisk)

	future, err := h.ListReports(ctx, &collectorv1.ListReportsRequest{
		CollectedAfter: time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)
	assert.Zero(t, future.TotalCount)

	_, err = h.ListReports(ctx, &collectorv1.ListReportsRequest{CollectedBefore: "yesterday"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.DeleteReport(ctx, &collectorv1.DeleteReportRequest{Id: first.Id})
	require.NoError(t, err)
	_, err = h.GetReport(ctx, &collectorv1.GetReportRequest{Id: first.Id})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

// commandStream captures commands sent to an agent.
type commandStream struct {
	grpc.ServerStream
	ctx  context.Context
	sent chan *collectorv1.Command
}

func (s *commandStream) Context() context.Context { return s.ctx }

func (s *commandStream) Send(c *collectorv1.Command) error {
	s.sent <- c
	return nil
}

func TestHandler_StreamAndRescan(t *testing.T) {
	h, m := newTestHandler(t)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := h.Rescan(ctx, &collectorv1.RescanRequest{Hostname: "WS-042"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	stream := &commandStream{ctx: ctx, sent: make(chan *collectorv1.Command, 1)}
	done := make(chan error, 1)
	go func() {
		done <- h.StreamCommands(&collectorv1.StreamCommandsRequest{ClientId: "WS-042", ClientVersion: "1.2.0"}, stream)
	}()

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.ConnectedAgents) == 1
	}, time.Second, 10*time.Millisecond)
	assert.True(t, h.cmdReg.IsConnected("WS-042"))

	agents, err := h.ListConnectedAgents(ctx, &collectorv1.ListConnectedAgentsRequest{})
	require.NoError(t, err)
	require.Len(t, agents.Agents, 1)
	assert.Equal(t, "1.2.0", agents.Agents[0].Version)

	resp, err := h.Rescan(ctx, &collectorv1.RescanRequest{Hostname: "WS-042"})
	require.NoError(t, err)
	assert.True(t, resp.Sent)

	select {
	case cmd := <-stream.sent:
		assert.Equal(t, resp.CommandId, cmd.CommandId)
		assert.Equal(t, collectorv1.CommandRescan, cmd.CommandType)
	case <-time.After(time.Second):
		t.Fatal("command not delivered")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.False(t, h.cmdReg.IsConnected("WS-042"))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ConnectedAgents))
}

func TestHandler_StreamRequiresClientID(t *testing.T) {
	h, _ := newTestHandler(t)
	err := h.StreamCommands(&collectorv1.StreamCommandsRequest{}, &commandStream{ctx: context.Background()})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
