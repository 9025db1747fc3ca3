package collectorv1

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	kratoshttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/go-tangra/go-tangra-diskhealth/internal/health"
	"github.com/go-tangra/go-tangra-diskhealth/internal/hostinfo"
	"github.com/go-tangra/go-tangra-diskhealth/internal/report"
)

type fakeService struct {
	UnimplementedDiskHealthCollectorServiceServer

	lastList *ListReportsRequest
}

func (f *fakeService) SubmitReport(_ context.Context, req *SubmitReportRequest) (*SubmitReportResponse, error) {
	if req.Report == nil {
		return nil, status.Error(codes.InvalidArgument, "report is required")
	}
	return &SubmitReportResponse{Id: int64(len(req.Report.Records))}, nil
}

func (f *fakeService) GetReport(_ context.Context, req *GetReportRequest) (*GetReportResponse, error) {
	if req.Id != 7 {
		return nil, status.Errorf(codes.NotFound, "report %d not found", req.Id)
	}
	rep := report.New(hostinfo.Info{Hostname: "WS-042"}, []*health.Record{
		{DiskNumber: health.IntPtr(0), SerialNumber: "WD-1", PredictFailure: health.PredictAtRisk},
	})
	return &GetReportResponse{Id: req.Id, Report: rep}, nil
}

func (f *fakeService) ListReports(_ context.Context, req *ListReportsRequest) (*ListReportsResponse, error) {
	f.lastList = req
	return &ListReportsResponse{TotalCount: 0}, nil
}

func (f *fakeService) Rescan(_ context.Context, req *RescanRequest) (*RescanResponse, error) {
	return &RescanResponse{Sent: true, CommandId: "cmd-" + req.Hostname}, nil
}

func (f *fakeService) StreamCommands(req *StreamCommandsRequest, stream grpc.ServerStreamingServer[Command]) error {
	for _, id := range []string{"c1", "c2"} {
		if err := stream.Send(&Command{CommandId: id + "-" + req.ClientId, CommandType: CommandRescan}); err != nil {
			return err
		}
	}
	return nil
}

func serveHTTP(t *testing.T, srv *kratoshttp.Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHTTPRoutes(t *testing.T) {
	fake := &fakeService{}
	srv := kratoshttp.NewServer()
	RegisterDiskHealthCollectorServiceHTTPServer(srv, fake)

	rec := serveHTTP(t, srv, http.MethodGet, "/v1/reports/7", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got GetReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.EqualValues(t, 7, got.Id)
	require.Len(t, got.Report.Records, 1)
	assert.Equal(t, health.PredictAtRisk, got.Report.Records[0].PredictFailure)

	rec = serveHTTP(t, srv, http.MethodGet, "/v1/reports/8", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serveHTTP(t, srv, http.MethodGet, "/v1/reports?hostname=WS-042&at_risk_only=true&page_size=5", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, fake.lastList)
	assert.Equal(t, "WS-042", fake.lastList.Hostname)
	assert.True(t, fake.lastList.AtRiskOnly)
	assert.EqualValues(t, 5, fake.lastList.PageSize)

	rec = serveHTTP(t, srv, http.MethodPost, "/v1/reports", `{"report":{"host":{"hostname":"WS-042"},"records":[{},{}]}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"id":2`)

	rec = serveHTTP(t, srv, http.MethodPost, "/v1/hosts/WS-042/rescan", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "cmd-WS-042")

	rec = serveHTTP(t, srv, http.MethodDelete, "/v1/reports/7", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestGRPCRoundTrip(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterDiskHealthCollectorServiceServer(s, &fakeService{})
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client := NewDiskHealthCollectorServiceClient(conn)

	got, err := client.GetReport(ctx, &GetReportRequest{Id: 7})
	require.NoError(t, err)
	assert.Equal(t, "WS-042", got.Report.Host.Hostname)
	assert.Equal(t, "WD-1", got.Report.Records[0].SerialNumber)

	_, err = client.GetReport(ctx, &GetReportRequest{Id: 1})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.DeleteReport(ctx, &DeleteReportRequest{Id: 1})
	assert.Equal(t, codes.Unimplemented, status.Code(err))

	stream, err := client.StreamCommands(ctx, &StreamCommandsRequest{ClientId: "WS-042"})
	require.NoError(t, err)
	var ids []string
	for {
		cmd, err := stream.Recv()
		if err != nil {
			break
		}
		ids = append(ids, cmd.CommandId)
	}
	assert.Equal(t, []string{"c1-WS-042", "c2-WS-042"}, ids)
}
