package collectorv1

import (
	"context"

	kratoshttp "github.com/go-kratos/kratos/v2/transport/http"
)

// DiskHealthCollectorServiceHTTPServer is the subset of the collector served
// over REST.
type DiskHealthCollectorServiceHTTPServer interface {
	SubmitReport(context.Context, *SubmitReportRequest) (*SubmitReportResponse, error)
	GetReport(context.Context, *GetReportRequest) (*GetReportResponse, error)
	ListReports(context.Context, *ListReportsRequest) (*ListReportsResponse, error)
	DeleteReport(context.Context, *DeleteReportRequest) (*DeleteReportResponse, error)
	GetLatestByHostname(context.Context, *GetLatestByHostnameRequest) (*GetLatestByHostnameResponse, error)
	Rescan(context.Context, *RescanRequest) (*RescanResponse, error)
	ListConnectedAgents(context.Context, *ListConnectedAgentsRequest) (*ListConnectedAgentsResponse, error)
}

// RegisterDiskHealthCollectorServiceHTTPServer mounts the REST routes on s.
func RegisterDiskHealthCollectorServiceHTTPServer(s *kratoshttp.Server, srv DiskHealthCollectorServiceHTTPServer) {
	r := s.Route("/")
	r.POST("/v1/reports", httpHandler(DiskHealthCollectorService_SubmitReport_FullMethodName, bindBody, srv.SubmitReport))
	r.GET("/v1/reports", httpHandler(DiskHealthCollectorService_ListReports_FullMethodName, bindQuery, srv.ListReports))
	r.GET("/v1/reports/{id}", httpHandler(DiskHealthCollectorService_GetReport_FullMethodName, bindVars, srv.GetReport))
	r.DELETE("/v1/reports/{id}", httpHandler(DiskHealthCollectorService_DeleteReport_FullMethodName, bindVars, srv.DeleteReport))
	r.GET("/v1/hosts/{hostname}/latest", httpHandler(DiskHealthCollectorService_GetLatestByHostname_FullMethodName, bindVars, srv.GetLatestByHostname))
	r.POST("/v1/hosts/{hostname}/rescan", httpHandler(DiskHealthCollectorService_Rescan_FullMethodName, bindVars, srv.Rescan))
	r.GET("/v1/agents", httpHandler(DiskHealthCollectorService_ListConnectedAgents_FullMethodName, bindQuery, srv.ListConnectedAgents))
}

type binder func(kratoshttp.Context, any) error

func bindBody(ctx kratoshttp.Context, v any) error { return ctx.Bind(v) }

func bindVars(ctx kratoshttp.Context, v any) error {
	if err := ctx.BindQuery(v); err != nil {
		return err
	}
	return ctx.BindVars(v)
}

func bindQuery(ctx kratoshttp.Context, v any) error { return ctx.BindQuery(v) }

func httpHandler[Req, Res any](operation string, bind binder, call func(context.Context, *Req) (*Res, error)) kratoshttp.HandlerFunc {
	return func(ctx kratoshttp.Context) error {
		var in Req
		if err := bind(ctx, &in); err != nil {
			return err
		}
		kratoshttp.SetOperation(ctx, operation)
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return call(ctx, req.(*Req))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out.(*Res))
	}
}
