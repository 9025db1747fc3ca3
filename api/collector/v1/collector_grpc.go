package collectorv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/go-tangra/go-tangra-diskhealth/internal/codec"
)

const ServiceName = "diskhealth.collector.v1.DiskHealthCollectorService"

const (
	DiskHealthCollectorService_SubmitReport_FullMethodName        = "/" + ServiceName + "/SubmitReport"
	DiskHealthCollectorService_GetReport_FullMethodName           = "/" + ServiceName + "/GetReport"
	DiskHealthCollectorService_ListReports_FullMethodName         = "/" + ServiceName + "/ListReports"
	DiskHealthCollectorService_DeleteReport_FullMethodName        = "/" + ServiceName + "/DeleteReport"
	DiskHealthCollectorService_GetLatestByHostname_FullMethodName = "/" + ServiceName + "/GetLatestByHostname"
	DiskHealthCollectorService_StreamCommands_FullMethodName      = "/" + ServiceName + "/StreamCommands"
	DiskHealthCollectorService_Rescan_FullMethodName              = "/" + ServiceName + "/Rescan"
	DiskHealthCollectorService_ListConnectedAgents_FullMethodName = "/" + ServiceName + "/ListConnectedAgents"
)

// DiskHealthCollectorServiceClient is the client API for the collector.
type DiskHealthCollectorServiceClient interface {
	SubmitReport(ctx context.Context, in *SubmitReportRequest, opts ...grpc.CallOption) (*SubmitReportResponse, error)
	GetReport(ctx context.Context, in *GetReportRequest, opts ...grpc.CallOption) (*GetReportResponse, error)
	ListReports(ctx context.Context, in *ListReportsRequest, opts ...grpc.CallOption) (*ListReportsResponse, error)
	DeleteReport(ctx context.Context, in *DeleteReportRequest, opts ...grpc.CallOption) (*DeleteReportResponse, error)
	GetLatestByHostname(ctx context.Context, in *GetLatestByHostnameRequest, opts ...grpc.CallOption) (*GetLatestByHostnameResponse, error)
	StreamCommands(ctx context.Context, in *StreamCommandsRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Command], error)
	Rescan(ctx context.Context, in *RescanRequest, opts ...grpc.CallOption) (*RescanResponse, error)
	ListConnectedAgents(ctx context.Context, in *ListConnectedAgentsRequest, opts ...grpc.CallOption) (*ListConnectedAgentsResponse, error)
}

type diskHealthCollectorServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewDiskHealthCollectorServiceClient returns a client that encodes every
// call as JSON.
func NewDiskHealthCollectorServiceClient(cc grpc.ClientConnInterface) DiskHealthCollectorServiceClient {
	return &diskHealthCollectorServiceClient{cc}
}

func callOpts(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(codec.Name)}, opts...)
}

func invoke[Req, Res any](ctx context.Context, cc grpc.ClientConnInterface, method string, in *Req, opts []grpc.CallOption) (*Res, error) {
	out := new(Res)
	if err := cc.Invoke(ctx, method, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *diskHealthCollectorServiceClient) SubmitReport(ctx context.Context, in *SubmitReportRequest, opts ...grpc.CallOption) (*SubmitReportResponse, error) {
	return invoke[SubmitReportRequest, SubmitReportResponse](ctx, c.cc, DiskHealthCollectorService_SubmitReport_FullMethodName, in, opts)
}

func (c *diskHealthCollectorServiceClient) GetReport(ctx context.Context, in *GetReportRequest, opts ...grpc.CallOption) (*GetReportResponse, error) {
	return invoke[GetReportRequest, GetReportResponse](ctx, c.cc, DiskHealthCollectorService_GetReport_FullMethodName, in, opts)
}

func (c *diskHealthCollectorServiceClient) ListReports(ctx context.Context, in *ListReportsRequest, opts ...grpc.CallOption) (*ListReportsResponse, error) {
	return invoke[ListReportsRequest, ListReportsResponse](ctx, c.cc, DiskHealthCollectorService_ListReports_FullMethodName, in, opts)
}

func (c *diskHealthCollectorServiceClient) DeleteReport(ctx context.Context, in *DeleteReportRequest, opts ...grpc.CallOption) (*DeleteReportResponse, error) {
	return invoke[DeleteReportRequest, DeleteReportResponse](ctx, c.cc, DiskHealthCollectorService_DeleteReport_FullMethodName, in, opts)
}

func (c *diskHealthCollectorServiceClient) GetLatestByHostname(ctx context.Context, in *GetLatestByHostnameRequest, opts ...grpc.CallOption) (*GetLatestByHostnameResponse, error) {
	return invoke[GetLatestByHostnameRequest, GetLatestByHostnameResponse](ctx, c.cc, DiskHealthCollectorService_GetLatestByHostname_FullMethodName, in, opts)
}

func (c *diskHealthCollectorServiceClient) Rescan(ctx context.Context, in *RescanRequest, opts ...grpc.CallOption) (*RescanResponse, error) {
	return invoke[RescanRequest, RescanResponse](ctx, c.cc, DiskHealthCollectorService_Rescan_FullMethodName, in, opts)
}

func (c *diskHealthCollectorServiceClient) ListConnectedAgents(ctx context.Context, in *ListConnectedAgentsRequest, opts ...grpc.CallOption) (*ListConnectedAgentsResponse, error) {
	return invoke[ListConnectedAgentsRequest, ListConnectedAgentsResponse](ctx, c.cc, DiskHealthCollectorService_ListConnectedAgents_FullMethodName, in, opts)
}

func (c *diskHealthCollectorServiceClient) StreamCommands(ctx context.Context, in *StreamCommandsRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Command], error) {
	stream, err := c.cc.NewStream(ctx, &DiskHealthCollectorService_ServiceDesc.Streams[0], DiskHealthCollectorService_StreamCommands_FullMethodName, callOpts(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[StreamCommandsRequest, Command]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// DiskHealthCollectorServiceServer is the server API for the collector.
type DiskHealthCollectorServiceServer interface {
	SubmitReport(context.Context, *SubmitReportRequest) (*SubmitReportResponse, error)
	GetReport(context.Context, *GetReportRequest) (*GetReportResponse, error)
	ListReports(context.Context, *ListReportsRequest) (*ListReportsResponse, error)
	DeleteReport(context.Context, *DeleteReportRequest) (*DeleteReportResponse, error)
	GetLatestByHostname(context.Context, *GetLatestByHostnameRequest) (*GetLatestByHostnameResponse, error)
	StreamCommands(*StreamCommandsRequest, grpc.ServerStreamingServer[Command]) error
	Rescan(context.Context, *RescanRequest) (*RescanResponse, error)
	ListConnectedAgents(context.Context, *ListConnectedAgentsRequest) (*ListConnectedAgentsResponse, error)
}

// UnimplementedDiskHealthCollectorServiceServer can be embedded to stay
// forward compatible.
type UnimplementedDiskHealthCollectorServiceServer struct{}

func (UnimplementedDiskHealthCollectorServiceServer) SubmitReport(context.Context, *SubmitReportRequest) (*SubmitReportResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SubmitReport not implemented")
}
func (UnimplementedDiskHealthCollectorServiceServer) GetReport(context.Context, *GetReportRequest) (*GetReportResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetReport not implemented")
}
func (UnimplementedDiskHealthCollectorServiceServer) ListReports(context.Context, *ListReportsRequest) (*ListReportsResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListReports not implemented")
}
func (UnimplementedDiskHealthCollectorServiceServer) DeleteReport(context.Context, *DeleteReportRequest) (*DeleteReportResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method DeleteReport not implemented")
}
func (UnimplementedDiskHealthCollectorServiceServer) GetLatestByHostname(context.Context, *GetLatestByHostnameRequest) (*GetLatestByHostnameResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetLatestByHostname not implemented")
}
func (UnimplementedDiskHealthCollectorServiceServer) StreamCommands(*StreamCommandsRequest, grpc.ServerStreamingServer[Command]) error {
	return status.Errorf(codes.Unimplemented, "method StreamCommands not implemented")
}
func (UnimplementedDiskHealthCollectorServiceServer) Rescan(context.Context, *RescanRequest) (*RescanResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Rescan not implemented")
}
func (UnimplementedDiskHealthCollectorServiceServer) ListConnectedAgents(context.Context, *ListConnectedAgentsRequest) (*ListConnectedAgentsResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListConnectedAgents not implemented")
}

// RegisterDiskHealthCollectorServiceServer registers srv with s.
func RegisterDiskHealthCollectorServiceServer(s grpc.ServiceRegistrar, srv DiskHealthCollectorServiceServer) {
	s.RegisterService(&DiskHealthCollectorService_ServiceDesc, srv)
}

func unary[Req, Res any](
	method string,
	call func(DiskHealthCollectorServiceServer, context.Context, *Req) (*Res, error),
) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(DiskHealthCollectorServiceServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func _DiskHealthCollectorService_StreamCommands_Handler(srv any, stream grpc.ServerStream) error {
	m := new(StreamCommandsRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(DiskHealthCollectorServiceServer).StreamCommands(m, &grpc.GenericServerStream[StreamCommandsRequest, Command]{ServerStream: stream})
}

// DiskHealthCollectorService_ServiceDesc describes the collector service.
var DiskHealthCollectorService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DiskHealthCollectorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SubmitReport",
			Handler: unary(DiskHealthCollectorService_SubmitReport_FullMethodName,
				DiskHealthCollectorServiceServer.SubmitReport),
		},
		{
			MethodName: "GetReport",
			Handler: unary(DiskHealthCollectorService_GetReport_FullMethodName,
				DiskHealthCollectorServiceServer.GetReport),
		},
		{
			MethodName: "ListReports",
			Handler: unary(DiskHealthCollectorService_ListReports_FullMethodName,
				DiskHealthCollectorServiceServer.ListReports),
		},
		{
			MethodName: "DeleteReport",
			Handler: unary(DiskHealthCollectorService_DeleteReport_FullMethodName,
				DiskHealthCollectorServiceServer.DeleteReport),
		},
		{
			MethodName: "GetLatestByHostname",
			Handler: unary(DiskHealthCollectorService_GetLatestByHostname_FullMethodName,
				DiskHealthCollectorServiceServer.GetLatestByHostname),
		},
		{
			MethodName: "Rescan",
			Handler: unary(DiskHealthCollectorService_Rescan_FullMethodName,
				DiskHealthCollectorServiceServer.Rescan),
		},
		{
			MethodName: "ListConnectedAgents",
			Handler: unary(DiskHealthCollectorService_ListConnectedAgents_FullMethodName,
				DiskHealthCollectorServiceServer.ListConnectedAgents),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamCommands",
			Handler:       _DiskHealthCollectorService_StreamCommands_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "diskhealth/collector/v1/collector.json",
}
