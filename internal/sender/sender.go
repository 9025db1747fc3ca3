package sender

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	collectorv1 "github.com/go-tangra/go-tangra-diskhealth/api/collector/v1"
	"github.com/go-tangra/go-tangra-diskhealth/internal/report"
)

// SecretHeader carries the shared client secret in gRPC metadata.
const SecretHeader = "x-client-secret"

const sendTimeout = 30 * time.Second

// Send connects to the collector at addr and submits the report.
// When secret is non-empty, it is sent as the x-client-secret gRPC metadata header.
// Returns the assigned record ID.
func Send(ctx context.Context, addr string, secret string, rep *report.Report, opts ...grpc.DialOption) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	ctx = WithSecret(ctx, secret)

	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return 0, fmt.Errorf("connect to collector: %w", err)
	}
	defer conn.Close()

	client := collectorv1.NewDiskHealthCollectorServiceClient(conn)

	resp, err := client.SubmitReport(ctx, &collectorv1.SubmitReportRequest{Report: rep})
	if err != nil {
		return 0, fmt.Errorf("submit report: %w", err)
	}

	return resp.Id, nil
}

// WithSecret attaches secret to the outgoing context when it is set.
func WithSecret(ctx context.Context, secret string) context.Context {
	if secret == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, SecretHeader, secret)
}
