package server

import (
	"context"
	"crypto/subtle"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/go-tangra/go-tangra-diskhealth/internal/sender"
)

// allowedClientSecretUnaryMethods lists unary RPCs that client-secret callers may invoke.
var allowedClientSecretUnaryMethods = []string{
	"/SubmitReport",
}

// allowedClientSecretStreamMethods lists streaming RPCs that client-secret callers may invoke.
var allowedClientSecretStreamMethods = []string{
	"/StreamCommands",
}

// ClientSecretInterceptor returns a gRPC unary server interceptor that
// validates the x-client-secret metadata header. When the secret is non-empty,
// only SubmitReport is allowed for client-secret authenticated callers.
// An empty secret disables authentication (pass-through).
func ClientSecretInterceptor(secret string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if err := checkClientSecret(ctx, secret, info.FullMethod, allowedClientSecretUnaryMethods); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// ClientSecretStreamInterceptor returns a gRPC stream server interceptor that
// validates the x-client-secret metadata header. When the secret is non-empty,
// only StreamCommands is allowed for client-secret authenticated callers.
// An empty secret disables authentication (pass-through).
func ClientSecretStreamInterceptor(secret string) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if err := checkClientSecret(ss.Context(), secret, info.FullMethod, allowedClientSecretStreamMethods); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}

func checkClientSecret(ctx context.Context, secret, fullMethod string, allowed []string) error {
	if secret == "" {
		return nil
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}

	vals := md.Get(sender.SecretHeader)
	if len(vals) == 0 {
		return status.Error(codes.Unauthenticated, "missing x-client-secret")
	}

	if subtle.ConstantTimeCompare([]byte(vals[0]), []byte(secret)) != 1 {
		return status.Error(codes.Unauthenticated, "invalid x-client-secret")
	}

	for _, suffix := range allowed {
		if strings.HasSuffix(fullMethod, suffix) {
			return nil
		}
	}
	return status.Error(codes.PermissionDenied, "client-secret not permitted for this method")
}
