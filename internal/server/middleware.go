package server

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
)

const apiKeyHeader = "X-API-Key"

// ApiSecretMiddleware returns a Kratos middleware that validates the X-API-Key
// HTTP header, or a bearer token carrying the same secret. An empty secret
// disables authentication (pass-through). Swagger UI and /metrics are
// registered via HandlePrefix/Handle and bypass the middleware chain.
func ApiSecretMiddleware(secret string) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req any) (any, error) {
			if secret == "" {
				return handler(ctx, req)
			}

			tr, ok := transport.FromServerContext(ctx)
			if !ok {
				return nil, errors.InternalServer("NO_TRANSPORT", "no transport in context")
			}

			key := tr.RequestHeader().Get(apiKeyHeader)
			if key == "" {
				key, _ = strings.CutPrefix(tr.RequestHeader().Get("Authorization"), "Bearer ")
			}
			if key == "" {
				return nil, errors.Unauthorized("MISSING_API_KEY", "missing X-API-Key header")
			}

			if subtle.ConstantTimeCompare([]byte(key), []byte(secret)) != 1 {
				return nil, errors.Unauthorized("INVALID_API_KEY", "invalid X-API-Key")
			}

			return handler(ctx, req)
		}
	}
}
