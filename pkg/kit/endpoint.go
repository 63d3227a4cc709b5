// CLAUDE:SUMMARY Endpoint/Middleware types shared by the HTTP and MCP transports, plus the request logging middleware.
package kit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Endpoint is one name operation (normalize, match, lookup, add) with its
// transport stripped off. HTTP handlers and MCP tools both dispatch to it.
type Endpoint func(ctx context.Context, request any) (response any, err error)

// Middleware wraps an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain applies middlewares so that the first one runs outermost:
// Chain(a, b)(e) == a(b(e)).
func Chain(outer Middleware, others ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(others) - 1; i >= 0; i-- {
			next = others[i](next)
		}
		return outer(next)
	}
}

// Logging logs every call of the named endpoint. A request id is assigned
// when the context does not carry one yet.
func Logging(logger *slog.Logger, name string) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, request any) (any, error) {
			reqID := GetRequestID(ctx)
			if reqID == "" {
				reqID = uuid.NewString()
				ctx = WithRequestID(ctx, reqID)
			}

			start := time.Now()
			resp, err := next(ctx, request)
			attrs := []any{
				"endpoint", name,
				"transport", GetTransport(ctx),
				"request_id", reqID,
				"duration", time.Since(start),
			}
			if err != nil {
				logger.Warn("endpoint failed", append(attrs, "error", err)...)
			} else {
				logger.Debug("endpoint served", attrs...)
			}
			return resp, err
		}
	}
}
