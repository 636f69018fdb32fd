package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// Agents identify themselves with the X-Agent-Id header. There is no
// authentication behind it; the id scopes claims and attributes audit
// events.

type agentKey struct{}

func withAgent(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, agentKey{}, agentID)
}

func agentFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(agentKey{}).(string)
	return id, ok && id != ""
}

// agentIDFromContext is for mutating handlers, which refuse anonymous
// callers.
func agentIDFromContext(ctx context.Context) (string, huma.StatusError) {
	if id, ok := agentFromContext(ctx); ok {
		return id, nil
	}
	return "", newAPIError(http.StatusBadRequest, "agent_required", "X-Agent-Id header is required", nil)
}

func newAgentMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			agentID := strings.TrimSpace(req.Header.Get("X-Agent-Id"))
			if agentID != "" {
				ctx := withAgent(req.Context(), agentID)
				req = req.WithContext(ctx)
			}
			next.ServeHTTP(w, req)
		})
	}
}
