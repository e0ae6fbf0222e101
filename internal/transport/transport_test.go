package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// startMockMCPServer serves a real MCP server over streamable HTTP with the
// given tools. When requiredBearer is non-empty, requests without the
// matching Authorization header are rejected with 401.
func startMockMCPServer(t *testing.T, requiredBearer string, toolNames ...string) *httptest.Server {
	t.Helper()

	mcpSrv := mcpserver.NewMCPServer("mock-upstream", "1.0.0-test",
		mcpserver.WithToolCapabilities(true))
	for _, name := range toolNames {
		tool := mcp.NewTool(name, mcp.WithDescription("mock tool "+name))
		mcpSrv.AddTool(tool, func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("ok"), nil
		})
	}

	var handler http.Handler = mcpserver.NewStreamableHTTPServer(mcpSrv)
	if requiredBearer != "" {
		inner := handler
		handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+requiredBearer {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			inner.ServeHTTP(w, r)
		})
	}

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestConnect_AnonymousListsTools(t *testing.T) {
	srv := startMockMCPServer(t, "", "echo", "fetch")

	tr, err := Connect(context.Background(), "srv-1", srv.URL, "", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer tr.Close()

	tools, err := tr.Tools(context.Background())
	require.NoError(t, err)

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"echo", "fetch"}, names)
}

func TestConnect_WithBearer(t *testing.T) {
	srv := startMockMCPServer(t, "secret-key", "echo")

	tr, err := Connect(context.Background(), "srv-1", srv.URL, "secret-key", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer tr.Close()

	tools, err := tr.Tools(context.Background())
	require.NoError(t, err)
	assert.Len(t, tools, 1)
}

func TestConnect_UnauthorizedIsDistinguishable(t *testing.T) {
	srv := startMockMCPServer(t, "secret-key", "echo")

	_, err := Connect(context.Background(), "srv-1", srv.URL, "wrong-key", zaptest.NewLogger(t))
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err), "401 rejection must classify as unauthorized, got: %v", err)
}

func TestConnect_NetworkErrorIsNotUnauthorized(t *testing.T) {
	// Closed port: connection refused, not an auth rejection.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := Connect(context.Background(), "srv-1", url, "", zaptest.NewLogger(t))
	require.Error(t, err)
	assert.False(t, IsUnauthorized(err))
}

func TestConnect_EmptyURL(t *testing.T) {
	_, err := Connect(context.Background(), "srv-1", "", "", zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestTransport_CloseIsIdempotent(t *testing.T) {
	srv := startMockMCPServer(t, "", "echo")

	tr, err := Connect(context.Background(), "srv-1", srv.URL, "", zaptest.NewLogger(t))
	require.NoError(t, err)

	tr.Close()
	tr.Close()
}

func TestIsUnauthorized(t *testing.T) {
	assert.False(t, IsUnauthorized(nil))
	assert.False(t, IsUnauthorized(errors.New("connection refused")))
	assert.True(t, IsUnauthorized(fmt.Errorf("connect: %w", ErrUnauthorized)))
	assert.True(t, IsUnauthorized(classify(errors.New("HTTP 401 Unauthorized"))))
	assert.True(t, IsUnauthorized(classify(errors.New("server returned invalid_token"))))
	assert.False(t, IsUnauthorized(classify(errors.New("dial tcp: timeout"))))
}
