// Package transport wraps an MCP client connection behind the narrow
// surface the connection orchestrator needs: connect with an optional bearer
// credential, list tools, close once.
package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	mcptransport "github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

const (
	clientName    = "mcphub"
	clientVersion = "1.0.0"

	httpTimeout = 180 * time.Second
)

// ErrUnauthorized marks a connection rejected by the server's authorization
// layer, as opposed to a network or protocol failure. Callers use this
// distinction to decide whether an interactive OAuth flow is worth running.
var ErrUnauthorized = errors.New("server rejected credentials")

// Transport is an open connection to one MCP server.
type Transport struct {
	serverID string
	client   *client.Client
	logger   *zap.Logger

	closeOnce sync.Once
}

// Connect dials an MCP server over streamable HTTP and completes the
// initialize handshake. An empty bearer connects anonymously. Authorization
// rejections are reported as ErrUnauthorized.
func Connect(ctx context.Context, serverID, url, bearer string, logger *zap.Logger) (*Transport, error) {
	if url == "" {
		return nil, fmt.Errorf("no URL specified for server %s", serverID)
	}

	opts := []mcptransport.StreamableHTTPCOption{
		mcptransport.WithHTTPTimeout(httpTimeout),
	}
	if bearer != "" {
		opts = append(opts, mcptransport.WithHTTPHeaders(map[string]string{
			"Authorization": "Bearer " + bearer,
		}))
	}

	httpTransport, err := mcptransport.NewStreamableHTTP(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP transport: %w", err)
	}

	c := client.NewClient(httpTransport)

	logger.Debug("Connecting to MCP server",
		zap.String("server", serverID),
		zap.String("url", url),
		zap.Bool("has_credential", bearer != ""))

	// Any failure past this point must release the client before returning.
	fail := func(err error) (*Transport, error) {
		c.Close()
		return nil, classify(err)
	}

	if err := c.Start(ctx); err != nil {
		return fail(fmt.Errorf("failed to start MCP client: %w", err))
	}

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    clientName,
		Version: clientVersion,
	}
	initRequest.Params.Capabilities = mcp.ClientCapabilities{}

	serverInfo, err := c.Initialize(ctx, initRequest)
	if err != nil {
		return fail(fmt.Errorf("initialize failed: %w", err))
	}

	logger.Info("Connected to MCP server",
		zap.String("server", serverID),
		zap.String("server_name", serverInfo.ServerInfo.Name),
		zap.String("protocol_version", serverInfo.ProtocolVersion))

	return &Transport{
		serverID: serverID,
		client:   c,
		logger:   logger,
	}, nil
}

// ServerID returns the configured server this transport is connected to.
func (t *Transport) ServerID() string {
	return t.serverID
}

// Tools lists every tool the server exposes, following pagination cursors.
func (t *Transport) Tools(ctx context.Context) ([]mcp.Tool, error) {
	var tools []mcp.Tool
	req := mcp.ListToolsRequest{}
	for {
		res, err := t.client.ListTools(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to list tools for server %s: %w", t.serverID, err)
		}
		tools = append(tools, res.Tools...)
		if res.NextCursor == "" {
			break
		}
		req.Params.Cursor = res.NextCursor
	}

	t.logger.Debug("Listed tools",
		zap.String("server", t.serverID),
		zap.Int("count", len(tools)))

	return tools, nil
}

// Close releases the connection. Idempotent; close errors are logged and
// swallowed because cleanup is best-effort.
func (t *Transport) Close() {
	t.closeOnce.Do(func() {
		if err := t.client.Close(); err != nil {
			t.logger.Warn("Error closing transport",
				zap.String("server", t.serverID),
				zap.Error(err))
		}
	})
}

// IsUnauthorized reports whether err is an authorization rejection rather
// than a network or protocol failure.
func IsUnauthorized(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnauthorized) {
		return true
	}
	return client.IsOAuthAuthorizationRequiredError(err)
}

// classify tags authorization rejections with ErrUnauthorized so callers can
// branch on them without string matching.
func classify(err error) error {
	if client.IsOAuthAuthorizationRequiredError(err) {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	// HTTP-level rejections surface as plain errors from the transport;
	// keyword matching is the only signal available.
	msg := err.Error()
	for _, indicator := range []string{
		"401", "Unauthorized", "403", "Forbidden",
		"invalid_token", "authorization required", "no valid token available",
	} {
		if strings.Contains(msg, indicator) {
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
	}
	return err
}
