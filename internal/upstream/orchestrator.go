package upstream

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"mcphub-go/internal/config"
)

// Registry supplies the set of configured servers. Its failure is the only
// thing that fails ConnectAll as a whole.
type Registry interface {
	ListServers(ctx context.Context) ([]*config.ServerConfig, error)
}

// Tool is one aggregated tool and the server that contributed it.
type Tool struct {
	ServerID string
	Tool     mcp.Tool
}

// Failure reports one server that did not connect.
type Failure struct {
	ServerID string
	Err      error
}

// Result is the aggregate of one ConnectAll run. Cleanup closes every
// transport that connected; it is idempotent and best-effort.
type Result struct {
	Tools   map[string]Tool
	Failed  []Failure
	Cleanup func()
}

// outcome is one server's settled connection attempt.
type outcome struct {
	serverID string
	conn     Conn
	tools    []mcp.Tool
	err      error
}

// Orchestrator fans the connector out across all configured servers.
type Orchestrator struct {
	registry  Registry
	connector *Connector
	logger    *zap.Logger
}

// NewOrchestrator builds an orchestrator over a registry and connector.
func NewOrchestrator(registry Registry, connector *Connector, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		registry:  registry,
		connector: connector,
		logger:    logger,
	}
}

// ConnectAll connects to every enabled server concurrently and merges the
// tool sets of the ones that succeeded. Individual failures are reported in
// the result, never as an error: the call only fails when the server list
// itself cannot be retrieved.
//
// Tool name collisions resolve deterministically: outcomes merge in server-ID
// order, so the lexicographically last server wins regardless of which
// connection settled first.
func (o *Orchestrator) ConnectAll(ctx context.Context) (*Result, error) {
	servers, err := o.registry.ListServers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}

	enabled := make([]*config.ServerConfig, 0, len(servers))
	for _, s := range servers {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}

	o.logger.Info("Connecting to upstream servers",
		zap.Int("total", len(servers)),
		zap.Int("enabled", len(enabled)))

	outcomes := make([]outcome, len(enabled))
	var wg sync.WaitGroup
	for i, server := range enabled {
		wg.Add(1)
		go func(i int, server *config.ServerConfig) {
			defer wg.Done()
			outcomes[i] = o.connectOne(ctx, server)
		}(i, server)
	}
	wg.Wait()

	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].serverID < outcomes[j].serverID
	})

	result := &Result{Tools: make(map[string]Tool)}
	var conns []Conn
	for _, oc := range outcomes {
		if oc.err != nil {
			o.logger.Warn("Server connection failed",
				zap.String("server", oc.serverID),
				zap.Error(oc.err))
			result.Failed = append(result.Failed, Failure{ServerID: oc.serverID, Err: oc.err})
			continue
		}
		conns = append(conns, oc.conn)
		for _, tool := range oc.tools {
			if prev, exists := result.Tools[tool.Name]; exists {
				o.logger.Warn("Tool name collision, later server wins",
					zap.String("tool", tool.Name),
					zap.String("previous_server", prev.ServerID),
					zap.String("winning_server", oc.serverID))
			}
			result.Tools[tool.Name] = Tool{ServerID: oc.serverID, Tool: tool}
		}
	}

	o.logger.Info("Upstream connections settled",
		zap.Int("connected", len(conns)),
		zap.Int("failed", len(result.Failed)),
		zap.Int("tools", len(result.Tools)))

	var cleanupOnce sync.Once
	result.Cleanup = func() {
		cleanupOnce.Do(func() {
			for _, conn := range conns {
				conn.Close()
			}
		})
	}

	return result, nil
}

// connectOne runs one server's attempt end to end, containing any failure.
func (o *Orchestrator) connectOne(ctx context.Context, server *config.ServerConfig) outcome {
	conn, err := o.connector.Connect(ctx, server)
	if err != nil {
		return outcome{serverID: server.ID, err: err}
	}

	tools, err := conn.Tools(ctx)
	if err != nil {
		conn.Close()
		return outcome{serverID: server.ID, err: err}
	}

	o.logger.Debug("Server connected",
		zap.String("server", server.ID),
		zap.String("state", StateConnected.String()),
		zap.Int("tools", len(tools)))

	return outcome{serverID: server.ID, conn: conn, tools: tools}
}
