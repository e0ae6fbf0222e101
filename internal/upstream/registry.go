package upstream

import (
	"context"

	"mcphub-go/internal/config"
)

// StaticRegistry serves the server list straight from loaded configuration.
type StaticRegistry struct {
	servers []*config.ServerConfig
}

// NewStaticRegistry builds a registry over the configured servers.
func NewStaticRegistry(servers []*config.ServerConfig) *StaticRegistry {
	return &StaticRegistry{servers: servers}
}

func (r *StaticRegistry) ListServers(_ context.Context) ([]*config.ServerConfig, error) {
	return r.servers, nil
}
