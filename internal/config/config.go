// Package config defines the mcphub configuration structures and loader.
package config

import (
	"fmt"
	"time"
)

// AuthType selects the authentication strategy for an upstream server.
type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthAPIKey AuthType = "api_key"
	AuthOAuth  AuthType = "oauth"
)

// Config represents the main configuration structure
type Config struct {
	DataDir string          `json:"data_dir" mapstructure:"data_dir"`
	Servers []*ServerConfig `json:"mcpServers" mapstructure:"servers"`

	// Logging configuration
	Logging *LogConfig `json:"logging,omitempty" mapstructure:"logging"`

	// ConnectTimeout bounds each transport dial. The interactive OAuth
	// wait has its own fixed deadline and is never bounded by this.
	ConnectTimeout time.Duration `json:"connect_timeout,omitempty" mapstructure:"connect_timeout"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level         string `json:"level" mapstructure:"level"`
	EnableFile    bool   `json:"enable_file" mapstructure:"enable_file"`
	EnableConsole bool   `json:"enable_console" mapstructure:"enable_console"`
	Filename      string `json:"filename" mapstructure:"filename"`
	LogDir        string `json:"log_dir,omitempty" mapstructure:"log_dir"`
	MaxSize       int    `json:"max_size" mapstructure:"max_size"`       // MB
	MaxBackups    int    `json:"max_backups" mapstructure:"max_backups"` // number of backup files
	MaxAge        int    `json:"max_age" mapstructure:"max_age"`         // days
	Compress      bool   `json:"compress" mapstructure:"compress"`
	JSONFormat    bool   `json:"json_format" mapstructure:"json_format"`
}

// ServerConfig represents one upstream MCP server descriptor.
// Instances are immutable once loaded; the connection layer never writes back.
type ServerConfig struct {
	ID       string    `json:"id" mapstructure:"id"`
	Name     string    `json:"name,omitempty" mapstructure:"name"`
	URL      string    `json:"url" mapstructure:"url"`
	AuthType AuthType  `json:"auth_type,omitempty" mapstructure:"auth_type"`
	Enabled  bool      `json:"enabled" mapstructure:"enabled"`
	Created  time.Time `json:"created,omitempty" mapstructure:"created"`
	Updated  time.Time `json:"updated,omitempty" mapstructure:"updated"`

	// OAuth scopes requested during the authorization flow. Optional.
	OAuthScopes []string `json:"oauth_scopes,omitempty" mapstructure:"oauth_scopes"`
}

// DisplayName returns the human-facing name, falling back to the ID.
func (s *ServerConfig) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// DefaultConfig returns a configuration with sane defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Logging:        DefaultLogConfig(),
		ConnectTimeout: 30 * time.Second,
	}
}

// DefaultLogConfig returns default logging configuration
func DefaultLogConfig() *LogConfig {
	return &LogConfig{
		Level:         "info",
		EnableFile:    false,
		EnableConsole: true,
		Filename:      "main.log",
		MaxSize:       10,
		MaxBackups:    5,
		MaxAge:        30,
		Compress:      true,
		JSONFormat:    false,
	}
}

// Validate checks the configuration for consistency before any connection
// attempt is made. Server IDs must be unique because the credential vault
// namespaces everything by server ID.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Servers))
	for i, srv := range c.Servers {
		if srv == nil {
			return fmt.Errorf("server entry %d is empty", i)
		}
		if srv.ID == "" {
			return fmt.Errorf("server entry %d (%q) has no id", i, srv.Name)
		}
		if _, dup := seen[srv.ID]; dup {
			return fmt.Errorf("duplicate server id %q", srv.ID)
		}
		seen[srv.ID] = struct{}{}

		if srv.URL == "" {
			return fmt.Errorf("server %q has no url", srv.ID)
		}

		switch srv.AuthType {
		case "", AuthNone, AuthAPIKey, AuthOAuth:
		default:
			return fmt.Errorf("server %q has unknown auth type %q", srv.ID, srv.AuthType)
		}
	}
	return nil
}

// EffectiveAuthType normalizes the empty auth type to AuthNone.
func (s *ServerConfig) EffectiveAuthType() AuthType {
	if s.AuthType == "" {
		return AuthNone
	}
	return s.AuthType
}
