package upstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"mcphub-go/internal/config"
	"mcphub-go/internal/oauth"
	"mcphub-go/internal/transport"
	"mcphub-go/internal/vault"
)

// Conn is the slice of a transport the connector needs: list tools, close.
type Conn interface {
	ServerID() string
	Tools(ctx context.Context) ([]mcp.Tool, error)
	Close()
}

// Dialer opens a connection to one server with an optional bearer credential.
type Dialer func(ctx context.Context, serverID, url, bearer string) (Conn, error)

// AuthSession is one in-flight interactive OAuth attempt.
type AuthSession interface {
	Prompt() error
	Wait(ctx context.Context) (*oauth2.Token, error)
	Cancel()
	Close()
}

// AuthFlow produces cached tokens and interactive sessions.
type AuthFlow interface {
	CachedToken(serverID string) (*oauth2.Token, error)
	Begin(ctx context.Context, serverID, serverURL string, scopes []string) (AuthSession, error)
}

// Connector resolves one server's auth strategy and produces a live
// connection, running the interactive OAuth flow when the server demands it.
//
// dialTimeout bounds individual transport dials only. The interactive OAuth
// wait is governed solely by the flow's fixed callback deadline; bounding it
// here would cut authorization short.
type Connector struct {
	store       vault.Store
	flow        AuthFlow
	dial        Dialer
	dialTimeout time.Duration
	logger      *zap.Logger
}

// NewConnector wires the production transport and OAuth flow. A zero
// dialTimeout leaves dials bounded only by the caller's context.
func NewConnector(store vault.Store, dialTimeout time.Duration, logger *zap.Logger) *Connector {
	return &Connector{
		store: store,
		flow:  &flowAdapter{oauth.NewFlow(store, logger.Named("oauth"))},
		dial: func(ctx context.Context, serverID, url, bearer string) (Conn, error) {
			return transport.Connect(ctx, serverID, url, bearer, logger.Named("transport"))
		},
		dialTimeout: dialTimeout,
		logger:      logger,
	}
}

// dialServer applies the per-dial timeout around one transport dial.
func (c *Connector) dialServer(ctx context.Context, serverID, url, bearer string) (Conn, error) {
	if c.dialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.dialTimeout)
		defer cancel()
	}
	return c.dial(ctx, serverID, url, bearer)
}

// flowAdapter narrows *oauth.Flow to the AuthFlow interface.
type flowAdapter struct {
	flow *oauth.Flow
}

func (a *flowAdapter) CachedToken(serverID string) (*oauth2.Token, error) {
	return a.flow.CachedToken(serverID)
}

func (a *flowAdapter) Begin(ctx context.Context, serverID, serverURL string, scopes []string) (AuthSession, error) {
	return a.flow.Begin(ctx, serverID, serverURL, scopes)
}

// Connect resolves the server's auth strategy and returns a live connection.
// Every failure is contained here and returned as an error; nothing panics
// across server boundaries.
func (c *Connector) Connect(ctx context.Context, server *config.ServerConfig) (Conn, error) {
	logger := c.logger.With(zap.String("server", server.ID))
	logger.Debug("Resolving auth strategy",
		zap.String("state", StateResolving.String()),
		zap.String("auth_type", string(server.EffectiveAuthType())))

	switch server.EffectiveAuthType() {
	case config.AuthNone:
		return c.dialServer(ctx, server.ID, server.URL, "")

	case config.AuthAPIKey:
		key, err := vault.GetAPIKey(c.store, server.ID)
		if err != nil {
			if errors.Is(err, vault.ErrNotFound) {
				return nil, fmt.Errorf("%w for server %s", ErrNoCredential, server.ID)
			}
			return nil, fmt.Errorf("failed to read API key for server %s: %w", server.ID, err)
		}
		return c.dialServer(ctx, server.ID, server.URL, key)

	case config.AuthOAuth:
		return c.connectOAuth(ctx, server, logger)

	default:
		return nil, fmt.Errorf("unknown auth type %q for server %s", server.AuthType, server.ID)
	}
}

// connectOAuth prefers cached tokens and falls back to at most one
// interactive flow when the server rejects them.
func (c *Connector) connectOAuth(ctx context.Context, server *config.ServerConfig, logger *zap.Logger) (Conn, error) {
	cached, err := c.flow.CachedToken(server.ID)
	if err != nil && !errors.Is(err, vault.ErrNotFound) {
		return nil, fmt.Errorf("failed to read cached tokens for server %s: %w", server.ID, err)
	}

	if cached != nil {
		logger.Debug("Trying cached OAuth tokens",
			zap.String("state", StateConnecting.String()))
		conn, dialErr := c.dialServer(ctx, server.ID, server.URL, cached.AccessToken)
		if dialErr == nil {
			return conn, nil
		}
		if !transport.IsUnauthorized(dialErr) {
			return nil, dialErr
		}
		logger.Info("Cached tokens rejected, starting interactive OAuth flow")
	}

	logger.Debug("Starting interactive OAuth attempt",
		zap.String("state", StateAuthenticating.String()))

	session, err := c.flow.Begin(ctx, server.ID, server.URL, server.OAuthScopes)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare OAuth flow for server %s: %w", server.ID, err)
	}
	defer session.Close()

	// Client registration alone may satisfy some servers; probe before
	// involving the user and cancel the pending callback if it does.
	if conn, dialErr := c.dialServer(ctx, server.ID, server.URL, ""); dialErr == nil {
		session.Cancel()
		return conn, nil
	} else if !transport.IsUnauthorized(dialErr) {
		return nil, dialErr
	}

	if err := session.Prompt(); err != nil {
		// No browser surface is not fatal: the URL was printed and the
		// callback is still being awaited.
		logger.Warn("Could not prompt for authorization", zap.Error(err))
	}

	token, err := session.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("OAuth flow failed for server %s: %w", server.ID, err)
	}

	logger.Debug("OAuth flow complete, retrying connection",
		zap.String("state", StateConnecting.String()))

	conn, err := c.dialServer(ctx, server.ID, server.URL, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("connection failed after OAuth for server %s: %w", server.ID, err)
	}
	return conn, nil
}
