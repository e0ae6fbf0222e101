package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"mcphub-go/internal/vault"
)

// Flow runs the authorization-code + PKCE dance against one server's
// authorization server. One Flow is shared across servers; each interactive
// attempt gets its own Session.
type Flow struct {
	store  vault.Store
	logger *zap.Logger

	// browse is swappable for tests so no real browser is launched.
	browse func(url string, logger *zap.Logger) error
}

// NewFlow creates a flow backed by the given credential store.
func NewFlow(store vault.Store, logger *zap.Logger) *Flow {
	return &Flow{
		store:  store,
		logger: logger,
		browse: OpenBrowser,
	}
}

// CachedToken returns the previously issued token set for a server, or
// vault.ErrNotFound when tokens have never been issued.
func (f *Flow) CachedToken(serverID string) (*oauth2.Token, error) {
	return NewClientIdentity(serverID, f.store).LoadTokens()
}

// Session is one in-flight interactive authorization attempt. Lifecycle:
// Begin -> Prompt -> Wait, with Close releasing the callback listener and
// correlator exactly once no matter how the attempt ends.
type Session struct {
	serverID      string
	correlationID string
	identity      *ClientIdentity
	correlator    *Correlator
	callback      *CallbackServer
	config        *oauth2.Config
	authURL       string
	logger        *zap.Logger
	browse        func(url string, logger *zap.Logger) error
	closeOnce     sync.Once
}

// Begin prepares an interactive attempt: discovers the authorization server,
// ensures a client registration, binds the callback listener, and arms the
// correlator before any URL is handed to the user. The returned session's
// Close must always be called.
func (f *Flow) Begin(ctx context.Context, serverID, serverURL string, scopes []string) (*Session, error) {
	correlationID := NewCorrelationID()
	logger := flowLogger(f.logger, serverID, correlationID)

	metadata, err := DiscoverServerMetadata(ctx, serverURL, logger)
	if err != nil {
		return nil, fmt.Errorf("authorization server discovery failed: %w", err)
	}

	state, err := generateState()
	if err != nil {
		return nil, err
	}

	correlator := NewCorrelator(state, logger)
	callback, err := StartCallbackServer(correlator, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback listener: %w", err)
	}

	s := &Session{
		serverID:      serverID,
		correlationID: correlationID,
		identity:      NewClientIdentity(serverID, f.store),
		correlator:    correlator,
		callback:      callback,
		logger:        logger,
		browse:        f.browse,
	}

	s.identity.UpdateRedirectURL(callback.RedirectURI())

	info, err := s.ensureRegistration(ctx, metadata)
	if err != nil {
		s.Close()
		return nil, err
	}

	verifier := oauth2.GenerateVerifier()
	if err := s.identity.SaveCodeVerifier(verifier); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to persist code verifier: %w", err)
	}

	s.config = &oauth2.Config{
		ClientID:     info.ClientID,
		ClientSecret: info.ClientSecret,
		RedirectURL:  callback.RedirectURI(),
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  metadata.AuthorizationEndpoint,
			TokenURL: metadata.TokenEndpoint,
		},
	}

	// Arm the correlator before the authorization URL exists anywhere the
	// user could follow it, so a fast callback cannot outrun registration.
	correlator.Start()
	s.authURL = s.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	logger.Info("OAuth session prepared",
		zap.String("client_id", maskSecret(info.ClientID)),
		zap.String("redirect_uri", callback.RedirectURI()))

	return s, nil
}

// ensureRegistration reuses a persisted client registration or performs
// dynamic registration when none exists.
func (s *Session) ensureRegistration(ctx context.Context, metadata *ServerMetadata) (*ClientInformation, error) {
	info, err := s.identity.LoadClientInformation()
	if err == nil {
		s.logger.Debug("Reusing existing client registration",
			zap.String("client_id", maskSecret(info.ClientID)))
		return info, nil
	}
	if !errors.Is(err, vault.ErrNotFound) {
		return nil, err
	}

	if metadata.RegistrationEndpoint == "" {
		return nil, fmt.Errorf("no client registration and server offers no registration endpoint")
	}

	info, err = RegisterClient(ctx, metadata.RegistrationEndpoint, s.identity.ClientMetadata())
	if err != nil {
		return nil, fmt.Errorf("dynamic client registration failed: %w", err)
	}
	if err := s.identity.SaveClientInformation(info); err != nil {
		return nil, fmt.Errorf("failed to persist client registration: %w", err)
	}

	s.logger.Info("Registered OAuth client",
		zap.String("client_id", maskSecret(info.ClientID)))
	return info, nil
}

// AuthorizationURL returns the URL the user must visit to authorize.
func (s *Session) AuthorizationURL() string {
	return s.authURL
}

// Prompt opens the authorization URL in the user's browser. A missing
// browser surface is reported but does not abort the attempt; the URL is
// printed for manual use and the callback is still awaited.
func (s *Session) Prompt() error {
	return s.browse(s.authURL, s.logger)
}

// Wait blocks until the callback resolves, then exchanges the authorization
// code for tokens using the persisted PKCE verifier and stores them. State
// verification has already happened inside the correlator by the time a code
// is returned, so no unverified code ever reaches the exchange.
func (s *Session) Wait(ctx context.Context) (*oauth2.Token, error) {
	code, err := s.correlator.Await(ctx)
	if err != nil {
		return nil, err
	}

	verifier, err := s.identity.LoadCodeVerifier()
	if err != nil {
		return nil, err
	}

	token, err := s.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	if err := s.identity.SaveTokens(token); err != nil {
		return nil, fmt.Errorf("failed to persist tokens: %w", err)
	}

	s.logger.Info("OAuth tokens issued",
		zap.String("access_token", maskSecret(token.AccessToken)),
		zap.Bool("has_refresh_token", token.RefreshToken != ""))

	return token, nil
}

// Cancel aborts the attempt, for callers that no longer need the callback
// (for example a cached-credential connection succeeded first).
func (s *Session) Cancel() {
	s.correlator.Cancel()
}

// Close releases the callback listener and the correlator. Idempotent and
// best-effort; safe to defer alongside explicit Cancel calls.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.correlator.Cancel()
		s.callback.Stop()
	})
}

// generateState produces an unguessable 256-bit CSRF state value encoded for
// URL safety.
func generateState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
