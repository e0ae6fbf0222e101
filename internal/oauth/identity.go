package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/oauth2"

	"mcphub-go/internal/vault"
)

// clientName is the name sent during dynamic client registration.
const clientName = "mcphub"

// ClientMetadata is the static registration request sent to authorization
// servers that support dynamic client registration (RFC 7591). mcphub is a
// public client: no secret, PKCE instead.
type ClientMetadata struct {
	ClientName              string   `json:"client_name"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
}

// ClientInformation is the registration record echoed back by the
// authorization server.
type ClientInformation struct {
	ClientID              string `json:"client_id"`
	ClientSecret          string `json:"client_secret,omitempty"`
	ClientIDIssuedAt      int64  `json:"client_id_issued_at,omitempty"`
	ClientSecretExpiresAt int64  `json:"client_secret_expires_at,omitempty"`
}

// ClientIdentity holds the OAuth client identity for one server and
// round-trips its registration, tokens and PKCE verifier through the vault.
//
// The redirect URL is mutable because the local callback port is only known
// once the listener is bound. Each connection attempt owns its own
// ClientIdentity; it is never shared across concurrent attempts.
type ClientIdentity struct {
	serverID string
	store    vault.Store

	mu          sync.Mutex
	redirectURL string
}

// NewClientIdentity creates the identity for one server's connection attempt.
func NewClientIdentity(serverID string, store vault.Store) *ClientIdentity {
	return &ClientIdentity{
		serverID: serverID,
		store:    store,
	}
}

// ServerID returns the server this identity belongs to.
func (ci *ClientIdentity) ServerID() string {
	return ci.serverID
}

// UpdateRedirectURL sets the redirect URL once the callback listener's port
// is known. Must be called before ClientMetadata is read for the attempt.
func (ci *ClientIdentity) UpdateRedirectURL(url string) {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	ci.redirectURL = url
}

// RedirectURL returns the current redirect URL.
func (ci *ClientIdentity) RedirectURL() string {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	return ci.redirectURL
}

// ClientMetadata returns the registration request for the current redirect URL.
func (ci *ClientIdentity) ClientMetadata() ClientMetadata {
	return ClientMetadata{
		ClientName:              clientName,
		RedirectURIs:            []string{ci.RedirectURL()},
		GrantTypes:              []string{"authorization_code", "refresh_token"},
		ResponseTypes:           []string{"code"},
		TokenEndpointAuthMethod: "none",
	}
}

// LoadClientInformation retrieves the persisted client registration, or
// vault.ErrNotFound when the client has never been registered.
func (ci *ClientIdentity) LoadClientInformation() (*ClientInformation, error) {
	raw, err := ci.store.Get(ci.serverID, vault.DataClientInfo)
	if err != nil {
		return nil, err
	}
	var info ClientInformation
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil, fmt.Errorf("corrupt client registration for server %s: %w", ci.serverID, err)
	}
	return &info, nil
}

// SaveClientInformation persists the client registration.
func (ci *ClientIdentity) SaveClientInformation(info *ClientInformation) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode client registration: %w", err)
	}
	return ci.store.Set(ci.serverID, vault.DataClientInfo, string(raw))
}

// LoadTokens retrieves the persisted token set, or vault.ErrNotFound when no
// tokens have been issued yet.
func (ci *ClientIdentity) LoadTokens() (*oauth2.Token, error) {
	raw, err := ci.store.Get(ci.serverID, vault.DataTokens)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, fmt.Errorf("corrupt token set for server %s: %w", ci.serverID, err)
	}
	return &tok, nil
}

// SaveTokens persists the token set, overwriting any previous one.
func (ci *ClientIdentity) SaveTokens(tok *oauth2.Token) error {
	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token set: %w", err)
	}
	return ci.store.Set(ci.serverID, vault.DataTokens, string(raw))
}

// SaveCodeVerifier persists the PKCE verifier as raw text.
func (ci *ClientIdentity) SaveCodeVerifier(verifier string) error {
	return ci.store.Set(ci.serverID, vault.DataCodeVerifier, verifier)
}

// LoadCodeVerifier retrieves the PKCE verifier. Returns ErrMissingVerifier
// when absent: the code exchange cannot proceed without it.
func (ci *ClientIdentity) LoadCodeVerifier() (string, error) {
	verifier, err := ci.store.Get(ci.serverID, vault.DataCodeVerifier)
	if err != nil {
		if errors.Is(err, vault.ErrNotFound) {
			return "", ErrMissingVerifier
		}
		return "", err
	}
	return verifier, nil
}
