package oauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"mcphub-go/internal/vault"
)

func TestClientIdentity_TokenRoundTrip(t *testing.T) {
	ci := NewClientIdentity("srv-1", vault.NewMemory())

	tok := &oauth2.Token{
		AccessToken:  "access-abc",
		RefreshToken: "refresh-xyz",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}
	require.NoError(t, ci.SaveTokens(tok))

	got, err := ci.LoadTokens()
	require.NoError(t, err)
	assert.Equal(t, tok.AccessToken, got.AccessToken)
	assert.Equal(t, tok.RefreshToken, got.RefreshToken)
	assert.Equal(t, tok.TokenType, got.TokenType)
	assert.True(t, tok.Expiry.Equal(got.Expiry))
}

func TestClientIdentity_TokensNotFound(t *testing.T) {
	ci := NewClientIdentity("srv-1", vault.NewMemory())

	_, err := ci.LoadTokens()
	assert.ErrorIs(t, err, vault.ErrNotFound)
}

func TestClientIdentity_ClientInformationRoundTrip(t *testing.T) {
	ci := NewClientIdentity("srv-1", vault.NewMemory())

	info := &ClientInformation{
		ClientID:         "client-123",
		ClientIDIssuedAt: 1700000000,
	}
	require.NoError(t, ci.SaveClientInformation(info))

	got, err := ci.LoadClientInformation()
	require.NoError(t, err)
	assert.Equal(t, info, got)
}

func TestClientIdentity_CodeVerifierRoundTrip(t *testing.T) {
	ci := NewClientIdentity("srv-1", vault.NewMemory())

	require.NoError(t, ci.SaveCodeVerifier("verifier-value"))

	got, err := ci.LoadCodeVerifier()
	require.NoError(t, err)
	assert.Equal(t, "verifier-value", got)
}

func TestClientIdentity_MissingVerifier(t *testing.T) {
	ci := NewClientIdentity("srv-1", vault.NewMemory())

	_, err := ci.LoadCodeVerifier()
	assert.ErrorIs(t, err, ErrMissingVerifier)
}

func TestClientIdentity_RedirectURLFlowsIntoMetadata(t *testing.T) {
	ci := NewClientIdentity("srv-1", vault.NewMemory())

	ci.UpdateRedirectURL("http://127.0.0.1:54321/oauth/callback")

	meta := ci.ClientMetadata()
	assert.Equal(t, []string{"http://127.0.0.1:54321/oauth/callback"}, meta.RedirectURIs)
	assert.Equal(t, "none", meta.TokenEndpointAuthMethod)
	assert.Contains(t, meta.GrantTypes, "authorization_code")
	assert.Contains(t, meta.GrantTypes, "refresh_token")
	assert.Equal(t, []string{"code"}, meta.ResponseTypes)
}

func TestClientIdentity_IsolatedPerServer(t *testing.T) {
	store := vault.NewMemory()
	one := NewClientIdentity("srv-1", store)
	two := NewClientIdentity("srv-2", store)

	require.NoError(t, one.SaveCodeVerifier("only-for-one"))

	_, err := two.LoadCodeVerifier()
	assert.ErrorIs(t, err, ErrMissingVerifier)
}
