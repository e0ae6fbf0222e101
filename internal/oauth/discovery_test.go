package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestDiscoverServerMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/.well-known/oauth-authorization-server", r.URL.Path)
		json.NewEncoder(w).Encode(ServerMetadata{
			Issuer:                "https://auth.example.com",
			AuthorizationEndpoint: "https://auth.example.com/authorize",
			TokenEndpoint:         "https://auth.example.com/token",
			RegistrationEndpoint:  "https://auth.example.com/register",
		})
	}))
	defer srv.Close()

	meta, err := DiscoverServerMetadata(context.Background(), srv.URL+"/mcp", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "https://auth.example.com/authorize", meta.AuthorizationEndpoint)
	assert.Equal(t, "https://auth.example.com/token", meta.TokenEndpoint)
	assert.Equal(t, "https://auth.example.com/register", meta.RegistrationEndpoint)
}

func TestDiscoverServerMetadata_FallbackOn404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	meta, err := DiscoverServerMetadata(context.Background(), srv.URL+"/mcp", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/authorize", meta.AuthorizationEndpoint)
	assert.Equal(t, srv.URL+"/token", meta.TokenEndpoint)
	assert.Equal(t, srv.URL+"/register", meta.RegistrationEndpoint)
}

func TestDiscoverServerMetadata_IncompleteMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"issuer": "https://auth.example.com"})
	}))
	defer srv.Close()

	_, err := DiscoverServerMetadata(context.Background(), srv.URL, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestDiscoverServerMetadata_BadURL(t *testing.T) {
	_, err := DiscoverServerMetadata(context.Background(), "not-a-url", zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestRegisterClient(t *testing.T) {
	var received ClientMetadata
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(ClientInformation{ClientID: "client-42"})
	}))
	defer srv.Close()

	meta := ClientMetadata{
		ClientName:    "mcphub",
		RedirectURIs:  []string{"http://127.0.0.1:9999/oauth/callback"},
		GrantTypes:    []string{"authorization_code", "refresh_token"},
		ResponseTypes: []string{"code"},
	}
	info, err := RegisterClient(context.Background(), srv.URL, meta)
	require.NoError(t, err)
	assert.Equal(t, "client-42", info.ClientID)
	assert.Equal(t, meta.RedirectURIs, received.RedirectURIs)
}

func TestRegisterClient_MissingClientID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	_, err := RegisterClient(context.Background(), srv.URL, ClientMetadata{})
	assert.Error(t, err)
}

func TestRegisterClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := RegisterClient(context.Background(), srv.URL, ClientMetadata{})
	assert.Error(t, err)
}
