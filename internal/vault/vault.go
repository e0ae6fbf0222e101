// Package vault provides the credential store used for OAuth client
// registrations, token sets, PKCE verifiers and API keys. Records are
// addressed by (serverID, dataType) and namespaced so they never collide
// with unrelated secrets in the same backing store.
package vault

import (
	"errors"
	"fmt"
)

// keyPrefix namespaces every vault entry.
const keyPrefix = "mcphub"

// DataType identifies the kind of credential record stored for a server.
type DataType string

const (
	DataClientInfo   DataType = "client_info"
	DataTokens       DataType = "tokens"
	DataCodeVerifier DataType = "code_verifier"
	DataAPIKey       DataType = "api_key"
)

// ErrNotFound indicates no record exists for the requested key.
var ErrNotFound = errors.New("credential not found")

// Store is the narrow key/value contract the connection layer depends on.
// Implementations must be safe for concurrent use; distinct (serverID,
// dataType) pairs never alias, so no cross-key coordination is required.
type Store interface {
	Get(serverID string, dt DataType) (string, error)
	Set(serverID string, dt DataType, value string) error
}

// Key builds the namespaced storage key for a (serverID, dataType) pair.
func Key(serverID string, dt DataType) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, serverID, dt)
}

// GetAPIKey retrieves the stored API key for a provider, returning
// ErrNotFound when none is configured.
func GetAPIKey(s Store, provider string) (string, error) {
	return s.Get(provider, DataAPIKey)
}

// StoreAPIKey persists an API key for a provider.
func StoreAPIKey(s Store, provider, apiKey string) error {
	return s.Set(provider, DataAPIKey, apiKey)
}
