package vault

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// ServiceName for keyring entries
const ServiceName = "mcphub"

// Keyring stores credentials in the OS keyring (Keychain, Secret Service,
// WinCred) through zalando/go-keyring.
type Keyring struct {
	serviceName string
}

// NewKeyring creates a keyring-backed store.
func NewKeyring() *Keyring {
	return &Keyring{serviceName: ServiceName}
}

// Get retrieves a credential record from the OS keyring.
func (k *Keyring) Get(serverID string, dt DataType) (string, error) {
	secret, err := keyring.Get(k.serviceName, Key(serverID, dt))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read %s for server %s from keyring: %w", dt, serverID, err)
	}
	return secret, nil
}

// Set stores a credential record in the OS keyring, overwriting any
// previous value.
func (k *Keyring) Set(serverID string, dt DataType, value string) error {
	if err := keyring.Set(k.serviceName, Key(serverID, dt), value); err != nil {
		return fmt.Errorf("failed to store %s for server %s in keyring: %w", dt, serverID, err)
	}
	return nil
}

// Available checks if the OS keyring is usable on the current system.
func (k *Keyring) Available() bool {
	const testKey = "_mcphub_test_availability"

	if err := keyring.Set(k.serviceName, testKey, "test"); err != nil {
		return false
	}
	if _, err := keyring.Get(k.serviceName, testKey); err != nil {
		return false
	}
	_ = keyring.Delete(k.serviceName, testKey)
	return true
}
