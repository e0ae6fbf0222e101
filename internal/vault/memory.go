package vault

import "sync"

// Memory is an in-process Store used by tests and as a fallback when no OS
// keyring is available. Values are lost on process exit.
type Memory struct {
	mu      sync.RWMutex
	records map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]string)}
}

func (m *Memory) Get(serverID string, dt DataType) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.records[Key(serverID, dt)]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *Memory) Set(serverID string, dt DataType, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[Key(serverID, dt)] = value
	return nil
}

// Len reports the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
