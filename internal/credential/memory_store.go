package credential

import (
	"context"
	"sync"
)

// MemoryStore keeps secrets in process memory. Used when no persistent secret
// backend is configured and in tests.
type MemoryStore struct {
	mu        sync.RWMutex
	namespace string
	secrets   map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(namespace string) *MemoryStore {
	return &MemoryStore{namespace: namespace, secrets: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	k, err := namespacedKey(m.namespace, key)
	if err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.secrets[k]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, secret string) error {
	k, err := namespacedKey(m.namespace, key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[k] = secret
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	k, err := namespacedKey(m.namespace, key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.secrets, k)
	return nil
}

// Len reports how many secrets are held.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.secrets)
}
