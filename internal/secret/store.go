package secret

import (
	"runtime"
	"sync"
)

// APITokenKey is the account name the remote API bearer token is stored under.
const APITokenKey = "api-token"

// SecretStore keeps credentials such as the blog API token out of the
// config file.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get returns nil and no error when the key does not exist.
	Get(key string) ([]byte, error)

	Delete(key string) error
}

// Default returns the keychain on macOS and a process-local store elsewhere.
func Default() SecretStore {
	if runtime.GOOS == "darwin" {
		return NewKeychainStore(DefaultKeychainService)
	}
	return NewMemoryStore()
}

// MemoryStore keeps secrets for the lifetime of the process.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Token returns the stored API token, or fallback when none is stored.
func Token(s SecretStore, fallback string) string {
	if s == nil {
		return fallback
	}
	v, err := s.Get(APITokenKey)
	if err != nil || len(v) == 0 {
		return fallback
	}
	return string(v)
}
