// Package secrets stores repository passwords outside of job definitions.
// Job files refer to them as "secret:<namespace>/<key>".
package secrets

import (
	"runtime"
	"sort"
)

// serviceName identifies choicectl entries in the OS credential stores
const serviceName = "choicectl"

// Manager stores the passwords behind secret references
type Manager interface {
	// Set stores a password
	Set(namespace, key, value string) error

	// Get retrieves a password
	Get(namespace, key string) (string, error)

	// Delete removes a password; removing an absent one is not an error
	Delete(namespace, key string) error

	// List returns the sorted keys (not values) of namespace
	List(namespace string) ([]string, error)
}

// Backend is one platform credential store. Entries are addressed by
// reference; entries the store holds for other programs are never listed.
type Backend interface {
	Store(ref Reference, password string) error
	Lookup(ref Reference) (string, error)
	Remove(ref Reference) error
	References() ([]Reference, error)
}

// DefaultManager implements Manager on top of a Backend
type DefaultManager struct {
	backend Backend
}

// Option is a functional option for configuring the manager
type Option func(*DefaultManager)

// NewManager creates a new secrets manager with the platform backend.
// Options are applied before the platform backend is probed, so WithFallback
// works on hosts without a keyring.
func NewManager(opts ...Option) (Manager, error) {
	mgr := &DefaultManager{}

	for _, opt := range opts {
		opt(mgr)
	}

	if mgr.backend == nil {
		backend, err := detectBackend()
		if err != nil {
			return nil, err
		}
		mgr.backend = backend
	}

	return mgr, nil
}

// WithFallback selects the encrypted file backend stored at path.
// An empty path uses ~/.choicectl/secrets.enc.
func WithFallback(path string) Option {
	return func(m *DefaultManager) {
		if path == "" {
			m.backend = NewFallbackBackend()
			return
		}
		m.backend = NewFallbackBackendWithPath(path)
	}
}

// WithBackend uses b instead of the platform backend
func WithBackend(b Backend) Option {
	return func(m *DefaultManager) {
		m.backend = b
	}
}

// detectBackend chooses the appropriate backend for the platform
func detectBackend() (Backend, error) {
	switch runtime.GOOS {
	case "darwin":
		return NewKeychainBackend()
	case "windows":
		return NewCredentialBackend()
	case "linux":
		return NewKeyringBackend(), nil
	default:
		return NewFallbackBackend(), nil
	}
}

// Set stores a password
func (m *DefaultManager) Set(namespace, key, value string) error {
	ref, err := NewReference(namespace, key)
	if err != nil {
		return NewSecretError("set", namespace, key, err)
	}
	if err := m.backend.Store(ref, value); err != nil {
		return NewSecretError("set", namespace, key, err)
	}
	return nil
}

// Get retrieves a password
func (m *DefaultManager) Get(namespace, key string) (string, error) {
	ref, err := NewReference(namespace, key)
	if err != nil {
		return "", NewSecretError("get", namespace, key, err)
	}
	value, err := m.backend.Lookup(ref)
	if err != nil {
		return "", NewSecretError("get", namespace, key, err)
	}
	return value, nil
}

// Delete removes a password
func (m *DefaultManager) Delete(namespace, key string) error {
	ref, err := NewReference(namespace, key)
	if err != nil {
		return NewSecretError("delete", namespace, key, err)
	}
	if err := m.backend.Remove(ref); err != nil {
		return NewSecretError("delete", namespace, key, err)
	}
	return nil
}

// List returns the sorted keys stored under namespace
func (m *DefaultManager) List(namespace string) ([]string, error) {
	if !namePattern.MatchString(namespace) {
		return nil, NewSecretError("list", namespace, "", ErrNamespaceInvalid)
	}

	refs, err := m.backend.References()
	if err != nil {
		return nil, NewSecretError("list", namespace, "", err)
	}

	var keys []string
	for _, ref := range refs {
		if ref.Namespace == namespace {
			keys = append(keys, ref.Key)
		}
	}
	sort.Strings(keys)

	return keys, nil
}
