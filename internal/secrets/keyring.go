package secrets

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/zalando/go-keyring"
)

// indexAccount holds the JSON list of stored accounts, since the Secret
// Service API offers no way to enumerate one service's entries
const indexAccount = "__index__"

// KeyringBackend stores secrets in the Secret Service (GNOME Keyring, KWallet)
type KeyringBackend struct {
	service string
	mu      sync.Mutex
}

// NewKeyringBackend creates a backend on the session keyring
func NewKeyringBackend() Backend {
	return &KeyringBackend{service: serviceName}
}

// Store saves the password and records ref in the index
func (s *KeyringBackend) Store(ref Reference, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := keyring.Set(s.service, ref.account(), password); err != nil {
		return err
	}
	accounts, err := s.index()
	if err != nil {
		return err
	}
	for _, a := range accounts {
		if a == ref.account() {
			return nil
		}
	}
	return s.writeIndex(append(accounts, ref.account()))
}

// Lookup returns the password of ref
func (s *KeyringBackend) Lookup(ref Reference) (string, error) {
	value, err := keyring.Get(s.service, ref.account())
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrSecretNotFound
	}
	return value, err
}

// Remove deletes ref; removing an absent reference is not an error
func (s *KeyringBackend) Remove(ref Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := keyring.Delete(s.service, ref.account()); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	accounts, err := s.index()
	if err != nil {
		return err
	}
	kept := accounts[:0]
	for _, a := range accounts {
		if a != ref.account() {
			kept = append(kept, a)
		}
	}
	return s.writeIndex(kept)
}

// References returns every indexed reference
func (s *KeyringBackend) References() ([]Reference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.index()
	if err != nil {
		return nil, err
	}
	refs := make([]Reference, 0, len(accounts))
	for _, a := range accounts {
		if ref, ok := parseAccount(a); ok {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

func (s *KeyringBackend) index() ([]string, error) {
	raw, err := keyring.Get(s.service, indexAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	var accounts []string
	if err := json.Unmarshal([]byte(raw), &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *KeyringBackend) writeIndex(accounts []string) error {
	sort.Strings(accounts)
	data, err := json.Marshal(accounts)
	if err != nil {
		return err
	}
	return keyring.Set(s.service, indexAccount, string(data))
}
