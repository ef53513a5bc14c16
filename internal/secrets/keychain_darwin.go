//go:build darwin

package secrets

import (
	"errors"

	"github.com/keybase/go-keychain"
)

// KeychainBackend keeps repository passwords as generic passwords in the
// login keychain, one item per reference
type KeychainBackend struct {
	service string
}

// NewKeychainBackend creates a new macOS Keychain backend
func NewKeychainBackend() (Backend, error) {
	return &KeychainBackend{
		service: "org.jenkins-ci." + serviceName,
	}, nil
}

func (k *KeychainBackend) query(ref Reference) keychain.Item {
	item := keychain.NewItem()
	item.SetSecClass(keychain.SecClassGenericPassword)
	item.SetService(k.service)
	item.SetAccount(ref.account())
	return item
}

// Store adds the item, or replaces the password of an existing one
func (k *KeychainBackend) Store(ref Reference, password string) error {
	item := k.query(ref)
	item.SetLabel(ref.String())
	item.SetData([]byte(password))
	item.SetSynchronizable(keychain.SynchronizableNo)
	item.SetAccessible(keychain.AccessibleWhenUnlocked)

	err := keychain.AddItem(item)
	if !errors.Is(err, keychain.ErrorDuplicateItem) {
		return err
	}

	update := keychain.NewItem()
	update.SetData([]byte(password))
	return keychain.UpdateItem(k.query(ref), update)
}

// Lookup returns the password of ref
func (k *KeychainBackend) Lookup(ref Reference) (string, error) {
	query := k.query(ref)
	query.SetMatchLimit(keychain.MatchLimitOne)
	query.SetReturnData(true)

	results, err := keychain.QueryItem(query)
	if errors.Is(err, keychain.ErrorItemNotFound) || (err == nil && len(results) == 0) {
		return "", ErrSecretNotFound
	}
	if err != nil {
		return "", err
	}
	return string(results[0].Data), nil
}

// Remove deletes the item of ref
func (k *KeychainBackend) Remove(ref Reference) error {
	err := keychain.DeleteItem(k.query(ref))
	if errors.Is(err, keychain.ErrorItemNotFound) {
		return nil
	}
	return err
}

// References lists the items of the choicectl service
func (k *KeychainBackend) References() ([]Reference, error) {
	query := keychain.NewItem()
	query.SetSecClass(keychain.SecClassGenericPassword)
	query.SetService(k.service)
	query.SetMatchLimit(keychain.MatchLimitAll)
	query.SetReturnAttributes(true)

	results, err := keychain.QueryItem(query)
	if errors.Is(err, keychain.ErrorItemNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	refs := make([]Reference, 0, len(results))
	for _, item := range results {
		if ref, ok := parseAccount(item.Account); ok {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}
