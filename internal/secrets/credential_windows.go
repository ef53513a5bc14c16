//go:build windows

package secrets

import (
	"errors"

	"github.com/danieljoos/wincred"
)

// CredentialBackend keeps repository passwords as generic credentials whose
// target name is the reference itself, e.g. "secret:svn/build_bot"
type CredentialBackend struct{}

// NewCredentialBackend creates a new Windows Credential Manager backend
func NewCredentialBackend() (Backend, error) {
	return &CredentialBackend{}, nil
}

// Store writes the credential of ref
func (c *CredentialBackend) Store(ref Reference, password string) error {
	cred := wincred.NewGenericCredential(ref.String())
	cred.UserName = ref.Key
	cred.Comment = serviceName + " repository password"
	cred.CredentialBlob = []byte(password)
	cred.Persist = wincred.PersistLocalMachine
	return cred.Write()
}

// Lookup returns the password of ref
func (c *CredentialBackend) Lookup(ref Reference) (string, error) {
	cred, err := wincred.GetGenericCredential(ref.String())
	if errors.Is(err, wincred.ErrElementNotFound) {
		return "", ErrSecretNotFound
	}
	if err != nil {
		return "", err
	}
	return string(cred.CredentialBlob), nil
}

// Remove deletes the credential of ref
func (c *CredentialBackend) Remove(ref Reference) error {
	cred, err := wincred.GetGenericCredential(ref.String())
	if errors.Is(err, wincred.ErrElementNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return cred.Delete()
}

// References lists the credentials named like secret references
func (c *CredentialBackend) References() ([]Reference, error) {
	creds, err := wincred.FilteredList(ReferencePrefix + "*")
	if err != nil {
		return nil, err
	}

	refs := make([]Reference, 0, len(creds))
	for _, cred := range creds {
		if ref, err := ParseReference(cred.TargetName); err == nil {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}
