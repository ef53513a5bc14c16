package secrets

import (
	"regexp"
	"strings"
)

// ReferencePrefix marks a repository password that lives in the credential store
const ReferencePrefix = "secret:"

// names start with a letter and hold letters, digits, '_' or '-'
var namePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// Reference names one stored secret
type Reference struct {
	Namespace string
	Key       string
}

// NewReference validates namespace and key
func NewReference(namespace, key string) (Reference, error) {
	if !namePattern.MatchString(namespace) {
		return Reference{}, ErrNamespaceInvalid
	}
	if !namePattern.MatchString(key) {
		return Reference{}, ErrInvalidKey
	}
	return Reference{Namespace: namespace, Key: key}, nil
}

func (r Reference) String() string {
	return ReferencePrefix + r.account()
}

// account is the per-backend entry name, "<namespace>/<key>"
func (r Reference) account() string {
	return r.Namespace + "/" + r.Key
}

// parseAccount reverses account; foreign entries give ok=false
func parseAccount(account string) (Reference, bool) {
	ns, key, ok := strings.Cut(account, "/")
	if !ok {
		return Reference{}, false
	}
	ref, err := NewReference(ns, key)
	return ref, err == nil
}

// IsReference reports whether value uses the secret: form
func IsReference(value string) bool {
	return strings.HasPrefix(value, ReferencePrefix)
}

// ParseReference parses "secret:<namespace>/<key>"
func ParseReference(value string) (Reference, error) {
	if !IsReference(value) {
		return Reference{}, ErrInvalidReference
	}
	ns, key, ok := strings.Cut(strings.TrimPrefix(value, ReferencePrefix), "/")
	if !ok {
		return Reference{}, NewSecretError("parse", ns, "", ErrInvalidReference)
	}
	ref, err := NewReference(ns, key)
	if err != nil {
		return Reference{}, NewSecretError("parse", ns, key, err)
	}
	return ref, nil
}

// Resolver turns configured passwords into usable ones
type Resolver struct {
	manager Manager
}

// NewResolver creates a resolver reading references from manager
func NewResolver(manager Manager) *Resolver {
	return &Resolver{manager: manager}
}

// Resolve returns value unchanged unless it is a secret reference,
// in which case the stored secret is returned
func (r *Resolver) Resolve(value string) (string, error) {
	if !IsReference(value) {
		return value, nil
	}
	ref, err := ParseReference(value)
	if err != nil {
		return "", err
	}
	if r.manager == nil {
		return "", NewSecretError("get", ref.Namespace, ref.Key, ErrBackendNotAvail)
	}
	return r.manager.Get(ref.Namespace, ref.Key)
}
