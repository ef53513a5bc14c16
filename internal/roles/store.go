package roles

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	solodb "github.com/phillarmonic/SoloDB"
)

// grantRetention keeps grant records alive; every write pushes it forward
const grantRetention = 10 * 365 * 24 * time.Hour

// GrantStore persists role grants in a SoloDB file, one record per scope
type GrantStore struct {
	db *solodb.DB
	mu sync.Mutex
}

// Grant is one membership in a scope
type Grant struct {
	Scope    Scope  `json:"scope"`
	Role     string `json:"role"`
	Identity string `json:"identity"`
}

// DefaultGrantStorePath returns ~/.choicectl/grants.solo
func DefaultGrantStorePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".choicectl", "grants.solo"), nil
}

// OpenGrantStore opens (or creates) the store at path
func OpenGrantStore(path string) (*GrantStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create grant store directory: %w", err)
	}

	db, err := solodb.Open(solodb.Options{
		Path:       path,
		Durability: solodb.SyncBatch,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open grant store: %w", err)
	}

	return &GrantStore{db: db}, nil
}

func scopeKey(scope Scope) string {
	return "grants:" + string(scope)
}

// GrantedRoles implements Provider
func (s *GrantStore) GrantedRoles(ctx context.Context, scope Scope) (map[string][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(scope)
}

// Grant adds identity to role in scope; granting twice is a no-op
func (s *GrantStore) Grant(scope Scope, role, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	grants, err := s.read(scope)
	if err != nil {
		return err
	}
	for _, member := range grants[role] {
		if member == identity {
			return nil
		}
	}
	grants[role] = append(grants[role], identity)
	return s.write(scope, grants)
}

// Revoke removes identity from role in scope and reports whether it was a member
func (s *GrantStore) Revoke(scope Scope, role, identity string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	grants, err := s.read(scope)
	if err != nil {
		return false, err
	}

	members := grants[role]
	kept := make([]string, 0, len(members))
	for _, member := range members {
		if member != identity {
			kept = append(kept, member)
		}
	}
	if len(kept) == len(members) {
		return false, nil
	}

	if len(kept) == 0 {
		delete(grants, role)
	} else {
		grants[role] = kept
	}
	return true, s.write(scope, grants)
}

// List returns every grant in scope ordered by role then identity
func (s *GrantStore) List(scope Scope) ([]Grant, error) {
	s.mu.Lock()
	grants, err := s.read(scope)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var out []Grant
	for role, members := range grants {
		for _, identity := range members {
			out = append(out, Grant{Scope: scope, Role: role, Identity: identity})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role < out[j].Role
		}
		return out[i].Identity < out[j].Identity
	})
	return out, nil
}

// Close closes the underlying database
func (s *GrantStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *GrantStore) read(scope Scope) (map[string][]string, error) {
	grants := make(map[string][]string)

	rc, _, _, err := s.db.GetBlob(scopeKey(scope))
	if errors.Is(err, solodb.ErrNotFound) || errors.Is(err, solodb.ErrExpired) {
		return grants, nil
	}
	if err != nil {
		return nil, fmt.Errorf("grant store read error: %w", err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("grant store read error: %w", err)
	}
	if err := json.Unmarshal(data, &grants); err != nil {
		return nil, fmt.Errorf("grant store record for %s is corrupt: %w", scope, err)
	}
	return grants, nil
}

func (s *GrantStore) write(scope Scope, grants map[string][]string) error {
	data, err := json.Marshal(grants)
	if err != nil {
		return err
	}
	expiry := time.Now().Add(grantRetention)
	if err := s.db.SetBlob(scopeKey(scope), bytes.NewReader(data), int64(len(data)), expiry); err != nil {
		return fmt.Errorf("grant store write error: %w", err)
	}
	return nil
}
