// Package roles resolves the caller's role set and filters candidates by it
package roles

import (
	"context"
	"sort"
	"strings"

	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/logging"
	"github.com/sirupsen/logrus"
)

// Scope is a grant level of the authorization provider
type Scope string

const (
	ScopeGlobal  Scope = "globalRoles"
	ScopeProject Scope = "projectRoles"
)

// Scopes returns the scopes in resolution order
func Scopes() []Scope {
	return []Scope{ScopeGlobal, ScopeProject}
}

// ParseScope accepts "globalRoles"/"projectRoles" and the short forms "global"/"project"
func ParseScope(s string) (Scope, bool) {
	switch strings.ToLower(s) {
	case "globalroles", "global":
		return ScopeGlobal, true
	case "projectroles", "project":
		return ScopeProject, true
	}
	return "", false
}

// Provider reports, for one scope, the members granted each role
type Provider interface {
	GrantedRoles(ctx context.Context, scope Scope) (map[string][]string, error)
}

// Set is an ordered, duplicate-free set of role names
type Set struct {
	names []string
	index map[string]struct{}
}

// NewSet builds a set keeping the first occurrence of each name
func NewSet(names ...string) Set {
	var s Set
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add appends name unless already present
func (s *Set) Add(name string) {
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[name]; ok {
		return
	}
	s.index[name] = struct{}{}
	s.names = append(s.names, name)
}

// Contains reports membership
func (s Set) Contains(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Names returns the roles in insertion order
func (s Set) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s Set) Len() int { return len(s.names) }

// IsAdmin reports whether the set holds AdminRole
func (s Set) IsAdmin() bool { return s.Contains(AdminRole) }

// Resolve returns the roles granted to identity across all scopes.
// Within a scope roles are visited in name order. Any provider failure,
// a nil provider or a blank identity gives the empty set.
func Resolve(ctx context.Context, provider Provider, identity string, logger logrus.FieldLogger) Set {
	log := logging.OrDiscard(logger).WithField("identity", identity)

	if provider == nil || strings.TrimSpace(identity) == "" {
		log.Debug("no authorization provider or caller, role set is empty")
		return Set{}
	}

	var set Set
	for _, scope := range Scopes() {
		grants, err := provider.GrantedRoles(ctx, scope)
		if err != nil {
			log.WithError(err).WithField("scope", string(scope)).Warn("role lookup failed, role set is empty")
			return Set{}
		}

		roleNames := make([]string, 0, len(grants))
		for role := range grants {
			roleNames = append(roleNames, role)
		}
		sort.Strings(roleNames)

		for _, role := range roleNames {
			for _, member := range grants[role] {
				if member == identity {
					set.Add(role)
					break
				}
			}
		}
	}

	return set
}
