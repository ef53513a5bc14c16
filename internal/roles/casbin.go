package roles

import (
	"context"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
)

// DefaultModel is a domain RBAC model whose domain is the grant scope.
// Grouping rules read "g, <identity>, <role>, <scope>".
const DefaultModel = `
[request_definition]
r = sub, dom, obj, act

[policy_definition]
p = sub, dom, obj, act

[role_definition]
g = _, _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub, r.dom) && r.dom == p.dom && r.obj == p.obj && r.act == p.act
`

// CasbinProvider reads role grants from a casbin enforcer
type CasbinProvider struct {
	enforcer *casbin.Enforcer
}

// NewCasbinProvider wraps an existing enforcer
func NewCasbinProvider(enforcer *casbin.Enforcer) *CasbinProvider {
	return &CasbinProvider{enforcer: enforcer}
}

// LoadCasbinProvider builds an enforcer from a policy CSV file.
// An empty modelPath selects DefaultModel.
func LoadCasbinProvider(modelPath, policyPath string) (*CasbinProvider, error) {
	var (
		m   model.Model
		err error
	)
	if modelPath == "" {
		m, err = model.NewModelFromString(DefaultModel)
	} else {
		m, err = model.NewModelFromFile(modelPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load role model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m, fileadapter.NewAdapter(policyPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load role policy %s: %w", policyPath, err)
	}
	return NewCasbinProvider(enforcer), nil
}

// NewMemoryCasbinProvider builds an enforcer on DefaultModel without a policy file
func NewMemoryCasbinProvider() (*CasbinProvider, error) {
	m, err := model.NewModelFromString(DefaultModel)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	return NewCasbinProvider(enforcer), nil
}

// Grant adds identity to role within scope
func (p *CasbinProvider) Grant(scope Scope, role, identity string) error {
	_, err := p.enforcer.AddGroupingPolicy(identity, role, string(scope))
	return err
}

// GrantedRoles implements Provider
func (p *CasbinProvider) GrantedRoles(ctx context.Context, scope Scope) (map[string][]string, error) {
	rules, err := p.enforcer.GetFilteredNamedGroupingPolicy("g", 2, string(scope))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s grants: %w", scope, err)
	}

	grants := make(map[string][]string)
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		identity, role := rule[0], rule[1]
		grants[role] = append(grants[role], identity)
	}
	return grants, nil
}
