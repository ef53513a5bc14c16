package roles

import (
	"context"

	"github.com/hashicorp/go-multierror"
)

// StaticProvider serves grants declared up front, e.g. in a job file
type StaticProvider map[Scope]map[string][]string

// GrantedRoles implements Provider
func (p StaticProvider) GrantedRoles(ctx context.Context, scope Scope) (map[string][]string, error) {
	return p[scope], nil
}

// Chain merges the grants of several providers.
// Members of a role are concatenated in provider order.
type Chain []Provider

// GrantedRoles implements Provider; a failing member fails the whole chain
func (c Chain) GrantedRoles(ctx context.Context, scope Scope) (map[string][]string, error) {
	merged := make(map[string][]string)
	var errs *multierror.Error

	for _, p := range c {
		if p == nil {
			continue
		}
		grants, err := p.GrantedRoles(ctx, scope)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		for role, members := range grants {
			merged[role] = append(merged[role], members...)
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return merged, nil
}
