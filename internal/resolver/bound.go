package resolver

import (
	"context"

	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/domain/parameter"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/repository"
	"github.com/sirupsen/logrus"
)

// BoundChoices computes the options of a select bound to another field.
// src is the bound field's current value: for repository-path parameters it
// names the directory to list, otherwise the project suffix of the lookup key
// comes from the parameter's project name. The result always starts with the
// sentinel; blank inputs and failures give the sentinel alone.
func (r *Resolver) BoundChoices(ctx context.Context, p *parameter.Parameter, location, key, src string) ([]string, error) {
	if err := r.validator.ValidateType(p); err != nil {
		return nil, err
	}

	choices := []string{SelectSentinel}
	if isBlank(location) || isBlank(key) {
		return choices, nil
	}

	var content string
	if p.RepositoryPath {
		if r.lister == nil {
			r.logger.WithField("parameter", p.Name).Warn("repository path parameter without a repository lister")
			return choices, nil
		}
		res := r.lister.List(ctx, repository.Credentials{
			URL:      p.Repository.URL,
			Username: p.Repository.Username,
			Password: p.Repository.Password,
		}, src)
		content = res.Joined()
	} else if res := r.sources.Resolve(ctx, location, key, p.ProjectName); res.Resolved() {
		content = res.Value
	}

	r.logger.WithFields(logrus.Fields{
		"parameter": p.Name,
		"src":       src,
	}).Debug("bound choices computed")

	return append(choices, splitDroppingTrailing(content)...), nil
}
