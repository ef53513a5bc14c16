package choice

import (
	"context"
	"time"

	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/domain/parameter"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/errors"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/hierarchy"
)

// Hierarchy builds the dropdown hierarchy of a multi-level parameter from its
// tab-delimited property file. An unreadable file gives the root dropdown alone.
func (s *Service) Hierarchy(ctx context.Context, p *parameter.Parameter) (h *hierarchy.Hierarchy, err error) {
	start := time.Now()
	degraded := false
	defer func() { s.observe("hierarchy", start, degraded, err) }()

	if !p.IsMultiLevel() {
		return nil, errors.NewConfigError(p.Name, "parameter type "+p.Type.String()+" has no dropdown hierarchy")
	}

	rows, err := hierarchy.LoadTabular(ctx, s.loader, p.PropertyFile)
	if err != nil {
		s.logger.WithField("parameter", p.Name).
			WithField("location", p.PropertyFile).
			WithError(err).
			Warn("tabular source could not be loaded")
		s.observer.ObserveSoftFailure("tabular")
		degraded = true
		return hierarchy.Root(p.Name), nil
	}

	return hierarchy.Build(p.Name, p.LevelNames(), rows)
}

// MultiLevelDropdownIDs returns every dropdown id comma-joined
func (s *Service) MultiLevelDropdownIDs(ctx context.Context, p *parameter.Parameter) (string, error) {
	h, err := s.Hierarchy(ctx, p)
	if err != nil {
		return "", err
	}
	return h.JoinedDropdownIDs(), nil
}

// ChoicesByDropdownID returns each dropdown's choices comma-joined
func (s *Service) ChoicesByDropdownID(ctx context.Context, p *parameter.Parameter) (map[string]string, error) {
	h, err := s.Hierarchy(ctx, p)
	if err != nil {
		return nil, err
	}
	return h.ChoicesByDropdownID(), nil
}
