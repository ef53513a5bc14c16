// Package resolver computes the effective value and default lists of a parameter
package resolver

import (
	"context"
	"strings"

	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/domain/parameter"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/logging"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/repository"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/roles"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/source"
	"github.com/sirupsen/logrus"
)

// SelectSentinel is the "no selection yet" entry placed before file-sourced candidates
const SelectSentinel = "Select"

// Caller identifies who is asking and where their roles come from
type Caller struct {
	Identity string
	Roles    roles.Provider
}

// Field selects which list of a parameter to resolve
type Field int

const (
	FieldValue Field = iota
	FieldDefault
)

func (f Field) String() string {
	if f == FieldDefault {
		return "default"
	}
	return "value"
}

// Resolution is one computed list together with how it was obtained
type Resolution struct {
	// Value is the comma list handed to rendering and submission matching
	Value string
	// Source is the property lookup outcome; OutcomeBlank when the inline value was used
	Source source.Outcome
	// Filtered reports whether role filtering was applied
	Filtered bool
}

// Degraded reports whether a source failure reduced the list to the sentinel
func (r Resolution) Degraded() bool {
	return r.Source == source.OutcomeMissingKey ||
		r.Source == source.OutcomeLoadFailed ||
		r.Source == source.OutcomeEmptyValue
}

// Resolver orchestrates the source resolver, the role filter and the repository lister
type Resolver struct {
	sources   *source.Resolver
	lister    *repository.Lister
	validator *parameter.Validator
	logger    logrus.FieldLogger
}

// New creates a value resolver. lister may be nil when no parameter lists a repository.
func New(sources *source.Resolver, lister *repository.Lister, logger logrus.FieldLogger) *Resolver {
	return &Resolver{
		sources:   sources,
		lister:    lister,
		validator: parameter.NewValidator(),
		logger:    logging.OrDiscard(logger),
	}
}

// EffectiveValue returns the role-filtered candidate list of p
func (r *Resolver) EffectiveValue(ctx context.Context, p *parameter.Parameter, caller Caller) (string, error) {
	res, err := r.Resolve(ctx, p, FieldValue, caller)
	return res.Value, err
}

// EffectiveDefaultValue returns the role-filtered default list of p
func (r *Resolver) EffectiveDefaultValue(ctx context.Context, p *parameter.Parameter, caller Caller) (string, error) {
	res, err := r.Resolve(ctx, p, FieldDefault, caller)
	return res.Value, err
}

// Resolve computes one list of p. Every call re-reads the backing source.
//
// A property source yields "Select,<candidates>"; an inline value yields
// the candidates alone; a parameter with neither yields "".
// Only an unrecognised type is reported as an error.
func (r *Resolver) Resolve(ctx context.Context, p *parameter.Parameter, field Field, caller Caller) (Resolution, error) {
	if err := r.validator.ValidateType(p); err != nil {
		return Resolution{}, err
	}

	inline, location, key := p.Value, p.PropertyFile, p.PropertyKey
	if field == FieldDefault {
		inline, location, key = p.DefaultValue, p.DefaultPropertyFile, p.DefaultPropertyKey
	}

	log := r.logger.WithFields(logrus.Fields{
		"parameter": p.Name,
		"field":     field.String(),
	})

	policy := roles.Policy{Enabled: p.FiltersByRole(), ProjectName: p.ProjectName}

	switch {
	case !isBlank(location) && !isBlank(key):
		res := r.sources.Resolve(ctx, location, key, "")
		if !res.Resolved() {
			log.WithField("outcome", res.Outcome.String()).Debug("property source degraded to sentinel")
			return Resolution{Value: SelectSentinel, Source: res.Outcome}, nil
		}

		candidates := r.filter(ctx, policy, splitDroppingTrailing(res.Value), caller)
		return Resolution{
			Value:    joinWithSentinel(candidates),
			Source:   source.OutcomeResolved,
			Filtered: policy.Enabled,
		}, nil

	case !isBlank(inline):
		if !policy.Enabled {
			return Resolution{Value: inline, Source: source.OutcomeBlank}, nil
		}
		candidates := r.filter(ctx, policy, splitDroppingTrailing(inline), caller)
		return Resolution{
			Value:    strings.Join(candidates, ","),
			Source:   source.OutcomeBlank,
			Filtered: true,
		}, nil
	}

	return Resolution{Source: source.OutcomeBlank}, nil
}

func (r *Resolver) filter(ctx context.Context, policy roles.Policy, candidates []string, caller Caller) []string {
	if !policy.Enabled {
		return candidates
	}
	set := roles.Resolve(ctx, caller.Roles, caller.Identity, r.logger)
	return policy.Apply(candidates, set)
}

// DefaultValueMap marks every effective default as selected.
// It returns nil when there is no effective default.
func (r *Resolver) DefaultValueMap(ctx context.Context, p *parameter.Parameter, caller Caller) (map[string]bool, error) {
	value, err := r.EffectiveDefaultValue(ctx, p, caller)
	if err != nil || isBlank(value) {
		return nil, err
	}

	selected := make(map[string]bool)
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			selected[v] = true
		}
	}
	return selected, nil
}

// DefaultParameterValue is the value used when nothing is submitted.
// ok is false when the effective default is blank.
func (r *Resolver) DefaultParameterValue(ctx context.Context, p *parameter.Parameter, caller Caller) (value string, ok bool, err error) {
	value, err = r.EffectiveDefaultValue(ctx, p, caller)
	if err != nil || isBlank(value) {
		return "", false, err
	}
	if p.QuoteValue {
		value = Quote(value)
	}
	return value, true, nil
}

// Quote wraps v in one pair of double quotes
func Quote(v string) string {
	return `"` + v + `"`
}

// splitDroppingTrailing splits on commas and drops trailing empty tokens
func splitDroppingTrailing(s string) []string {
	parts := strings.Split(s, ",")
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

func joinWithSentinel(candidates []string) string {
	if len(candidates) == 0 {
		return SelectSentinel
	}
	return SelectSentinel + "," + strings.Join(candidates, ",")
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
