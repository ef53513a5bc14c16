package choice

import (
	"context"
	"time"

	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/domain/parameter"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/resolver"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/submission"
	"github.com/sirupsen/logrus"
)

// CreateValue builds the value of a form submission.
// With nothing submitted the default parameter value is used; ok is false
// when there is no default either.
func (s *Service) CreateValue(ctx context.Context, p *parameter.Parameter, caller resolver.Caller, submitted []string) (v Value, ok bool, err error) {
	start := time.Now()
	defer func() { s.observe("submit_form", start, false, err) }()

	if len(submitted) == 0 {
		return s.DefaultParameterValue(ctx, p, caller)
	}

	effective := ""
	if !p.Type.IsTextBox() {
		effective, err = s.values.EffectiveValue(ctx, p, caller)
		if err != nil {
			return Value{}, false, err
		}
	}

	matched := submission.Match(p, submitted, effective)
	s.logger.WithFields(logrus.Fields{
		"parameter": p.Name,
		"submitted": len(submitted),
	}).Debug("form submission matched")

	return Value{Name: p.Name, Value: matched}, true, nil
}

// CreateValueFromPayload builds the value of a structured submission
func (s *Service) CreateValueFromPayload(ctx context.Context, p *parameter.Parameter, payload submission.Payload) (v Value, err error) {
	start := time.Now()
	defer func() { s.observe("submit_structured", start, false, err) }()

	if err := parameter.NewValidator().ValidateType(p); err != nil {
		return Value{}, err
	}

	value, err := submission.MatchStructured(p, payload)
	if err != nil {
		return Value{}, err
	}
	return Value{Name: p.Name, Value: value}, nil
}
