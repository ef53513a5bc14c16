// Package choice is the surface the rendering host calls: effective lists,
// submissions, multi-level hierarchies and property-file diagnostics
package choice

import (
	"context"
	"time"

	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/domain/parameter"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/logging"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/repository"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/resolver"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/source"
	"github.com/sirupsen/logrus"
)

// Outcomes reported to the Observer
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeError    = "error"
)

// Observer receives one call per operation and one per soft failure
type Observer interface {
	ObserveResolution(operation, outcome string, elapsed time.Duration)
	ObserveSoftFailure(component string)
}

type nopObserver struct{}

func (nopObserver) ObserveResolution(string, string, time.Duration) {}
func (nopObserver) ObserveSoftFailure(string)                      {}

// Value is a parameter value handed back to the host
type Value struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Options wires the collaborators of a Service
type Options struct {
	Loader   *source.FileLoader
	Lister   *repository.Lister
	Observer Observer
	Logger   logrus.FieldLogger
}

// Service answers host requests for parameters. It holds no per-request state.
type Service struct {
	loader   *source.FileLoader
	values   *resolver.Resolver
	observer Observer
	logger   logrus.FieldLogger
}

// New creates a service; zero Options give a local-file/URL loader, no repository
// lister and no metrics
func New(opts Options) *Service {
	logger := logging.OrDiscard(opts.Logger)
	loader := opts.Loader
	if loader == nil {
		loader = source.NewFileLoader(nil)
	}
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	return &Service{
		loader:   loader,
		values:   resolver.New(source.NewResolver(loader, logger), opts.Lister, logger),
		observer: observer,
		logger:   logger,
	}
}

// observe times one operation; outcome is derived from err unless degraded is set
func (s *Service) observe(operation string, start time.Time, degraded bool, err error) {
	outcome := OutcomeOK
	switch {
	case err != nil:
		outcome = OutcomeError
	case degraded:
		outcome = OutcomeDegraded
	}
	s.observer.ObserveResolution(operation, outcome, time.Since(start))
}

func (s *Service) resolve(ctx context.Context, operation string, p *parameter.Parameter, field resolver.Field, caller resolver.Caller) (string, error) {
	start := time.Now()
	res, err := s.values.Resolve(ctx, p, field, caller)
	if res.Degraded() {
		s.observer.ObserveSoftFailure("source")
	}
	s.observe(operation, start, res.Degraded(), err)
	return res.Value, err
}

// EffectiveValue returns the candidate list used for rendering and submission matching
func (s *Service) EffectiveValue(ctx context.Context, p *parameter.Parameter, caller resolver.Caller) (string, error) {
	return s.resolve(ctx, "value", p, resolver.FieldValue, caller)
}

// EffectiveDefaultValue returns the default list
func (s *Service) EffectiveDefaultValue(ctx context.Context, p *parameter.Parameter, caller resolver.Caller) (string, error) {
	return s.resolve(ctx, "default", p, resolver.FieldDefault, caller)
}

// DefaultValueMap marks each default entry as selected; nil when there is no default
func (s *Service) DefaultValueMap(ctx context.Context, p *parameter.Parameter, caller resolver.Caller) (map[string]bool, error) {
	start := time.Now()
	m, err := s.values.DefaultValueMap(ctx, p, caller)
	s.observe("default_map", start, false, err)
	return m, err
}

// DefaultParameterValue is the value used when nothing is submitted
func (s *Service) DefaultParameterValue(ctx context.Context, p *parameter.Parameter, caller resolver.Caller) (Value, bool, error) {
	v, ok, err := s.values.DefaultParameterValue(ctx, p, caller)
	if err != nil || !ok {
		return Value{}, false, err
	}
	return Value{Name: p.Name, Value: v}, true, nil
}

// BoundChoices returns the options of a select bound to another field, sentinel first
func (s *Service) BoundChoices(ctx context.Context, p *parameter.Parameter, location, key, src string) ([]string, error) {
	start := time.Now()
	choices, err := s.values.BoundChoices(ctx, p, location, key, src)
	degraded := err == nil && len(choices) == 1
	if degraded {
		component := "source"
		if p.RepositoryPath {
			component = "repository"
		}
		s.observer.ObserveSoftFailure(component)
	}
	s.observe("bound", start, degraded, err)
	return choices, err
}
