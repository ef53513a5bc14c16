package source

import (
	"context"
	"strings"

	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/logging"
	"github.com/sirupsen/logrus"
)

// Outcome classifies how a source resolution ended
type Outcome int

const (
	// OutcomeResolved means the key was found
	OutcomeResolved Outcome = iota
	// OutcomeBlank means no location (or key) was configured
	OutcomeBlank
	// OutcomeMissingKey means the source loaded but has no such key
	OutcomeMissingKey
	// OutcomeLoadFailed means the source could not be read or parsed
	OutcomeLoadFailed
	// OutcomeEmptyValue means the key exists but lists no candidate
	OutcomeEmptyValue
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeBlank:
		return "blank"
	case OutcomeMissingKey:
		return "missing_key"
	case OutcomeLoadFailed:
		return "load_failed"
	case OutcomeEmptyValue:
		return "empty_value"
	default:
		return "unknown"
	}
}

// Result is the raw value behind a location and key.
// Failures are reported through Outcome and Err rather than returned as errors.
type Result struct {
	Value   string
	Key     string
	Outcome Outcome
	Err     error
}

// Resolved reports whether the key was found
func (r Result) Resolved() bool {
	return r.Outcome == OutcomeResolved
}

// SoftFailure reports whether the result is empty because something went wrong
func (r Result) SoftFailure() bool {
	return r.Outcome == OutcomeMissingKey || r.Outcome == OutcomeLoadFailed || r.Outcome == OutcomeEmptyValue
}

// Resolver produces the raw comma list for a location and key
type Resolver struct {
	loader Loader
	logger logrus.FieldLogger
}

// NewResolver creates a resolver backed by loader
func NewResolver(loader Loader, logger logrus.FieldLogger) *Resolver {
	return &Resolver{
		loader: loader,
		logger: logging.OrDiscard(logger),
	}
}

// Resolve loads location and returns the value under key.
// A non-blank projectSuffix changes the key to key_projectSuffix.
func (r *Resolver) Resolve(ctx context.Context, location, key, projectSuffix string) Result {
	if strings.TrimSpace(location) == "" || strings.TrimSpace(key) == "" {
		return Result{Key: key, Outcome: OutcomeBlank}
	}

	if strings.TrimSpace(projectSuffix) != "" {
		key = key + "_" + projectSuffix
	}

	log := r.logger.WithFields(logrus.Fields{
		"location": location,
		"key":      key,
	})

	lookup, err := r.loader.Load(ctx, location)
	if err != nil {
		log.WithError(err).Warn("choice source could not be loaded")
		return Result{Key: key, Outcome: OutcomeLoadFailed, Err: err}
	}

	value, ok := lookup.Get(key)
	if !ok {
		log.Warn("choice source has no such key")
		return Result{Key: key, Outcome: OutcomeMissingKey}
	}

	if strings.TrimRight(strings.TrimSpace(value), ",") == "" {
		log.Warn("choice source key has no value")
		return Result{Value: value, Key: key, Outcome: OutcomeEmptyValue}
	}

	log.Debug("choice source resolved")
	return Result{Value: value, Key: key, Outcome: OutcomeResolved}
}
