package choice

import (
	"context"
	"strings"

	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/domain/parameter"
)

// DiagnosticKind grades a property-file check
type DiagnosticKind string

const (
	DiagnosticOK      DiagnosticKind = "ok"
	DiagnosticWarning DiagnosticKind = "warning"
)

// Diagnostic is the result of CheckPropertyFile
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message,omitempty"`
}

func (d Diagnostic) OK() bool { return d.Kind == DiagnosticOK }

// CheckPropertyFile reports whether location can be loaded and holds key.
// Multi-level files are tab-delimited, so only loadability is checked for them.
func (s *Service) CheckPropertyFile(ctx context.Context, location, key string, typ parameter.Type) Diagnostic {
	if strings.TrimSpace(location) == "" {
		return Diagnostic{Kind: DiagnosticOK}
	}

	if typ.IsMultiLevel() {
		if _, err := s.loader.Read(ctx, location); err != nil {
			return Diagnostic{Kind: DiagnosticWarning, Message: "property file does not exist"}
		}
		return Diagnostic{Kind: DiagnosticOK}
	}

	lookup, err := s.loader.Load(ctx, location)
	if err != nil {
		return Diagnostic{Kind: DiagnosticWarning, Message: "property file does not exist"}
	}

	if strings.TrimSpace(key) == "" {
		return Diagnostic{Kind: DiagnosticWarning, Message: "no key provided"}
	}
	if _, ok := lookup.Get(key); !ok {
		return Diagnostic{Kind: DiagnosticWarning, Message: "key not found in property file"}
	}
	return Diagnostic{Kind: DiagnosticOK}
}

// CheckParameter runs CheckPropertyFile on both the value and the default source of p
func (s *Service) CheckParameter(ctx context.Context, p *parameter.Parameter) (value, defaults Diagnostic) {
	value = s.CheckPropertyFile(ctx, p.PropertyFile, p.PropertyKey, p.Type)
	defaults = s.CheckPropertyFile(ctx, p.DefaultPropertyFile, p.DefaultPropertyKey, p.Type)
	return value, defaults
}
