package choice

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/domain/parameter"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/errors"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/hierarchy"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/resolver"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/submission"
)

type recordingObserver struct {
	mu          sync.Mutex
	resolutions []string
	failures    []string
}

func (r *recordingObserver) ObserveResolution(operation, outcome string, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolutions = append(r.resolutions, operation+":"+outcome)
}

func (r *recordingObserver) ObserveSoftFailure(component string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, component)
}

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestCreateValue(t *testing.T) {
	props := writeFixture(t, "envs.properties", "envs=dev,staging,prod\n")
	svc := New(Options{})
	ctx := context.Background()

	p := parameter.NewParameter("ENV", parameter.TypeMultiSelect)
	p.PropertyFile, p.PropertyKey = props, "envs"
	p.DefaultValue = "staging"

	v, ok, err := svc.CreateValue(ctx, p, resolver.Caller{}, []string{"prod", "qa", "dev"})
	if err != nil || !ok {
		t.Fatalf("CreateValue() = %v, %v", ok, err)
	}
	if v != (Value{Name: "ENV", Value: "prod,dev"}) {
		t.Errorf("Unexpected value: %+v", v)
	}

	v, ok, _ = svc.CreateValue(ctx, p, resolver.Caller{}, nil)
	if !ok || v.Value != "staging" {
		t.Errorf("Expected default for empty submission, got %+v, %v", v, ok)
	}

	p.QuoteValue = true
	v, _, _ = svc.CreateValue(ctx, p, resolver.Caller{}, nil)
	if v.Value != `"staging"` {
		t.Errorf("Expected quoted default, got %q", v.Value)
	}

	bare := parameter.NewParameter("NONE", parameter.TypeSingleSelect)
	if _, ok, _ := svc.CreateValue(ctx, bare, resolver.Caller{}, nil); ok {
		t.Error("Expected no value without submission or default")
	}
}

func TestCreateValue_TextBox(t *testing.T) {
	svc := New(Options{})
	p := parameter.NewParameter("MSG", parameter.TypeTextBox)
	p.Value = "unrelated"

	v, ok, err := svc.CreateValue(context.Background(), p, resolver.Caller{}, []string{"anything at all"})
	if err != nil || !ok || v.Value != "anything at all" {
		t.Errorf("Expected verbatim text, got %+v, %v, %v", v, ok, err)
	}
}

func TestCreateValue_UnknownType(t *testing.T) {
	svc := New(Options{})
	p := parameter.NewParameter("X", parameter.Type("PT_SLIDER"))
	p.Value = "a"

	if _, _, err := svc.CreateValue(context.Background(), p, resolver.Caller{}, []string{"a"}); !errors.IsConfigError(err) {
		t.Errorf("Expected ConfigError, got %v", err)
	}
	if _, err := svc.CreateValueFromPayload(context.Background(), p, submission.StringPayload("a")); !errors.IsConfigError(err) {
		t.Errorf("Expected ConfigError, got %v", err)
	}
}

func TestCreateValueFromPayload(t *testing.T) {
	svc := New(Options{})
	p := parameter.NewParameter("GENOME", parameter.TypeMultiLevelSingleSelect)
	p.Value = "Genome,Source"

	v, err := svc.CreateValueFromPayload(context.Background(), p, submission.ListPayload("HG18", "Lymphoma"))
	if err != nil || v.Value != "Lymphoma" {
		t.Errorf("Expected leaf value, got %+v, %v", v, err)
	}

	_, err = svc.CreateValueFromPayload(context.Background(), p, submission.ListPayload("HG18"))
	if !errors.IsSubmissionError(err) {
		t.Errorf("Expected SubmissionError, got %v", err)
	}
}

func TestHierarchy(t *testing.T) {
	data := writeFixture(t, "genome.tsv", "Genome\tSource\nHG18\tLymphoma\nHG18\tMyeloma\n")
	obs := &recordingObserver{}
	svc := New(Options{Observer: obs})
	ctx := context.Background()

	p := parameter.NewParameter("G", parameter.TypeMultiLevelMultiSelect)
	p.Value, p.PropertyFile = "Genome,Source", data

	ids, err := svc.MultiLevelDropdownIDs(ctx, p)
	if err != nil {
		t.Fatalf("MultiLevelDropdownIDs() error: %v", err)
	}
	prefix := hierarchy.Prefix("G")
	if ids != prefix+","+prefix+" HG18" {
		t.Errorf("Unexpected ids: %q", ids)
	}

	choices, _ := svc.ChoicesByDropdownID(ctx, p)
	if choices[prefix+" HG18"] != "Select a source...,Lymphoma,Myeloma" {
		t.Errorf("Unexpected choices: %v", choices)
	}

	p.PropertyFile = data + ".missing"
	h, err := svc.Hierarchy(ctx, p)
	if err != nil {
		t.Fatalf("Expected unreadable file to degrade, got %v", err)
	}
	if !reflect.DeepEqual(h.DropdownIDs(), []string{prefix}) {
		t.Errorf("Expected root only, got %v", h.DropdownIDs())
	}
	if !reflect.DeepEqual(obs.failures, []string{"tabular"}) {
		t.Errorf("Expected tabular soft failure, got %v", obs.failures)
	}

	headerOnly := writeFixture(t, "header.tsv", "Genome\tSource\n")
	p.PropertyFile = headerOnly
	if _, err := svc.Hierarchy(ctx, p); !errors.IsConfigError(err) {
		t.Errorf("Expected ConfigError for header-only file, got %v", err)
	}

	flat := parameter.NewParameter("F", parameter.TypeSingleSelect)
	if _, err := svc.Hierarchy(ctx, flat); !errors.IsConfigError(err) {
		t.Errorf("Expected ConfigError for non multi-level type, got %v", err)
	}
}

func TestObserverOutcomes(t *testing.T) {
	props := writeFixture(t, "envs.properties", "envs=a,b\nnone=\n")
	obs := &recordingObserver{}
	svc := New(Options{Observer: obs})
	ctx := context.Background()

	p := parameter.NewParameter("P", parameter.TypeSingleSelect)
	p.PropertyFile, p.PropertyKey = props, "envs"
	_, _ = svc.EffectiveValue(ctx, p, resolver.Caller{})

	p.PropertyKey = "absent"
	_, _ = svc.EffectiveValue(ctx, p, resolver.Caller{})

	p.PropertyKey = "none"
	if v, _ := svc.EffectiveValue(ctx, p, resolver.Caller{}); v != "Select" {
		t.Errorf("Expected sentinel alone for blank value, got %q", v)
	}

	bad := parameter.NewParameter("B", parameter.Type("nope"))
	_, _ = svc.EffectiveDefaultValue(ctx, bad, resolver.Caller{})

	want := []string{"value:ok", "value:degraded", "value:degraded", "default:error"}
	if !reflect.DeepEqual(obs.resolutions, want) {
		t.Errorf("Expected %v, got %v", want, obs.resolutions)
	}
	if !reflect.DeepEqual(obs.failures, []string{"source", "source"}) {
		t.Errorf("Expected two source failures, got %v", obs.failures)
	}
}

func TestCheckPropertyFile(t *testing.T) {
	props := writeFixture(t, "envs.properties", "envs=a,b\n")
	svc := New(Options{})
	ctx := context.Background()

	tests := []struct {
		name     string
		location string
		key      string
		typ      parameter.Type
		want     Diagnostic
	}{
		{"blank location", "", "envs", parameter.TypeSingleSelect, Diagnostic{Kind: DiagnosticOK}},
		{"key found", props, "envs", parameter.TypeSingleSelect, Diagnostic{Kind: DiagnosticOK}},
		{"missing file", props + ".x", "envs", parameter.TypeSingleSelect, Diagnostic{DiagnosticWarning, "property file does not exist"}},
		{"no key", props, " ", parameter.TypeSingleSelect, Diagnostic{DiagnosticWarning, "no key provided"}},
		{"unknown key", props, "nope", parameter.TypeSingleSelect, Diagnostic{DiagnosticWarning, "key not found in property file"}},
		{"multi-level ignores key", props, "", parameter.TypeMultiLevelMultiSelect, Diagnostic{Kind: DiagnosticOK}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.CheckPropertyFile(ctx, tt.location, tt.key, tt.typ); got != tt.want {
				t.Errorf("CheckPropertyFile() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBoundChoices_ReportsDegradedSource(t *testing.T) {
	props := writeFixture(t, "envs.properties", "envs=a,b\nenvs_web=w1\n")
	obs := &recordingObserver{}
	svc := New(Options{Observer: obs})
	ctx := context.Background()

	p := parameter.NewParameter("P", parameter.TypeSingleSelect)
	p.ProjectName = "web"

	got, err := svc.BoundChoices(ctx, p, props, "envs", "ENV")
	if err != nil {
		t.Fatalf("BoundChoices() error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"Select", "w1"}) {
		t.Errorf("Expected suffixed key, got %v", got)
	}

	got, _ = svc.BoundChoices(ctx, p, props+".x", "envs", "ENV")
	if !reflect.DeepEqual(got, []string{"Select"}) {
		t.Errorf("Expected sentinel only, got %v", got)
	}

	if !reflect.DeepEqual(obs.resolutions, []string{"bound:ok", "bound:degraded"}) {
		t.Errorf("Unexpected resolutions: %v", obs.resolutions)
	}
	if !reflect.DeepEqual(obs.failures, []string{"source"}) {
		t.Errorf("Unexpected failures: %v", obs.failures)
	}
}
