package source

import (
	"archive/zip"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/remote"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

const sampleProperties = `# deploy targets
environments=dev,staging,prod
environments_web=web-dev,web-prod
defaults = staging
blank=
commas=,,
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestParseProperties(t *testing.T) {
	lookup, err := ParseProperties([]byte(sampleProperties + "path=${HOME}/x\n"))
	if err != nil {
		t.Fatalf("ParseProperties() error: %v", err)
	}

	tests := map[string]string{
		"environments": "dev,staging,prod",
		"defaults":     "staging",
		"path":         "${HOME}/x",
	}
	for key, want := range tests {
		got, ok := lookup.Get(key)
		if !ok || got != want {
			t.Errorf("Get(%q) = %q, %v; want %q", key, got, ok, want)
		}
	}
}

func TestResolver_Resolve(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "choices.properties", sampleProperties)
	r := NewResolver(NewFileLoader(nil), nil)
	ctx := context.Background()

	tests := []struct {
		name        string
		location    string
		key         string
		suffix      string
		wantValue   string
		wantOutcome Outcome
	}{
		{"plain key", path, "environments", "", "dev,staging,prod", OutcomeResolved},
		{"project suffix", path, "environments", "web", "web-dev,web-prod", OutcomeResolved},
		{"blank suffix ignored", path, "environments", "  ", "dev,staging,prod", OutcomeResolved},
		{"blank location", "", "environments", "", "", OutcomeBlank},
		{"blank key", path, " ", "", "", OutcomeBlank},
		{"missing key", path, "regions", "", "", OutcomeMissingKey},
		{"missing file", filepath.Join(dir, "absent.properties"), "environments", "", "", OutcomeLoadFailed},
		{"blank value", path, "blank", "", "", OutcomeEmptyValue},
		{"only delimiters", path, "commas", "", ",,", OutcomeEmptyValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(ctx, tt.location, tt.key, tt.suffix)
			if got.Value != tt.wantValue {
				t.Errorf("Expected value %q, got %q", tt.wantValue, got.Value)
			}
			if got.Outcome != tt.wantOutcome {
				t.Errorf("Expected outcome %v, got %v", tt.wantOutcome, got.Outcome)
			}
		})
	}
}

func TestResolver_DistinguishesAbsentFromFailed(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := NewResolver(NewFileLoader(nil), logger)

	res := r.Resolve(context.Background(), "/nonexistent/choices.properties", "k", "")
	if !res.SoftFailure() || res.Err == nil {
		t.Errorf("Expected soft failure with cause, got %+v", res)
	}
	if res.Resolved() {
		t.Error("Expected unresolved result")
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatalf("Expected a warning to be logged, got %v", entry)
	}
	if entry.Data["location"] != "/nonexistent/choices.properties" {
		t.Errorf("Expected location field, got %v", entry.Data)
	}

	empty := r.Resolve(context.Background(), writeFile(t, t.TempDir(), "c.properties", "k=\n"), "k", "")
	if !empty.SoftFailure() || empty.Resolved() {
		t.Errorf("Expected blank value to count as a failure, got %+v", empty)
	}

	blank := r.Resolve(context.Background(), "", "k", "")
	if blank.SoftFailure() {
		t.Error("Expected blank location not to count as a failure")
	}
}

func TestFileLoader_URLFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleProperties))
	}))
	defer srv.Close()

	r := NewResolver(NewFileLoader(remote.NewDefaultRegistry(remote.Options{})), nil)
	res := r.Resolve(context.Background(), srv.URL+"/choices.properties", "environments", "")
	if res.Value != "dev,staging,prod" {
		t.Errorf("Expected value over HTTP, got %+v", res)
	}
}

func TestFileLoader_ArchiveMember(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "bundle.zip")

	f, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("Failed to create archive: %v", err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("conf/choices.properties")
	if err != nil {
		t.Fatalf("Failed to add member: %v", err)
	}
	_, _ = w.Write([]byte(sampleProperties))
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
	_ = f.Close()

	r := NewResolver(NewFileLoader(nil), nil)
	res := r.Resolve(context.Background(), archivePath+"!/conf/choices.properties", "defaults", "")
	if res.Value != "staging" {
		t.Errorf("Expected value from archive member, got %+v", res)
	}

	missing := r.Resolve(context.Background(), archivePath+"!/other.properties", "defaults", "")
	if missing.Outcome != OutcomeLoadFailed {
		t.Errorf("Expected load failure for absent member, got %v", missing.Outcome)
	}
}

func TestFileLoader_CompressedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "choices.properties.gz")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	gz := gzip.NewWriter(f)
	_, _ = gz.Write([]byte(sampleProperties))
	_ = gz.Close()
	_ = f.Close()

	lookup, err := NewFileLoader(nil).Load(context.Background(), path+"!/")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if v, _ := lookup.Get("defaults"); v != "staging" {
		t.Errorf("Expected staging, got %q", v)
	}
}

func TestSplitArchiveLocation(t *testing.T) {
	archive, member, ok := SplitArchiveLocation("/srv/bundle.tar.gz!/a/b.properties")
	if !ok || archive != "/srv/bundle.tar.gz" || member != "a/b.properties" {
		t.Errorf("Unexpected split: %q %q %v", archive, member, ok)
	}
	if _, _, ok := SplitArchiveLocation("/srv/plain.properties"); ok {
		t.Error("Expected plain path not to split")
	}
}
