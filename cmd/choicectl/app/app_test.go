package app

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/goleak"
)

const testJob = `
parameters:
  - name: ENV
    type: PT_SINGLE_SELECT
    propertyFile: envs.properties
    propertyKey: envs
    defaultValue: staging
  - name: BRANCHES
    type: PT_MULTI_SELECT
    value: main,release,hotfix
    multiSelectDelimiter: ";"
    projectName: web
    roleBasedFilter: true
  - name: GENOME
    type: PT_MULTI_LEVEL_SINGLE_SELECT
    value: Kingdom,Species
    propertyFile: genome.tsv
roles:
  projectRoles:
    web_release: [carol]
`

// setupJob writes a job directory and isolates HOME and CHOICES_* settings
func setupJob(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"choices.yml":     testJob,
		"envs.properties": "envs=dev,staging,prod\n",
		"genome.tsv":      "Kingdom\tSpecies\nAnimal\tCat\nPlant\tFern\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	t.Setenv("HOME", t.TempDir())
	t.Setenv("CHOICES_GRANT_STORE", "")
	t.Setenv("CHOICES_ROLE_MODEL_FILE", "")
	t.Setenv("CHOICES_ROLE_POLICY_FILE", "")
	t.Setenv("CHOICES_LOG_LEVEL", "error")
	return filepath.Join(dir, "choices.yml")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := NewApp("1.2.3", "abc123", "today")
	app.SetOutput(&out)
	app.SetInput(strings.NewReader(""))
	app.SetArgs(args)
	err := app.Execute()
	return out.String(), err
}

func TestValues(t *testing.T) {
	job := setupJob(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"single", []string{"-f", job, "values", "ENV"}, "ENV=Select,dev,staging,prod\n"},
		{"filtered anonymous", []string{"-f", job, "values", "BRANCHES"}, "BRANCHES=\n"},
		{"filtered member", []string{"-f", job, "-u", "carol", "values", "BRANCHES"}, "BRANCHES=release\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if err != nil {
				t.Fatalf("Execute() error: %v", err)
			}
			if out != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, out)
			}
		})
	}
}

func TestValues_All(t *testing.T) {
	defer goleak.VerifyNone(t)
	job := setupJob(t)

	out, err := run(t, "-f", job, "-u", "carol", "values", "--all")
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	want := "ENV=Select,dev,staging,prod\nBRANCHES=release\nGENOME=Kingdom,Species\n"
	if out != want {
		t.Errorf("Expected job order\n%s\ngot\n%s", want, out)
	}
}

func TestValues_Errors(t *testing.T) {
	job := setupJob(t)

	if _, err := run(t, "-f", job, "values"); err == nil {
		t.Error("Expected error without parameters")
	}
	if _, err := run(t, "-f", job, "values", "MISSING"); err == nil || !strings.Contains(err.Error(), "unknown parameter") {
		t.Errorf("Expected unknown parameter error, got %v", err)
	}
	if _, err := run(t, "-f", filepath.Join(filepath.Dir(job), "absent.yml"), "values", "ENV"); err == nil {
		t.Error("Expected error for missing job file")
	}
}

func TestDefaults(t *testing.T) {
	job := setupJob(t)

	out, err := run(t, "-f", job, "defaults", "ENV")
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	for _, want := range []string{"effective: staging", "selected:  staging", "value:     staging"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestSubmit(t *testing.T) {
	job := setupJob(t)

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{"form", []string{"-f", job, "submit", "ENV", "prod", "qa"}, "prod\n", false},
		{"form fallback", []string{"-f", job, "submit", "ENV"}, "staging\n", false},
		{"structured list", []string{"-f", job, "submit", "BRANCHES", "--json", `["a","b"]`}, "a;b\n", false},
		{"structured multi-level", []string{"-f", job, "submit", "GENOME", "--json", `["Animal","Cat","Plant","Fern"]`}, "Cat,Fern\n", false},
		{"misaligned", []string{"-f", job, "submit", "GENOME", "--json", `["Animal"]`}, "", true},
		{"bad json", []string{"-f", job, "submit", "ENV", "--json", `[`}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && out != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, out)
			}
		})
	}
}

func TestHierarchyBoundCheck(t *testing.T) {
	job := setupJob(t)

	out, err := run(t, "-f", job, "hierarchy", "GENOME")
	if err != nil {
		t.Fatalf("hierarchy error: %v", err)
	}
	if !strings.Contains(out, "GENOME dropdown MultiLevelMultiSelect 0 Animal\n  Select a species...,Cat") {
		t.Errorf("Unexpected hierarchy output:\n%s", out)
	}

	out, err = run(t, "-f", job, "bound", "ENV", "anything")
	if err != nil {
		t.Fatalf("bound error: %v", err)
	}
	if out != "Select\ndev\nstaging\nprod\n" {
		t.Errorf("Unexpected bound output: %q", out)
	}

	out, err = run(t, "-f", job, "check", "ENV")
	if err != nil {
		t.Fatalf("check error: %v", err)
	}
	if !strings.Contains(out, "value:   ok") || !strings.Contains(out, "default: ok") {
		t.Errorf("Unexpected check output:\n%s", out)
	}
}

func TestRoles_GrantStore(t *testing.T) {
	job := setupJob(t)
	t.Setenv("CHOICES_GRANT_STORE", filepath.Join(t.TempDir(), "grants.solo"))

	if _, err := run(t, "roles", "grant", "project", "web_hotfix", "dave"); err != nil {
		t.Fatalf("grant error: %v", err)
	}

	out, err := run(t, "roles", "list")
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if !strings.Contains(out, "web_hotfix") || !strings.Contains(out, "dave") {
		t.Errorf("Expected grant to be listed:\n%s", out)
	}

	out, err = run(t, "-f", job, "-u", "dave", "values", "BRANCHES")
	if err != nil {
		t.Fatalf("values error: %v", err)
	}
	if out != "BRANCHES=hotfix\n" {
		t.Errorf("Expected stored grant to apply, got %q", out)
	}

	if _, err := run(t, "roles", "revoke", "project", "web_hotfix", "dave"); err != nil {
		t.Fatalf("revoke error: %v", err)
	}
	if _, err := run(t, "roles", "revoke", "project", "web_hotfix", "dave"); err == nil {
		t.Error("Expected second revoke to fail")
	}
	if _, err := run(t, "roles", "grant", "folder", "x", "y"); err == nil {
		t.Error("Expected unknown scope to fail")
	}
}

func TestSecret_Fallback(t *testing.T) {
	setupJob(t)
	t.Setenv("CHOICES_SECRETS_FALLBACK", "true")
	t.Setenv("CHOICES_SECRETS_PASSPHRASE", "test-passphrase")

	out, err := run(t, "secret", "set", "svn", "build_user", "s3cret")
	if err != nil {
		t.Fatalf("set error: %v", err)
	}
	if !strings.Contains(out, "secret:svn/build_user") {
		t.Errorf("Expected reference in output, got %q", out)
	}

	out, err = run(t, "secret", "list", "svn")
	if err != nil || out != "build_user\n" {
		t.Errorf("Expected listed key, got %q, %v", out, err)
	}

	if _, err := run(t, "secret", "delete", "svn", "build_user"); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	out, _ = run(t, "secret", "list", "svn")
	if out != "" {
		t.Errorf("Expected no keys after delete, got %q", out)
	}
}

func TestVersionAndCompletion(t *testing.T) {
	setupJob(t)

	out, err := run(t, "version", "--short")
	if err != nil || out != "1.2.3\n" {
		t.Errorf("Expected version, got %q, %v", out, err)
	}

	out, err = run(t, "completion", "bash")
	if err != nil || !strings.Contains(out, "choicectl") {
		t.Errorf("Expected bash completion script, got error %v", err)
	}

	if _, err := run(t, "completion", "tcsh"); err == nil {
		t.Error("Expected unsupported shell to fail")
	}
}
