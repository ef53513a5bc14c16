package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/choice"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/jobfile"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/metrics"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/roles"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

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
    projectName: web
    roleBasedFilter: true
    quoteValue: true
  - name: GENOME
    type: PT_MULTI_LEVEL_SINGLE_SELECT
    value: Kingdom,Species
    propertyFile: genome.tsv
  - name: NOTES
    type: PT_TEXTBOX
roles:
  projectRoles:
    web_release: [carol]
`

func newTestServer(t *testing.T, extra roles.Provider) (*httptest.Server, *prometheus.Registry) {
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

	reg := prometheus.NewRegistry()
	loader := jobfile.NewLoader(dir)
	srv := New(Options{
		Service:  choice.New(choice.Options{Observer: metrics.New(reg)}),
		Jobs:     func() (*jobfile.Job, error) { return loader.Load("") },
		Roles:    extra,
		Gatherer: reg,
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, reg
}

func get(t *testing.T, ts *httptest.Server, path, user string) (*http.Response, map[string]any) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	if user != "" {
		req.Header.Set(IdentityHeader, user)
	}
	return do(t, req)
}

func do(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode body: %v", err)
		}
	}
	return resp, body
}

func TestServer_Value(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	tests := []struct {
		name string
		path string
		user string
		want string
	}{
		{"property source", "/api/v1/parameters/ENV/value", "", "Select,dev,staging,prod"},
		{"filtered without roles", "/api/v1/parameters/BRANCHES/value", "", ""},
		{"filtered for member", "/api/v1/parameters/BRANCHES/value", "carol", "release"},
		{"no source", "/api/v1/parameters/NOTES/value", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, ts, tt.path, tt.user)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("Expected 200, got %d: %v", resp.StatusCode, body)
			}
			if body["value"] != tt.want {
				t.Errorf("Expected value %q, got %v", tt.want, body["value"])
			}
		})
	}
}

func TestServer_ExtraRoleProvider(t *testing.T) {
	extra := roles.StaticProvider{roles.ScopeGlobal: {"admin": {"root"}}}
	ts, _ := newTestServer(t, extra)

	_, body := get(t, ts, "/api/v1/parameters/BRANCHES/value", "root")
	if body["value"] != "main,release,hotfix" {
		t.Errorf("Expected admin to see every candidate, got %v", body["value"])
	}
}

func TestServer_Default(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	_, body := get(t, ts, "/api/v1/parameters/ENV/default", "")
	if body["value"] != "staging" {
		t.Errorf("Expected staging, got %v", body["value"])
	}
	want := map[string]any{"staging": true}
	if !reflect.DeepEqual(body["selected"], want) {
		t.Errorf("Expected %v, got %v", want, body["selected"])
	}
}

func TestServer_Hierarchy(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, body := get(t, ts, "/api/v1/parameters/GENOME/hierarchy", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	root := "GENOME dropdown MultiLevelMultiSelect 0"
	if body["dropdownIds"] != root+","+root+" Animal,"+root+" Plant" {
		t.Errorf("Unexpected dropdown ids: %v", body["dropdownIds"])
	}

	resp, _ = get(t, ts, "/api/v1/parameters/ENV/hierarchy", "")
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for flat parameter, got %d", resp.StatusCode)
	}
}

func TestServer_BoundAndCheck(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	_, body := get(t, ts, "/api/v1/parameters/ENV/bound?src=x", "")
	choices, _ := body["choices"].([]any)
	if len(choices) != 4 || choices[0] != "Select" {
		t.Errorf("Unexpected bound choices: %v", body["choices"])
	}

	_, body = get(t, ts, "/api/v1/parameters/ENV/check", "")
	value, _ := body["value"].(map[string]any)
	if value["kind"] != "ok" {
		t.Errorf("Expected ok value diagnostic, got %v", body)
	}
}

func TestServer_Submit(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	tests := []struct {
		name       string
		param      string
		body       string
		wantStatus int
		wantValue  string
	}{
		{"list", "BRANCHES", `{"value":["a","b"]}`, http.StatusOK, `"a,b"`},
		{"string", "NOTES", `{"value":"free text"}`, http.StatusOK, "free text"},
		{"multi-level", "GENOME", `{"value":["Animal","Cat"]}`, http.StatusOK, "Cat"},
		{"misaligned multi-level", "GENOME", `{"value":["Animal","Cat","Plant"]}`, http.StatusBadRequest, ""},
		{"malformed body", "NOTES", `{"value":`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/parameters/"+tt.param+"/submit", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, body := do(t, req)

			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("Expected %d, got %d: %v", tt.wantStatus, resp.StatusCode, body)
			}
			if tt.wantStatus == http.StatusOK && body["value"] != tt.wantValue {
				t.Errorf("Expected %q, got %v", tt.wantValue, body["value"])
			}
		})
	}
}

func TestServer_Form(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	post := func(param string, values url.Values) (*http.Response, map[string]any) {
		req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/parameters/"+param+"/form", strings.NewReader(values.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return do(t, req)
	}

	resp, body := post("ENV", url.Values{"value": {"prod", "qa"}})
	if resp.StatusCode != http.StatusOK || body["value"] != "prod" {
		t.Errorf("Expected prod, got %d %v", resp.StatusCode, body)
	}

	_, body = post("ENV", url.Values{})
	if body["value"] != "staging" {
		t.Errorf("Expected fallback to default, got %v", body)
	}

	resp, _ = post("NOTES", url.Values{})
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected 204 without value or default, got %d", resp.StatusCode)
	}
}

func TestServer_NotFoundAndRequestID(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, _ := get(t, ts, "/api/v1/parameters/MISSING/value", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
	if _, err := uuid.Parse(resp.Header.Get(RequestIDHeader)); err != nil {
		t.Errorf("Expected uuid request id, got %q", resp.Header.Get(RequestIDHeader))
	}

	id := uuid.New().String()
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set(RequestIDHeader, id)
	resp, _ = do(t, req)
	if resp.Header.Get(RequestIDHeader) != id {
		t.Errorf("Expected caller request id to be kept")
	}
}

func TestServer_Metrics(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	get(t, ts, "/api/v1/parameters/ENV/value", "")

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read metrics: %v", err)
	}
	if !strings.Contains(string(data), `choices_resolutions_total{operation="value",outcome="ok"} 1`) {
		t.Errorf("Expected resolution counter in metrics output")
	}
}

func TestServer_ListenAndServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	srv := New(Options{Jobs: func() (*jobfile.Job, error) { return nil, errors.New("unused") }})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, addr) }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	http.DefaultClient.CloseIdleConnections()
}
