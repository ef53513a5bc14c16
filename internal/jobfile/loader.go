// Package jobfile loads choice parameter definitions and static role grants from YAML
package jobfile

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/domain/parameter"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/remote"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/roles"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/source"
	"gopkg.in/yaml.v3"
)

// DefaultFilenames are the job file names looked up when none is given
var DefaultFilenames = []string{
	"choices.yml",
	"choices.yaml",
	".choices/choices.yml",
	".choices.yml",
}

// Job is one loaded job definition
type Job struct {
	Parameters []*parameter.Parameter         `yaml:"parameters"`
	Roles      map[string]map[string][]string `yaml:"roles,omitempty"`

	// Path is the file the job was read from
	Path string `yaml:"-"`
}

// Parameter returns the parameter called name
func (j *Job) Parameter(name string) (*parameter.Parameter, bool) {
	for _, p := range j.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Names lists the parameter names in file order
func (j *Job) Names() []string {
	names := make([]string, 0, len(j.Parameters))
	for _, p := range j.Parameters {
		names = append(names, p.Name)
	}
	return names
}

// RoleProvider exposes the grants declared under roles.
// Unknown scope keys were rejected at load time.
func (j *Job) RoleProvider() roles.StaticProvider {
	provider := make(roles.StaticProvider, len(j.Roles))
	for name, grants := range j.Roles {
		scope, _ := roles.ParseScope(name)
		provider[scope] = grants
	}
	return provider
}

type cacheEntry struct {
	job      *Job
	modTime  time.Time
	fileHash string
}

// Loader reads job files relative to a base directory
type Loader struct {
	baseDir   string
	validator *parameter.Validator
	cache     sync.Map
}

// NewLoader creates a new job file loader
func NewLoader(baseDir string) *Loader {
	return &Loader{
		baseDir:   baseDir,
		validator: parameter.NewValidator(),
	}
}

// Find resolves filename against the base directory, or the first default name that exists
func (l *Loader) Find(filename string) (string, error) {
	if filename != "" {
		if filepath.IsAbs(filename) {
			return filename, nil
		}
		return filepath.Join(l.baseDir, filename), nil
	}

	for _, name := range DefaultFilenames {
		candidate := filepath.Join(l.baseDir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no job file found (tried: %s)", strings.Join(DefaultFilenames, ", "))
}

// Load reads, normalizes and validates a job file.
// An unchanged file is served from cache.
func (l *Loader) Load(filename string) (*Job, error) {
	path, err := l.Find(filename)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file %s: %w", path, err)
	}

	if v, ok := l.cache.Load(path); ok {
		entry := v.(cacheEntry)
		if entry.modTime.Equal(info.ModTime()) {
			return entry.job, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file %s: %w", path, err)
	}
	hash := fmt.Sprintf("%x", sha256.Sum256(data))

	if v, ok := l.cache.Load(path); ok {
		entry := v.(cacheEntry)
		if entry.fileHash == hash {
			entry.modTime = info.ModTime()
			l.cache.Store(path, entry)
			return entry.job, nil
		}
	}

	job, err := l.Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("invalid job file %s: %w", path, err)
	}
	job.Path = path

	l.cache.Store(path, cacheEntry{job: job, modTime: info.ModTime(), fileHash: hash})
	return job, nil
}

// Parse decodes job YAML. Relative local source paths are anchored at dir.
func (l *Loader) Parse(data []byte, dir string) (*Job, error) {
	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	l.setDefaults(&job, dir)

	if err := l.validate(&job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (l *Loader) setDefaults(job *Job, dir string) {
	for _, p := range job.Parameters {
		if p == nil {
			continue
		}
		p.Normalize()
		p.PropertyFile = anchor(p.PropertyFile, dir)
		p.DefaultPropertyFile = anchor(p.DefaultPropertyFile, dir)
	}
}

func (l *Loader) validate(job *Job) error {
	var result *multierror.Error
	seen := make(map[string]bool, len(job.Parameters))

	for i, p := range job.Parameters {
		if p == nil {
			result = multierror.Append(result, fmt.Errorf("parameter %d is empty", i+1))
			continue
		}
		if err := l.validator.Validate(p); err != nil {
			result = multierror.Append(result, err)
		}
		if p.Name != "" && seen[p.Name] {
			result = multierror.Append(result, fmt.Errorf("duplicate parameter name %q", p.Name))
		}
		seen[p.Name] = true
	}

	for name := range job.Roles {
		if _, ok := roles.ParseScope(name); !ok {
			result = multierror.Append(result, fmt.Errorf("unknown role scope %q (want globalRoles or projectRoles)", name))
		}
	}

	return result.ErrorOrNil()
}

// anchor joins a relative local path onto dir, leaving URLs and absolute paths alone
func anchor(location, dir string) string {
	if strings.TrimSpace(location) == "" || dir == "" || remote.IsRemoteLocation(location) {
		return location
	}

	archive, member, inArchive := source.SplitArchiveLocation(location)
	if !inArchive {
		archive = location
	}
	if filepath.IsAbs(archive) {
		return location
	}

	anchored := filepath.Join(dir, archive)
	if inArchive {
		return anchored + source.ArchiveSeparator + member
	}
	return anchored
}
