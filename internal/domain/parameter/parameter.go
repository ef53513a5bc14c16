package parameter

import (
	"strings"
)

const (
	// DefaultVisibleItemCount is used when a definition leaves the count unset
	DefaultVisibleItemCount = 5

	// DefaultMultiSelectDelimiter joins multiple selections when none is configured
	DefaultMultiSelectDelimiter = ","
)

// Repository holds the version-control connection used by repository-path parameters
type Repository struct {
	URL      string `yaml:"url,omitempty" json:"url,omitempty"`
	Username string `yaml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" json:"-"`
}

// Parameter is the configuration of one choice parameter instance.
// Callers treat it as immutable once Normalize has been applied.
type Parameter struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Type        Type   `yaml:"type" json:"type"`

	// Value is an inline comma list, or the level column names for multi-level types
	Value        string `yaml:"value,omitempty" json:"value,omitempty"`
	PropertyFile string `yaml:"propertyFile,omitempty" json:"propertyFile,omitempty"`
	PropertyKey  string `yaml:"propertyKey,omitempty" json:"propertyKey,omitempty"`

	DefaultValue        string `yaml:"defaultValue,omitempty" json:"defaultValue,omitempty"`
	DefaultPropertyFile string `yaml:"defaultPropertyFile,omitempty" json:"defaultPropertyFile,omitempty"`
	DefaultPropertyKey  string `yaml:"defaultPropertyKey,omitempty" json:"defaultPropertyKey,omitempty"`

	QuoteValue           bool   `yaml:"quoteValue,omitempty" json:"quoteValue,omitempty"`
	VisibleItemCount     int    `yaml:"visibleItemCount,omitempty" json:"visibleItemCount"`
	MultiSelectDelimiter string `yaml:"multiSelectDelimiter,omitempty" json:"multiSelectDelimiter"`

	BindFieldName string `yaml:"bindFieldName,omitempty" json:"bindFieldName,omitempty"`
	BoundSelect   bool   `yaml:"bindedSelect,omitempty" json:"bindedSelect,omitempty"`

	RepositoryPath bool       `yaml:"svnPath,omitempty" json:"svnPath,omitempty"`
	Repository     Repository `yaml:"repository,omitempty" json:"repository,omitempty"`

	ProjectName     string `yaml:"projectName,omitempty" json:"projectName,omitempty"`
	RoleBasedFilter bool   `yaml:"roleBasedFilter,omitempty" json:"roleBasedFilter,omitempty"`
}

// NewParameter creates a normalized parameter
func NewParameter(name string, paramType Type) *Parameter {
	p := &Parameter{
		Name: name,
		Type: paramType,
	}
	p.Normalize()
	return p
}

// Normalize applies the defaults for unset presentation fields
func (p *Parameter) Normalize() {
	if p.VisibleItemCount <= 0 {
		p.VisibleItemCount = DefaultVisibleItemCount
	}
	if p.MultiSelectDelimiter == "" {
		p.MultiSelectDelimiter = DefaultMultiSelectDelimiter
	}
}

// IsMultiLevel checks if the parameter renders dependent dropdowns
func (p *Parameter) IsMultiLevel() bool {
	return p.Type.IsMultiLevel()
}

// HasPropertySource checks if values come from a property file and key
func (p *Parameter) HasPropertySource() bool {
	return !isBlank(p.PropertyFile) && !isBlank(p.PropertyKey)
}

// HasDefaultPropertySource checks if defaults come from a property file and key
func (p *Parameter) HasDefaultPropertySource() bool {
	return !isBlank(p.DefaultPropertyFile) && !isBlank(p.DefaultPropertyKey)
}

// LevelNames returns the configured level column names of a multi-level parameter
func (p *Parameter) LevelNames() []string {
	if p.Value == "" {
		return nil
	}
	return strings.Split(p.Value, ",")
}

// FiltersByRole checks if role-based filtering applies to this parameter's candidates
func (p *Parameter) FiltersByRole() bool {
	return p.RoleBasedFilter && !p.RepositoryPath
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
