package domain

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Canonical column names after a response has been labeled.
const (
	ColumnName   = "NAME"
	ColumnState  = "state"
	ColumnCounty = "county"
	ColumnValue  = "value"
	ColumnOld    = "old"
	ColumnNew    = "new"
)

// VariableKind selects the normalization rule for a variable.
type VariableKind string

const (
	KindSingle        VariableKind = "single"
	KindPercentChange VariableKind = "percent_change"
)

//go:embed data/variables.yaml
var defaultVariables []byte

// RequestTemplate is one upstream call and the renames applied to its response.
type RequestTemplate struct {
	URL     string            `yaml:"url"`
	Columns map[string]string `yaml:"columns"`
}

// Expand substitutes the API root, state FIPS code, and credential into the template.
func (t RequestTemplate) Expand(base, fips, key string) string {
	r := strings.NewReplacer(
		"{base}", strings.TrimRight(base, "/"),
		"{fips}", fips,
		"{key}", url.QueryEscape(key),
	)
	return r.Replace(t.URL)
}

// VariableSpec describes a registered statistical variable.
type VariableSpec struct {
	Key         string            `yaml:"-"`
	DisplayName string            `yaml:"display_name"`
	Kind        VariableKind      `yaml:"kind"`
	Requests    []RequestTemplate `yaml:"requests"`
}

// Registry is the immutable table of registered variables.
type Registry struct {
	specs map[string]VariableSpec
	keys  []string
}

// ParseRegistry decodes a YAML variable table and validates every entry.
func ParseRegistry(data []byte) (*Registry, error) {
	var raw map[string]VariableSpec
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse variable registry: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("parse variable registry: no variables defined")
	}

	reg := &Registry{specs: make(map[string]VariableSpec, len(raw))}
	for key, spec := range raw {
		spec.Key = key
		if err := spec.validate(); err != nil {
			return nil, err
		}
		reg.specs[key] = spec
		reg.keys = append(reg.keys, key)
	}
	sort.Strings(reg.keys)
	return reg, nil
}

// LoadRegistry reads the variable table from path, or the embedded default
// table when path is empty.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return ParseRegistry(defaultVariables)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read variable registry: %w", err)
	}
	return ParseRegistry(data)
}

// DefaultRegistry returns the embedded variable table. It panics if the
// embedded document is invalid, which is a build defect.
func DefaultRegistry() *Registry {
	reg, err := ParseRegistry(defaultVariables)
	if err != nil {
		panic(err)
	}
	return reg
}

// Lookup returns the spec registered under key.
func (r *Registry) Lookup(key string) (VariableSpec, error) {
	spec, ok := r.specs[key]
	if !ok {
		return VariableSpec{}, fmt.Errorf("%w: %q", ErrUnknownVariable, key)
	}
	return spec, nil
}

// Keys returns the registered variable keys in sorted order.
func (r *Registry) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (s VariableSpec) validate() error {
	if strings.ContainsAny(s.Key, "_-") || s.Key == "" {
		return fmt.Errorf("variable %q: key must be non-empty and contain no '_' or '-'", s.Key)
	}
	if s.DisplayName == "" {
		return fmt.Errorf("variable %q: display_name is required", s.Key)
	}
	for i, req := range s.Requests {
		if !strings.Contains(req.URL, "{fips}") {
			return fmt.Errorf("variable %q: request %d has no {fips} placeholder", s.Key, i)
		}
	}

	switch s.Kind {
	case KindSingle:
		if len(s.Requests) != 1 {
			return fmt.Errorf("variable %q: single variables need exactly 1 request, got %d", s.Key, len(s.Requests))
		}
		if !mapsTo(s.Requests[0].Columns, ColumnValue) {
			return fmt.Errorf("variable %q: request must map a column to %q", s.Key, ColumnValue)
		}
	case KindPercentChange:
		if len(s.Requests) != 2 {
			return fmt.Errorf("variable %q: percent_change variables need exactly 2 requests, got %d", s.Key, len(s.Requests))
		}
		if !mapsTo(s.Requests[0].Columns, ColumnOld) || !mapsTo(s.Requests[1].Columns, ColumnNew) {
			return fmt.Errorf("variable %q: requests must map columns to %q then %q", s.Key, ColumnOld, ColumnNew)
		}
	default:
		return fmt.Errorf("variable %q: unsupported kind %q", s.Key, s.Kind)
	}
	return nil
}

func mapsTo(columns map[string]string, canonical string) bool {
	for _, v := range columns {
		if v == canonical {
			return true
		}
	}
	return false
}
