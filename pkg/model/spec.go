package model

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v2"
)

// Spec is the declarative description of one package release: what it
// depends on, where its sources live, how it builds, and what the
// build leaves behind.
type Spec struct {
	Package     string       `json:"package" yaml:"package"`
	Version     Version      `json:"version" yaml:"version"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Depends     []Dependency `json:"depends,omitempty" yaml:"depends,omitempty"`
	URLs        []string     `json:"urls,omitempty" yaml:"urls,omitempty"`
	Patches     []string     `json:"patches,omitempty" yaml:"patches,omitempty"`
	Build       [][]string   `json:"build,omitempty" yaml:"build,omitempty"`
	Libraries   []string     `json:"libraries,omitempty" yaml:"libraries,omitempty"`
	Syntax      []string     `json:"syntax,omitempty" yaml:"syntax,omitempty"`
	LinkOptions []string     `json:"link-options,omitempty" yaml:"link-options,omitempty"`
	Install     *Install     `json:"install,omitempty" yaml:"install,omitempty"`
	_           struct{}
}

// Dependency names a required package, optionally narrowed by a
// version constraint such as ">=0.9" or "=1.0". An empty constraint
// accepts any version.
type Dependency struct {
	Name       string `json:"name" yaml:"name"`
	Constraint string `json:"constraint,omitempty" yaml:"constraint,omitempty"`
	_          struct{}
}

func (d Dependency) String() string {
	if d.Constraint == "" {
		return d.Name
	}
	return d.Name + " " + d.Constraint
}

// NV returns the identity this spec describes.
func (s *Spec) NV() NV {
	return NV{Name: s.Package, Version: s.Version}
}

// Summary returns the first line of the description.
func (s *Spec) Summary() string {
	d := strings.TrimSpace(s.Description)
	if i := strings.IndexByte(d, '\n'); i >= 0 {
		return d[:i]
	}
	return d
}

func UnmarshalSpec(b []byte) (*Spec, error) {
	if b == nil {
		return nil, fmt.Errorf("received nil spec to unmarshall")
	}
	var s Spec
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	if err := ValidateSpec(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func MarshalSpec(s *Spec) ([]byte, error) {
	b, err := yaml.Marshal(s)
	return b, err
}

func ValidateSpec(s *Spec) error {
	if s.Package == "" {
		return fmt.Errorf("empty field: package name is empty")
	}
	if s.Version == "" {
		return fmt.Errorf("empty field: version is empty")
	}
	if strings.Contains(s.Package, "-") {
		return fmt.Errorf("invalid name: package name %q contains a version separator", s.Package)
	}
	for _, d := range s.Depends {
		if d.Name == "" {
			return fmt.Errorf("empty field: dependency of %s has no name", s.Package)
		}
	}
	return nil
}

// SatisfiesConstraint reports whether version v meets a dependency
// constraint. Supported operators: =, !=, >, >=, <, <= followed by a
// version; the empty constraint always holds.
func SatisfiesConstraint(v Version, constraint string) bool {
	c := strings.TrimSpace(constraint)
	if c == "" {
		return true
	}
	op := "="
	for _, candidate := range []string{">=", "<=", "!=", "=", ">", "<"} {
		if strings.HasPrefix(c, candidate) {
			op = candidate
			c = strings.TrimSpace(c[len(candidate):])
			break
		}
	}
	cmp := v.Compare(Version(c))
	switch op {
	case "=":
		return cmp == 0
	case "!=":
		return cmp != 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	}
	return false
}
