package model

import (
	"fmt"
	"sort"
	"strings"
)

// NV identifies one package at one version, e.g. "ocamlfind-1.9.1".
type NV struct {
	Name    string  `json:"name" yaml:"name"`
	Version Version `json:"version" yaml:"version"`
}

// ParseNV splits a "name-version" token at the first dash. Both halves
// must be non-empty.
func ParseNV(s string) (NV, error) {
	i := strings.Index(s, "-")
	if i <= 0 || i == len(s)-1 {
		return NV{}, fmt.Errorf("malformed package identifier %q: want name-version", s)
	}
	return NV{Name: s[:i], Version: Version(s[i+1:])}, nil
}

func (nv NV) String() string {
	return nv.Name + "-" + nv.Version.String()
}

// Compare orders by name, then by version.
func (nv NV) Compare(o NV) int {
	if c := strings.Compare(nv.Name, o.Name); c != 0 {
		return c
	}
	return nv.Version.Compare(o.Version)
}

// NVs is a sortable set of package identifiers.
type NVs []NV

func (s NVs) Len() int           { return len(s) }
func (s NVs) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s NVs) Less(i, j int) bool { return s[i].Compare(s[j]) < 0 }

// Sort orders the set by name then version, in place.
func (s NVs) Sort() { sort.Sort(s) }

// Names returns the distinct package names, in encounter order.
func (s NVs) Names() []string {
	seen := make(map[string]struct{}, len(s))
	names := make([]string, 0, len(s))
	for _, nv := range s {
		if _, ok := seen[nv.Name]; ok {
			continue
		}
		seen[nv.Name] = struct{}{}
		names = append(names, nv.Name)
	}
	return names
}

// Latest returns the highest version recorded for name, if any.
func (s NVs) Latest(name string) (NV, bool) {
	var (
		best  NV
		found bool
	)
	for _, nv := range s {
		if nv.Name != name {
			continue
		}
		if !found || nv.Version.Compare(best.Version) > 0 {
			best, found = nv, true
		}
	}
	return best, found
}

// ByName returns every version recorded for name.
func (s NVs) ByName(name string) NVs {
	var out NVs
	for _, nv := range s {
		if nv.Name == name {
			out = append(out, nv)
		}
	}
	return out
}

// Has tells whether the exact identifier is present.
func (s NVs) Has(nv NV) bool {
	for _, x := range s {
		if x == nv {
			return true
		}
	}
	return false
}
