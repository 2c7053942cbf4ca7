package model

import (
	"fmt"

	"gopkg.in/yaml.v2"
)

// Install is the per-package manifest of file movements that carry a
// built package into the client root, and that removal undoes. It is
// materialized under to_install/ after a successful build, either from
// a <name>.install file the build produced or from the spec's inline
// install section.
type Install struct {
	// Lib holds glob patterns, relative to the build tree, whose
	// matches are copied under lib/<name>/
	Lib []string `json:"lib,omitempty" yaml:"lib,omitempty"`
	// Bin entries copy exactly one source file to a program name
	// under bin/
	Bin []Move `json:"bin,omitempty" yaml:"bin,omitempty"`
	// Misc entries copy to absolute destinations outside the root,
	// each guarded by an interactive prompt
	Misc []Move `json:"misc,omitempty" yaml:"misc,omitempty"`
	_    struct{}
}

// Move is a single source-to-destination file movement.
type Move struct {
	Src string `json:"src" yaml:"src"`
	Dst string `json:"dst" yaml:"dst"`
	_   struct{}
}

func (m Move) String() string {
	return fmt.Sprintf("%s => %s", m.Src, m.Dst)
}

// IsEmpty tells whether the manifest moves nothing at all.
func (i *Install) IsEmpty() bool {
	return i == nil || len(i.Lib) == 0 && len(i.Bin) == 0 && len(i.Misc) == 0
}

func UnmarshalInstall(b []byte) (*Install, error) {
	if b == nil {
		return nil, fmt.Errorf("received nil manifest to unmarshall")
	}
	var i Install
	err := yaml.Unmarshal(b, &i)
	return &i, err
}

func MarshalInstall(i *Install) ([]byte, error) {
	b, err := yaml.Marshal(i)
	return b, err
}
