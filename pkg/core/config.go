// Copyright © 2019 One Concern

package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/silene/opam/pkg/core/status"
	"github.com/silene/opam/pkg/model"
	"github.com/silene/opam/pkg/solver"
)

// ConfigRequest selects what Config emits per package.
type ConfigRequest int

const (
	// ConfigInclude emits compiler include flags
	ConfigInclude ConfigRequest = iota
	// ConfigBytelink emits bytecode linking flags
	ConfigBytelink
	// ConfigAsmlink emits native linking flags
	ConfigAsmlink
)

// Config prints, on a single line, the compilation flags of the given
// installed packages: include paths, and for the link requests the
// spec's link options followed by its library archives. Recursive mode
// expands the set to the transitive dependencies, emitted before their
// dependents so the line is usable as-is on a compiler command line.
func (c *Client) Config(ctx context.Context, recursive bool, req ConfigRequest, names []string) error {
	installed, err := c.root.Installed(ctx)
	if err != nil {
		return err
	}
	byName := make(map[string]solver.Package, len(installed))
	universe := make([]solver.Package, 0, len(installed))
	for _, name := range sortedNames(installed) {
		nv := model.NV{Name: name, Version: installed[name]}
		spec, err := c.root.Spec(ctx, nv)
		if err != nil {
			return err
		}
		p := solver.Package{NV: nv, Installed: true, Depends: spec.Depends}
		byName[name] = p
		universe = append(universe, p)
	}

	targets := make([]solver.Package, 0, len(names))
	for _, name := range names {
		p, ok := byName[name]
		if !ok {
			return status.ErrUnknownPackage.Wrap(fmt.Errorf("%s", name))
		}
		targets = append(targets, p)
	}
	if recursive {
		targets = c.settings.solver.BackwardDependencies(universe, targets)
	}

	var flags []string
	for _, p := range targets {
		spec, err := c.root.Spec(ctx, p.NV)
		if err != nil {
			return err
		}
		flags = append(flags, c.configFlags(req, spec)...)
	}
	c.printf("%s\n", strings.Join(flags, " "))
	return nil
}

// configFlags renders the per-package part of a config line. Both link
// flavors share the spec's single link-options list; only the library
// extension differs.
func (c *Client) configFlags(req ConfigRequest, spec *model.Spec) []string {
	flags := []string{"-I", c.root.Join(model.GetLibPath(spec.Package))}
	if req == ConfigInclude {
		return flags
	}
	flags = append(flags, spec.LinkOptions...)
	ext := ".cma"
	if req == ConfigAsmlink {
		ext = ".cmxa"
	}
	for _, lib := range spec.Libraries {
		flags = append(flags, lib+ext)
	}
	return flags
}
