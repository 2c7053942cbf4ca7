// Copyright © 2019 One Concern

package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/silene/opam/pkg/core/status"
	"github.com/silene/opam/pkg/model"
	"github.com/silene/opam/pkg/solver"
	"go.uber.org/zap"
)

// Install resolves and applies the installation of one package, given
// either as a bare name or pinned as "name-version".
func (c *Client) Install(ctx context.Context, token string) error {
	universe, installed, err := c.universe(ctx)
	if err != nil {
		return err
	}
	wish, err := installWish(token, universe)
	if err != nil {
		return err
	}
	// Installed packages are passed as pinned wishes ahead of the
	// target, so the solver treats them as kept unless the target's
	// closure forces a change.
	var req solver.Request
	for _, name := range sortedNames(installed) {
		if name == wish.Name {
			continue
		}
		v := installed[name]
		req.WishInstall = append(req.WishInstall, solver.Constraint{Name: name, Version: &v})
	}
	req.WishInstall = append(req.WishInstall, wish)
	return c.resolveAndApply(ctx, universe, req)
}

// Remove resolves and applies the removal of one installed package,
// along with whatever installed packages depend on it.
func (c *Client) Remove(ctx context.Context, name string) error {
	universe, _, err := c.universe(ctx)
	if err != nil {
		return err
	}
	if !universeKnows(universe, name) {
		return status.ErrUnknownPackage.Wrap(fmt.Errorf("%s", name))
	}
	req := solver.Request{WishRemove: []solver.Constraint{{Name: name}}}
	return c.resolveAndApply(ctx, universe, req)
}

// Upgrade resolves and applies an upgrade of every installed package
// to the best version the index knows.
func (c *Client) Upgrade(ctx context.Context) error {
	universe, installed, err := c.universe(ctx)
	if err != nil {
		return err
	}
	var req solver.Request
	for _, name := range sortedNames(installed) {
		req.WishUpgrade = append(req.WishUpgrade, solver.Constraint{Name: name})
	}
	return c.resolveAndApply(ctx, universe, req)
}

// universe builds the solver's view of the world: every identity the
// index knows, tagged installed when it is exactly the installed
// version. Installed versions the index does not list verbatim (the
// behind and unknown head forms) get a synthetic entry, so the solver
// can reason about superseding them.
func (c *Client) universe(ctx context.Context) ([]solver.Package, map[string]model.Version, error) {
	nvs, err := c.root.IndexNVs(ctx)
	if err != nil {
		return nil, nil, err
	}
	installed, err := c.root.Installed(ctx)
	if err != nil {
		return nil, nil, err
	}
	universe := make([]solver.Package, 0, len(nvs))
	known := make(map[model.NV]struct{}, len(nvs))
	for _, nv := range nvs {
		spec, err := c.root.Spec(ctx, nv)
		if err != nil {
			return nil, nil, err
		}
		universe = append(universe, solver.Package{
			NV:        nv,
			Installed: installed[nv.Name] == nv.Version,
			Depends:   spec.Depends,
		})
		known[nv] = struct{}{}
	}
	for _, name := range sortedNames(installed) {
		nv := model.NV{Name: name, Version: installed[name]}
		if _, ok := known[nv]; ok {
			continue
		}
		pkg := solver.Package{NV: nv, Installed: true}
		if spec, err := c.root.Spec(ctx, nv); err == nil {
			pkg.Depends = spec.Depends
		}
		universe = append(universe, pkg)
	}
	return universe, installed, nil
}

// installWish parses the install argument. A dash makes it a pinned
// "name-version"; a bare name wishes for any version. Identities the
// universe does not know are rejected up front, before the solver
// runs.
func installWish(token string, universe []solver.Package) (solver.Constraint, error) {
	if strings.Contains(token, "-") {
		nv, err := model.ParseNV(token)
		if err != nil {
			return solver.Constraint{}, status.ErrInvalidNV.Wrap(err)
		}
		for _, p := range universe {
			if p.NV == nv {
				v := nv.Version
				return solver.Constraint{Name: nv.Name, Version: &v}, nil
			}
		}
		return solver.Constraint{}, status.ErrUnknownPackage.Wrap(fmt.Errorf("%s", token))
	}
	if !universeKnows(universe, token) {
		return solver.Constraint{}, status.ErrUnknownPackage.Wrap(fmt.Errorf("%s", token))
	}
	return solver.Constraint{Name: token}, nil
}

func universeKnows(universe []solver.Package, name string) bool {
	for _, p := range universe {
		if p.NV.Name == name {
			return true
		}
	}
	return false
}

func sortedNames(m map[string]model.Version) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolveAndApply runs the solver, walks the user through candidate
// solutions, and executes the accepted one. Rejecting every candidate
// is a clean no-op.
func (c *Client) resolveAndApply(ctx context.Context, universe []solver.Package, req solver.Request) error {
	solutions, err := c.settings.solver.Resolve(universe, []solver.Request{req})
	if err != nil {
		return err
	}
	if len(solutions) == 0 {
		return status.ErrNoSolution
	}
	sol, accepted := c.selectSolution(solutions)
	if !accepted {
		c.settings.l.Info("every solution rejected, nothing applied")
		return nil
	}
	if len(sol.Actions()) == 0 {
		c.printf("Nothing to do.\n")
		return nil
	}
	return c.execute(ctx, sol)
}

// selectSolution walks candidate solutions in the solver's order.
// Destructive candidates need the user's consent; the others apply
// without asking.
func (c *Client) selectSolution(solutions []solver.Solution) (solver.Solution, bool) {
	for i, sol := range solutions {
		c.printSolution(sol)
		if !sol.Destructive() {
			return sol, true
		}
		prompt := "Continue ?"
		if i > 0 {
			prompt = "Continue ? (press [n] to try another solution)"
		}
		if c.confirm(prompt) {
			return sol, true
		}
		c.settings.l.Debug("solution rejected", zap.Int("candidate", i+1))
	}
	return nil, false
}

func (c *Client) printSolution(sol solver.Solution) {
	actions := sol.Actions()
	if len(actions) == 0 {
		return
	}
	c.printf("The following actions will be performed:\n")
	for _, a := range actions {
		c.printf("  - %s\n", a)
	}
}
