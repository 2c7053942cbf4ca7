package solver

import (
	"fmt"

	"github.com/silene/opam/pkg/model"
)

// Package is one universe entry: a known (name, version) with its
// install flag and declared dependencies.
type Package struct {
	NV        model.NV
	Installed bool
	Depends   []model.Dependency
}

// Constraint names a package in a wish, optionally pinned to an exact
// version. A nil Version accepts any.
type Constraint struct {
	Name    string
	Version *model.Version
}

func (c Constraint) String() string {
	if c.Version == nil {
		return c.Name
	}
	return fmt.Sprintf("%s = %s", c.Name, *c.Version)
}

// Request carries one user intent for the resolver.
type Request struct {
	WishInstall []Constraint
	WishRemove  []Constraint
	WishUpgrade []Constraint
}

// ActionKind discriminates solution actions.
type ActionKind int

const (
	// KindChange installs NV, superseding Was when set
	KindChange ActionKind = iota
	// KindDelete removes NV
	KindDelete
	// KindRecompile rebuilds an installed NV in place
	KindRecompile
)

// Action is one step of a solution.
type Action struct {
	Kind ActionKind
	NV   model.NV
	// Was is the previously installed version superseded by a
	// change, nil when the package was not installed before
	Was *model.NV
}

// Destructive tells whether applying this action loses an installed
// version: any delete, and any change over an existing install.
func (a Action) Destructive() bool {
	return a.Kind == KindDelete || a.Kind == KindChange && a.Was != nil
}

func (a Action) String() string {
	switch a.Kind {
	case KindDelete:
		return fmt.Sprintf("remove %s", a.NV)
	case KindRecompile:
		return fmt.Sprintf("recompile %s", a.NV)
	default:
		if a.Was != nil {
			return fmt.Sprintf("install %s (replacing %s)", a.NV, a.Was.Version)
		}
		return fmt.Sprintf("install %s", a.NV)
	}
}

// Batch groups actions the resolver considers independent.
type Batch []Action

// Solution is an ordered sequence of batches. Executors process
// batches in order, and actions within a batch in order.
type Solution []Batch

// Destructive tells whether any action of the solution is.
func (s Solution) Destructive() bool {
	for _, batch := range s {
		for _, a := range batch {
			if a.Destructive() {
				return true
			}
		}
	}
	return false
}

// Actions flattens the batches in execution order.
func (s Solution) Actions() []Action {
	var out []Action
	for _, batch := range s {
		out = append(out, batch...)
	}
	return out
}

// Solver is the resolution contract.
//
// Resolve maps a universe and a set of wishes to candidate solutions;
// an empty result means no solution satisfies the request.
// BackwardDependencies filters the universe down to the targets plus
// everything they transitively depend on, dependencies first.
// ForwardDependencies filters down to the targets plus everything
// that transitively depends on them, dependents first.
type Solver interface {
	Resolve(universe []Package, reqs []Request) ([]Solution, error)
	BackwardDependencies(universe []Package, targets []Package) []Package
	ForwardDependencies(universe []Package, targets []Package) []Package
}
