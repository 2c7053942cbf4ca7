package solver

import (
	"sort"

	"github.com/silene/opam/pkg/model"
)

// New returns the default resolution engine.
//
// The engine picks the maximal version satisfying each wish, pulls in
// the dependency closure, cascades removals to installed dependents,
// and recompiles installed packages whose dependencies change. It is
// deterministic and returns at most one solution.
func New() Solver {
	return &engine{}
}

type engine struct{}

type universeIndex struct {
	byName    map[string][]Package // ascending version order
	installed map[string]Package
}

func indexUniverse(universe []Package) universeIndex {
	idx := universeIndex{
		byName:    make(map[string][]Package, len(universe)),
		installed: make(map[string]Package),
	}
	for _, p := range universe {
		idx.byName[p.NV.Name] = append(idx.byName[p.NV.Name], p)
		if p.Installed {
			idx.installed[p.NV.Name] = p
		}
	}
	for name := range idx.byName {
		versions := idx.byName[name]
		sort.Slice(versions, func(i, j int) bool {
			return versions[i].NV.Version.Compare(versions[j].NV.Version) < 0
		})
	}
	return idx
}

// pick resolves a wish constraint: the exact pinned version, or the
// maximal known one.
func (idx universeIndex) pick(c Constraint) (Package, bool) {
	versions := idx.byName[c.Name]
	if len(versions) == 0 {
		return Package{}, false
	}
	if c.Version == nil {
		return versions[len(versions)-1], true
	}
	for _, p := range versions {
		if p.NV.Version.Compare(*c.Version) == 0 {
			return p, true
		}
	}
	return Package{}, false
}

// pickDep resolves a dependency: the installed version when it
// satisfies the constraint, else the maximal satisfying one.
func (idx universeIndex) pickDep(d model.Dependency) (Package, bool) {
	if p, ok := idx.installed[d.Name]; ok && model.SatisfiesConstraint(p.NV.Version, d.Constraint) {
		return p, true
	}
	versions := idx.byName[d.Name]
	for i := len(versions) - 1; i >= 0; i-- {
		if model.SatisfiesConstraint(versions[i].NV.Version, d.Constraint) {
			return versions[i], true
		}
	}
	return Package{}, false
}

func (e *engine) Resolve(universe []Package, reqs []Request) ([]Solution, error) {
	idx := indexUniverse(universe)
	var solutions []Solution
	for _, req := range reqs {
		sol, ok := e.solve(idx, req)
		if !ok {
			return nil, nil
		}
		solutions = append(solutions, sol)
	}
	return solutions, nil
}

func (e *engine) solve(idx universeIndex, req Request) (Solution, bool) {
	p := &plan{
		idx:     idx,
		removes: map[string]model.NV{},
		changes: map[string]Package{},
	}
	for _, c := range req.WishRemove {
		p.remove(c.Name)
	}
	for _, c := range req.WishInstall {
		target, ok := idx.pick(c)
		if !ok {
			return nil, false
		}
		if !p.change(target) {
			return nil, false
		}
	}
	for _, c := range req.WishUpgrade {
		if !p.upgrade(c.Name) {
			return nil, false
		}
	}
	return p.solution(), true
}

type plan struct {
	idx     universeIndex
	removes map[string]model.NV
	changes map[string]Package
}

// remove schedules the installed version of name for deletion, along
// with every installed package that transitively depends on it.
func (p *plan) remove(name string) {
	installed, ok := p.idx.installed[name]
	if !ok {
		return
	}
	if _, scheduled := p.removes[name]; scheduled {
		return
	}
	p.removes[name] = installed.NV
	for depName, dep := range p.idx.installed {
		if depName == name {
			continue
		}
		for _, d := range dep.Depends {
			if d.Name == name {
				p.remove(depName)
				break
			}
		}
	}
}

// change schedules target for (re)installation together with its
// dependency closure. Already satisfied dependencies contribute no
// action.
func (p *plan) change(target Package) bool {
	name := target.NV.Name
	if chosen, ok := p.changes[name]; ok {
		return chosen.NV == target.NV
	}
	if installed, ok := p.idx.installed[name]; ok && installed.NV == target.NV {
		if _, removed := p.removes[name]; !removed {
			return true
		}
	}
	delete(p.removes, name)
	p.changes[name] = target
	for _, d := range target.Depends {
		dep, ok := p.idx.pickDep(d)
		if !ok {
			return false
		}
		if !p.change(dep) {
			return false
		}
	}
	return true
}

// upgrade schedules a change when some known version exceeds the
// installed one.
func (p *plan) upgrade(name string) bool {
	installed, ok := p.idx.installed[name]
	if !ok {
		return true
	}
	candidate, ok := p.idx.pick(Constraint{Name: name})
	if !ok {
		return true
	}
	if candidate.NV.Version.Compare(installed.NV.Version) <= 0 {
		return true
	}
	return p.change(candidate)
}

// solution orders the plan: deletes dependents-first, then changes
// dependencies-first, then recompiles of installed packages whose
// dependencies changed.
func (p *plan) solution() Solution {
	var sol Solution
	sol = append(sol, p.deleteBatches()...)

	recompiles := p.recompiles()
	rank := p.changeRanks(recompiles)

	maxRank := -1
	for _, r := range rank {
		if r > maxRank {
			maxRank = r
		}
	}
	for r := 0; r <= maxRank; r++ {
		var batch Batch
		for _, name := range sortedNames(p.changes) {
			if rank[name] != r {
				continue
			}
			target := p.changes[name]
			a := Action{Kind: KindChange, NV: target.NV}
			if was, ok := p.wasInstalled(name); ok {
				a.Was = &was
			}
			batch = append(batch, a)
		}
		for _, name := range sortedNames(recompiles) {
			if rank[name] != r {
				continue
			}
			batch = append(batch, Action{Kind: KindRecompile, NV: recompiles[name].NV})
		}
		if len(batch) > 0 {
			sol = append(sol, batch)
		}
	}
	return sol
}

func (p *plan) wasInstalled(name string) (model.NV, bool) {
	installed, ok := p.idx.installed[name]
	if !ok {
		return model.NV{}, false
	}
	return installed.NV, true
}

// deleteBatches orders scheduled deletions so that dependents go
// before the packages they depend on.
func (p *plan) deleteBatches() []Batch {
	if len(p.removes) == 0 {
		return nil
	}
	rank := map[string]int{}
	var rankOf func(name string, seen map[string]bool) int
	rankOf = func(name string, seen map[string]bool) int {
		if r, ok := rank[name]; ok {
			return r
		}
		if seen[name] {
			return 0
		}
		seen[name] = true
		r := 0
		pkg := p.idx.installed[name]
		for _, d := range pkg.Depends {
			if _, removed := p.removes[d.Name]; removed {
				if rr := rankOf(d.Name, seen) + 1; rr > r {
					r = rr
				}
			}
		}
		rank[name] = r
		return r
	}
	maxRank := 0
	for name := range p.removes {
		if r := rankOf(name, map[string]bool{}); r > maxRank {
			maxRank = r
		}
	}
	var batches []Batch
	for r := maxRank; r >= 0; r-- {
		var batch Batch
		for _, name := range sortedNVNames(p.removes) {
			if rank[name] != r {
				continue
			}
			nv := p.removes[name]
			batch = append(batch, Action{Kind: KindDelete, NV: nv})
		}
		if len(batch) > 0 {
			batches = append(batches, batch)
		}
	}
	return batches
}

// recompiles collects installed packages, untouched by the plan, that
// transitively depend on a changed package.
func (p *plan) recompiles() map[string]Package {
	out := map[string]Package{}
	var mark func(changedName string)
	mark = func(changedName string) {
		for name, pkg := range p.idx.installed {
			if _, isChange := p.changes[name]; isChange {
				continue
			}
			if _, isRemove := p.removes[name]; isRemove {
				continue
			}
			if _, done := out[name]; done {
				continue
			}
			for _, d := range pkg.Depends {
				if d.Name == changedName {
					out[name] = pkg
					mark(name)
					break
				}
			}
		}
	}
	for name := range p.changes {
		mark(name)
	}
	return out
}

// changeRanks assigns each change or recompile its dependency depth
// within the action set, so batches come out dependencies-first.
func (p *plan) changeRanks(recompiles map[string]Package) map[string]int {
	members := map[string]Package{}
	for name, pkg := range p.changes {
		members[name] = pkg
	}
	for name, pkg := range recompiles {
		members[name] = pkg
	}
	rank := map[string]int{}
	var rankOf func(name string, seen map[string]bool) int
	rankOf = func(name string, seen map[string]bool) int {
		if r, ok := rank[name]; ok {
			return r
		}
		if seen[name] {
			return 0
		}
		seen[name] = true
		r := 0
		for _, d := range members[name].Depends {
			if _, in := members[d.Name]; in {
				if rr := rankOf(d.Name, seen) + 1; rr > r {
					r = rr
				}
			}
		}
		rank[name] = r
		return r
	}
	for name := range members {
		rankOf(name, map[string]bool{})
	}
	return rank
}

func sortedNames(m map[string]Package) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedNVNames(m map[string]model.NV) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
