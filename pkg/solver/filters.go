package solver

import "sort"

// BackwardDependencies filters the universe down to the targets plus
// everything they transitively depend on. The result is ordered
// dependencies first, ties broken by name.
func (e *engine) BackwardDependencies(universe []Package, targets []Package) []Package {
	idx := indexUniverse(universe)
	selected := map[string]Package{}
	var visit func(p Package)
	visit = func(p Package) {
		if _, done := selected[p.NV.Name]; done {
			return
		}
		selected[p.NV.Name] = p
		for _, d := range p.Depends {
			if dep, ok := idx.pickDep(d); ok {
				visit(dep)
			}
		}
	}
	for _, t := range targets {
		visit(t)
	}
	return orderByDepth(selected, false)
}

// ForwardDependencies filters the universe down to the targets plus
// everything that transitively depends on them. The result is ordered
// dependents first, ties broken by name.
func (e *engine) ForwardDependencies(universe []Package, targets []Package) []Package {
	dependents := map[string][]Package{}
	for _, p := range universe {
		for _, d := range p.Depends {
			dependents[d.Name] = append(dependents[d.Name], p)
		}
	}
	selected := map[string]Package{}
	var visit func(p Package)
	visit = func(p Package) {
		if _, done := selected[p.NV.Name]; done {
			return
		}
		selected[p.NV.Name] = p
		for _, dep := range dependents[p.NV.Name] {
			visit(dep)
		}
	}
	for _, t := range targets {
		visit(t)
	}
	return orderByDepth(selected, true)
}

// orderByDepth sorts the selected packages by their dependency depth
// within the selection: ascending depth puts dependencies first,
// descending puts dependents first.
func orderByDepth(selected map[string]Package, dependentsFirst bool) []Package {
	depth := map[string]int{}
	var depthOf func(name string, seen map[string]bool) int
	depthOf = func(name string, seen map[string]bool) int {
		if d, ok := depth[name]; ok {
			return d
		}
		if seen[name] {
			return 0
		}
		seen[name] = true
		d := 0
		for _, dep := range selected[name].Depends {
			if _, in := selected[dep.Name]; in {
				if dd := depthOf(dep.Name, seen) + 1; dd > d {
					d = dd
				}
			}
		}
		depth[name] = d
		return d
	}
	names := make([]string, 0, len(selected))
	for name := range selected {
		depthOf(name, map[string]bool{})
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		di, dj := depth[names[i]], depth[names[j]]
		if di != dj {
			if dependentsFirst {
				return di > dj
			}
			return di < dj
		}
		return names[i] < names[j]
	})
	out := make([]Package, 0, len(names))
	for _, name := range names {
		out = append(out, selected[name])
	}
	return out
}
