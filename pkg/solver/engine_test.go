package solver

import (
	"strings"
	"testing"

	"github.com/silene/opam/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pkg builds a universe entry out of "name-version" plus dependency
// tokens of the form "name" or "name >=1.0".
func pkg(t testing.TB, nv string, installed bool, deps ...string) Package {
	t.Helper()
	id, err := model.ParseNV(nv)
	require.NoError(t, err)
	p := Package{NV: id, Installed: installed}
	for _, d := range deps {
		parts := strings.SplitN(d, " ", 2)
		dep := model.Dependency{Name: parts[0]}
		if len(parts) == 2 {
			dep.Constraint = parts[1]
		}
		p.Depends = append(p.Depends, dep)
	}
	return p
}

func pin(v model.Version) *model.Version { return &v }

func resolveOne(t testing.TB, universe []Package, req Request) Solution {
	t.Helper()
	solutions, err := New().Resolve(universe, []Request{req})
	require.NoError(t, err)
	require.Len(t, solutions, 1)
	return solutions[0]
}

func TestInstallWithDependencyClosure(t *testing.T) {
	universe := []Package{
		pkg(t, "foo-1.0", false, "bar >=1.0"),
		pkg(t, "bar-0.9", false),
		pkg(t, "bar-1.0", false),
	}
	sol := resolveOne(t, universe, Request{WishInstall: []Constraint{{Name: "foo"}}})

	actions := sol.Actions()
	require.Len(t, actions, 2)
	assert.Equal(t, "install bar-1.0", actions[0].String())
	assert.Equal(t, "install foo-1.0", actions[1].String())
	assert.False(t, sol.Destructive(), "fresh installs lose nothing")
	// dependencies land in an earlier batch
	require.Len(t, sol, 2)
}

func TestInstallPinnedVersion(t *testing.T) {
	universe := []Package{
		pkg(t, "foo-1.0", false),
		pkg(t, "foo-2.0", false),
	}
	sol := resolveOne(t, universe, Request{
		WishInstall: []Constraint{{Name: "foo", Version: pin("1.0")}},
	})
	actions := sol.Actions()
	require.Len(t, actions, 1)
	require.Equal(t, model.NV{Name: "foo", Version: "1.0"}, actions[0].NV)
}

func TestInstallAlreadySatisfied(t *testing.T) {
	universe := []Package{pkg(t, "foo-1.0", true)}
	sol := resolveOne(t, universe, Request{WishInstall: []Constraint{{Name: "foo"}}})
	require.Empty(t, sol.Actions())
}

func TestInstallUnknownName(t *testing.T) {
	solutions, err := New().Resolve([]Package{pkg(t, "foo-1.0", false)},
		[]Request{{WishInstall: []Constraint{{Name: "nosuch"}}}})
	require.NoError(t, err)
	require.Empty(t, solutions)
}

func TestInstallUnsatisfiableConstraint(t *testing.T) {
	universe := []Package{
		pkg(t, "foo-1.0", false, "bar >=2.0"),
		pkg(t, "bar-1.0", false),
	}
	solutions, err := New().Resolve(universe,
		[]Request{{WishInstall: []Constraint{{Name: "foo"}}}})
	require.NoError(t, err)
	require.Empty(t, solutions)
}

func TestInstallUpgradesDependency(t *testing.T) {
	universe := []Package{
		pkg(t, "foo-2.0", false, "bar >=1.0"),
		pkg(t, "bar-0.9", true),
		pkg(t, "bar-1.0", false),
	}
	sol := resolveOne(t, universe, Request{WishInstall: []Constraint{{Name: "foo"}}})
	actions := sol.Actions()
	require.Len(t, actions, 2)
	require.Equal(t, "bar", actions[0].NV.Name)
	require.NotNil(t, actions[0].Was, "superseded install must be recorded")
	require.Equal(t, model.Version("0.9"), actions[0].Was.Version)
	assert.True(t, sol.Destructive())
}

func TestRemoveCascade(t *testing.T) {
	universe := []Package{
		pkg(t, "bar-1.0", true),
		pkg(t, "foo-1.0", true, "bar"),
		pkg(t, "baz-1.0", true, "foo"),
	}
	sol := resolveOne(t, universe, Request{WishRemove: []Constraint{{Name: "bar"}}})
	actions := sol.Actions()
	require.Len(t, actions, 3)
	// dependents go first
	assert.Equal(t, "remove baz-1.0", actions[0].String())
	assert.Equal(t, "remove foo-1.0", actions[1].String())
	assert.Equal(t, "remove bar-1.0", actions[2].String())
	assert.True(t, sol.Destructive())
}

func TestRemoveNotInstalled(t *testing.T) {
	universe := []Package{pkg(t, "foo-1.0", false)}
	sol := resolveOne(t, universe, Request{WishRemove: []Constraint{{Name: "foo"}}})
	require.Empty(t, sol.Actions())
}

func TestUpgradeEmitsChangeAndRecompile(t *testing.T) {
	universe := []Package{
		pkg(t, "foo-1.0", true),
		pkg(t, "foo-1.1", false),
		pkg(t, "baz-1.0", true, "foo"),
	}
	sol := resolveOne(t, universe, Request{
		WishUpgrade: []Constraint{{Name: "foo"}, {Name: "baz"}},
	})
	actions := sol.Actions()
	require.Len(t, actions, 2)
	require.Equal(t, KindChange, actions[0].Kind)
	require.Equal(t, model.NV{Name: "foo", Version: "1.1"}, actions[0].NV)
	require.NotNil(t, actions[0].Was)
	require.Equal(t, KindRecompile, actions[1].Kind)
	require.Equal(t, "baz", actions[1].NV.Name)
	assert.False(t, actions[1].Destructive())
}

func TestUpgradeHeadBehind(t *testing.T) {
	universe := []Package{
		pkg(t, "dose-head", false),
		{NV: model.NV{Name: "dose", Version: model.Head(model.HeadBehind)}, Installed: true},
	}
	sol := resolveOne(t, universe, Request{WishUpgrade: []Constraint{{Name: "dose"}}})
	actions := sol.Actions()
	require.Len(t, actions, 1)
	require.Equal(t, model.Version("head"), actions[0].NV.Version)
	require.NotNil(t, actions[0].Was)
	require.Equal(t, model.Head(model.HeadBehind), actions[0].Was.Version)
}

func TestUpgradeUpToDateDoesNothing(t *testing.T) {
	universe := []Package{
		pkg(t, "foo-1.0", true),
	}
	sol := resolveOne(t, universe, Request{WishUpgrade: []Constraint{{Name: "foo"}}})
	require.Empty(t, sol.Actions())
}

func TestBackwardDependencies(t *testing.T) {
	universe := []Package{
		pkg(t, "c-1.0", true),
		pkg(t, "b-1.0", true, "c"),
		pkg(t, "a-1.0", true, "b"),
		pkg(t, "x-1.0", true),
	}
	got := New().BackwardDependencies(universe, []Package{universe[2]})
	names := make([]string, 0, len(got))
	for _, p := range got {
		names = append(names, p.NV.Name)
	}
	require.Equal(t, []string{"c", "b", "a"}, names)
}

func TestForwardDependencies(t *testing.T) {
	universe := []Package{
		pkg(t, "c-1.0", true),
		pkg(t, "b-1.0", true, "c"),
		pkg(t, "a-1.0", true, "b"),
		pkg(t, "x-1.0", true),
	}
	got := New().ForwardDependencies(universe, []Package{universe[0]})
	names := make([]string, 0, len(got))
	for _, p := range got {
		names = append(names, p.NV.Name)
	}
	require.Equal(t, []string{"a", "b", "c"}, names)
}
