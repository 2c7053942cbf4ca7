package core

import (
	"bytes"
	"context"
	"testing"

	"github.com/silene/opam/pkg/model"
	"github.com/silene/opam/pkg/remote"
	remotestatus "github.com/silene/opam/pkg/remote/status"
	"github.com/silene/opam/pkg/solver"
	"github.com/silene/opam/pkg/state"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// fakeServer is an in-memory package server remote.
type fakeServer struct {
	name     string
	specs    map[model.NV][]byte
	archives map[model.NV][]byte
	key      string // issued on first publication, may be empty

	listErr error
	news    model.NVs // NewArchive calls, in order
	updates model.NVs // UpdateArchive calls, in order
	gotKeys []string  // keys presented to UpdateArchive
}

func newFakeServer(name string) *fakeServer {
	return &fakeServer{
		name:     name,
		specs:    map[model.NV][]byte{},
		archives: map[model.NV][]byte{},
	}
}

// serve registers a package on the fake remote.
func (f *fakeServer) serve(t testing.TB, spec *model.Spec, archive []byte) {
	t.Helper()
	b, err := model.MarshalSpec(spec)
	require.NoError(t, err)
	f.specs[spec.NV()] = b
	if archive != nil {
		f.archives[spec.NV()] = archive
	}
}

func (f *fakeServer) String() string { return f.name }

func (f *fakeServer) List(ctx context.Context) (model.NVs, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var nvs model.NVs
	for nv := range f.specs {
		nvs = append(nvs, nv)
	}
	nvs.Sort()
	return nvs, nil
}

func (f *fakeServer) GetSpec(ctx context.Context, nv model.NV) ([]byte, error) {
	b, ok := f.specs[nv]
	if !ok {
		return nil, remotestatus.ErrNotFound
	}
	return b, nil
}

func (f *fakeServer) GetArchive(ctx context.Context, nv model.NV) ([]byte, error) {
	b, ok := f.archives[nv]
	if !ok {
		return nil, remotestatus.ErrNoArchive
	}
	return b, nil
}

func (f *fakeServer) NewArchive(ctx context.Context, nv model.NV, spec, archive []byte) (string, error) {
	f.news = append(f.news, nv)
	f.specs[nv] = spec
	if len(archive) > 0 {
		f.archives[nv] = archive
	}
	return f.key, nil
}

func (f *fakeServer) UpdateArchive(ctx context.Context, nv model.NV, spec, archive []byte, key string) error {
	f.updates = append(f.updates, nv)
	f.gotKeys = append(f.gotKeys, key)
	f.specs[nv] = spec
	if len(archive) > 0 {
		f.archives[nv] = archive
	}
	return nil
}

// fakeGit is an in-memory git remote. Cloning and pulling land content
// in the root's index through the onSync hook, like the real checkout
// does.
type fakeGit struct {
	fakeServer
	cloned   bool
	cloneErr error
	changed  []string // next Updates answer
	pulls    int
	onSync   func()
}

func newFakeGit(name string) *fakeGit {
	return &fakeGit{fakeServer: *newFakeServer(name)}
}

func (f *fakeGit) Cloned(ctx context.Context) (bool, error) { return f.cloned, nil }

func (f *fakeGit) Clone(ctx context.Context) error {
	if f.cloneErr != nil {
		return f.cloneErr
	}
	f.cloned = true
	if f.onSync != nil {
		f.onSync()
	}
	return nil
}

func (f *fakeGit) Updates(ctx context.Context) ([]string, error) { return f.changed, nil }

func (f *fakeGit) Pull(ctx context.Context) error {
	f.pulls++
	f.changed = nil
	if f.onSync != nil {
		f.onSync()
	}
	return nil
}

// fakeSolver returns a scripted list of solutions and records what it
// was asked.
type fakeSolver struct {
	solutions []solver.Solution
	err       error

	gotUniverse []solver.Package
	gotRequests []solver.Request
}

func (f *fakeSolver) Resolve(universe []solver.Package, reqs []solver.Request) ([]solver.Solution, error) {
	f.gotUniverse = universe
	f.gotRequests = reqs
	return f.solutions, f.err
}

func (f *fakeSolver) BackwardDependencies(universe []solver.Package, targets []solver.Package) []solver.Package {
	return targets
}

func (f *fakeSolver) ForwardDependencies(universe []solver.Package, targets []solver.Package) []solver.Package {
	return targets
}

func memRoot(t testing.TB) *state.Root {
	t.Helper()
	return state.New(state.Environment{BasePath: "/opamroot", Fs: afero.NewMemMapFs()})
}

func serverURL(t testing.TB, raw string) model.URL {
	t.Helper()
	u, err := model.ParseURL(raw)
	require.NoError(t, err)
	return u
}

func gitURL(t testing.TB, raw string) model.URL {
	t.Helper()
	u, err := model.ParseGitURL(raw)
	require.NoError(t, err)
	return u
}

func initRoot(t testing.TB, root *state.Root, remotes ...model.URL) {
	t.Helper()
	require.NoError(t, root.Init(context.Background(), &model.Config{
		APIVersion:      model.CurrentAPIVersion,
		CompilerVersion: "system",
		Remotes:         remotes,
	}))
}

// testClient builds a client over an initialized root, dialing the
// given fakes by raw address, with user output captured in the
// returned buffer.
func testClient(t testing.TB, root *state.Root, servers map[string]remote.Server, opts ...Option) (*Client, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	opts = append([]Option{
		Output(out),
		WithDialer(func(u model.URL) remote.Server {
			srv, ok := servers[u.Raw]
			if !ok {
				t.Fatalf("no fake server for remote %s", u.Raw)
			}
			return srv
		}),
	}, opts...)
	c, err := New(context.Background(), root, opts...)
	require.NoError(t, err)
	return c, out
}

func testSpec(name string, version model.Version, mutate ...func(*model.Spec)) *model.Spec {
	s := &model.Spec{Package: name, Version: version, Description: name + " package"}
	for _, m := range mutate {
		m(s)
	}
	return s
}

func putSpec(t testing.TB, root *state.Root, spec *model.Spec) {
	t.Helper()
	b, err := model.MarshalSpec(spec)
	require.NoError(t, err)
	require.NoError(t, root.PutSpec(context.Background(), spec.NV(), b))
}

func setInstalled(t testing.TB, root *state.Root, installed map[string]model.Version) {
	t.Helper()
	require.NoError(t, root.SaveInstalled(context.Background(), installed))
}
