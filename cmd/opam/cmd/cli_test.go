package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/silene/opam/internal/rand"
	"github.com/silene/opam/pkg/httpd"
	"github.com/silene/opam/pkg/model"
	"github.com/silene/opam/pkg/remote/localindex"
	"github.com/silene/opam/pkg/storage"
	"github.com/silene/opam/pkg/storage/localfs"
	"github.com/silene/opam/pkg/tarball"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type ExitMocks struct {
	mock.Mock
	fatalCalls int
}

func (m *ExitMocks) Fatalf(format string, v ...interface{}) {
	m.fatalCalls++
}

func (m *ExitMocks) Fatalln(v ...interface{}) {
	m.fatalCalls++
}

// https://github.com/stretchr/testify/issues/610
func MakeFatalfMock(m *ExitMocks) func(string, ...interface{}) {
	return func(format string, v ...interface{}) {
		m.Fatalf(format, v...)
	}
}

func MakeFatallnMock(m *ExitMocks) func(...interface{}) {
	return func(v ...interface{}) {
		m.Fatalln(v...)
	}
}

var exitMocks *ExitMocks

// testIndex is one running package daemon plus the store behind it,
// so tests can seed fixtures without crossing the wire.
type testIndex struct {
	addr  string
	store storage.Store
}

func (ti testIndex) putSpec(t *testing.T, spec *model.Spec) {
	t.Helper()
	b, err := model.MarshalSpec(spec)
	require.NoError(t, err)
	require.NoError(t, storage.WriteAll(context.Background(), ti.store, model.GetSpecPath(spec.NV()), b))
}

func (ti testIndex) putArchive(t *testing.T, nv model.NV, files map[string]string) {
	t.Helper()
	require.NoError(t, storage.WriteAll(context.Background(), ti.store, model.GetArchivePath(nv), tarBytes(t, nv, files)))
}

func testSpec(name string, version model.Version, mutate ...func(*model.Spec)) *model.Spec {
	s := &model.Spec{Package: name, Version: version, Description: name + " package"}
	for _, m := range mutate {
		m(s)
	}
	return s
}

func tarBytes(t *testing.T, nv model.NV, files map[string]string) []byte {
	t.Helper()
	dir := filepath.Join(t.TempDir(), nv.String())
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, ioutil.WriteFile(p, []byte(content), 0644))
	}
	var buf bytes.Buffer
	require.NoError(t, tarball.Create(&buf, dir, nv.String()))
	return buf.Bytes()
}

// setupTests patches the fatal exits, spins up a keyed package daemon
// over an in-memory store, and hands back a fresh root directory.
func setupTests(t *testing.T) (string, testIndex) {
	color.NoColor = true
	exitMocks = new(ExitMocks)
	logFatalf = MakeFatalfMock(exitMocks)
	logFatalln = MakeFatallnMock(exitMocks)

	store := localfs.New(afero.NewMemMapFs())
	backend := localindex.New(store, localindex.Keyed())
	srv := httptest.NewServer(httpd.InitRouter(httpd.NewAPI(backend, httpd.APIParams{})))
	t.Cleanup(srv.Close)

	rootDir := filepath.Join(t.TempDir(), "root-"+rand.LetterString(6))
	return rootDir, testIndex{addr: srv.Listener.Addr().String(), store: store}
}

// runCmd executes one command line against the package rootCmd and
// returns everything it printed to stdout.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	opamFlags = flagsT{}
	r, w, err := os.Pipe()
	require.NoError(t, err)
	saved := os.Stdout
	os.Stdout = w
	infoLogger.SetOutput(w)
	defer func() {
		os.Stdout = saved
		infoLogger.SetOutput(saved)
	}()
	rootCmd.SetArgs(args)
	execErr := rootCmd.Execute()
	require.NoError(t, w.Close())
	out, err := ioutil.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, execErr)
	return string(out)
}

func TestCliInitAndList(t *testing.T) {
	rootDir, index := setupTests(t)
	index.putSpec(t, testSpec("foo", "1.0"))
	index.putSpec(t, testSpec("bar", "0.1"))

	out := runCmd(t, "init", "--root", rootDir, index.addr)
	require.Contains(t, out, "New package: bar-0.1")
	require.Contains(t, out, "New package: foo-1.0")
	require.Equal(t, 0, exitMocks.fatalCalls)

	// a root cannot be initialized twice
	_ = runCmd(t, "init", "--root", rootDir, index.addr)
	require.Equal(t, 1, exitMocks.fatalCalls)

	out = runCmd(t, "list", "--root", rootDir)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Equal(t, []string{
		"bar  --  bar package",
		"foo  --  foo package",
	}, lines)

	out = runCmd(t, "info", "--root", rootDir, "foo")
	require.Contains(t, out, "package: foo")
	require.Contains(t, out, "installed-version: --")
	require.Equal(t, 1, exitMocks.fatalCalls)
}

func TestCliInstallRemoveRoundTrip(t *testing.T) {
	rootDir, index := setupTests(t)
	nv := model.NV{Name: "foo", Version: "1.0"}
	index.putSpec(t, testSpec("foo", "1.0", func(s *model.Spec) {
		s.Install = &model.Install{Lib: []string{"lib/*"}}
	}))
	index.putArchive(t, nv, map[string]string{"lib/foo.cma": "bytecode\n"})

	_ = runCmd(t, "init", "--root", rootDir, index.addr)

	out := runCmd(t, "install", "--root", rootDir, "--yes", "foo")
	require.Contains(t, out, "install foo-1.0")
	require.Equal(t, 0, exitMocks.fatalCalls)

	libFile := filepath.Join(rootDir, filepath.FromSlash(model.GetLibPath("foo")), "foo.cma")
	b, err := ioutil.ReadFile(libFile)
	require.NoError(t, err)
	require.Equal(t, "bytecode\n", string(b))

	out = runCmd(t, "list", "--root", rootDir)
	require.Equal(t, "foo  1.0  foo package\n", out)

	out = runCmd(t, "remove", "--root", rootDir, "--yes", "foo")
	require.Contains(t, out, "remove foo-1.0")
	_, err = os.Stat(libFile)
	require.True(t, os.IsNotExist(err))
	require.Equal(t, 0, exitMocks.fatalCalls)
}

func TestCliResolutionFailures(t *testing.T) {
	rootDir, index := setupTests(t)
	index.putSpec(t, testSpec("bar", "1.0", func(s *model.Spec) {
		s.Depends = []model.Dependency{{Name: "ghost"}}
	}))

	_ = runCmd(t, "init", "--root", rootDir, index.addr)

	// a dependency the index cannot satisfy is not a fatal error
	out := runCmd(t, "install", "--root", rootDir, "--yes", "bar")
	require.Contains(t, out, "no solution found")
	require.Equal(t, 0, exitMocks.fatalCalls)

	// negative test: a name the index never heard of is fatal
	_ = runCmd(t, "install", "--root", rootDir, "--yes", "ghost")
	require.Equal(t, 1, exitMocks.fatalCalls)
}

func TestCliUpgradeNothingToDo(t *testing.T) {
	rootDir, index := setupTests(t)
	index.putSpec(t, testSpec("foo", "1.0"))

	_ = runCmd(t, "init", "--root", rootDir, index.addr)

	out := runCmd(t, "upgrade", "--root", rootDir, "--yes")
	require.Equal(t, "Nothing to do.\n", out)
	require.Equal(t, 0, exitMocks.fatalCalls)
}

func TestCliUploadRoundTrip(t *testing.T) {
	rootDir, index := setupTests(t)
	index.putSpec(t, testSpec("foo", "1.0"))
	_ = runCmd(t, "init", "--root", rootDir, index.addr)

	// sources for the package under publication, repacked by upload
	work := t.TempDir()
	nv := model.NV{Name: "baz", Version: "2.0"}
	tarPath := filepath.Join(work, model.ArchiveFileName(nv))
	require.NoError(t, ioutil.WriteFile(tarPath, tarBytes(t, nv, map[string]string{
		"src/main.ml": "let version = 2\n",
	}), 0644))
	specPath := filepath.Join(work, model.SpecFileName(nv))
	specBytes, err := model.MarshalSpec(testSpec("baz", "2.0", func(s *model.Spec) {
		s.URLs = []string{tarPath}
	}))
	require.NoError(t, err)
	require.NoError(t, ioutil.WriteFile(specPath, specBytes, 0644))

	_ = runCmd(t, "upload", "--root", rootDir, specPath)
	require.Equal(t, 0, exitMocks.fatalCalls)

	// the daemon minted a republication key and the client kept it
	key, err := ioutil.ReadFile(filepath.Join(rootDir, filepath.FromSlash(model.GetKeyPath("baz"))))
	require.NoError(t, err)
	require.NotEmpty(t, bytes.TrimSpace(key))

	// the local mirror registered the package right away
	out := runCmd(t, "list", "--root", rootDir)
	require.Contains(t, out, "baz  --")

	// a fresh root learns it from the daemon, proving the upload landed
	otherRoot := filepath.Join(t.TempDir(), "root-"+rand.LetterString(6))
	out = runCmd(t, "init", "--root", otherRoot, index.addr)
	require.Contains(t, out, "New package: baz-2.0")
	require.Contains(t, out, "New package: foo-1.0")
	require.Equal(t, 0, exitMocks.fatalCalls)
}

func TestCliConfigFlags(t *testing.T) {
	rootDir, index := setupTests(t)
	nv := model.NV{Name: "foo", Version: "1.0"}
	index.putSpec(t, testSpec("foo", "1.0", func(s *model.Spec) {
		s.Install = &model.Install{Lib: []string{"lib/*"}}
	}))
	index.putArchive(t, nv, map[string]string{"lib/foo.cma": "bytecode\n"})

	_ = runCmd(t, "init", "--root", rootDir, index.addr)
	_ = runCmd(t, "install", "--root", rootDir, "--yes", "foo")

	// exactly one mode flag must be picked
	_ = runCmd(t, "config", "--root", rootDir, "foo")
	require.Equal(t, 1, exitMocks.fatalCalls)

	out := runCmd(t, "config", "--root", rootDir, "--include", "foo")
	require.Equal(t, fmt.Sprintf("-I %s\n", filepath.Join(rootDir, "lib", "foo")), out)
	require.Equal(t, 1, exitMocks.fatalCalls)
}

func TestCliRemoteCommands(t *testing.T) {
	rootDir, index := setupTests(t)
	index.putSpec(t, testSpec("foo", "1.0"))

	_ = runCmd(t, "init", "--root", rootDir, index.addr)

	out := runCmd(t, "remote", "list", "--root", rootDir)
	require.Equal(t, fmt.Sprintf("OPAM %s\n", index.addr), out)

	_ = runCmd(t, "remote", "add-git", "--root", rootDir, "git@example.org:pkgs.git")
	out = runCmd(t, "remote", "list", "--root", rootDir)
	require.Equal(t, fmt.Sprintf("git git@example.org:pkgs.git\nOPAM %s\n", index.addr), out)

	// negative test: the same address cannot be registered twice
	_ = runCmd(t, "remote", "add-git", "--root", rootDir, "git@example.org:pkgs.git")
	require.Equal(t, 1, exitMocks.fatalCalls)

	_ = runCmd(t, "remote", "rm", "--root", rootDir, "example.org")
	out = runCmd(t, "remote", "list", "--root", rootDir)
	require.Equal(t, fmt.Sprintf("OPAM %s\n", index.addr), out)
	require.Equal(t, 1, exitMocks.fatalCalls)
}
