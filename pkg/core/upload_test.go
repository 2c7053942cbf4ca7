package core

import (
	"bytes"
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/silene/opam/pkg/core/status"
	"github.com/silene/opam/pkg/errors"
	"github.com/silene/opam/pkg/model"
	"github.com/silene/opam/pkg/remote"
	remotestatus "github.com/silene/opam/pkg/remote/status"
	"github.com/silene/opam/pkg/tarball"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// writeWorkFile lands a file in the upload working directory.
func writeWorkFile(t testing.TB, dir, name string, b []byte) {
	t.Helper()
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, name), b, 0644))
}

func specFileBytes(t testing.TB, spec *model.Spec) []byte {
	t.Helper()
	b, err := model.MarshalSpec(spec)
	require.NoError(t, err)
	return b
}

func TestUploadFreshPublishesEverywhere(t *testing.T) {
	defer goleak.VerifyNone(t)
	noColor(t)
	ctx := context.Background()

	nv := model.NV{Name: "foo", Version: "1.0"}
	spec := testSpec("foo", "1.0")
	work := t.TempDir()
	writeWorkFile(t, work, model.SpecFileName(nv), specFileBytes(t, spec))
	writeWorkFile(t, work, model.ArchiveFileName(nv), archiveBytes(t, nv, map[string]string{
		"src.ml": "let x = 1\n",
	}))

	first := newFakeServer("a.example.org")
	first.key = "K1"
	second := newFakeServer("b.example.org")
	second.key = "K1"

	root := memRoot(t)
	// the git remote is not a publication target: the dialer would fail
	// the test if upload ever contacted it
	initRoot(t, root,
		serverURL(t, "a.example.org"),
		serverURL(t, "b.example.org"),
		gitURL(t, "git@example.org:pkgs.git"))
	c, out := testClient(t, root, map[string]remote.Server{
		"a.example.org": first,
		"b.example.org": second,
	}, WorkDir(work), AssumeYes(true))

	require.NoError(t, c.Upload(ctx, "foo-1.0"))

	// with several candidate remotes, each one is asked
	assert.Contains(t, out.String(), "Upload to a.example.org ?")
	assert.Contains(t, out.String(), "Upload to b.example.org ?")

	assert.Equal(t, model.NVs{nv}, first.news)
	assert.Equal(t, model.NVs{nv}, second.news)

	// the issued key is kept for republication
	key, err := root.Key(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, "K1", key)

	// the local mirror serves the package too
	b, err := c.Mirror().GetSpec(ctx, nv)
	require.NoError(t, err)
	assert.Equal(t, specFileBytes(t, spec), b)
	archive, err := c.Mirror().GetArchive(ctx, nv)
	require.NoError(t, err)
	assert.NotEmpty(t, archive)
}

func TestUploadKeyDisagreement(t *testing.T) {
	noColor(t)
	ctx := context.Background()

	nv := model.NV{Name: "foo", Version: "1.0"}
	work := t.TempDir()
	writeWorkFile(t, work, model.SpecFileName(nv), specFileBytes(t, testSpec("foo", "1.0")))
	writeWorkFile(t, work, model.ArchiveFileName(nv), archiveBytes(t, nv, map[string]string{
		"src.ml": "let x = 1\n",
	}))

	first := newFakeServer("a.example.org")
	first.key = "K1"
	second := newFakeServer("b.example.org")
	second.key = "K2"

	root := memRoot(t)
	initRoot(t, root, serverURL(t, "a.example.org"), serverURL(t, "b.example.org"))
	c, _ := testClient(t, root, map[string]remote.Server{
		"a.example.org": first,
		"b.example.org": second,
	}, WorkDir(work), AssumeYes(true))

	err := c.Upload(ctx, "foo-1.0")
	require.Error(t, err)
	require.True(t, errors.Is(err, status.ErrKeyMismatch))

	// no key was recorded: the publication is not trusted
	ok, err := root.HasKey(ctx, "foo")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUploadRepublishUsesStoredKey(t *testing.T) {
	noColor(t)
	ctx := context.Background()

	nv := model.NV{Name: "foo", Version: "1.0"}
	work := t.TempDir()
	writeWorkFile(t, work, model.SpecFileName(nv), specFileBytes(t, testSpec("foo", "1.0")))
	writeWorkFile(t, work, model.ArchiveFileName(nv), archiveBytes(t, nv, map[string]string{
		"src.ml": "let x = 2\n",
	}))

	srv := newFakeServer("a.example.org")

	root := memRoot(t)
	initRoot(t, root, serverURL(t, "a.example.org"))
	require.NoError(t, root.PutKey(ctx, "foo", "K9"))
	c, out := testClient(t, root, map[string]remote.Server{"a.example.org": srv},
		WorkDir(work))

	require.NoError(t, c.Upload(ctx, "foo"))

	// a single remote needs no per-remote confirmation
	assert.NotContains(t, out.String(), "Upload to")
	assert.Empty(t, srv.news)
	assert.Equal(t, model.NVs{nv}, srv.updates)
	assert.Equal(t, []string{"K9"}, srv.gotKeys)
}

func TestUploadRefusedWithoutSources(t *testing.T) {
	noColor(t)
	ctx := context.Background()

	nv := model.NV{Name: "foo", Version: "1.0"}
	work := t.TempDir()
	writeWorkFile(t, work, model.SpecFileName(nv), specFileBytes(t, testSpec("foo", "1.0")))

	srv := newFakeServer("a.example.org")

	root := memRoot(t)
	initRoot(t, root, serverURL(t, "a.example.org"))
	c, _ := testClient(t, root, map[string]remote.Server{"a.example.org": srv}, WorkDir(work))

	err := c.Upload(ctx, "foo")
	require.Error(t, err)
	require.True(t, errors.Is(err, status.ErrNoLocation))

	// refused before any remote was contacted
	assert.Empty(t, srv.news)
	assert.Empty(t, srv.updates)
}

func TestUploadRejectsMixedPatches(t *testing.T) {
	noColor(t)
	ctx := context.Background()

	nv := model.NV{Name: "foo", Version: "1.0"}
	work := t.TempDir()
	writeWorkFile(t, work, model.SpecFileName(nv), specFileBytes(t, testSpec("foo", "1.0", func(s *model.Spec) {
		s.URLs = []string{"http://upstream.example.org/foo-1.0.tar.gz"}
		s.Patches = []string{"fix.patch", "http://elsewhere.example.org/p.patch"}
	})))

	srv := newFakeServer("a.example.org")

	root := memRoot(t)
	initRoot(t, root, serverURL(t, "a.example.org"))
	c, _ := testClient(t, root, map[string]remote.Server{"a.example.org": srv}, WorkDir(work))

	err := c.Upload(ctx, "foo")
	require.Error(t, err)
	require.True(t, errors.Is(err, status.ErrMixedPatches))
	assert.Empty(t, srv.news)
}

func TestUploadSynthesizesArchive(t *testing.T) {
	noColor(t)
	ctx := context.Background()

	nv := model.NV{Name: "foo", Version: "1.0"}
	source := filepath.Join(t.TempDir(), model.ArchiveFileName(nv))
	require.NoError(t, ioutil.WriteFile(source, archiveBytes(t, nv, map[string]string{
		"src.ml": "let version = 1\n",
	}), 0644))

	work := t.TempDir()
	writeWorkFile(t, work, model.SpecFileName(nv), specFileBytes(t, testSpec("foo", "1.0", func(s *model.Spec) {
		s.URLs = []string{source}
	})))

	srv := newFakeServer("a.example.org")

	root := memRoot(t)
	initRoot(t, root, serverURL(t, "a.example.org"))
	c, _ := testClient(t, root, map[string]remote.Server{"a.example.org": srv}, WorkDir(work))

	require.NoError(t, c.Upload(ctx, "foo"))
	require.Equal(t, model.NVs{nv}, srv.news)

	// the published archive unpacks back to the source tree
	raw := srv.archives[nv]
	require.NotEmpty(t, raw)
	unpacked := t.TempDir()
	require.NoError(t, tarball.Extract(bytes.NewReader(raw), unpacked))
	content, err := ioutil.ReadFile(filepath.Join(unpacked, "src.ml"))
	require.NoError(t, err)
	assert.Equal(t, "let version = 1\n", string(content))

	// the remote issued no key, none is stored
	ok, err := root.HasKey(ctx, "foo")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUploadBareWithExternalPatches(t *testing.T) {
	noColor(t)
	ctx := context.Background()

	nv := model.NV{Name: "foo", Version: "1.0"}
	work := t.TempDir()
	writeWorkFile(t, work, model.SpecFileName(nv), specFileBytes(t, testSpec("foo", "1.0", func(s *model.Spec) {
		s.Patches = []string{"http://elsewhere.example.org/p.patch"}
	})))

	srv := newFakeServer("a.example.org")

	root := memRoot(t)
	initRoot(t, root, serverURL(t, "a.example.org"))
	c, _ := testClient(t, root, map[string]remote.Server{"a.example.org": srv}, WorkDir(work))

	// everything needed to rebuild lives elsewhere: the spec goes up
	// without an archive
	require.NoError(t, c.Upload(ctx, "foo"))
	require.Equal(t, model.NVs{nv}, srv.news)
	_, err := srv.GetArchive(ctx, nv)
	require.True(t, errors.Is(err, remotestatus.ErrNoArchive))
}

func TestUploadDeclinedRemoteIsSkipped(t *testing.T) {
	noColor(t)
	ctx := context.Background()

	nv := model.NV{Name: "foo", Version: "1.0"}
	work := t.TempDir()
	writeWorkFile(t, work, model.SpecFileName(nv), specFileBytes(t, testSpec("foo", "1.0")))
	writeWorkFile(t, work, model.ArchiveFileName(nv), archiveBytes(t, nv, map[string]string{
		"src.ml": "let x = 3\n",
	}))

	first := newFakeServer("a.example.org")
	second := newFakeServer("b.example.org")

	root := memRoot(t)
	initRoot(t, root, serverURL(t, "a.example.org"), serverURL(t, "b.example.org"))
	c, _ := testClient(t, root, map[string]remote.Server{
		"a.example.org": first,
		"b.example.org": second,
	}, WorkDir(work), Input(strings.NewReader("y\nn\n")))

	require.NoError(t, c.Upload(ctx, "foo"))
	assert.Equal(t, model.NVs{nv}, first.news)
	assert.Empty(t, second.news)

	// the local mirror records the publication regardless
	b, err := c.Mirror().GetSpec(ctx, nv)
	require.NoError(t, err)
	assert.NotEmpty(t, b)
}
