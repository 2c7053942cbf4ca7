package state

import (
	"context"
	"testing"

	"github.com/silene/opam/pkg/errors"
	"github.com/silene/opam/pkg/model"
	"github.com/silene/opam/pkg/state/status"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const indexedSpec = `package: foo
version: "1.0"
description: a frobnicator
`

func TestSpecIndex(t *testing.T) {
	ctx := context.Background()
	r := testRoot(t)
	require.NoError(t, r.Init(ctx, testConfig(t)))

	nv := model.NV{Name: "foo", Version: "1.0"}
	ok, err := r.HasSpec(ctx, nv)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = r.Spec(ctx, nv)
	require.Error(t, err)
	require.True(t, errors.Is(err, status.ErrNotFound))

	require.NoError(t, r.PutSpec(ctx, nv, []byte(indexedSpec)))

	ok, err = r.HasSpec(ctx, nv)
	require.NoError(t, err)
	require.True(t, ok)

	spec, err := r.Spec(ctx, nv)
	require.NoError(t, err)
	require.Equal(t, nv, spec.NV())

	// cached reads return the same parse
	again, err := r.Spec(ctx, nv)
	require.NoError(t, err)
	require.Same(t, spec, again)

	raw, err := r.SpecBytes(ctx, nv)
	require.NoError(t, err)
	require.Equal(t, indexedSpec, string(raw))
}

func TestPutSpecInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	r := testRoot(t)
	require.NoError(t, r.Init(ctx, testConfig(t)))

	nv := model.NV{Name: "foo", Version: "1.0"}
	require.NoError(t, r.PutSpec(ctx, nv, []byte(indexedSpec)))
	first, err := r.Spec(ctx, nv)
	require.NoError(t, err)
	require.Equal(t, "a frobnicator", first.Summary())

	updated := "package: foo\nversion: \"1.0\"\ndescription: better now\n"
	require.NoError(t, r.PutSpec(ctx, nv, []byte(updated)))
	second, err := r.Spec(ctx, nv)
	require.NoError(t, err)
	require.Equal(t, "better now", second.Summary())
}

func TestIndexNVs(t *testing.T) {
	ctx := context.Background()
	r := testRoot(t)
	require.NoError(t, r.Init(ctx, testConfig(t)))

	for _, s := range []string{"zeta-2.0", "foo-1.0", "foo-1.1"} {
		nv, err := model.ParseNV(s)
		require.NoError(t, err)
		require.NoError(t, r.PutSpec(ctx, nv, []byte("package: "+nv.Name+"\nversion: \""+string(nv.Version)+"\"\n")))
	}
	// clone bookkeeping and stray files are skipped
	require.NoError(t, afero.WriteFile(r.Fs(), r.Join("index/last-update"), []byte("abc123\n"), 0644))
	require.NoError(t, afero.WriteFile(r.Fs(), r.Join("index/README"), []byte("hi"), 0644))

	nvs, err := r.IndexNVs(ctx)
	require.NoError(t, err)
	require.Equal(t, model.NVs{
		{Name: "foo", Version: "1.0"},
		{Name: "foo", Version: "1.1"},
		{Name: "zeta", Version: "2.0"},
	}, nvs)
}

func TestIndexNVsNestedSpecs(t *testing.T) {
	ctx := context.Background()
	r := testRoot(t)
	require.NoError(t, r.Init(ctx, testConfig(t)))

	// a git remote keeps its specs wherever the tree puts them
	nested := "package: bar\nversion: \"0.2\"\ndescription: nested\n"
	require.NoError(t, afero.WriteFile(r.Fs(), r.Join("index/pkgs/bar/bar-0.2.spec"), []byte(nested), 0644))
	require.NoError(t, afero.WriteFile(r.Fs(), r.Join("index/.git/ignored-1.0.spec"), []byte("x"), 0644))

	nvs, err := r.IndexNVs(ctx)
	require.NoError(t, err)
	require.Equal(t, model.NVs{{Name: "bar", Version: "0.2"}}, nvs)

	spec, err := r.Spec(ctx, model.NV{Name: "bar", Version: "0.2"})
	require.NoError(t, err)
	require.Equal(t, "nested", spec.Summary())
}

func TestSpecHeadFormsShareFile(t *testing.T) {
	ctx := context.Background()
	r := testRoot(t)
	require.NoError(t, r.Init(ctx, testConfig(t)))

	head := model.NV{Name: "tip", Version: model.Head(model.HeadUpToDate)}
	require.NoError(t, r.PutSpec(ctx, head, []byte("package: tip\nversion: head\n")))

	// behind and unknown forms resolve to the same spec
	behind := model.NV{Name: "tip", Version: model.Head(model.HeadBehind)}
	spec, err := r.Spec(ctx, behind)
	require.NoError(t, err)
	require.Equal(t, head, spec.NV())

	ok, err := r.HasSpec(ctx, model.NV{Name: "tip", Version: model.Head(model.HeadUnknown)})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestToInstallRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := testRoot(t)
	require.NoError(t, r.Init(ctx, testConfig(t)))

	nv := model.NV{Name: "foo", Version: "1.0"}
	_, err := r.ToInstall(ctx, nv)
	require.Error(t, err)
	require.True(t, errors.Is(err, status.ErrNotFound))

	manifest := &model.Install{
		Lib: []string{"_build/**/*.cma"},
		Bin: []model.Move{{Src: "_build/main.native", Dst: "foo"}},
	}
	require.NoError(t, r.PutToInstall(ctx, nv, manifest))

	got, err := r.ToInstall(ctx, nv)
	require.NoError(t, err)
	require.Equal(t, manifest, got)

	require.NoError(t, r.DeleteToInstall(ctx, nv))
	_, err = r.ToInstall(ctx, nv)
	require.Error(t, err)
	// idempotent
	require.NoError(t, r.DeleteToInstall(ctx, nv))
}
