package core

import (
	"context"
	"testing"

	"github.com/silene/opam/pkg/core/status"
	"github.com/silene/opam/pkg/errors"
	"github.com/silene/opam/pkg/model"
	"github.com/silene/opam/pkg/state"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configBytes(t testing.TB, root *state.Root) []byte {
	t.Helper()
	b, err := afero.ReadFile(root.Fs(), root.Join(model.GetConfigPath()))
	require.NoError(t, err)
	return b
}

func TestRemoteAddRemoveRoundTrip(t *testing.T) {
	ctx := context.Background()
	root := memRoot(t)
	initRoot(t, root, serverURL(t, "a.example.org"))
	c, _ := testClient(t, root, nil)

	before := configBytes(t, root)

	git := gitURL(t, "git@example.org:pkgs.git")
	require.NoError(t, c.RemoteAdd(ctx, git))
	require.Len(t, c.Remotes(), 2)
	assert.Equal(t, git, c.Remotes()[0], "new remotes go to the head of the list")
	assert.NotEqual(t, before, configBytes(t, root))

	require.NoError(t, c.RemoteRemove(ctx, "git@example.org:pkgs.git"))
	require.Len(t, c.Remotes(), 1)

	// adding then removing a remote leaves the config file exactly as
	// it was
	assert.Equal(t, before, configBytes(t, root))
}

func TestRemoteAddRefusesDuplicate(t *testing.T) {
	ctx := context.Background()
	root := memRoot(t)
	initRoot(t, root, serverURL(t, "a.example.org"))
	c, _ := testClient(t, root, nil)

	before := configBytes(t, root)

	// same hostname on another port is still the same remote
	err := c.RemoteAdd(ctx, serverURL(t, "a.example.org:1234"))
	require.Error(t, err)
	require.True(t, errors.Is(err, status.ErrDuplicateRemote))
	assert.Equal(t, before, configBytes(t, root))
	assert.Len(t, c.Remotes(), 1)
}

func TestRemoteRemoveByHostname(t *testing.T) {
	ctx := context.Background()
	root := memRoot(t)
	initRoot(t, root,
		serverURL(t, "pkg.example.org"),
		gitURL(t, "git@scm.example.org:pkgs.git"))
	c, _ := testClient(t, root, nil)

	require.NoError(t, c.RemoteRemove(ctx, "scm.example.org"))
	require.Len(t, c.Remotes(), 1)
	assert.Equal(t, "pkg.example.org", c.Remotes()[0].Raw)
}

func TestRemoteRemoveUnknownIsNoop(t *testing.T) {
	ctx := context.Background()
	root := memRoot(t)
	initRoot(t, root, serverURL(t, "a.example.org"))
	c, _ := testClient(t, root, nil)

	before := configBytes(t, root)
	require.NoError(t, c.RemoteRemove(ctx, "nowhere.example.org"))
	assert.Equal(t, before, configBytes(t, root))
	assert.Len(t, c.Remotes(), 1)
}

func TestRemoteListOutput(t *testing.T) {
	ctx := context.Background()
	root := memRoot(t)
	initRoot(t, root,
		serverURL(t, "pkg.example.org"),
		gitURL(t, "git@example.org:pkgs.git"))
	c, out := testClient(t, root, nil)

	require.NoError(t, c.RemoteList(ctx))
	assert.Equal(t, "OPAM pkg.example.org\ngit git@example.org:pkgs.git\n", out.String())
}
