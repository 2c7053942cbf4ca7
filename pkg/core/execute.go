// Copyright © 2019 One Concern

package core

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/silene/opam/pkg/core/status"
	"github.com/silene/opam/pkg/errors"
	"github.com/silene/opam/pkg/model"
	"github.com/silene/opam/pkg/solver"
	"github.com/silene/opam/pkg/state"
	statestatus "github.com/silene/opam/pkg/state/status"
	"github.com/silene/opam/pkg/tarball"
	"go.uber.org/zap"
)

// execute applies one accepted solution, action by action in the
// solver's order. The whole plan is journaled before the first action
// runs and each entry is marked done as it completes, so an
// interrupted run leaves a readable trace of what remains. A failing
// action stops the run; completed actions stay applied.
func (c *Client) execute(ctx context.Context, sol solver.Solution) error {
	actions := sol.Actions()
	entries := make([]state.JournalEntry, len(actions))
	for i, a := range actions {
		entries[i] = state.JournalEntry{Op: opName(a.Kind), NV: a.NV.String(), At: time.Now().UTC()}
		if a.Was != nil {
			entries[i].Was = a.Was.String()
		}
	}
	if err := c.root.WriteJournal(ctx, entries); err != nil {
		return err
	}
	for i, a := range actions {
		c.settings.l.Info("applying action",
			zap.String("op", entries[i].Op),
			zap.Stringer("package", a.NV))
		if err := c.apply(ctx, a); err != nil {
			return err
		}
		entries[i].Done = true
		entries[i].At = time.Now().UTC()
		if err := c.root.WriteJournal(ctx, entries); err != nil {
			return err
		}
	}
	return c.root.ClearJournal(ctx)
}

func opName(kind solver.ActionKind) string {
	switch kind {
	case solver.KindDelete:
		return "delete"
	case solver.KindRecompile:
		return "recompile"
	default:
		return "install"
	}
}

func (c *Client) apply(ctx context.Context, a solver.Action) error {
	switch a.Kind {
	case solver.KindDelete:
		return c.deleteAction(ctx, a.NV)
	case solver.KindRecompile:
		was := a.NV
		return c.changeAction(ctx, &was, a.NV)
	default:
		return c.changeAction(ctx, a.Was, a.NV)
	}
}

// deleteAction removes one installed version: its lib/ tree, its
// programs under bin/, its misc artifacts (each guarded by a prompt),
// its manifest, and finally its installed entry. When the installed
// version differs from the requested one the action is a no-op: a
// preceding action of the same solution already superseded it.
func (c *Client) deleteAction(ctx context.Context, nv model.NV) error {
	installed, err := c.root.Installed(ctx)
	if err != nil {
		return err
	}
	current, ok := installed[nv.Name]
	if !ok || current != nv.Version {
		c.settings.l.Debug("delete skipped, version not installed",
			zap.Stringer("package", nv))
		return nil
	}
	manifest, err := c.root.ToInstall(ctx, nv)
	if err != nil {
		if !errors.Is(err, statestatus.ErrNotFound) {
			return err
		}
		manifest = &model.Install{}
	}
	if err := c.removeArtifacts(ctx, nv, manifest); err != nil {
		return err
	}
	if err := c.root.DeleteToInstall(ctx, nv); err != nil {
		return err
	}
	delete(installed, nv.Name)
	return c.root.SaveInstalled(ctx, installed)
}

// changeAction installs nv, superseding was when set: fetch sources
// into a clean build tree, run the build commands, then carry the
// produced artifacts into the root. The installed entry is rewritten
// last, so a crash never records a half-installed package.
func (c *Client) changeAction(ctx context.Context, was *model.NV, nv model.NV) error {
	if was != nil {
		if err := c.deleteAction(ctx, *was); err != nil {
			return err
		}
	}
	// every head form re-installs as the up-to-date one: the sources
	// about to be fetched are the remote's current tip
	if nv.Version.IsHead() {
		nv.Version = model.Head(model.HeadUpToDate)
	}
	spec, err := c.root.Spec(ctx, nv)
	if err != nil {
		return err
	}
	if err := c.root.ClearBuild(ctx, nv); err != nil {
		return err
	}
	buildDir := c.root.BuildPath(nv)
	if err := c.fetchSources(ctx, spec, nv, buildDir); err != nil {
		return err
	}
	if err := c.runBuild(ctx, spec, nv, buildDir); err != nil {
		return err
	}
	manifest, err := buildManifest(spec, nv, buildDir)
	if err != nil {
		return err
	}
	if err := c.installArtifacts(ctx, nv, buildDir, manifest); err != nil {
		return err
	}
	if err := c.root.PutToInstall(ctx, nv, manifest); err != nil {
		return err
	}
	installed, err := c.root.Installed(ctx)
	if err != nil {
		return err
	}
	installed[nv.Name] = nv.Version
	return c.root.SaveInstalled(ctx, installed)
}

// fetchSources materializes the package sources in buildDir: the local
// archive cache first, then every configured remote in order, then the
// spec's own URL and patch list. Sources obtained by URL are repacked
// into the cache, so the next build of the same version stays offline.
// Head versions never hit the cache: their content moves with the
// remote.
func (c *Client) fetchSources(ctx context.Context, spec *model.Spec, nv model.NV, buildDir string) error {
	cacheable := !nv.Version.IsHead()
	if cacheable {
		if b, err := c.root.Archive(ctx, nv); err == nil && len(b) > 0 {
			c.settings.l.Info("using cached archive", zap.Stringer("package", nv))
			return tarball.Extract(bytes.NewReader(b), buildDir)
		}
	}
	for _, u := range c.remotes {
		srv := c.settings.dial(u)
		payload, err := srv.GetArchive(ctx, nv)
		if err != nil || len(payload) == 0 {
			c.settings.l.Debug("no archive from remote",
				zap.String("remote", u.Raw),
				zap.Stringer("package", nv),
				zap.Error(err))
			continue
		}
		c.settings.l.Info("fetched archive",
			zap.String("remote", u.Raw),
			zap.Stringer("package", nv))
		if cacheable {
			if err := c.root.PutArchive(ctx, nv, payload); err != nil {
				return err
			}
		}
		return tarball.Extract(bytes.NewReader(payload), buildDir)
	}
	links := tarball.Links{URLs: spec.URLs, Patches: spec.Patches}
	if links.Empty() {
		return status.ErrNoLocation.Wrap(fmt.Errorf("%s", model.ArchiveFileName(nv)))
	}
	if err := tarball.Fetch(ctx, links, buildDir, tarball.Logger(c.settings.l)); err != nil {
		return err
	}
	if cacheable {
		var buf bytes.Buffer
		if err := tarball.Create(&buf, buildDir, nv.String()); err != nil {
			return err
		}
		return c.root.PutArchive(ctx, nv, buf.Bytes())
	}
	return nil
}

// runBuild executes the spec's build commands in the build tree. The
// commands inherit the process environment plus the root location and
// the package identity; their output streams to the user.
func (c *Client) runBuild(ctx context.Context, spec *model.Spec, nv model.NV, buildDir string) error {
	if len(spec.Build) == 0 {
		return nil
	}
	env := append(os.Environ(),
		"OPAM_ROOT="+c.root.Path(),
		"OPAM_PACKAGE="+nv.Name,
		"OPAM_VERSION="+nv.Version.String(),
	)
	for _, argv := range spec.Build {
		if len(argv) == 0 {
			continue
		}
		c.settings.l.Info("running build command",
			zap.Stringer("package", nv),
			zap.Strings("argv", argv))
		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		cmd.Dir = buildDir
		cmd.Env = env
		cmd.Stdout = c.settings.output
		cmd.Stderr = c.settings.output
		if err := cmd.Run(); err != nil {
			var exit *exec.ExitError
			if errors.As(err, &exit) {
				return status.ErrBuildFailed.Wrap(
					fmt.Errorf("%s: exit status %d", strings.Join(argv, " "), exit.ExitCode()))
			}
			return status.ErrBuildFailed.Wrap(err)
		}
	}
	return nil
}

// buildManifest resolves what the finished build wants installed: the
// <name>.install file it left in the build tree when there is one,
// else the spec's inline install section, else nothing.
func buildManifest(spec *model.Spec, nv model.NV, buildDir string) (*model.Install, error) {
	b, err := ioutil.ReadFile(filepath.Join(buildDir, model.InstallFileName(nv.Name)))
	if err == nil {
		return model.UnmarshalInstall(b)
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	if spec.Install != nil {
		return spec.Install, nil
	}
	return &model.Install{}, nil
}
