// Copyright © 2019 One Concern

package core

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/silene/opam/pkg/core/status"
	"github.com/silene/opam/pkg/errors"
	"github.com/silene/opam/pkg/model"
	statestatus "github.com/silene/opam/pkg/state/status"
	"github.com/silene/opam/pkg/tarball"
	"go.uber.org/zap"
)

// Upload publishes a package to every configured server remote and to
// the local mirror: its spec file, plus its source archive when one
// sits in the working directory or can be synthesized from the spec's
// locations. The first publication of a name stores the issued
// republication key under keys/; later uploads present it back.
func (c *Client) Upload(ctx context.Context, specArg string) error {
	specPath := specArg
	if !strings.HasSuffix(specPath, model.SpecExt) {
		specPath += model.SpecExt
	}
	specPath = c.workPath(specPath)
	specBytes, err := ioutil.ReadFile(specPath)
	if err != nil {
		return err
	}
	spec, err := model.UnmarshalSpec(specBytes)
	if err != nil {
		return err
	}
	nv := spec.NV()

	archive, err := c.locateArchive(ctx, spec, nv)
	if err != nil {
		return err
	}

	var eligible []model.URL
	for _, u := range c.remotes {
		if u.Kind != model.RemoteGit {
			eligible = append(eligible, u)
		}
	}
	askEach := len(eligible) > 1

	key, err := c.root.Key(ctx, nv.Name)
	if err != nil && !errors.Is(err, statestatus.ErrNotFound) {
		return err
	}

	if key == "" {
		issued := ""
		for _, u := range eligible {
			if askEach && !c.confirm(fmt.Sprintf("Upload to %s ?", u.Hostname)) {
				continue
			}
			k, err := c.settings.dial(u).NewArchive(ctx, nv, specBytes, archive)
			if err != nil {
				return err
			}
			c.settings.l.Info("package uploaded",
				zap.Stringer("package", nv),
				zap.String("remote", u.Raw))
			if k == "" {
				continue
			}
			if issued != "" && issued != k {
				return status.ErrKeyMismatch.Wrap(fmt.Errorf("package %s", nv.Name))
			}
			issued = k
		}
		if _, err := c.mirror.NewArchive(ctx, nv, specBytes, archive); err != nil {
			return err
		}
		if issued == "" {
			return nil
		}
		return c.root.PutKey(ctx, nv.Name, issued)
	}

	for _, u := range eligible {
		if askEach && !c.confirm(fmt.Sprintf("Upload to %s ?", u.Hostname)) {
			continue
		}
		if err := c.settings.dial(u).UpdateArchive(ctx, nv, specBytes, archive, key); err != nil {
			return err
		}
		c.settings.l.Info("package republished",
			zap.Stringer("package", nv),
			zap.String("remote", u.Raw))
	}
	return c.mirror.UpdateArchive(ctx, nv, specBytes, archive, key)
}

// workPath anchors a relative filename on the configured working
// directory, for the files upload reads from the user's workspace.
func (c *Client) workPath(name string) string {
	if filepath.IsAbs(name) || c.settings.workDir == "" {
		return name
	}
	return filepath.Join(c.settings.workDir, name)
}

// locateArchive resolves the payload to publish alongside the spec:
// the prebuilt name-version.tar.gz from the working directory when it
// exists, else a tarball synthesized from the spec's source URLs with
// its local patches applied. A spec pointing at external patch
// locations publishes bare; one pointing nowhere is refused.
func (c *Client) locateArchive(ctx context.Context, spec *model.Spec, nv model.NV) ([]byte, error) {
	path := c.workPath(model.ArchiveFileName(nv))
	b, err := ioutil.ReadFile(path)
	if err == nil {
		return b, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	links := tarball.Links{URLs: spec.URLs, Patches: spec.Patches}
	local, external := links.SplitPatches()
	if len(local) > 0 && len(external) > 0 {
		return nil, status.ErrMixedPatches.Wrap(fmt.Errorf("package %s", nv))
	}
	switch {
	case len(links.URLs) > 0 && len(external) == 0:
		// local patch files resolve against the working directory
		patches := make([]string, 0, len(links.Patches))
		for _, p := range links.Patches {
			if tarball.IsLocal(p) {
				p = c.workPath(p)
			}
			patches = append(patches, p)
		}
		links.Patches = patches
		return c.synthesizeArchive(ctx, links, nv)
	case len(links.URLs) == 0 && len(external) == 0:
		return nil, status.ErrNoLocation.Wrap(fmt.Errorf("%s", model.ArchiveFileName(nv)))
	}
	return nil, nil
}

// synthesizeArchive materializes the links into a scratch tree and
// repacks it under the conventional name-version top level.
func (c *Client) synthesizeArchive(ctx context.Context, links tarball.Links, nv model.NV) ([]byte, error) {
	tmp, err := ioutil.TempDir("", "opam-upload-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)
	if err := tarball.Fetch(ctx, links, tmp, tarball.Logger(c.settings.l)); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tarball.Create(&buf, tmp, nv.String()); err != nil {
		return nil, err
	}
	c.settings.l.Info("synthesized archive",
		zap.Stringer("package", nv),
		zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}
