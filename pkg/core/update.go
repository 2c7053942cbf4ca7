// Copyright © 2019 One Concern

package core

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/fatih/color"
	"github.com/silene/opam/pkg/model"
	"github.com/silene/opam/pkg/remote"
	"go.uber.org/zap"
)

// Update synchronizes the local index with every configured remote, in
// order. Server remotes contribute the specs the index lacks; git
// remotes are cloned on first contact and pulled afterwards.
//
// Remotes are independent: a failing remote is reported and skipped,
// the others are still synchronized. The combined failure, if any, is
// returned after the whole list has been attempted.
func (c *Client) Update(ctx context.Context) error {
	var failures []string
	for _, u := range c.remotes {
		news, err := c.updateRemote(ctx, u)
		if err != nil {
			c.settings.l.Warn("remote update failed",
				zap.String("remote", u.Raw),
				zap.Error(err))
			failures = append(failures, fmt.Sprintf("%s: %v", u.Raw, err))
			continue
		}
		c.settings.l.Info("remote updated",
			zap.String("remote", u.Raw),
			zap.Int("new", len(news)))
		for _, nv := range news {
			c.printf("New package: %s-%s\n", color.GreenString(nv.Name), nv.Version)
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("update failed for %d remote(s): %s",
			len(failures), strings.Join(failures, "; "))
	}
	return nil
}

func (c *Client) updateRemote(ctx context.Context, u model.URL) (model.NVs, error) {
	srv := c.settings.dial(u)
	if u.Kind == model.RemoteGit {
		git, ok := srv.(remote.GitServer)
		if !ok {
			return nil, fmt.Errorf("remote %s does not support git operations", u.Raw)
		}
		return c.updateGit(ctx, git)
	}
	return c.updateServer(ctx, srv)
}

// updateServer fetches the specs the index does not hold yet. Specs
// already present are never re-fetched, so the first remote listing an
// identity wins and later remotes cannot override it.
func (c *Client) updateServer(ctx context.Context, srv remote.Server) (model.NVs, error) {
	nvs, err := srv.List(ctx)
	if err != nil {
		return nil, err
	}
	var news model.NVs
	for _, nv := range nvs {
		ok, err := c.root.HasSpec(ctx, nv)
		if err != nil {
			return news, err
		}
		if ok {
			continue
		}
		b, err := srv.GetSpec(ctx, nv)
		if err != nil {
			return news, err
		}
		if err := c.root.PutSpec(ctx, nv, b); err != nil {
			return news, err
		}
		news = append(news, nv)
	}
	return news, nil
}

// updateGit maintains the clone rooted at index/. A fresh clone
// contributes every spec the index did not already know; an existing
// clone reports the files changed upstream, then pulls. Installed
// packages tracking a head version go behind when the pull touches
// them.
func (c *Client) updateGit(ctx context.Context, git remote.GitServer) (model.NVs, error) {
	cloned, err := git.Cloned(ctx)
	if err != nil {
		return nil, err
	}
	if !cloned {
		before, err := c.root.IndexNVs(ctx)
		if err != nil {
			return nil, err
		}
		if err := git.Clone(ctx); err != nil {
			return nil, err
		}
		listed, err := git.List(ctx)
		if err != nil {
			return nil, err
		}
		var news model.NVs
		for _, nv := range listed {
			if !before.Has(nv) {
				news = append(news, nv)
			}
		}
		return news, nil
	}

	files, err := git.Updates(ctx)
	if err != nil {
		return nil, err
	}
	if err := git.Pull(ctx); err != nil {
		return nil, err
	}
	var news model.NVs
	for _, f := range files {
		if nv, ok := model.NVFromSpecFile(f); ok {
			news = append(news, nv)
		}
	}
	if err := c.markBehind(ctx, touchedPackages(files)); err != nil {
		return news, err
	}
	return news, nil
}

// touchedPackages maps changed checkout paths back to package names:
// spec stems, and top-level directories holding a package's sources,
// either bare ("lwt") or suffixed with the head version ("lwt-head").
func touchedPackages(files []string) map[string]struct{} {
	touched := map[string]struct{}{}
	for _, f := range files {
		if nv, ok := model.NVFromSpecFile(f); ok {
			touched[nv.Name] = struct{}{}
		}
		dir := strings.SplitN(path.Clean(f), "/", 2)[0]
		if dir == "" || dir == "." || dir == ".." {
			continue
		}
		touched[dir] = struct{}{}
		if nv, err := model.ParseNV(dir); err == nil && nv.Version.IsHead() {
			touched[nv.Name] = struct{}{}
		}
	}
	return touched
}

// markBehind records that the remote moved for installed head
// packages, so the next upgrade recompiles them from the fresh tip.
func (c *Client) markBehind(ctx context.Context, names map[string]struct{}) error {
	if len(names) == 0 {
		return nil
	}
	installed, err := c.root.Installed(ctx)
	if err != nil {
		return err
	}
	changed := false
	for name := range names {
		v, ok := installed[name]
		if !ok || !v.IsHead() || v.HeadState() == model.HeadBehind {
			continue
		}
		installed[name] = model.Head(model.HeadBehind)
		changed = true
		c.settings.l.Info("head package is behind its remote", zap.String("package", name))
	}
	if !changed {
		return nil
	}
	return c.root.SaveInstalled(ctx, installed)
}
