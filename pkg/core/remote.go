// Copyright © 2019 One Concern

package core

import (
	"context"
	"fmt"

	"github.com/silene/opam/pkg/core/status"
	"github.com/silene/opam/pkg/model"
	"go.uber.org/zap"
)

// RemoteList prints the configured remotes in order, one per line,
// tagged with their kind.
func (c *Client) RemoteList(ctx context.Context) error {
	for _, u := range c.remotes {
		kind := "OPAM"
		if u.Kind == model.RemoteGit {
			kind = "git"
		}
		c.printf("%s %s\n", kind, u.Raw)
	}
	return nil
}

// RemoteAdd registers a remote at the head of the configured list. An
// address already configured, by address or hostname, is refused. The
// new remote contributes packages on the next update.
func (c *Client) RemoteAdd(ctx context.Context, u model.URL) error {
	cfg, err := c.root.Load(ctx)
	if err != nil {
		return err
	}
	if cfg.HasRemote(u) {
		return status.ErrDuplicateRemote.Wrap(fmt.Errorf("%s", u.Raw))
	}
	cfg.AddRemote(u)
	if err := c.root.SaveConfig(ctx, cfg); err != nil {
		return err
	}
	c.remotes = cfg.Remotes
	c.settings.l.Info("remote added",
		zap.String("remote", u.Raw),
		zap.String("kind", string(u.Kind)))
	return nil
}

// RemoteRemove drops every remote matching s by rendered address or by
// hostname. Removing an address that is not configured is not an
// error.
func (c *Client) RemoteRemove(ctx context.Context, s string) error {
	cfg, err := c.root.Load(ctx)
	if err != nil {
		return err
	}
	removed := cfg.RemoveRemote(s)
	if removed == 0 {
		c.settings.l.Debug("no remote matched", zap.String("address", s))
		return nil
	}
	if err := c.root.SaveConfig(ctx, cfg); err != nil {
		return err
	}
	c.remotes = cfg.Remotes
	c.settings.l.Info("remote removed",
		zap.String("address", s),
		zap.Int("matched", removed))
	return nil
}
