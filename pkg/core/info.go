// Copyright © 2019 One Concern

package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/go-units"
	"github.com/silene/opam/pkg/core/status"
	"github.com/silene/opam/pkg/model"
)

// Info prints the card of one package: its installed version, the
// other versions the index knows, the size of the cached source
// archive when there is one, and the description of the installed
// version or else of the highest known one.
func (c *Client) Info(ctx context.Context, name string) error {
	nvs, err := c.root.IndexNVs(ctx)
	if err != nil {
		return err
	}
	installed, err := c.root.Installed(ctx)
	if err != nil {
		return err
	}
	known := nvs.ByName(name)
	current, isInstalled := installed[name]
	if len(known) == 0 && !isInstalled {
		return status.ErrUnknownPackage.Wrap(fmt.Errorf("%s", name))
	}

	var others []string
	for _, nv := range known {
		if isInstalled && (nv.Version == current || nv.Version.IsHead() && current.IsHead()) {
			continue
		}
		others = append(others, nv.Version.String())
	}

	target := model.NV{Name: name, Version: current}
	if !isInstalled {
		target = known[len(known)-1]
	}
	spec, err := c.root.Spec(ctx, target)
	if err != nil {
		return err
	}

	installedVersion := notInstalledMarker
	if isInstalled {
		installedVersion = current.String()
	}
	otherVersions := notInstalledMarker
	if len(others) > 0 {
		otherVersions = strings.Join(others, ", ")
	}
	c.printf("package: %s\n", name)
	c.printf("installed-version: %s\n", installedVersion)
	c.printf("other-versions: %s\n", otherVersions)
	if size, ok := c.root.ArchiveSize(ctx, target); ok {
		c.printf("archive: %s\n", units.HumanSize(float64(size)))
	}
	if d := strings.TrimSpace(spec.Description); d != "" {
		c.printf("description: %s\n", d)
	}
	return nil
}
