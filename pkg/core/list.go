// Copyright © 2019 One Concern

package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/silene/opam/pkg/model"
)

// notInstalledMarker stands in for the version column of packages that
// are known but not installed.
const notInstalledMarker = "--"

// List prints one line per known package name: the name, the installed
// version or the bare marker, and the first line of the description.
// Names are right-aligned on the longest one; versions are left-aligned
// on the widest installed version.
func (c *Client) List(ctx context.Context) error {
	nvs, err := c.root.IndexNVs(ctx)
	if err != nil {
		return err
	}
	installed, err := c.root.Installed(ctx)
	if err != nil {
		return err
	}

	type row struct {
		name, version, summary string
	}
	names := nvs.Names()
	rows := make([]row, 0, len(names))
	nameWidth, versionWidth := 0, len(notInstalledMarker)
	for _, name := range names {
		version := notInstalledMarker
		selected := nvs.ByName(name)[0]
		if v, ok := installed[name]; ok {
			selected = model.NV{Name: name, Version: v}
			version = v.String()
			if len(version) > versionWidth {
				versionWidth = len(version)
			}
		}
		spec, err := c.root.Spec(ctx, selected)
		if err != nil {
			return err
		}
		if len(name) > nameWidth {
			nameWidth = len(name)
		}
		rows = append(rows, row{name: name, version: version, summary: spec.Summary()})
	}
	for _, r := range rows {
		line := fmt.Sprintf("%*s  %-*s  %s", nameWidth, r.name, versionWidth, r.version, r.summary)
		c.printf("%s\n", strings.TrimRight(line, " "))
	}
	return nil
}
