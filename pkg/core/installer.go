// Copyright © 2019 One Concern

package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar"
	"github.com/karrick/godirwalk"
	"github.com/silene/opam/pkg/core/status"
	"github.com/silene/opam/pkg/model"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// installArtifacts carries a finished build into the root, driven by
// the manifest. Library patterns expand against the build tree and
// land under lib/<name>/; bin entries become programs under bin/;
// misc entries copy outside the root, each one behind a prompt.
func (c *Client) installArtifacts(ctx context.Context, nv model.NV, buildDir string, manifest *model.Install) error {
	libDir := c.root.Join(model.GetLibPath(nv.Name))
	for _, pattern := range manifest.Lib {
		matches, err := doublestar.Glob(filepath.Join(buildDir, pattern))
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			c.settings.l.Warn("lib pattern matched nothing",
				zap.Stringer("package", nv),
				zap.String("pattern", pattern))
			continue
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				return err
			}
			target := filepath.Join(libDir, filepath.Base(m))
			if info.IsDir() {
				if err := c.copyTree(m, target); err != nil {
					return err
				}
				continue
			}
			if err := c.copyFile(m, target, info.Mode().Perm()); err != nil {
				return err
			}
		}
	}
	for _, mv := range manifest.Bin {
		src, err := binSource(buildDir, mv.Src)
		if err != nil {
			return err
		}
		if !validProgramName(mv.Dst) {
			return status.ErrInvalidProgramName.Wrap(fmt.Errorf("%q", mv.Dst))
		}
		target := filepath.Join(c.root.Join(model.GetBinPath()), mv.Dst)
		if err := c.copyFile(src, target, 0755); err != nil {
			return err
		}
	}
	for _, mv := range manifest.Misc {
		c.printf("Copy %s.\n", mv)
		if !c.confirm("Continue ?") {
			continue
		}
		if err := c.copyMisc(buildDir, mv); err != nil {
			return err
		}
	}
	return nil
}

// removeArtifacts undoes what installArtifacts did for one package,
// reading the same manifest. Misc removals wipe whole directories
// outside the root, so each asks first.
func (c *Client) removeArtifacts(ctx context.Context, nv model.NV, manifest *model.Install) error {
	if err := c.root.Fs().RemoveAll(c.root.Join(model.GetLibPath(nv.Name))); err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, mv := range manifest.Bin {
		target := filepath.Join(c.root.Join(model.GetBinPath()), mv.Dst)
		if err := c.root.Fs().Remove(target); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	for _, mv := range manifest.Misc {
		prompt := fmt.Sprintf("The complete directory '%s' will be removed. Continue ?", mv.Dst)
		if !c.confirm(prompt) {
			continue
		}
		if err := c.root.Fs().RemoveAll(mv.Dst); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// binSource expands a bin pattern, which must name exactly one regular
// file of the build tree.
func binSource(buildDir, pattern string) (string, error) {
	matches, err := doublestar.Glob(filepath.Join(buildDir, pattern))
	if err != nil {
		return "", err
	}
	var files []string
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
			files = append(files, m)
		}
	}
	if len(files) != 1 {
		return "", status.ErrInvalidBinPattern.Wrap(fmt.Errorf("%q matched %d files", pattern, len(files)))
	}
	return files[0], nil
}

// validProgramName accepts plain filenames only: programs land
// directly under bin/, never in a subdirectory.
func validProgramName(dst string) bool {
	return dst != "" && dst != "." && dst != ".." && dst == filepath.Base(dst)
}

// copyMisc lands the expansion of one misc entry at its absolute
// destination. A single file match copies to the destination path
// itself; anything else copies into it as a directory.
func (c *Client) copyMisc(buildDir string, mv model.Move) error {
	matches, err := doublestar.Glob(filepath.Join(buildDir, mv.Src))
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("misc source %q matched nothing", mv.Src)
	}
	if len(matches) == 1 {
		info, err := os.Stat(matches[0])
		if err != nil {
			return err
		}
		if info.IsDir() {
			return c.copyTree(matches[0], mv.Dst)
		}
		dst := mv.Dst
		if isDir, _ := afero.DirExists(c.root.Fs(), dst); isDir {
			dst = filepath.Join(dst, filepath.Base(matches[0]))
		}
		return c.copyFile(matches[0], dst, info.Mode().Perm())
	}
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			return err
		}
		target := filepath.Join(mv.Dst, filepath.Base(m))
		if info.IsDir() {
			if err := c.copyTree(m, target); err != nil {
				return err
			}
			continue
		}
		if err := c.copyFile(m, target, info.Mode().Perm()); err != nil {
			return err
		}
	}
	return nil
}

// copyFile copies one OS file into the root's filesystem.
func (c *Client) copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	fs := c.root.Fs()
	if err := fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// copyTree mirrors an OS directory into the root's filesystem.
// Symlinks are followed: file links copy their content, directory
// links become plain directories.
func (c *Client) copyTree(src, dst string) error {
	return godirwalk.Walk(src, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			rel, err := filepath.Rel(src, path)
			if err != nil {
				return err
			}
			target := filepath.Join(dst, rel)
			if de.IsDir() {
				return c.root.Fs().MkdirAll(target, 0755)
			}
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if info.IsDir() {
				return c.root.Fs().MkdirAll(target, 0755)
			}
			return c.copyFile(path, target, info.Mode().Perm())
		},
		Unsorted: false,
	})
}
