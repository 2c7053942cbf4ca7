// Package gitrepo drives a git-backed package repository through a
// local clone.
//
// The clone lives at the root of the client's index directory, so
// spec files committed upstream are immediately part of the local
// index once pulled.
package gitrepo

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar"
	"github.com/silene/opam/pkg/model"
	"github.com/silene/opam/pkg/remote/status"
	"github.com/silene/opam/pkg/tarball"
	"go.uber.org/zap"
)

// Option modifies repo settings.
type Option func(*Repo)

// Logger sets a diagnostics logger.
func Logger(l *zap.Logger) Option {
	return func(r *Repo) {
		if l != nil {
			r.l = l
		}
	}
}

// Repo implements the remote contract over a git clone.
type Repo struct {
	url model.URL
	dir string
	l   *zap.Logger
}

// New builds a git remote whose local checkout lives at dir.
func New(u model.URL, dir string, opts ...Option) *Repo {
	r := &Repo{url: u, dir: dir, l: zap.NewNop()}
	for _, apply := range opts {
		apply(r)
	}
	return r
}

func (r *Repo) String() string { return r.url.Raw }

// Cloned tells whether the local checkout exists.
func (r *Repo) Cloned(ctx context.Context) (bool, error) {
	_, err := os.Stat(filepath.Join(r.dir, ".git"))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Clone materializes the checkout. The target directory may already
// hold index files written for other remotes, so this runs init,
// fetch and reset rather than git clone, which refuses non-empty
// directories. Untracked index files survive the reset.
func (r *Repo) Clone(ctx context.Context) error {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return err
	}
	if _, err := r.git(ctx, "init", "."); err != nil {
		return err
	}
	if _, err := r.git(ctx, "remote", "add", "origin", r.url.Raw); err != nil {
		if _, err = r.git(ctx, "remote", "set-url", "origin", r.url.Raw); err != nil {
			return err
		}
	}
	if err := r.fetch(ctx); err != nil {
		return status.ErrUnknownGitRepo.Wrap(err)
	}
	if _, err := r.git(ctx, "reset", "--hard", "FETCH_HEAD"); err != nil {
		return err
	}
	r.l.Info("cloned git remote", zap.String("url", r.url.Raw), zap.String("dir", r.dir))
	return r.recordHead(ctx)
}

// Updates fetches the remote and lists the files that changed between
// the local checkout and the fetched tip, as paths relative to the
// checkout.
func (r *Repo) Updates(ctx context.Context) ([]string, error) {
	if err := r.fetch(ctx); err != nil {
		return nil, status.ErrUnreachable.Wrap(err)
	}
	out, err := r.git(ctx, "diff", "--name-only", "HEAD..FETCH_HEAD")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		files = append(files, line)
	}
	return files, nil
}

// Pull advances the checkout to the fetched remote tip and records
// the new head commit next to the clone. The checkout mirrors the
// remote; local commits are not a supported state.
func (r *Repo) Pull(ctx context.Context) error {
	if err := r.fetch(ctx); err != nil {
		return status.ErrUnreachable.Wrap(err)
	}
	if _, err := r.git(ctx, "reset", "--hard", "FETCH_HEAD"); err != nil {
		return err
	}
	return r.recordHead(ctx)
}

// fetch points FETCH_HEAD at the remote's default branch tip.
func (r *Repo) fetch(ctx context.Context) error {
	_, err := r.git(ctx, "fetch", "origin", "HEAD")
	return err
}

func (r *Repo) recordHead(ctx context.Context) error {
	head, err := r.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return err
	}
	bookkeeping := filepath.Join(r.dir, "last-update")
	return ioutil.WriteFile(bookkeeping, []byte(strings.TrimSpace(head)+"\n"), 0644)
}

// List scans the checkout for spec files.
func (r *Repo) List(ctx context.Context) (model.NVs, error) {
	matches, err := doublestar.Glob(filepath.Join(r.dir, "**", "*"+model.SpecExt))
	if err != nil {
		return nil, err
	}
	var nvs model.NVs
	for _, m := range matches {
		if nv, ok := model.NVFromSpecFile(m); ok {
			nvs = append(nvs, nv)
		}
	}
	nvs.Sort()
	return nvs, nil
}

// GetSpec reads a spec file out of the checkout, wherever it sits in
// the tree.
func (r *Repo) GetSpec(ctx context.Context, nv model.NV) ([]byte, error) {
	path, err := r.findFile(model.SpecFileName(nv))
	if err != nil {
		return nil, err
	}
	return ioutil.ReadFile(path)
}

// GetArchive serves a committed source tarball when the repository
// carries one; otherwise, a directory named after the package is
// packed on the fly, so head packages build straight from the
// checkout.
func (r *Repo) GetArchive(ctx context.Context, nv model.NV) ([]byte, error) {
	if path, err := r.findFile(model.ArchiveFileName(nv)); err == nil {
		return ioutil.ReadFile(path)
	}
	for _, candidate := range []string{nv.String(), nv.Name} {
		dir := filepath.Join(r.dir, candidate)
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			var buf bytes.Buffer
			if err := tarball.Create(&buf, dir, nv.String()); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		}
	}
	return nil, status.ErrNoArchive
}

// NewArchive is refused: publication to a git remote means pushing a
// commit, which the publisher never does.
func (r *Repo) NewArchive(ctx context.Context, nv model.NV, spec, archive []byte) (string, error) {
	return "", status.ErrNotSupported
}

// UpdateArchive is refused for the same reason as NewArchive.
func (r *Repo) UpdateArchive(ctx context.Context, nv model.NV, spec, archive []byte, key string) error {
	return status.ErrNotSupported
}

func (r *Repo) findFile(name string) (string, error) {
	matches, err := doublestar.Glob(filepath.Join(r.dir, "**", name))
	if err != nil {
		return "", err
	}
	for _, m := range matches {
		if filepath.Base(m) == name {
			return m, nil
		}
	}
	return "", status.ErrNotFound
}

func (r *Repo) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", r.dir}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %v: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String(), nil
}
