package state

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/silene/opam/pkg/errors"
	"github.com/silene/opam/pkg/model"
	"github.com/silene/opam/pkg/state/status"
	"github.com/spf13/afero"
)

// specNV maps every head form onto the up-to-date one: the three
// states share a single spec file named after the plain head version.
func specNV(nv model.NV) model.NV {
	if nv.Version.IsHead() {
		nv.Version = model.Head(model.HeadUpToDate)
	}
	return nv
}

// findSpec resolves the root-relative path of the spec for nv. Specs
// fetched from server remotes sit directly under index/; specs owned
// by a git remote live wherever the cloned tree keeps them, so a miss
// on the direct path falls back to a scan.
func (r *Root) findSpec(nv model.NV) (string, error) {
	nv = specNV(nv)
	direct := model.GetSpecPath(nv)
	if ok, err := afero.Exists(r.fs, r.Join(direct)); err != nil {
		return "", err
	} else if ok {
		return direct, nil
	}
	want := model.SpecFileName(nv)
	found := ""
	err := r.walkIndex(func(rel string) {
		if found == "" && filepath.Base(rel) == want {
			found = rel
		}
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", status.ErrNotFound
	}
	return found, nil
}

// walkIndex visits every file under index/, skipping the git clone's
// own bookkeeping, and reports paths relative to the root.
func (r *Root) walkIndex(visit func(rel string)) error {
	base := r.Join(model.GetIndexPath())
	err := afero.Walk(r.fs, base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, rerr := filepath.Rel(r.basePath, path)
		if rerr != nil {
			return rerr
		}
		visit(filepath.ToSlash(rel))
		return nil
	})
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// HasSpec tells whether the index holds a spec for nv.
func (r *Root) HasSpec(ctx context.Context, nv model.NV) (bool, error) {
	_, err := r.findSpec(nv)
	if errors.Is(err, status.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Spec reads and parses the indexed spec for nv. Parsed specs are
// kept in a small LRU so that list and info do not re-parse the whole
// index on every call.
func (r *Root) Spec(ctx context.Context, nv model.NV) (*model.Spec, error) {
	rel, err := r.findSpec(nv)
	if err != nil {
		return nil, err
	}
	if cached, ok := r.specCache.Get(rel); ok {
		return cached.(*model.Spec), nil
	}
	b, err := afero.ReadFile(r.fs, r.Join(rel))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, status.ErrNotFound
		}
		return nil, err
	}
	spec, err := model.UnmarshalSpec(b)
	if err != nil {
		return nil, err
	}
	r.specCache.Add(rel, spec)
	return spec, nil
}

// SpecBytes reads the raw spec file, as served to remotes.
func (r *Root) SpecBytes(ctx context.Context, nv model.NV) ([]byte, error) {
	rel, err := r.findSpec(nv)
	if err != nil {
		return nil, err
	}
	b, err := afero.ReadFile(r.fs, r.Join(rel))
	if err != nil && os.IsNotExist(err) {
		return nil, status.ErrNotFound
	}
	return b, err
}

// PutSpec lands spec bytes in the index atomically.
func (r *Root) PutSpec(ctx context.Context, nv model.NV, b []byte) error {
	rel := model.GetSpecPath(specNV(nv))
	if err := r.writeAtomic(rel, b); err != nil {
		return err
	}
	r.specCache.Remove(rel)
	return nil
}

// IndexNVs scans the index for every known package identity, sorted
// by name then version. The scan recurses so that specs committed in
// a git remote's tree are part of the universe; non-spec files (the
// clone's own content, bookkeeping files) are ignored.
func (r *Root) IndexNVs(ctx context.Context) (model.NVs, error) {
	seen := map[model.NV]struct{}{}
	var nvs model.NVs
	err := r.walkIndex(func(rel string) {
		nv, ok := model.NVFromSpecFile(rel)
		if !ok {
			return
		}
		if _, dup := seen[nv]; dup {
			return
		}
		seen[nv] = struct{}{}
		nvs = append(nvs, nv)
	})
	if err != nil {
		return nil, err
	}
	sort.Sort(nvs)
	return nvs, nil
}
