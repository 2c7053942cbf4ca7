package state

import (
	"context"
	"os"

	"github.com/silene/opam/pkg/model"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

// Installed reads the name to version mapping of installed packages.
// A missing file reads as an empty mapping, so queries work on a root
// where no install ever ran.
func (r *Root) Installed(ctx context.Context) (map[string]model.Version, error) {
	b, err := afero.ReadFile(r.fs, r.Join(model.GetInstalledPath()))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]model.Version{}, nil
		}
		return nil, err
	}
	installed := map[string]model.Version{}
	if err := yaml.Unmarshal(b, &installed); err != nil {
		return nil, err
	}
	return installed, nil
}

// SaveInstalled rewrites the installed mapping atomically. This is
// the single source of truth for installed state: a crash either
// preserves the previous mapping or reflects the completed action.
func (r *Root) SaveInstalled(ctx context.Context, installed map[string]model.Version) error {
	b, err := yaml.Marshal(installed)
	if err != nil {
		return err
	}
	return r.writeAtomic(model.GetInstalledPath(), b)
}

// InstalledVersion resolves the installed version of one name.
func (r *Root) InstalledVersion(ctx context.Context, name string) (model.Version, bool, error) {
	installed, err := r.Installed(ctx)
	if err != nil {
		return "", false, err
	}
	v, ok := installed[name]
	return v, ok, nil
}
