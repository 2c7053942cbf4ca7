package state

import (
	"context"
	"os"

	"github.com/silene/opam/pkg/model"
	"github.com/silene/opam/pkg/state/status"
	"github.com/spf13/afero"
)

// ToInstall reads the recorded install manifest for nv. The head
// forms share one manifest, like they share one spec: the artifacts on
// disk are the same whatever the sync state says.
func (r *Root) ToInstall(ctx context.Context, nv model.NV) (*model.Install, error) {
	b, err := afero.ReadFile(r.fs, r.Join(model.GetToInstallPath(specNV(nv))))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, status.ErrNotFound
		}
		return nil, err
	}
	return model.UnmarshalInstall(b)
}

// PutToInstall records the manifest consumed later by removal.
func (r *Root) PutToInstall(ctx context.Context, nv model.NV, manifest *model.Install) error {
	b, err := model.MarshalInstall(manifest)
	if err != nil {
		return err
	}
	return r.writeAtomic(model.GetToInstallPath(specNV(nv)), b)
}

// DeleteToInstall drops the manifest once its package is removed.
func (r *Root) DeleteToInstall(ctx context.Context, nv model.NV) error {
	err := r.fs.Remove(r.Join(model.GetToInstallPath(specNV(nv))))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
