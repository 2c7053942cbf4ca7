package state

import (
	"context"
	"os"

	"github.com/silene/opam/pkg/model"
	"github.com/silene/opam/pkg/state/status"
	"github.com/spf13/afero"
)

// Archive reads the cached source tarball for nv out of archives/.
func (r *Root) Archive(ctx context.Context, nv model.NV) ([]byte, error) {
	b, err := afero.ReadFile(r.fs, r.Join(model.GetArchivePath(nv)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, status.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// PutArchive caches a source tarball under archives/, so later builds
// and the local mirror can serve it without contacting any remote.
func (r *Root) PutArchive(ctx context.Context, nv model.NV, b []byte) error {
	return r.writeAtomic(model.GetArchivePath(nv), b)
}

// ArchiveSize reports the size of the cached tarball, when present.
func (r *Root) ArchiveSize(ctx context.Context, nv model.NV) (int64, bool) {
	fi, err := r.fs.Stat(r.Join(model.GetArchivePath(nv)))
	if err != nil {
		return 0, false
	}
	return fi.Size(), true
}
