package state

import (
	"context"
	"os"

	"github.com/silene/opam/pkg/model"
)

// BuildPath returns the build tree of nv as a real OS path, suitable
// as a subprocess working directory. Build trees bypass the afero
// abstraction: scripts and tar need to see actual files.
func (r *Root) BuildPath(nv model.NV) string {
	return r.Join(model.GetBuildPath(nv))
}

// ClearBuild wipes and recreates the build tree for nv.
func (r *Root) ClearBuild(ctx context.Context, nv model.NV) error {
	dir := r.BuildPath(nv)
	if err := r.fs.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		return err
	}
	return r.fs.MkdirAll(dir, 0755)
}
