package state

import (
	"context"
	"os"
	"strings"

	"github.com/silene/opam/pkg/model"
	"github.com/silene/opam/pkg/state/status"
	"github.com/spf13/afero"
)

// Key reads the republication key for a package name.
func (r *Root) Key(ctx context.Context, name string) (string, error) {
	b, err := afero.ReadFile(r.fs, r.Join(model.GetKeyPath(name)))
	if err != nil {
		if os.IsNotExist(err) {
			return "", status.ErrNotFound
		}
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// HasKey tells whether this client ever published name.
func (r *Root) HasKey(ctx context.Context, name string) (bool, error) {
	return afero.Exists(r.fs, r.Join(model.GetKeyPath(name)))
}

// PutKey stores a key, once. A key already on disk is left untouched
// so that the credential obtained on first publish stays stable.
func (r *Root) PutKey(ctx context.Context, name, key string) error {
	ok, err := r.HasKey(ctx, name)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return r.writeAtomic(model.GetKeyPath(name), []byte(key+"\n"))
}
