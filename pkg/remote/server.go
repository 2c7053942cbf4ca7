package remote

import (
	"context"

	"github.com/silene/opam/pkg/model"
)

// Server is the package repository contract.
//
// GetArchive yields status.ErrNoArchive when the repository knows
// the package but holds no source archive for it. NewArchive returns
// the republication key issued by the repository; an empty key means
// the repository issues none.
type Server interface {
	String() string
	List(ctx context.Context) (model.NVs, error)
	GetSpec(ctx context.Context, nv model.NV) ([]byte, error)
	GetArchive(ctx context.Context, nv model.NV) ([]byte, error)
	NewArchive(ctx context.Context, nv model.NV, spec, archive []byte) (string, error)
	UpdateArchive(ctx context.Context, nv model.NV, spec, archive []byte, key string) error
}

// GitServer extends the contract with the operations update needs to
// maintain a local clone of a git-backed repository.
type GitServer interface {
	Server

	// Cloned tells whether the local checkout exists
	Cloned(ctx context.Context) (bool, error)
	// Clone creates the local checkout
	Clone(ctx context.Context) error
	// Updates lists the files changed on the remote since the last
	// pull, as paths relative to the checkout
	Updates(ctx context.Context) ([]string, error)
	// Pull advances the local checkout to the fetched remote tip
	Pull(ctx context.Context) error
}
