// Package localindex serves packages straight out of a storage store.
//
// The same implementation backs two deployments: the in-process
// mirror kept under every client root, and the standalone daemon
// sitting behind the HTTP API. The daemon mints and verifies
// publication keys; the mirror never touches the keys area, which on
// a client root belongs to keys issued by real remotes.
package localindex

import (
	"context"
	"fmt"
	"strings"

	"github.com/segmentio/ksuid"
	"github.com/silene/opam/pkg/model"
	"github.com/silene/opam/pkg/remote/status"
	"github.com/silene/opam/pkg/storage"
	"go.uber.org/zap"
)

// Option modifies server settings.
type Option func(*Server)

// Logger sets a diagnostics logger.
func Logger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.l = l
		}
	}
}

// Keyed makes the server issue a publication key on the first upload
// of a package name and demand it back on every later one.
func Keyed() Option {
	return func(s *Server) {
		s.keyed = true
	}
}

// Server is a package repository over a storage.Store.
type Server struct {
	store storage.Store
	keyed bool
	l     *zap.Logger
}

// New builds a package server over the given store.
func New(store storage.Store, opts ...Option) *Server {
	s := &Server{store: store, l: zap.NewNop()}
	for _, apply := range opts {
		apply(s)
	}
	return s
}

func (s *Server) String() string {
	return "localindex@" + s.store.String()
}

// List enumerates the packages whose spec sits in the index area.
func (s *Server) List(ctx context.Context) (model.NVs, error) {
	keys, err := s.store.Keys(ctx)
	if err != nil {
		return nil, err
	}
	var nvs model.NVs
	for _, key := range keys {
		if !strings.HasPrefix(key, model.GetIndexPath()+"/") {
			continue
		}
		if nv, ok := model.NVFromSpecFile(key); ok {
			nvs = append(nvs, nv)
		}
	}
	nvs.Sort()
	return nvs, nil
}

// GetSpec fetches the raw spec for a package.
func (s *Server) GetSpec(ctx context.Context, nv model.NV) ([]byte, error) {
	b, err := storage.ReadAll(ctx, s.store, model.GetSpecPath(nv))
	if err != nil {
		return nil, status.ErrNotFound.Wrap(err)
	}
	return b, nil
}

// GetArchive fetches the source tarball for a package.
func (s *Server) GetArchive(ctx context.Context, nv model.NV) ([]byte, error) {
	b, err := storage.ReadAll(ctx, s.store, model.GetArchivePath(nv))
	if err != nil {
		return nil, status.ErrNoArchive.Wrap(err)
	}
	return b, nil
}

// NewArchive publishes a package for the first time. A keyed server
// returns a fresh key for the package name and refuses names that
// already have one; an unkeyed mirror stores the content and returns
// an empty key.
func (s *Server) NewArchive(ctx context.Context, nv model.NV, spec, archive []byte) (string, error) {
	if err := s.checkSpec(nv, spec); err != nil {
		return "", err
	}
	if !s.keyed {
		return "", s.put(ctx, nv, spec, archive)
	}
	keyPath := model.GetKeyPath(nv.Name)
	if ok, err := s.store.Has(ctx, keyPath); err != nil {
		return "", err
	} else if ok {
		return "", status.ErrBadKey.Wrap(fmt.Errorf("package %s is already keyed, republish with its key", nv.Name))
	}
	key := ksuid.New().String()
	if err := storage.WriteAll(ctx, s.store, keyPath, []byte(key+"\n")); err != nil {
		return "", err
	}
	if err := s.put(ctx, nv, spec, archive); err != nil {
		return "", err
	}
	s.l.Info("new package published",
		zap.Stringer("package", nv),
		zap.Bool("archive", len(archive) > 0),
	)
	return key, nil
}

// UpdateArchive republishes a package. A keyed server verifies the
// caller's key against the one issued by NewArchive.
func (s *Server) UpdateArchive(ctx context.Context, nv model.NV, spec, archive []byte, key string) error {
	if err := s.checkSpec(nv, spec); err != nil {
		return err
	}
	if s.keyed {
		stored, err := storage.ReadAll(ctx, s.store, model.GetKeyPath(nv.Name))
		if err != nil {
			return status.ErrBadKey.Wrap(fmt.Errorf("package %s has no publication key", nv.Name))
		}
		if strings.TrimSpace(string(stored)) != key {
			return status.ErrBadKey
		}
	}
	if err := s.put(ctx, nv, spec, archive); err != nil {
		return err
	}
	s.l.Info("package republished",
		zap.Stringer("package", nv),
		zap.Bool("archive", len(archive) > 0),
	)
	return nil
}

// checkSpec refuses uploads whose spec does not parse or does not
// describe the addressed package.
func (s *Server) checkSpec(nv model.NV, spec []byte) error {
	parsed, err := model.UnmarshalSpec(spec)
	if err != nil {
		return status.ErrBadSpec.Wrap(err)
	}
	if parsed.NV() != nv {
		return status.ErrBadSpec.Wrap(fmt.Errorf("spec describes %s, not %s", parsed.NV(), nv))
	}
	return nil
}

// put stores the spec, and the archive when one is attached. A
// spec-only upload leaves any previous archive in place.
func (s *Server) put(ctx context.Context, nv model.NV, spec, archive []byte) error {
	if err := storage.WriteAll(ctx, s.store, model.GetSpecPath(nv), spec); err != nil {
		return err
	}
	if len(archive) == 0 {
		return nil
	}
	return storage.WriteAll(ctx, s.store, model.GetArchivePath(nv), archive)
}
