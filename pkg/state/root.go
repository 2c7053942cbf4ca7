package state

import (
	"context"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru"
	"github.com/silene/opam/pkg/model"
	"github.com/silene/opam/pkg/state/status"
	"github.com/silene/opam/pkg/storage"
	"github.com/silene/opam/pkg/storage/localfs"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const specCacheSize = 128

// Environment selects a client root. The zero value means the OS
// filesystem, a nop logger, and whatever BasePath the caller set.
type Environment struct {
	BasePath string
	Fs       afero.Fs
	Logger   *zap.Logger
}

// Root is a handle over one client root directory.
type Root struct {
	basePath  string
	fs        afero.Fs
	l         *zap.Logger
	specCache *lru.Cache
}

// New builds a Root from an environment. No disk access happens here.
func New(env Environment) *Root {
	fs := env.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	l := env.Logger
	if l == nil {
		l = zap.NewNop()
	}
	cache, _ := lru.New(specCacheSize)
	return &Root{
		basePath:  env.BasePath,
		fs:        fs,
		l:         l,
		specCache: cache,
	}
}

// Path returns the root directory.
func (r *Root) Path() string { return r.basePath }

// Join anchors a root-relative path on the base directory.
func (r *Root) Join(rel string) string {
	return filepath.Join(r.basePath, filepath.FromSlash(rel))
}

// Fs exposes the underlying filesystem, for callers that move
// artifacts in and out of the root.
func (r *Root) Fs() afero.Fs { return r.fs }

// Logger exposes the configured logger.
func (r *Root) Logger() *zap.Logger { return r.l }

// Store views the root as a K/V store, anchored on the base path.
// The local mirror and the index daemon are built on this view.
func (r *Root) Store() storage.Store {
	return localfs.New(afero.NewBasePathFs(r.fs, r.basePath))
}

// Initialized tells whether a config file is present.
func (r *Root) Initialized() (bool, error) {
	ok, err := afero.Exists(r.fs, r.Join(model.GetConfigPath()))
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Init materializes a fresh root: the top-level directories, the
// given config, and an empty installed set. A root holding a config
// already is refused.
func (r *Root) Init(ctx context.Context, cfg *model.Config) error {
	ok, err := r.Initialized()
	if err != nil {
		return err
	}
	if ok {
		return status.ErrAlreadyInitialized
	}
	for _, dir := range model.TopLevelDirs() {
		if err := r.fs.MkdirAll(r.Join(dir), 0755); err != nil {
			return err
		}
	}
	if err := r.SaveConfig(ctx, cfg); err != nil {
		return err
	}
	if err := r.SaveInstalled(ctx, map[string]model.Version{}); err != nil {
		return err
	}
	r.l.Info("initialized client root",
		zap.String("root", r.basePath),
		zap.Int("remotes", len(cfg.Remotes)))
	return nil
}

// Load reads the config. A leftover journal from an interrupted run
// is surfaced as a warning.
func (r *Root) Load(ctx context.Context) (*model.Config, error) {
	b, err := afero.ReadFile(r.fs, r.Join(model.GetConfigPath()))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, status.ErrConfigMissing
		}
		return nil, err
	}
	cfg, err := model.UnmarshalConfig(b)
	if err != nil {
		return nil, err
	}
	if pending, jerr := r.PendingJournal(ctx); jerr == nil && len(pending) > 0 {
		for _, e := range pending {
			r.l.Warn("interrupted action left in journal",
				zap.String("op", e.Op),
				zap.String("package", e.NV))
		}
	}
	return cfg, nil
}

// SaveConfig rewrites the config file atomically.
func (r *Root) SaveConfig(ctx context.Context, cfg *model.Config) error {
	if err := model.ValidateConfig(cfg); err != nil {
		return err
	}
	b, err := model.MarshalConfig(cfg)
	if err != nil {
		return err
	}
	return r.writeAtomic(model.GetConfigPath(), b)
}

// writeAtomic lands root-relative files with a write-temp-then-rename
// so readers never observe a partial file under the final name.
func (r *Root) writeAtomic(rel string, b []byte) error {
	target := r.Join(rel)
	if err := r.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	tmp := target + ".tmp"
	if err := afero.WriteFile(r.fs, tmp, b, 0644); err != nil {
		return err
	}
	return r.fs.Rename(tmp, target)
}
