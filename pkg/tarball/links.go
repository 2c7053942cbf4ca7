package tarball

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Links describes where package sources come from when no remote
// offers a prebuilt archive: source URLs plus a patch list.
type Links struct {
	URLs    []string
	Patches []string
}

// Empty tells whether the descriptor points at nothing at all.
func (l Links) Empty() bool {
	return len(l.URLs) == 0 && len(l.Patches) == 0
}

// IsLocal tells whether a reference is a plain path rather than a
// remote URL.
func IsLocal(ref string) bool {
	return !strings.Contains(ref, "://")
}

// SplitPatches partitions the patch list into local files and
// external references.
func (l Links) SplitPatches() (local, external []string) {
	for _, p := range l.Patches {
		if IsLocal(p) {
			local = append(local, p)
		} else {
			external = append(external, p)
		}
	}
	return local, external
}

// Fetch materializes the links into dir: each URL is downloaded (or
// read from disk), archives are extracted and plain files copied,
// then every patch is applied in order with patch -p1.
func Fetch(ctx context.Context, l Links, dir string, opts ...Option) error {
	settings := defaultSettings()
	for _, apply := range opts {
		apply(&settings)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, u := range l.URLs {
		if err := fetchOne(ctx, settings, u, dir); err != nil {
			return err
		}
	}
	for _, p := range l.Patches {
		local := p
		if !IsLocal(p) {
			tmp, err := download(ctx, settings, p, dir)
			if err != nil {
				return err
			}
			local = tmp
		}
		if err := Patch(ctx, dir, local); err != nil {
			return err
		}
	}
	return nil
}

func fetchOne(ctx context.Context, settings Settings, ref, dir string) error {
	settings.l.Debug("fetching source", zap.String("ref", ref), zap.String("dir", dir))
	if isArchive(ref) {
		reader, closer, err := open(ctx, settings, ref)
		if err != nil {
			return err
		}
		defer closer()
		return Extract(reader, dir)
	}
	_, err := download(ctx, settings, ref, dir)
	return err
}

func isArchive(ref string) bool {
	return strings.HasSuffix(ref, ".tar.gz") || strings.HasSuffix(ref, ".tgz")
}

// open yields a reader over a local path or a downloaded body.
func open(ctx context.Context, settings Settings, ref string) (io.Reader, func(), error) {
	if IsLocal(ref) {
		f, err := os.Open(ref)
		if err != nil {
			return nil, nil, err
		}
		return f, func() { f.Close() }, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := settings.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, nil, fmt.Errorf("download %s: status %d", ref, resp.StatusCode)
	}
	return resp.Body, func() { resp.Body.Close() }, nil
}

// download lands a reference as a file under dir, keeping its base
// name, and returns the resulting path.
func download(ctx context.Context, settings Settings, ref, dir string) (string, error) {
	reader, closer, err := open(ctx, settings, ref)
	if err != nil {
		return "", err
	}
	defer closer()
	target := filepath.Join(dir, filepath.Base(ref))
	f, err := os.Create(target)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		return "", err
	}
	return target, f.Close()
}
