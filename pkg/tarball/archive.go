package tarball

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
)

// Extract unpacks a tar.gz stream into dir. When the archive wraps
// everything in a single top-level directory, that level is stripped,
// so callers always end up with the source tree directly under dir.
// Entries escaping dir are rejected.
func Extract(r io.Reader, dir string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("gzip.NewReader failed: %v", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		name := filepath.Clean(filepath.FromSlash(header.Name))
		if name == "." || strings.Contains(header.Name, "pax_global_header") {
			continue
		}
		target := filepath.Join(dir, name)
		if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(dir)+string(os.PathSeparator)) {
			return fmt.Errorf("invalid file path in archive: %q", header.Name)
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(header.Mode)|0700); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			if err := os.Symlink(header.Linkname, target); err != nil && !os.IsExist(err) {
				return err
			}
		default:
			// other entry types (devices, fifos) have no business in
			// a source archive
			continue
		}
	}
	return flattenSingleDir(dir)
}

// flattenSingleDir hoists the contents of a lone top-level directory
// up into dir.
func flattenSingleDir(dir string) error {
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		return err
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return nil
	}
	top := filepath.Join(dir, entries[0].Name())
	inner, err := ioutil.ReadDir(top)
	if err != nil {
		return err
	}
	for _, e := range inner {
		if err := os.Rename(filepath.Join(top, e.Name()), filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return os.Remove(top)
}

// Create packs the tree rooted at dir into a tar.gz stream. Entries
// are stored under prefix, the conventional name-version top level.
func Create(w io.Writer, dir, prefix string) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	err := godirwalk.Walk(dir, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path == dir {
				return nil
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			name := filepath.ToSlash(filepath.Join(prefix, rel))
			switch {
			case de.IsDir():
				return tw.WriteHeader(&tar.Header{
					Name:     name + "/",
					Typeflag: tar.TypeDir,
					Mode:     0755,
				})
			case de.IsSymlink():
				link, err := os.Readlink(path)
				if err != nil {
					return err
				}
				return tw.WriteHeader(&tar.Header{
					Name:     name,
					Typeflag: tar.TypeSymlink,
					Linkname: link,
					Mode:     0777,
				})
			default:
				info, err := os.Stat(path)
				if err != nil {
					return err
				}
				if err := tw.WriteHeader(&tar.Header{
					Name:     name,
					Typeflag: tar.TypeReg,
					Mode:     int64(info.Mode().Perm()),
					Size:     info.Size(),
				}); err != nil {
					return err
				}
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				_, err = io.Copy(tw, f)
				return err
			}
		},
		Unsorted: false,
	})
	if err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}
