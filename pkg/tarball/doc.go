// Package tarball deals with package source archives: fetching the
// URL and patch list of a spec, extracting tar.gz payloads, repacking
// a source tree, and applying patches.
//
// Everything here works on real OS paths. Build trees are handed to
// subprocesses (build scripts, patch), so they cannot live behind a
// filesystem abstraction.
package tarball
