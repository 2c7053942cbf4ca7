// Package state owns the persistent client root: the config and
// installed files, the per-package spec index, to_install manifests,
// publication keys, build trees and the action journal.
//
// The package performs no network I/O. All paths are anchored on an
// Environment's base directory and go through its afero filesystem,
// except build trees, which are handed to subprocesses as real OS
// paths.
package state
