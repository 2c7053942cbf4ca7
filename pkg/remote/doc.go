// Package remote defines the contract spoken with package
// repositories, and dispatches a configured remote URL to the
// matching backend implementation.
//
// Two backends exist: httpapi speaks the opam wire protocol against
// an index server, gitrepo drives a git clone of a package tree. The
// localindex subpackage implements the same contract over a storage
// store, serving both as the in-process local mirror and as the
// backend of the index daemon.
package remote
