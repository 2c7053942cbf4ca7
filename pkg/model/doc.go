// Package model describes the data model of the opam client:
// package identities (name, version), remote repository locations,
// package specs, install manifests, the client configuration, and the
// path algebra over the client root directory.
//
// The descriptors in this package know how to read and write
// themselves, so that every on-disk format is owned here and the rest
// of the code only deals with typed values.
package model
