// Copyright © 2018 One Concern

// Package storage provides an interface to handle stored objects.
//
// The opam client keeps every durable artifact (package specs, source
// archives, publication keys) as plain objects in a K/V model; the
// only backend shipped here is the local file system, but the local
// mirror and the index daemon are written against the interface.
package storage
