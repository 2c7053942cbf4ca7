// Copyright © 2018 One Concern

// Package status declares error constants returned by the state
// layer when the client root is missing pieces.
package status

import "github.com/silene/opam/pkg/errors"

var (
	// ErrConfigMissing indicates that the root holds no config file, i.e. init was never run
	ErrConfigMissing = errors.New("no config file found: did you run init?")

	// ErrAlreadyInitialized indicates that init found a pre-existing config file
	ErrAlreadyInitialized = errors.New("root is already initialized")

	// ErrNotFound indicates that the requested spec, manifest or key is not in the root
	ErrNotFound = errors.New("not found in client root")
)
