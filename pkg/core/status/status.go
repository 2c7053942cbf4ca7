// Copyright © 2019 One Concern

// Package status exports errors produced by the core package.
package status

import (
	"github.com/silene/opam/pkg/errors"
)

var (
	// ErrUnknownPackage indicates that a package name cannot be located in the index
	ErrUnknownPackage = errors.New("unknown package")

	// ErrInvalidNV indicates a malformed name-version argument
	ErrInvalidNV = errors.New("invalid package name-version")

	// ErrBuildFailed indicates that a build command exited with a non-zero status
	ErrBuildFailed = errors.New("build failed")

	// ErrInvalidBinPattern indicates that a bin source pattern did not resolve to exactly one file
	ErrInvalidBinPattern = errors.New("bin pattern must match exactly one file")

	// ErrInvalidProgramName indicates that a bin destination is not a plain program name
	ErrInvalidProgramName = errors.New("invalid program name")

	// ErrMixedPatches indicates a spec mixing local and external patches at publication time
	ErrMixedPatches = errors.New("cannot mix local and external patches")

	// ErrNoLocation indicates a spec with no upstream location and no archive to publish
	ErrNoLocation = errors.New("no location specified for package sources")

	// ErrKeyMismatch indicates that remotes issued conflicting keys for a first publication
	ErrKeyMismatch = errors.New("remotes disagree on the republication key")

	// ErrDuplicateRemote indicates an attempt to register an already configured remote
	ErrDuplicateRemote = errors.New("remote already configured")

	// ErrNoSolution indicates that the solver found no way to satisfy a request
	ErrNoSolution = errors.New("no solution found")
)
