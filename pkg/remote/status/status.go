// Copyright © 2018 One Concern

// Package status declares error constants returned by the remote
// backends.
package status

import "github.com/silene/opam/pkg/errors"

var (
	// ErrNotFound indicates that the repository does not know the requested package
	ErrNotFound = errors.New("package not found on remote")

	// ErrNoArchive indicates that the repository holds no source archive for the package
	ErrNoArchive = errors.New("no archive on remote")

	// ErrUnreachable indicates that the repository could not be contacted
	ErrUnreachable = errors.New("remote unreachable")

	// ErrUnknownGitRepo indicates that the git remote could not be cloned
	ErrUnknownGitRepo = errors.New("unknown git repository")

	// ErrBadKey indicates that the repository rejected the republication key
	ErrBadKey = errors.New("republication key rejected")

	// ErrBadSpec indicates that the repository rejected the uploaded spec
	ErrBadSpec = errors.New("spec rejected by remote")

	// ErrNotSupported indicates that this backend cannot honor the call
	ErrNotSupported = errors.New("not supported by this remote")
)
