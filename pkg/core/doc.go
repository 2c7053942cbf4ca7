// Copyright © 2019 One Concern

// Package core implements the client coordinator: the workflows that
// turn a user intent (install, remove, upgrade, update, publish,
// query) into solver requests, remote traffic and mutations of the
// local installation tree.
//
// The coordinator is deliberately single-threaded and synchronous:
// every operation runs to completion before returning, and the only
// suspension points are external I/O (disk, subprocesses, remotes).
// All durable state lives in the client root managed by pkg/state;
// the Client value itself holds nothing but the configured remotes
// and a handle on that root.
package core
