// Package solver defines the dependency resolution contract consumed
// by the orchestration engine, and ships a deterministic default
// implementation.
//
// The contract is deliberately wide enough for a SAT-based resolver:
// Resolve returns an ordered list of candidate solutions, each a
// sequence of action batches. The default engine is simpler and
// returns at most one solution, with batches ordered by dependency
// depth.
package solver
