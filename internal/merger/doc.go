// Package merger implements the speculative-merge engine.
//
// Given an ordered queue of proposed changes, possibly spanning several
// projects and branches and possibly stacked on one another, the engine
// computes a merged working state for each change in order and publishes it
// through marker references, without ever mutating the changes' real target
// branches. Processing is strictly sequential and fail-fast: later items may
// depend on the speculative output of earlier ones, and the engine never
// reports success for a partially applied or conflicted queue.
package merger
