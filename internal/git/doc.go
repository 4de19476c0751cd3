// Package git provides the version-control backing for the merge engine.
//
// Working-tree mutations (clone, fetch, checkout, merge, cherry-pick, reset)
// shell out to git through a context-aware CommandRunner, while reference and
// object plumbing (marker references, branch heads, commit validation) goes
// through go-git. Network operations accept an optional Credential that
// selects an SSH wrapper per command instead of mutating process-wide state.
//
// This package should be the only place where git is invoked directly.
package git
