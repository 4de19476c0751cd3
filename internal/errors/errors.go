// Package errors provides sentinel errors and custom error types for the mergeq engine.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	// ErrMergeConflict indicates that a merge or cherry-pick hit a content conflict.
	// Conflicts are expected and non-fatal to the system; they abort only the
	// current queue pass.
	ErrMergeConflict = errors.New("merge conflict")

	// ErrUnsupportedMergeMode indicates a queue item carried a merge mode the
	// engine does not know. This is a configuration error.
	ErrUnsupportedMergeMode = errors.New("unsupported merge mode")

	// ErrUnknownProject indicates a project was referenced before being
	// registered with a URL.
	ErrUnknownProject = errors.New("unknown project")

	// ErrTransient tags the narrow class of fetch failures that warrant a
	// single bounded retry.
	ErrTransient = errors.New("transient git failure")

	// ErrBranchNotFound indicates that a branch does not exist on the remote.
	ErrBranchNotFound = errors.New("branch not found")

	// ErrNotACommit indicates an attempt to point a marker reference at an
	// object that is not a commit.
	ErrNotACommit = errors.New("reference target is not a commit")

	// ErrEmptyQueue indicates MergeChanges was called with no items.
	ErrEmptyQueue = errors.New("empty change queue")
)

// MergeConflictError represents a conflict while applying a change onto its base.
type MergeConflictError struct {
	Project string
	Rev     string
	Message string
}

func (e *MergeConflictError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("conflict applying %s in %s: %s", e.Rev, e.Project, e.Message)
	}
	return fmt.Sprintf("conflict applying %s in %s", e.Rev, e.Project)
}

// Is returns true if the target error is ErrMergeConflict
func (e *MergeConflictError) Is(target error) bool {
	return target == ErrMergeConflict
}

// NewMergeConflictError creates a new MergeConflictError
func NewMergeConflictError(project, rev, message string) *MergeConflictError {
	return &MergeConflictError{Project: project, Rev: rev, Message: message}
}

// UnsupportedModeError represents a queue item with an unknown merge mode.
type UnsupportedModeError struct {
	Mode string
}

func (e *UnsupportedModeError) Error() string {
	return fmt.Sprintf("unsupported merge mode %q", e.Mode)
}

// Is returns true if the target error is ErrUnsupportedMergeMode
func (e *UnsupportedModeError) Is(target error) bool {
	return target == ErrUnsupportedMergeMode
}

// NewUnsupportedModeError creates a new UnsupportedModeError
func NewUnsupportedModeError(mode string) *UnsupportedModeError {
	return &UnsupportedModeError{Mode: mode}
}

// UnknownProjectError represents a lookup of a project that was never registered.
type UnknownProjectError struct {
	Project string
}

func (e *UnknownProjectError) Error() string {
	return fmt.Sprintf("unable to set up repo for project %s without a url", e.Project)
}

// Is returns true if the target error is ErrUnknownProject
func (e *UnknownProjectError) Is(target error) bool {
	return target == ErrUnknownProject
}

// NewUnknownProjectError creates a new UnknownProjectError
func NewUnknownProjectError(project string) *UnknownProjectError {
	return &UnknownProjectError{Project: project}
}

// TransientError tags an underlying error as belonging to the retryable
// transient class. The retry policy is bounded to a single attempt; a
// TransientError that survives the retry is treated as a genuine failure.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient git failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Is returns true if the target error is ErrTransient
func (e *TransientError) Is(target error) bool {
	return target == ErrTransient
}

// NewTransientError wraps err as a TransientError
func NewTransientError(err error) *TransientError {
	return &TransientError{Err: err}
}

// GitCommandError represents an error from a git command execution
type GitCommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *GitCommandError) Error() string {
	msg := fmt.Sprintf("git command failed: %s", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" %v", e.Args)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Stdout != "" {
		msg += fmt.Sprintf("\nstdout: %s", e.Stdout)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *GitCommandError) Unwrap() error {
	return e.Err
}

// NewGitCommandError creates a new GitCommandError
func NewGitCommandError(command string, args []string, stdout, stderr string, err error) *GitCommandError {
	return &GitCommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}
