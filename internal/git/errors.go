package git

import "github.com/cockroachdb/errors"

// Error types for git operations.
var (
	// ErrNotRepository indicates the path is not a git repository.
	ErrNotRepository = errors.New("not a git repository")

	// ErrRepositoryNotFound indicates no repository was found.
	ErrRepositoryNotFound = errors.New("repository not found")

	// ErrManagerClosed indicates the manager has been closed.
	ErrManagerClosed = errors.New("manager closed")

	// ErrCommandTimeout indicates a git command exceeded its time limit.
	ErrCommandTimeout = errors.New("git command timed out")

	// ErrGitNotFound indicates the git binary could not be located.
	ErrGitNotFound = errors.New("git binary not found")

	// ErrInvalidArgument indicates a command argument was rejected before execution.
	ErrInvalidArgument = errors.New("invalid command argument")

	// ErrEmptyPath indicates an operation was given an empty path.
	ErrEmptyPath = errors.New("empty path")

	// ErrUnknownResetKind indicates an unrecognised reset mode.
	ErrUnknownResetKind = errors.New("unknown reset kind")

	// ErrUnknownScanner indicates an unrecognised status scanner name.
	ErrUnknownScanner = errors.New("unknown status scanner")
)
