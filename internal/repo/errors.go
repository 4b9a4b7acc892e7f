package repo

import (
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/zjrosen/splice/internal/conflict"
	"github.com/zjrosen/splice/internal/diff"
	"github.com/zjrosen/splice/internal/git"
)

// Kind categorizes an orchestrator failure.
type Kind int

const (
	// KindInternal wraps an unexpected library error.
	KindInternal Kind = iota
	// KindNotFound covers missing repositories, commits, refs, remotes, hunks and stage entries.
	KindNotFound
	// KindPrecondition covers states the caller must fix first.
	KindPrecondition
	// KindProcess is a non-zero exit from the git executable.
	KindProcess
	// KindParse is malformed diff or conflict marker text.
	KindParse
	// KindIO is a file read or write failure.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindPrecondition:
		return "precondition failed"
	case KindProcess:
		return "git failed"
	case KindParse:
		return "parse error"
	case KindIO:
		return "io error"
	default:
		return "internal error"
	}
}

// Precondition and lookup failures raised by the orchestrator itself.
var (
	ErrOperationInProgress   = errors.New("another operation is in progress")
	ErrUnresolvedConflicts   = errors.New("unresolved conflicts remain")
	ErrFastForwardImpossible = errors.New("fast-forward not possible")
	ErrNoOperation           = errors.New("no operation in progress")
	ErrBranchExists          = errors.New("branch already exists")
	ErrBranchNotFound        = errors.New("branch not found")
	ErrCurrentBranch         = errors.New("cannot delete the checked out branch")
	ErrDetachedHead          = errors.New("HEAD is detached")
	ErrNoUpstream            = errors.New("branch has no upstream")
	ErrRemoteNotFound        = errors.New("remote not found")
	ErrRemoteExists          = errors.New("remote already exists")
	ErrTagExists             = errors.New("tag already exists")
	ErrTagNotFound           = errors.New("tag not found")
	ErrCommitNotFound        = errors.New("commit not found")
	ErrPathNotFound          = errors.New("path not found")
	ErrStageNotFound         = errors.New("stage entry not found")
	ErrEmptyMessage          = errors.New("commit message is empty")
	ErrNotConflicted         = errors.New("path is not conflicted")
	ErrNoIdentity            = errors.New("no commit identity configured")
)

// Error is the failure type returned by every Repo method.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindName is used by tracing to tag failed spans.
func (e *Error) KindName() string { return e.Kind.String() }

// KindOf returns the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return classify(err)
}

// wrap attaches op and a kind to err. An *Error passes through unchanged.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return err
	}
	return &Error{Kind: classify(err), Op: op, Err: err}
}

// classify maps known sentinels from this package and its collaborators to a kind.
func classify(err error) Kind {
	switch {
	case errors.Is(err, ErrOperationInProgress),
		errors.Is(err, ErrUnresolvedConflicts),
		errors.Is(err, ErrFastForwardImpossible),
		errors.Is(err, ErrNoOperation),
		errors.Is(err, ErrBranchExists),
		errors.Is(err, ErrCurrentBranch),
		errors.Is(err, ErrDetachedHead),
		errors.Is(err, ErrNoUpstream),
		errors.Is(err, ErrRemoteExists),
		errors.Is(err, ErrTagExists),
		errors.Is(err, ErrEmptyMessage),
		errors.Is(err, ErrNotConflicted),
		errors.Is(err, ErrNoIdentity),
		errors.Is(err, gogit.ErrBranchExists),
		errors.Is(err, gogit.ErrRemoteExists),
		errors.Is(err, gogit.ErrTagExists),
		errors.Is(err, gogit.ErrNonFastForwardUpdate),
		errors.Is(err, gogit.ErrWorktreeNotClean),
		errors.Is(err, gogit.ErrEmptyCommit),
		errors.Is(err, git.ErrLocalChanges),
		errors.Is(err, git.ErrNothingToCommit),
		errors.Is(err, git.ErrNoOperation):
		return KindPrecondition

	case errors.Is(err, ErrBranchNotFound),
		errors.Is(err, ErrRemoteNotFound),
		errors.Is(err, ErrTagNotFound),
		errors.Is(err, ErrCommitNotFound),
		errors.Is(err, ErrPathNotFound),
		errors.Is(err, ErrStageNotFound),
		errors.Is(err, diff.ErrHunkNotFound),
		errors.Is(err, gogit.ErrRepositoryNotExists),
		errors.Is(err, gogit.ErrRemoteNotFound),
		errors.Is(err, gogit.ErrTagNotFound),
		errors.Is(err, plumbing.ErrReferenceNotFound),
		errors.Is(err, plumbing.ErrObjectNotFound),
		errors.Is(err, object.ErrFileNotFound),
		errors.Is(err, git.ErrNotGitRepo),
		errors.Is(err, git.ErrUnknownRevision),
		errors.Is(err, git.ErrNoStash),
		errors.Is(err, conflict.ErrBlockOutOfRange):
		return KindNotFound

	case errors.Is(err, diff.ErrMalformedDiff),
		errors.Is(err, conflict.ErrMalformedMarkers):
		return KindParse
	}

	var pe *git.ProcessError
	if errors.As(err, &pe) {
		return KindProcess
	}
	var ioErr *ioError
	if errors.As(err, &ioErr) {
		return KindIO
	}
	return KindInternal
}

// ioError marks a working-tree or git-dir file failure.
type ioError struct {
	path string
	err  error
}

func (e *ioError) Error() string { return fmt.Sprintf("%s: %v", e.path, e.err) }
func (e *ioError) Unwrap() error { return e.err }

func ioErr(path string, err error) error {
	if err == nil {
		return nil
	}
	return &ioError{path: path, err: err}
}
