package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/splice/internal/conflict"
	"github.com/zjrosen/splice/internal/diff"
	"github.com/zjrosen/splice/internal/git"
)

func TestWrapClassifies(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"operation in progress", fmt.Errorf("%w: merging", ErrOperationInProgress), KindPrecondition},
		{"unresolved", ErrUnresolvedConflicts, KindPrecondition},
		{"fast-forward", ErrFastForwardImpossible, KindPrecondition},
		{"branch missing", ErrBranchNotFound, KindNotFound},
		{"reference missing", plumbing.ErrReferenceNotFound, KindNotFound},
		{"hunk missing", fmt.Errorf("%w: -1,2 +1,3", diff.ErrHunkNotFound), KindNotFound},
		{"block out of range", conflict.ErrBlockOutOfRange, KindNotFound},
		{"malformed diff", diff.ErrMalformedDiff, KindParse},
		{"malformed markers", conflict.ErrMalformedMarkers, KindParse},
		{"process", &git.ProcessError{Args: []string{"merge"}, ExitCode: 128, Stderr: "fatal: boom"}, KindProcess},
		{"process with sentinel", &git.ProcessError{Args: []string{"stash"}, ExitCode: 1, Err: git.ErrNoStash}, KindNotFound},
		{"io", ioErr("a.txt", fs.ErrPermission), KindIO},
		{"other", errors.New("surprise"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrap("op", tt.err)
			require.Equal(t, tt.want, KindOf(err))
			require.ErrorIs(t, err, tt.err)

			var re *Error
			require.ErrorAs(t, err, &re)
			require.Equal(t, "op", re.Op)
		})
	}
}

func TestWrapKeepsExistingError(t *testing.T) {
	inner := &Error{Kind: KindNotFound, Op: "open", Err: errors.New("nope")}
	outer := fmt.Errorf("context: %w", inner)
	err := wrap("later", outer)
	require.Equal(t, outer, err)
	require.Equal(t, KindNotFound, KindOf(err))
	require.Nil(t, wrap("op", nil))
}

func TestErrorMessage(t *testing.T) {
	err := wrap("merge_branch", ErrOperationInProgress)
	require.Equal(t, "merge_branch: precondition failed: another operation is in progress", err.Error())
	require.Equal(t, "precondition failed", err.(*Error).KindName())
	require.Equal(t, KindInternal, KindOf(errors.New("plain")))
}
