package repo

import (
	"context"

	"github.com/zjrosen/splice/internal/conflict"
	"github.com/zjrosen/splice/internal/diff"
	"github.com/zjrosen/splice/internal/pubsub"
)

// Backend is the full set of repository operations. Every method is
// serialized against the others on the same repository.
type Backend interface {
	Workdir() string
	Subscribe(ctx context.Context) <-chan pubsub.Event[Change]

	// Working tree and index
	Status(ctx context.Context) (RepoStatus, error)
	CurrentBranch(ctx context.Context) (string, error)
	HeadCommitMessage(ctx context.Context) (string, error)
	Diff(ctx context.Context, path string, opts DiffOptions) ([]diff.FileDiff, error)
	Stage(ctx context.Context, paths ...string) error
	StageAll(ctx context.Context) error
	Unstage(ctx context.Context, paths ...string) error
	UnstageAll(ctx context.Context) error
	StageHunk(ctx context.Context, path string, id diff.HunkIdentifier) error
	UnstageHunk(ctx context.Context, path string, id diff.HunkIdentifier) error
	DiscardHunk(ctx context.Context, path string, id diff.HunkIdentifier) error
	StageLines(ctx context.Context, path string, lines diff.LineRange) error
	UnstageLines(ctx context.Context, path string, lines diff.LineRange) error
	DiscardLines(ctx context.Context, path string, lines diff.LineRange) error
	Commit(ctx context.Context, message string, amend bool) (CommitResult, error)

	// Branches and remotes
	ListBranches(ctx context.Context) ([]BranchInfo, error)
	CreateBranch(ctx context.Context, name string) error
	CheckoutBranch(ctx context.Context, name string) error
	DeleteBranch(ctx context.Context, name string) error
	RenameBranch(ctx context.Context, oldName, newName string) error
	BranchCommits(ctx context.Context, name string, limit int) ([]CommitInfo, error)
	Fetch(ctx context.Context, remote string) (FetchResult, error)
	Pull(ctx context.Context, remote string, option PullOption) (MergeResult, error)
	Push(ctx context.Context, remote string) (PushResult, error)
	ListRemotes(ctx context.Context) ([]RemoteInfo, error)
	AddRemote(ctx context.Context, name, url string) error
	RemoveRemote(ctx context.Context, name string) error
	EditRemote(ctx context.Context, name, url string) error

	// History
	CommitLog(ctx context.Context, filter LogFilter, limit, skip int) (CommitLogResult, error)
	CommitDetail(ctx context.Context, oid string) (CommitDetail, error)
	CommitFileDiff(ctx context.Context, oid, path string) (diff.FileDiff, error)
	Blame(ctx context.Context, path, rev string) (BlameResult, error)
	FileHistory(ctx context.Context, path string, limit, skip int) ([]CommitInfo, error)
	Reflog(ctx context.Context, ref string, limit int) ([]ReflogEntry, error)

	// Stashes and tags
	StashSave(ctx context.Context, message string) error
	StashList(ctx context.Context) ([]StashEntry, error)
	StashApply(ctx context.Context, index int) error
	StashPop(ctx context.Context, index int) error
	StashDrop(ctx context.Context, index int) error
	StashDiff(ctx context.Context, index int) ([]diff.FileDiff, error)
	ListTags(ctx context.Context) ([]TagInfo, error)
	CreateTag(ctx context.Context, name, message string) error
	DeleteTag(ctx context.Context, name string) error
	CheckoutTag(ctx context.Context, name string) error

	// Merge
	MergeBranch(ctx context.Context, name string, option MergeOption) (MergeResult, error)
	ContinueMerge(ctx context.Context, message string) (CommitResult, error)
	AbortMerge(ctx context.Context) error
	IsMerging(ctx context.Context) (bool, error)

	// Conflicts
	ConflictFiles(ctx context.Context) ([]conflict.File, error)
	ResolveConflict(ctx context.Context, path string, res conflict.Resolution) error
	ResolveConflictBlock(ctx context.Context, path string, block int, res conflict.Resolution) error
	PreviewResolution(ctx context.Context, path string, block int, res conflict.Resolution) (diff.FileDiff, error)
	MarkResolved(ctx context.Context, path string) error
	MergeBaseContent(ctx context.Context, path string) (MergeBaseContent, error)

	// Rebase
	Rebase(ctx context.Context, onto string) (RebaseResult, error)
	InteractiveRebase(ctx context.Context, onto string, todo []RebaseTodoEntry) (RebaseResult, error)
	IsRebasing(ctx context.Context) (bool, error)
	AbortRebase(ctx context.Context) error
	ContinueRebase(ctx context.Context) (RebaseResult, error)
	RebaseState(ctx context.Context) (*RebaseState, error)
	RebaseTodo(ctx context.Context, onto string, limit int) ([]RebaseTodoEntry, error)

	// Cherry-pick and revert
	CherryPick(ctx context.Context, oids []string, mode CherryPickMode) (CherryPickResult, error)
	IsCherryPicking(ctx context.Context) (bool, error)
	AbortCherryPick(ctx context.Context) error
	ContinueCherryPick(ctx context.Context) (CherryPickResult, error)
	Revert(ctx context.Context, oid string, mode RevertMode) (RevertResult, error)
	IsReverting(ctx context.Context) (bool, error)
	AbortRevert(ctx context.Context) error
	ContinueRevert(ctx context.Context) (RevertResult, error)

	// Reset
	Reset(ctx context.Context, oid string, mode ResetMode) (ResetResult, error)
	ResetFile(ctx context.Context, path, oid string) error

	OperationState(ctx context.Context) (OperationState, error)

	// Search
	SearchContent(ctx context.Context, query string, regex bool) ([]ContentMatch, error)
	SearchCommits(ctx context.Context, query string, byDiff bool) ([]CommitMatch, error)
	SearchFiles(ctx context.Context, query string) ([]string, error)
}
