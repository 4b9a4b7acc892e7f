package repo

import (
	"fmt"
	"strings"
	"time"

	"github.com/zjrosen/splice/internal/graph"
)

// FileStatusKind is the kind of change recorded for a path.
type FileStatusKind int

const (
	StatusUntracked FileStatusKind = iota
	StatusModified
	StatusDeleted
	StatusRenamed
	StatusTypechange
	StatusConflicted
)

func (k FileStatusKind) String() string {
	switch k {
	case StatusUntracked:
		return "untracked"
	case StatusModified:
		return "modified"
	case StatusDeleted:
		return "deleted"
	case StatusRenamed:
		return "renamed"
	case StatusTypechange:
		return "typechange"
	case StatusConflicted:
		return "conflicted"
	}
	return "unknown"
}

// StagingState says whether an entry describes the index or the working tree.
type StagingState int

const (
	Unstaged StagingState = iota
	Staged
)

func (s StagingState) String() string {
	if s == Staged {
		return "staged"
	}
	return "unstaged"
}

// FileStatus is one entry in a status listing. A path changed both in the
// index and the working tree appears twice.
type FileStatus struct {
	Path    string         `json:"path"`
	Kind    FileStatusKind `json:"kind"`
	Staging StagingState   `json:"staging"`
}

// RepoStatus is the full working-tree status.
type RepoStatus struct {
	Branch string         `json:"branch"`
	Files  []FileStatus   `json:"files"`
	State  OperationState `json:"state"`
}

// DiffOptions selects which diff to compute. A ContextLines of zero or less
// uses the repository default, the context that hunk identifiers for
// StageHunk and friends are resolved against.
type DiffOptions struct {
	Staged           bool
	ContextLines     int
	IncludeUntracked bool
	WordDiff         bool
}

// DefaultDiffOptions returns unstaged diff options with three context lines.
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{ContextLines: 3, WordDiff: true}
}

// BranchInfo describes a local or remote-tracking branch.
type BranchInfo struct {
	Name       string `json:"name"`
	IsHead     bool   `json:"is_head"`
	IsRemote   bool   `json:"is_remote"`
	RemoteName string `json:"remote_name,omitempty"`
	Upstream   string `json:"upstream,omitempty"`
	Ahead      int    `json:"ahead"`
	Behind     int    `json:"behind"`
}

// RemoteInfo is a configured remote.
type RemoteInfo struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	PushURL  string `json:"push_url,omitempty"`
	Branches int    `json:"branches"` // Remote-tracking branches known locally
}

// FetchResult summarizes a fetch.
type FetchResult struct {
	Remote    string `json:"remote"`
	UpToDate  bool   `json:"up_to_date"`
	RefsAfter int    `json:"refs_after"`
}

// PushResult summarizes a push.
type PushResult struct {
	Remote      string `json:"remote"`
	Branch      string `json:"branch"`
	UpToDate    bool   `json:"up_to_date"`
	SetUpstream bool   `json:"set_upstream"`
}

// CommitRefKind classifies a ref pointing at a commit.
type CommitRefKind int

const (
	RefHead CommitRefKind = iota
	RefLocalBranch
	RefRemoteBranch
	RefTag
)

func (k CommitRefKind) String() string {
	switch k {
	case RefHead:
		return "head"
	case RefLocalBranch:
		return "branch"
	case RefRemoteBranch:
		return "remote"
	case RefTag:
		return "tag"
	}
	return "unknown"
}

// CommitRef is a decoration shown next to a commit.
type CommitRef struct {
	Name string        `json:"name"`
	Kind CommitRefKind `json:"kind"`
}

// CommitInfo is the summary of one commit.
type CommitInfo struct {
	OID         string      `json:"oid"`
	ShortOID    string      `json:"short_oid"`
	Message     string      `json:"message"` // First line
	Body        string      `json:"body,omitempty"`
	AuthorName  string      `json:"author_name"`
	AuthorEmail string      `json:"author_email"`
	AuthorDate  time.Time   `json:"author_date"`
	ParentOIDs  []string    `json:"parent_oids"`
	Refs        []CommitRef `json:"refs,omitempty"`
}

// FileChangeStatus is how a commit touched a file.
type FileChangeStatus int

const (
	ChangeAdded FileChangeStatus = iota
	ChangeModified
	ChangeDeleted
	ChangeRenamed
)

func (s FileChangeStatus) String() string {
	switch s {
	case ChangeAdded:
		return "added"
	case ChangeModified:
		return "modified"
	case ChangeDeleted:
		return "deleted"
	case ChangeRenamed:
		return "renamed"
	}
	return "unknown"
}

// CommitFile is one file touched by a commit.
type CommitFile struct {
	Path      string           `json:"path"`
	OldPath   string           `json:"old_path,omitempty"`
	Status    FileChangeStatus `json:"status"`
	Additions int              `json:"additions"`
	Deletions int              `json:"deletions"`
}

// CommitStats totals a commit's changes.
type CommitStats struct {
	FilesChanged int `json:"files_changed"`
	Additions    int `json:"additions"`
	Deletions    int `json:"deletions"`
}

// CommitDetail is a commit with its changed files, relative to its first parent.
type CommitDetail struct {
	Info  CommitInfo   `json:"info"`
	Files []CommitFile `json:"files"`
	Stats CommitStats  `json:"stats"`
}

// LogFilter narrows a commit log. Zero values match everything.
type LogFilter struct {
	Author  string // Case-insensitive substring of the author name
	Since   int64  // Unix seconds, inclusive
	Until   int64  // Unix seconds, inclusive
	Message string // Case-insensitive substring of the full message
	Path    string // Only commits touching this path
}

// CommitLogResult is a page of commits with their graph rows.
type CommitLogResult struct {
	Commits []CommitInfo `json:"commits"`
	Graph   []graph.Row  `json:"graph"`
}

// BlameLine attributes one line of a file.
type BlameLine struct {
	LineNumber   int       `json:"line_number"`
	Content      string    `json:"content"`
	CommitOID    string    `json:"commit_oid"`
	ShortOID     string    `json:"short_oid"`
	AuthorName   string    `json:"author_name"`
	AuthorDate   time.Time `json:"author_date"`
	IsBlockStart bool      `json:"is_block_start"` // First line of a run from the same commit
}

// BlameResult is the blame of a file at a commit.
type BlameResult struct {
	Path  string      `json:"path"`
	OID   string      `json:"oid"`
	Lines []BlameLine `json:"lines"`
}

// StashEntry is one stash.
type StashEntry struct {
	Index      int       `json:"index"`
	Message    string    `json:"message"`
	BranchName string    `json:"branch_name,omitempty"`
	OID        string    `json:"oid"`
	AuthorDate time.Time `json:"author_date"`
}

// TagInfo describes a tag. Tagger fields are set for annotated tags only.
type TagInfo struct {
	Name           string    `json:"name"`
	TargetOID      string    `json:"target_oid"`
	TargetShortOID string    `json:"target_short_oid"`
	IsAnnotated    bool      `json:"is_annotated"`
	TaggerName     string    `json:"tagger_name,omitempty"`
	TaggerDate     time.Time `json:"tagger_date,omitempty"`
	Message        string    `json:"message,omitempty"`
}

// MergeOption is the fast-forward policy of a merge.
type MergeOption int

const (
	MergeDefault MergeOption = iota
	NoFastForward
	FastForwardOnly
)

func (o MergeOption) String() string {
	switch o {
	case NoFastForward:
		return "no-ff"
	case FastForwardOnly:
		return "ff-only"
	}
	return "default"
}

// MergeKind is the outcome of a merge.
type MergeKind int

const (
	MergeFastForward MergeKind = iota
	MergeNormal
	MergeRebase
	MergeUpToDate
	MergeConflict
)

func (k MergeKind) String() string {
	switch k {
	case MergeFastForward:
		return "fast-forward"
	case MergeNormal:
		return "normal"
	case MergeRebase:
		return "rebase"
	case MergeUpToDate:
		return "up-to-date"
	case MergeConflict:
		return "conflict"
	}
	return "unknown"
}

// MergeResult describes a merge or pull. OID is empty for UpToDate and Conflict.
type MergeResult struct {
	Kind      MergeKind `json:"kind"`
	OID       string    `json:"oid,omitempty"`
	Conflicts []string  `json:"conflicts,omitempty"`
}

// PullOption chooses how fetched changes are integrated.
type PullOption int

const (
	PullMerge PullOption = iota
	PullRebase
)

// CommitResult is the commit created by an operation.
type CommitResult struct {
	OID string `json:"oid"`
}

// ResetResult is the commit HEAD points at after a reset.
type ResetResult struct {
	OID string `json:"oid"`
}

// RebaseResult describes a rebase attempt.
type RebaseResult struct {
	Completed bool     `json:"completed"`
	Conflicts []string `json:"conflicts,omitempty"`
}

// RebaseAction is a todo-list verb.
type RebaseAction int

const (
	ActionPick RebaseAction = iota
	ActionReword
	ActionEdit
	ActionSquash
	ActionFixup
	ActionDrop
)

func (a RebaseAction) String() string {
	switch a {
	case ActionReword:
		return "reword"
	case ActionEdit:
		return "edit"
	case ActionSquash:
		return "squash"
	case ActionFixup:
		return "fixup"
	case ActionDrop:
		return "drop"
	}
	return "pick"
}

// ParseRebaseAction accepts a todo verb or its one-letter abbreviation.
func ParseRebaseAction(s string) (RebaseAction, error) {
	switch strings.ToLower(s) {
	case "pick", "p":
		return ActionPick, nil
	case "reword", "r":
		return ActionReword, nil
	case "edit", "e":
		return ActionEdit, nil
	case "squash", "s":
		return ActionSquash, nil
	case "fixup", "f":
		return ActionFixup, nil
	case "drop", "d":
		return ActionDrop, nil
	}
	return 0, fmt.Errorf("unknown rebase action %q", s)
}

// RebaseTodoEntry is one line of an interactive rebase todo list.
type RebaseTodoEntry struct {
	Action     RebaseAction `json:"action"`
	OID        string       `json:"oid"`
	ShortOID   string       `json:"short_oid"`
	Message    string       `json:"message"`
	AuthorName string       `json:"author_name"`
}

// RebaseState describes an in-progress rebase.
type RebaseState struct {
	OntoBranch   string `json:"onto_branch"`
	OntoOID      string `json:"onto_oid"`
	CurrentStep  int    `json:"current_step"`
	TotalSteps   int    `json:"total_steps"`
	HasConflicts bool   `json:"has_conflicts"`
}

// CherryPickMode controls how a cherry-pick records its result.
type CherryPickMode int

const (
	CherryPickNormal CherryPickMode = iota
	CherryPickNoCommit
	CherryPickMerge // Picks merge commits relative to their first parent
)

// CherryPickResult describes a cherry-pick attempt. OID is set when a commit was made.
type CherryPickResult struct {
	Completed bool     `json:"completed"`
	Conflicts []string `json:"conflicts,omitempty"`
	OID       string   `json:"oid,omitempty"`
}

// RevertMode controls how a revert records its result.
type RevertMode int

const (
	RevertAuto RevertMode = iota
	RevertNoCommit
	RevertEdit // Commits with a message the caller edits later via amend
)

// RevertResult describes a revert attempt.
type RevertResult struct {
	Completed bool     `json:"completed"`
	Conflicts []string `json:"conflicts,omitempty"`
	OID       string   `json:"oid,omitempty"`
}

// ResetMode mirrors git reset's modes.
type ResetMode int

const (
	ResetSoft ResetMode = iota
	ResetMixed
	ResetHard
)

func (m ResetMode) String() string {
	switch m {
	case ResetSoft:
		return "soft"
	case ResetHard:
		return "hard"
	}
	return "mixed"
}

// ReflogEntry is one reflog record, newest first.
type ReflogEntry struct {
	Index         int       `json:"index"`
	OID           string    `json:"oid"`
	OldOID        string    `json:"old_oid"`
	Message       string    `json:"message"`
	CommitterName string    `json:"committer_name"`
	Date          time.Time `json:"date"`
}

// MergeBaseContent is the three index stages of a conflicted path. A missing
// stage (added on one side only) is nil.
type MergeBaseContent struct {
	Path   string  `json:"path"`
	Base   *string `json:"base,omitempty"`
	Ours   *string `json:"ours,omitempty"`
	Theirs *string `json:"theirs,omitempty"`
}

// OperationKind names the multi-step operation in progress.
type OperationKind int

const (
	OpIdle OperationKind = iota
	OpMerging
	OpRebasing
	OpCherryPicking
	OpReverting
)

func (k OperationKind) String() string {
	switch k {
	case OpMerging:
		return "merging"
	case OpRebasing:
		return "rebasing"
	case OpCherryPicking:
		return "cherry-picking"
	case OpReverting:
		return "reverting"
	}
	return "idle"
}

// OperationState is the state machine position shared by merge, rebase,
// cherry-pick and revert.
type OperationState struct {
	Kind         OperationKind `json:"kind"`
	HasConflicts bool          `json:"has_conflicts"`
}

// InProgress reports whether an operation awaits continue or abort.
func (s OperationState) InProgress() bool { return s.Kind != OpIdle }

// ContentMatch is one line found by a content search.
type ContentMatch struct {
	Path       string `json:"path"`
	LineNumber int    `json:"line_number"`
	Line       string `json:"line"`
}

// CommitMatch is a commit found by message or pickaxe search.
type CommitMatch struct {
	OID        string    `json:"oid"`
	ShortOID   string    `json:"short_oid"`
	Message    string    `json:"message"`
	AuthorName string    `json:"author_name"`
	AuthorDate time.Time `json:"author_date"`
}
