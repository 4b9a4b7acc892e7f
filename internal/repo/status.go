package repo

import (
	"context"
	"fmt"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Status lists changed paths in the index and the working tree.
func (r *Repo) Status(ctx context.Context) (RepoStatus, error) {
	return run(ctx, r, "status", nil, func(context.Context) (RepoStatus, error) {
		return r.status()
	})
}

func (r *Repo) status() (RepoStatus, error) {
	w, err := r.worktree()
	if err != nil {
		return RepoStatus{}, err
	}
	st, err := w.Status()
	if err != nil {
		return RepoStatus{}, fmt.Errorf("status: %w", err)
	}
	conflicts, err := r.conflictedPaths()
	if err != nil {
		return RepoStatus{}, err
	}
	conflicted := make(map[string]bool, len(conflicts))
	for _, p := range conflicts {
		conflicted[p] = true
	}

	var files []FileStatus
	for _, p := range conflicts {
		files = append(files, FileStatus{Path: p, Kind: StatusConflicted, Staging: Unstaged})
	}
	for path, fs := range st {
		if conflicted[path] {
			continue
		}
		if fs.Staging == gogit.Untracked || fs.Worktree == gogit.Untracked {
			files = append(files, FileStatus{Path: path, Kind: StatusUntracked, Staging: Unstaged})
			continue
		}
		if kind, ok := stagedKind(fs.Staging); ok {
			files = append(files, FileStatus{Path: path, Kind: kind, Staging: Staged})
		}
		if kind, ok := worktreeKind(fs.Worktree); ok {
			files = append(files, FileStatus{Path: path, Kind: kind, Staging: Unstaged})
		}
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Path != files[j].Path {
			return files[i].Path < files[j].Path
		}
		return files[i].Staging > files[j].Staging
	})

	state, err := r.operationState()
	if err != nil {
		return RepoStatus{}, err
	}
	return RepoStatus{Branch: r.currentBranch(), Files: files, State: state}, nil
}

// stagedKind maps an index status code. Newly added files report as
// untracked-but-staged.
func stagedKind(code gogit.StatusCode) (FileStatusKind, bool) {
	switch code {
	case gogit.Added:
		return StatusUntracked, true
	case gogit.Modified, gogit.Copied:
		return StatusModified, true
	case gogit.Deleted:
		return StatusDeleted, true
	case gogit.Renamed:
		return StatusRenamed, true
	case gogit.UpdatedButUnmerged:
		return StatusConflicted, true
	}
	return 0, false
}

func worktreeKind(code gogit.StatusCode) (FileStatusKind, bool) {
	switch code {
	case gogit.Modified, gogit.Added, gogit.Copied:
		return StatusModified, true
	case gogit.Deleted:
		return StatusDeleted, true
	case gogit.Renamed:
		return StatusRenamed, true
	case gogit.UpdatedButUnmerged:
		return StatusConflicted, true
	}
	return 0, false
}

// CurrentBranch returns the checked out branch, or "HEAD" when detached.
// An unborn branch (no commits yet) is still reported by name.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	return run(ctx, r, "current_branch", nil, func(context.Context) (string, error) {
		return r.currentBranch(), nil
	})
}

func (r *Repo) currentBranch() string {
	ref, err := r.repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return ""
	}
	if ref.Type() == plumbing.SymbolicReference {
		return ref.Target().Short()
	}
	return "HEAD"
}

// HeadCommitMessage returns HEAD's full commit message, used to prefill an amend.
func (r *Repo) HeadCommitMessage(ctx context.Context) (string, error) {
	return run(ctx, r, "head_commit_message", nil, func(context.Context) (string, error) {
		c, err := r.headCommit()
		if err != nil {
			return "", err
		}
		return strings.TrimRight(c.Message, "\n"), nil
	})
}
