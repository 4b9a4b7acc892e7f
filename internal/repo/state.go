package repo

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5/plumbing/format/index"

	"github.com/zjrosen/splice/internal/log"
)

// State files git leaves under .git while an operation is in progress.
const (
	mergeHeadFile      = "MERGE_HEAD"
	mergeMsgFile       = "MERGE_MSG"
	mergeModeFile      = "MERGE_MODE"
	cherryPickHeadFile = "CHERRY_PICK_HEAD"
	revertHeadFile     = "REVERT_HEAD"
	rebaseMergeDir     = "rebase-merge"
	rebaseApplyDir     = "rebase-apply"
)

func (r *Repo) stateExists(name string) bool {
	if r.dotgit == nil {
		return false
	}
	_, err := r.dotgit.Stat(name)
	return err == nil
}

// readState returns a state file's content with surrounding whitespace trimmed.
func (r *Repo) readState(name string) (string, error) {
	if r.dotgit == nil {
		return "", fmt.Errorf("%s: %w", name, ErrNoOperation)
	}
	data, err := util.ReadFile(r.dotgit, name)
	if err != nil {
		return "", ioErr(name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (r *Repo) writeState(name, content string) error {
	if r.dotgit == nil {
		return fmt.Errorf("%s: state files need on-disk storage", name)
	}
	return ioErr(name, util.WriteFile(r.dotgit, name, []byte(content), 0o644))
}

// removeState deletes state files, logging failures instead of returning them.
func (r *Repo) removeState(names ...string) {
	if r.dotgit == nil {
		return
	}
	for _, name := range names {
		if err := r.dotgit.Remove(name); err != nil && !notExist(err) {
			log.Warn(log.CatRepo, "state cleanup failed", "file", name, "error", err)
		}
	}
}

// operationKind inspects state files. Rebase is checked first since a
// stopped rebase step can carry merge or cherry-pick markers too.
func (r *Repo) operationKind() OperationKind {
	switch {
	case r.stateExists(rebaseMergeDir), r.stateExists(rebaseApplyDir):
		return OpRebasing
	case r.stateExists(mergeHeadFile):
		return OpMerging
	case r.stateExists(cherryPickHeadFile):
		return OpCherryPicking
	case r.stateExists(revertHeadFile):
		return OpReverting
	}
	return OpIdle
}

// conflictedPaths lists index entries at a stage above zero, sorted.
func (r *Repo) conflictedPaths() ([]string, error) {
	idx, err := r.repo.Storer.Index()
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	seen := make(map[string]bool)
	var paths []string
	for _, e := range idx.Entries {
		if e.Stage == index.Merged || seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		paths = append(paths, e.Name)
	}
	sort.Strings(paths)
	return paths, nil
}

func (r *Repo) operationState() (OperationState, error) {
	conflicts, err := r.conflictedPaths()
	if err != nil {
		return OperationState{}, err
	}
	return OperationState{Kind: r.operationKind(), HasConflicts: len(conflicts) > 0}, nil
}

// requireIdle rejects starting an operation while another awaits continue or abort.
func (r *Repo) requireIdle() error {
	if kind := r.operationKind(); kind != OpIdle {
		return fmt.Errorf("%w: %s", ErrOperationInProgress, kind)
	}
	return nil
}

// requireResolved rejects continuing while the index has conflicts.
func (r *Repo) requireResolved() error {
	conflicts, err := r.conflictedPaths()
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return fmt.Errorf("%w: %s", ErrUnresolvedConflicts, strings.Join(conflicts, ", "))
	}
	return nil
}

// OperationState reports which multi-step operation is in progress, if any.
func (r *Repo) OperationState(ctx context.Context) (OperationState, error) {
	return run(ctx, r, "operation_state", nil, func(context.Context) (OperationState, error) {
		return r.operationState()
	})
}
