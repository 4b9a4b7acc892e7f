package repo

import (
	"context"
	"fmt"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/splice/internal/log"
	"github.com/zjrosen/splice/internal/pubsub"
	"github.com/zjrosen/splice/internal/tracing"
)

const defaultMergeMessage = "Merge commit"

// MergeBranch merges a local branch into HEAD.
func (r *Repo) MergeBranch(ctx context.Context, name string, option MergeOption) (MergeResult, error) {
	attrs := []attribute.KeyValue{
		attribute.String(tracing.AttrGitRef, name),
		attribute.String(tracing.AttrMergeOption, option.String()),
	}
	return run(ctx, r, "merge_branch", attrs, func(ctx context.Context) (MergeResult, error) {
		if err := r.requireIdle(); err != nil {
			return MergeResult{}, err
		}
		ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), true)
		if err != nil {
			return MergeResult{}, fmt.Errorf("%w: %s", ErrBranchNotFound, name)
		}
		theirs, err := r.repo.CommitObject(ref.Hash())
		if err != nil {
			return MergeResult{}, fmt.Errorf("branch %s: %w", name, err)
		}
		res, err := r.merge(ctx, theirs, name, option)
		if err != nil {
			return MergeResult{}, err
		}
		trace.SpanFromContext(ctx).SetAttributes(attribute.String(tracing.AttrMergeKind, res.Kind.String()))
		return res, nil
	})
}

// merge integrates theirs into HEAD. label names theirs in messages.
func (r *Repo) merge(ctx context.Context, theirs *object.Commit, label string, option MergeOption) (MergeResult, error) {
	head, err := r.headCommit()
	if err != nil {
		return MergeResult{}, err
	}

	if head.Hash == theirs.Hash {
		return MergeResult{Kind: MergeUpToDate}, nil
	}
	if upToDate, err := theirs.IsAncestor(head); err != nil {
		return MergeResult{}, fmt.Errorf("merge analysis: %w", err)
	} else if upToDate {
		return MergeResult{Kind: MergeUpToDate}, nil
	}

	canFF, err := head.IsAncestor(theirs)
	if err != nil {
		return MergeResult{}, fmt.Errorf("merge analysis: %w", err)
	}
	if canFF && option != NoFastForward {
		if err := r.fastForward(theirs.Hash); err != nil {
			return MergeResult{}, err
		}
		log.Info(log.CatMerge, "fast-forward", "to", label, "oid", shortOID(theirs.Hash.String()))
		r.publish(ctx, pubsub.UpdatedEvent, "merge", ScopeHead, label)
		return MergeResult{Kind: MergeFastForward, OID: theirs.Hash.String()}, nil
	}
	if option == FastForwardOnly {
		return MergeResult{}, ErrFastForwardImpossible
	}
	return r.mergeNormal(ctx, head, theirs, label)
}

// fastForward moves HEAD, or the branch it points to, and checks out target.
func (r *Repo) fastForward(target plumbing.Hash) error {
	w, err := r.worktree()
	if err != nil {
		return err
	}
	if err := w.Reset(&gogit.ResetOptions{Commit: target, Mode: gogit.HardReset}); err != nil {
		return fmt.Errorf("fast-forward: %w", err)
	}
	return nil
}

// mergeNormal performs a three-way merge with the executable and commits the
// result with two parents. On conflicts the merge state is left for
// ContinueMerge or AbortMerge.
func (r *Repo) mergeNormal(ctx context.Context, head, theirs *object.Commit, label string) (MergeResult, error) {
	_, runErr := r.runGit(ctx, "merge", "--no-ff", "--no-commit", "--no-edit", theirs.Hash.String())

	conflicts, err := r.conflictedPaths()
	if err != nil {
		return MergeResult{}, err
	}
	if len(conflicts) > 0 {
		trace.SpanFromContext(ctx).AddEvent(tracing.EventConflicts,
			trace.WithAttributes(attribute.Int(tracing.AttrConflicts, len(conflicts))))
		if err := r.writeState(mergeMsgFile, mergeMessage(label)+"\n"); err != nil {
			log.Warn(log.CatMerge, "merge message not saved", "error", err)
		}
		r.publishStep(ctx, "merge", conflicts)
		return MergeResult{Kind: MergeConflict, Conflicts: conflicts}, nil
	}
	if runErr != nil {
		return MergeResult{}, runErr
	}

	h, err := r.commitIndex(mergeMessage(label), &gogit.CommitOptions{
		Parents:           []plumbing.Hash{head.Hash, theirs.Hash},
		AllowEmptyCommits: true,
	})
	if err != nil {
		return MergeResult{}, err
	}
	r.removeState(mergeHeadFile, mergeMsgFile, mergeModeFile)
	r.publish(ctx, pubsub.CreatedEvent, "merge", ScopeHead, label)
	return MergeResult{Kind: MergeNormal, OID: h.String()}, nil
}

func mergeMessage(label string) string {
	return fmt.Sprintf("Merge branch '%s'", label)
}

// ContinueMerge commits a merge whose conflicts are resolved. An empty
// message uses the saved merge message.
func (r *Repo) ContinueMerge(ctx context.Context, message string) (CommitResult, error) {
	return run(ctx, r, "continue_merge", nil, func(ctx context.Context) (CommitResult, error) {
		if r.operationKind() != OpMerging {
			return CommitResult{}, ErrNoOperation
		}
		if err := r.requireResolved(); err != nil {
			return CommitResult{}, err
		}
		raw, err := r.readState(mergeHeadFile)
		if err != nil {
			return CommitResult{}, err
		}
		first, _, _ := strings.Cut(raw, "\n")
		theirs := plumbing.NewHash(strings.TrimSpace(first))

		head, err := r.headCommit()
		if err != nil {
			return CommitResult{}, err
		}
		if strings.TrimSpace(message) == "" {
			message = r.savedMergeMessage()
		}

		h, err := r.commitIndex(message, &gogit.CommitOptions{
			Parents:           []plumbing.Hash{head.Hash, theirs},
			AllowEmptyCommits: true,
		})
		if err != nil {
			return CommitResult{}, err
		}
		r.removeState(mergeHeadFile, mergeMsgFile, mergeModeFile)
		r.publish(ctx, pubsub.CreatedEvent, "continue_merge", ScopeHead)
		return CommitResult{OID: h.String()}, nil
	})
}

// savedMergeMessage reads MERGE_MSG without comment lines.
func (r *Repo) savedMergeMessage() string {
	raw, err := r.readState(mergeMsgFile)
	if err != nil {
		return defaultMergeMessage
	}
	var kept []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.HasPrefix(line, "#") {
			continue
		}
		kept = append(kept, line)
	}
	msg := strings.TrimSpace(strings.Join(kept, "\n"))
	if msg == "" {
		return defaultMergeMessage
	}
	return msg
}

// AbortMerge discards the merge state and resets the index and working tree
// to HEAD. Cleanup failures are logged, not returned.
func (r *Repo) AbortMerge(ctx context.Context) error {
	return r.exec(ctx, "abort_merge", nil, func(ctx context.Context) error {
		r.removeState(mergeHeadFile, mergeMsgFile, mergeModeFile)
		if err := r.hardResetHead(ctx); err != nil {
			return err
		}
		r.publish(ctx, pubsub.UpdatedEvent, "abort_merge", ScopeWorktree)
		return nil
	})
}

// IsMerging reports whether a merge awaits continue or abort.
func (r *Repo) IsMerging(ctx context.Context) (bool, error) {
	return run(ctx, r, "is_merging", nil, func(context.Context) (bool, error) {
		return r.operationKind() == OpMerging, nil
	})
}

// hardResetHead drops conflict stages from the index, then resets the index
// and working tree to HEAD.
func (r *Repo) hardResetHead(ctx context.Context) error {
	if err := r.dropConflictEntries(); err != nil {
		span := trace.SpanFromContext(ctx)
		span.AddEvent(tracing.EventCleanupFailed, trace.WithAttributes(attribute.String("error", err.Error())))
		log.Warn(log.CatRepo, "dropping conflict entries failed", "error", err)
	}
	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}
	w, err := r.worktree()
	if err != nil {
		return err
	}
	if err := w.Reset(&gogit.ResetOptions{Commit: head.Hash(), Mode: gogit.HardReset}); err != nil {
		return fmt.Errorf("reset to HEAD: %w", err)
	}
	return nil
}

// dropConflictEntries removes every stage>0 entry from the index.
func (r *Repo) dropConflictEntries() error {
	idx, err := r.repo.Storer.Index()
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}
	kept := idx.Entries[:0]
	for _, e := range idx.Entries {
		if e.Stage == index.Merged {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(idx.Entries) {
		return nil
	}
	idx.Entries = kept
	return r.repo.Storer.SetIndex(idx)
}
