package repo

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zjrosen/splice/internal/diff"
	"github.com/zjrosen/splice/internal/git"
	"github.com/zjrosen/splice/internal/pubsub"
)

const stashRef = "refs/stash"

func stashName(index int) string {
	return "stash@{" + strconv.Itoa(index) + "}"
}

func stashAttrs(index int) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.Int("stash.index", index)}
}

// StashSave stashes tracked changes in the index and working tree. An empty
// message lets git write its default "WIP on <branch>" message.
func (r *Repo) StashSave(ctx context.Context, message string) error {
	return r.exec(ctx, "stash_save", nil, func(ctx context.Context) error {
		args := []string{"stash", "push"}
		if message != "" {
			args = append(args, "-m", message)
		}
		out, err := r.runGit(ctx, args...)
		if err != nil {
			return err
		}
		// git exits zero when there is nothing to stash.
		if strings.Contains(out, "No local changes to save") {
			return git.ErrNothingToCommit
		}
		r.publish(ctx, pubsub.CreatedEvent, "stash_save", ScopeStash)
		return nil
	})
}

// StashList returns stashes newest first, read from the refs/stash reflog.
func (r *Repo) StashList(ctx context.Context) ([]StashEntry, error) {
	return run(ctx, r, "stash_list", nil, func(context.Context) ([]StashEntry, error) {
		reflog, err := r.readReflog(stashRef)
		if err != nil {
			return nil, err
		}
		entries := make([]StashEntry, 0, len(reflog))
		for _, e := range reflog {
			entries = append(entries, StashEntry{
				Index:      e.Index,
				Message:    e.Message,
				BranchName: stashBranchName(e.Message),
				OID:        e.OID,
				AuthorDate: e.Date,
			})
		}
		return entries, nil
	})
}

// stashBranchName extracts the branch from "WIP on <b>: ..." or "On <b>: ...".
func stashBranchName(message string) string {
	for _, prefix := range []string{"WIP on ", "On "} {
		if rest, ok := strings.CutPrefix(message, prefix); ok {
			if name, _, found := strings.Cut(rest, ":"); found {
				return name
			}
		}
	}
	return ""
}

// StashApply applies a stash, keeping it in the list.
func (r *Repo) StashApply(ctx context.Context, index int) error {
	return r.exec(ctx, "stash_apply", stashAttrs(index), func(ctx context.Context) error {
		if _, err := r.runGit(ctx, "stash", "apply", stashName(index)); err != nil {
			return err
		}
		r.publish(ctx, pubsub.UpdatedEvent, "stash_apply", ScopeWorktree)
		return nil
	})
}

// StashPop applies a stash and drops it when it applied cleanly.
func (r *Repo) StashPop(ctx context.Context, index int) error {
	return r.exec(ctx, "stash_pop", stashAttrs(index), func(ctx context.Context) error {
		if _, err := r.runGit(ctx, "stash", "pop", stashName(index)); err != nil {
			return err
		}
		r.publish(ctx, pubsub.DeletedEvent, "stash_pop", ScopeStash)
		return nil
	})
}

// StashDrop deletes a stash.
func (r *Repo) StashDrop(ctx context.Context, index int) error {
	return r.exec(ctx, "stash_drop", stashAttrs(index), func(ctx context.Context) error {
		if _, err := r.runGit(ctx, "stash", "drop", stashName(index)); err != nil {
			return err
		}
		r.publish(ctx, pubsub.DeletedEvent, "stash_drop", ScopeStash)
		return nil
	})
}

// StashDiff returns the changes a stash records relative to the commit it
// was made on.
func (r *Repo) StashDiff(ctx context.Context, index int) ([]diff.FileDiff, error) {
	return run(ctx, r, "stash_diff", stashAttrs(index), func(ctx context.Context) ([]diff.FileDiff, error) {
		reflog, err := r.readReflog(stashRef)
		if err != nil {
			return nil, err
		}
		if index < 0 || index >= len(reflog) {
			return nil, fmt.Errorf("%w: %s", git.ErrNoStash, stashName(index))
		}
		stash := reflog[index].OID
		out, err := r.runGitDiff(ctx, "diff", "--no-color", "--no-ext-diff",
			"-U"+strconv.Itoa(r.contextLines), stash+"^1", stash)
		if err != nil {
			return nil, err
		}
		files, err := diff.Parse(out)
		if err != nil {
			return nil, err
		}
		diff.ApplyWordDiff(files)
		return files, nil
	})
}
