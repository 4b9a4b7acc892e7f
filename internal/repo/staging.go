package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/splice/internal/diff"
	"github.com/zjrosen/splice/internal/git"
	"github.com/zjrosen/splice/internal/pubsub"
	"github.com/zjrosen/splice/internal/tracing"
)

// Stage adds paths to the index. Deleted files are removed from it.
func (r *Repo) Stage(ctx context.Context, paths ...string) error {
	return r.exec(ctx, "stage", pathAttrs(paths), func(ctx context.Context) error {
		w, err := r.worktree()
		if err != nil {
			return err
		}
		for _, p := range paths {
			if _, err := w.Add(p); err != nil {
				return fmt.Errorf("add %s: %w", p, err)
			}
		}
		r.publish(ctx, pubsub.UpdatedEvent, "stage", ScopeIndex, paths...)
		return nil
	})
}

// StageAll adds every change, including untracked files, to the index.
func (r *Repo) StageAll(ctx context.Context) error {
	return r.exec(ctx, "stage_all", nil, func(ctx context.Context) error {
		w, err := r.worktree()
		if err != nil {
			return err
		}
		if err := w.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
			return fmt.Errorf("add all: %w", err)
		}
		r.publish(ctx, pubsub.UpdatedEvent, "stage_all", ScopeIndex)
		return nil
	})
}

// Unstage resets the index entries of paths to HEAD.
func (r *Repo) Unstage(ctx context.Context, paths ...string) error {
	return r.exec(ctx, "unstage", pathAttrs(paths), func(ctx context.Context) error {
		tree, err := r.headTree()
		if err != nil {
			return err
		}
		if err := r.resetIndexPaths(tree, paths); err != nil {
			return err
		}
		r.publish(ctx, pubsub.UpdatedEvent, "unstage", ScopeIndex, paths...)
		return nil
	})
}

// UnstageAll resets the whole index to HEAD.
func (r *Repo) UnstageAll(ctx context.Context) error {
	return r.exec(ctx, "unstage_all", nil, func(ctx context.Context) error {
		head, err := r.repo.Head()
		if err != nil {
			// Unborn branch: nothing is committed, so the index empties.
			idx, ierr := r.repo.Storer.Index()
			if ierr != nil {
				return fmt.Errorf("read index: %w", ierr)
			}
			idx.Entries = nil
			if err := r.repo.Storer.SetIndex(idx); err != nil {
				return fmt.Errorf("write index: %w", err)
			}
		} else {
			w, err := r.worktree()
			if err != nil {
				return err
			}
			if err := w.Reset(&gogit.ResetOptions{Commit: head.Hash(), Mode: gogit.MixedReset}); err != nil {
				return fmt.Errorf("reset index: %w", err)
			}
		}
		r.publish(ctx, pubsub.UpdatedEvent, "unstage_all", ScopeIndex)
		return nil
	})
}

// headTree returns HEAD's tree, or nil on an unborn branch.
func (r *Repo) headTree() (*object.Tree, error) {
	if _, err := r.repo.Head(); err != nil {
		return nil, nil
	}
	c, err := r.headCommit()
	if err != nil {
		return nil, err
	}
	return c.Tree()
}

// resetIndexPaths makes the index entries of paths match tree. Paths absent
// from tree are dropped from the index.
func (r *Repo) resetIndexPaths(tree *object.Tree, paths []string) error {
	idx, err := r.repo.Storer.Index()
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}
	for _, p := range paths {
		for {
			if _, err := idx.Remove(p); err != nil {
				break
			}
		}
		if tree == nil {
			continue
		}
		entry, err := tree.FindEntry(p)
		if err != nil {
			if errors.Is(err, object.ErrEntryNotFound) || errors.Is(err, object.ErrDirectoryNotFound) {
				continue
			}
			return fmt.Errorf("lookup %s: %w", p, err)
		}
		blob, err := r.repo.BlobObject(entry.Hash)
		if err != nil {
			return fmt.Errorf("blob %s: %w", p, err)
		}
		e := idx.Add(p)
		e.Hash = entry.Hash
		e.Mode = entry.Mode
		e.Size = uint32(blob.Size)
		e.Stage = index.Merged
	}
	if err := r.repo.Storer.SetIndex(idx); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

// patchSide describes where a partial patch is computed from and applied to.
type patchSide struct {
	op     string
	staged bool     // Diff side the hunk is located in
	args   []string // git apply arguments
	scope  Scope
}

var (
	stageSide   = patchSide{op: "stage", staged: false, args: []string{"apply", "--cached", "-"}, scope: ScopeIndex}
	unstageSide = patchSide{op: "unstage", staged: true, args: []string{"apply", "--cached", "-R", "-"}, scope: ScopeIndex}
	discardSide = patchSide{op: "discard", staged: false, args: []string{"apply", "-R", "-"}, scope: ScopeWorktree}
)

// StageHunk stages one unstaged hunk of path.
func (r *Repo) StageHunk(ctx context.Context, path string, id diff.HunkIdentifier) error {
	return r.applyPartial(ctx, stageSide, path, id, nil)
}

// UnstageHunk removes one staged hunk of path from the index.
func (r *Repo) UnstageHunk(ctx context.Context, path string, id diff.HunkIdentifier) error {
	return r.applyPartial(ctx, unstageSide, path, id, nil)
}

// DiscardHunk reverts one unstaged hunk of path in the working tree.
func (r *Repo) DiscardHunk(ctx context.Context, path string, id diff.HunkIdentifier) error {
	return r.applyPartial(ctx, discardSide, path, id, nil)
}

// StageLines stages the selected lines of one unstaged hunk.
func (r *Repo) StageLines(ctx context.Context, path string, lines diff.LineRange) error {
	return r.applyPartial(ctx, stageSide, path, lines.Hunk, lineSelection(lines))
}

// UnstageLines unstages the selected lines of one staged hunk.
func (r *Repo) UnstageLines(ctx context.Context, path string, lines diff.LineRange) error {
	return r.applyPartial(ctx, unstageSide, path, lines.Hunk, lineSelection(lines))
}

// DiscardLines reverts the selected lines of one unstaged hunk in the working tree.
func (r *Repo) DiscardLines(ctx context.Context, path string, lines diff.LineRange) error {
	return r.applyPartial(ctx, discardSide, path, lines.Hunk, lineSelection(lines))
}

// lineSelection never returns nil so an empty selection still means "lines".
func lineSelection(lr diff.LineRange) []int {
	if lr.LineIndices == nil {
		return []int{}
	}
	return lr.LineIndices
}

// applyPartial re-runs the diff, locates the hunk by its exact range, builds a
// whole-hunk patch (lines == nil) or a line patch, and hands it to git apply.
func (r *Repo) applyPartial(ctx context.Context, side patchSide, path string, id diff.HunkIdentifier, lines []int) error {
	op := side.op + "_hunk"
	if lines != nil {
		op = side.op + "_lines"
	}
	attrs := []attribute.KeyValue{
		attribute.String(tracing.AttrGitPath, path),
		attribute.String("diff.hunk", id.String()),
	}
	return r.exec(ctx, op, attrs, func(ctx context.Context) error {
		file, err := r.fileDiff(ctx, path, side.staged)
		if err != nil {
			return err
		}
		hunk, err := diff.FindHunk(file, id)
		if err != nil {
			return err
		}

		var patch string
		if lines == nil {
			patch = diff.HunkPatch(path, hunk)
		} else {
			patch = diff.LinePatch(path, hunk, lines)
		}

		if _, err := r.runGitWith(ctx, git.RunOptions{Args: side.args, Stdin: patch}); err != nil {
			return err
		}
		trace.SpanFromContext(ctx).AddEvent(tracing.EventPatchApplied, trace.WithAttributes(
			attribute.Int(tracing.AttrPatchBytes, len(patch)),
			attribute.Int(tracing.AttrPatchLines, strings.Count(patch, "\n")),
		))
		r.publish(ctx, pubsub.UpdatedEvent, op, side.scope, path)
		return nil
	})
}

func pathAttrs(paths []string) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.StringSlice(tracing.AttrGitPath, paths)}
}
