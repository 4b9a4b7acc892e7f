package repo

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zjrosen/splice/internal/conflict"
	"github.com/zjrosen/splice/internal/diff"
	"github.com/zjrosen/splice/internal/log"
	"github.com/zjrosen/splice/internal/pubsub"
	"github.com/zjrosen/splice/internal/tracing"
)

func conflictAttrs(path string, block int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(tracing.AttrGitPath, path)}
	if block >= 0 {
		attrs = append(attrs, attribute.Int("conflict.block", block))
	}
	return attrs
}

// ConflictFiles returns every conflicted path with the marker blocks found in
// its working tree text. A missing file has no blocks.
func (r *Repo) ConflictFiles(ctx context.Context) ([]conflict.File, error) {
	return run(ctx, r, "conflict_files", nil, func(context.Context) ([]conflict.File, error) {
		paths, err := r.conflictedPaths()
		if err != nil {
			return nil, err
		}
		files := make([]conflict.File, 0, len(paths))
		for _, p := range paths {
			text, err := r.readWorktreeFile(p)
			if err != nil && !notExist(err) {
				return nil, err
			}
			files = append(files, conflict.NewFile(p, text))
		}
		return files, nil
	})
}

// ResolveConflict rewrites a whole conflicted file from its index stages:
// ours is stage 2, theirs stage 3. The path stays conflicted until
// MarkResolved.
func (r *Repo) ResolveConflict(ctx context.Context, path string, res conflict.Resolution) error {
	attrs := append(conflictAttrs(path, -1), attribute.String("conflict.resolution", res.Kind.String()))
	return r.exec(ctx, "resolve_conflict", attrs, func(ctx context.Context) error {
		stages, err := r.stageContents(path)
		if err != nil {
			return err
		}
		var content string
		switch res.Kind {
		case conflict.Ours:
			if stages.Ours == nil {
				return fmt.Errorf("%w: ours for %s", ErrStageNotFound, path)
			}
			content = *stages.Ours
		case conflict.Theirs:
			if stages.Theirs == nil {
				return fmt.Errorf("%w: theirs for %s", ErrStageNotFound, path)
			}
			content = *stages.Theirs
		case conflict.Both:
			if stages.Ours != nil {
				content = *stages.Ours
			}
			if stages.Theirs != nil {
				content += *stages.Theirs
			}
		case conflict.Manual:
			content = res.Content
		}
		if err := r.writeWorktreeFile(path, content); err != nil {
			return err
		}
		log.Debug(log.CatConflict, "file resolved", "path", path, "resolution", res.Kind)
		r.publish(ctx, pubsub.UpdatedEvent, "resolve_conflict", ScopeWorktree, path)
		return nil
	})
}

// ResolveConflictBlock replaces one marker block in the working tree file.
func (r *Repo) ResolveConflictBlock(ctx context.Context, path string, block int, res conflict.Resolution) error {
	return r.exec(ctx, "resolve_conflict_block", conflictAttrs(path, block), func(ctx context.Context) error {
		text, err := r.readWorktreeFile(path)
		if err != nil {
			return err
		}
		resolved, err := conflict.ResolveBlock(text, block, res)
		if err != nil {
			return err
		}
		if err := r.writeWorktreeFile(path, resolved); err != nil {
			return err
		}
		log.Debug(log.CatConflict, "block resolved", "path", path, "block", block, "remaining", conflict.CountBlocks(resolved))
		r.publish(ctx, pubsub.UpdatedEvent, "resolve_conflict_block", ScopeWorktree, path)
		return nil
	})
}

// PreviewResolution returns the diff ResolveConflictBlock would make, without
// writing anything.
func (r *Repo) PreviewResolution(ctx context.Context, path string, block int, res conflict.Resolution) (diff.FileDiff, error) {
	return run(ctx, r, "preview_resolution", conflictAttrs(path, block), func(context.Context) (diff.FileDiff, error) {
		text, err := r.readWorktreeFile(path)
		if err != nil {
			return diff.FileDiff{}, err
		}
		resolved, err := conflict.ResolveBlock(text, block, res)
		if err != nil {
			return diff.FileDiff{}, err
		}
		fd := diff.Compare(path, path, text, resolved, r.contextLines)
		files := []diff.FileDiff{fd}
		diff.ApplyWordDiff(files)
		return files[0], nil
	})
}

// MarkResolved replaces a path's conflict stages with its working tree
// content. A path deleted from the working tree is resolved as deleted.
func (r *Repo) MarkResolved(ctx context.Context, path string) error {
	return r.exec(ctx, "mark_resolved", conflictAttrs(path, -1), func(ctx context.Context) error {
		idx, err := r.repo.Storer.Index()
		if err != nil {
			return fmt.Errorf("read index: %w", err)
		}
		kept := idx.Entries[:0]
		for _, e := range idx.Entries {
			if e.Name != path {
				kept = append(kept, e)
			}
		}
		idx.Entries = kept
		if err := r.repo.Storer.SetIndex(idx); err != nil {
			return fmt.Errorf("write index: %w", err)
		}

		w, err := r.worktree()
		if err != nil {
			return err
		}
		if _, err := w.Filesystem.Lstat(path); err == nil {
			if _, err := w.Add(path); err != nil {
				return fmt.Errorf("add %s: %w", path, err)
			}
		} else if !notExist(err) {
			return ioErr(path, err)
		}
		r.publish(ctx, pubsub.UpdatedEvent, "mark_resolved", ScopeIndex, path)
		return nil
	})
}

// MergeBaseContent returns the base, ours and theirs versions of a
// conflicted path from index stages 1, 2 and 3.
func (r *Repo) MergeBaseContent(ctx context.Context, path string) (MergeBaseContent, error) {
	return run(ctx, r, "merge_base_content", conflictAttrs(path, -1), func(context.Context) (MergeBaseContent, error) {
		return r.stageContents(path)
	})
}

func (r *Repo) stageContents(path string) (MergeBaseContent, error) {
	idx, err := r.repo.Storer.Index()
	if err != nil {
		return MergeBaseContent{}, fmt.Errorf("read index: %w", err)
	}
	res := MergeBaseContent{Path: path}
	found := false
	for _, e := range idx.Entries {
		if e.Name != path || e.Stage == index.Merged {
			continue
		}
		found = true
		content, err := r.blobString(e.Hash)
		if err != nil {
			return MergeBaseContent{}, err
		}
		switch e.Stage {
		case index.AncestorMode:
			res.Base = &content
		case index.OurMode:
			res.Ours = &content
		case index.TheirMode:
			res.Theirs = &content
		}
	}
	if !found {
		return MergeBaseContent{}, fmt.Errorf("%w: %s", ErrNotConflicted, path)
	}
	return res, nil
}

func (r *Repo) blobString(h plumbing.Hash) (string, error) {
	blob, err := r.repo.BlobObject(h)
	if err != nil {
		return "", fmt.Errorf("blob %s: %w", h, err)
	}
	rd, err := blob.Reader()
	if err != nil {
		return "", fmt.Errorf("blob %s: %w", h, err)
	}
	defer rd.Close()
	data, err := io.ReadAll(rd)
	if err != nil {
		return "", fmt.Errorf("blob %s: %w", h, err)
	}
	return string(data), nil
}

func (r *Repo) readWorktreeFile(path string) (string, error) {
	w, err := r.worktree()
	if err != nil {
		return "", err
	}
	data, err := util.ReadFile(w.Filesystem, path)
	if err != nil {
		return "", ioErr(path, err)
	}
	return string(data), nil
}

// writeWorktreeFile replaces a file, keeping its permission bits when it exists.
func (r *Repo) writeWorktreeFile(path, content string) error {
	w, err := r.worktree()
	if err != nil {
		return err
	}
	perm := os.FileMode(0o644)
	if fi, err := w.Filesystem.Lstat(path); err == nil {
		perm = fi.Mode().Perm()
	}
	return ioErr(path, util.WriteFile(w.Filesystem, path, []byte(content), perm))
}
