package repo

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zjrosen/splice/internal/diff"
	"github.com/zjrosen/splice/internal/tracing"
)

// Diff returns the unstaged (or, with opts.Staged, staged) changes, limited
// to path when it is non-empty.
func (r *Repo) Diff(ctx context.Context, path string, opts DiffOptions) ([]diff.FileDiff, error) {
	attrs := []attribute.KeyValue{
		attribute.String(tracing.AttrGitPath, path),
		attribute.Bool("diff.staged", opts.Staged),
	}
	return run(ctx, r, "diff", attrs, func(ctx context.Context) ([]diff.FileDiff, error) {
		contextLines := opts.ContextLines
		if contextLines <= 0 {
			contextLines = r.contextLines
		}
		files, err := r.diff(ctx, path, opts.Staged, contextLines)
		if err != nil {
			return nil, err
		}
		if opts.IncludeUntracked && !opts.Staged {
			untracked, err := r.untrackedDiffs(path, contextLines)
			if err != nil {
				return nil, err
			}
			files = append(files, untracked...)
		}
		if opts.WordDiff {
			diff.ApplyWordDiff(files)
		}
		return files, nil
	})
}

// diff runs git diff and parses the result.
func (r *Repo) diff(ctx context.Context, path string, staged bool, contextLines int) ([]diff.FileDiff, error) {
	if contextLines <= 0 {
		contextLines = r.contextLines
	}
	args := []string{"diff", "--no-color", "--no-ext-diff", fmt.Sprintf("-U%d", contextLines)}
	if staged {
		args = append(args, "--cached")
	}
	args = append(args, "--")
	if path != "" {
		args = append(args, path)
	}
	out, err := r.runGitDiff(ctx, args...)
	if err != nil {
		return nil, err
	}
	return diff.Parse(out)
}

// untrackedDiffs renders untracked files as all-added diffs.
func (r *Repo) untrackedDiffs(path string, contextLines int) ([]diff.FileDiff, error) {
	w, err := r.worktree()
	if err != nil {
		return nil, err
	}
	st, err := w.Status()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	var paths []string
	for p, fs := range st {
		if fs.Worktree != gogit.Untracked {
			continue
		}
		if path != "" && p != path {
			continue
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)

	files := make([]diff.FileDiff, 0, len(paths))
	for _, p := range paths {
		content, err := util.ReadFile(w.Filesystem, p)
		if err != nil {
			return nil, ioErr(p, err)
		}
		if bytes.IndexByte(content, 0) >= 0 {
			files = append(files, diff.FileDiff{NewPath: p, Binary: true})
			continue
		}
		files = append(files, diff.Compare("", p, "", string(content), contextLines))
	}
	return files, nil
}

// fileDiff returns the diff of a single path on one side, computed with the
// repository's hunk-locating context size.
func (r *Repo) fileDiff(ctx context.Context, path string, staged bool) (diff.FileDiff, error) {
	files, err := r.diff(ctx, path, staged, r.contextLines)
	if err != nil {
		return diff.FileDiff{}, err
	}
	for _, f := range files {
		if f.Path() == path || f.OldPath == path {
			return f, nil
		}
	}
	side := "unstaged"
	if staged {
		side = "staged"
	}
	return diff.FileDiff{}, fmt.Errorf("%w: no %s changes in %s", diff.ErrHunkNotFound, side, path)
}
