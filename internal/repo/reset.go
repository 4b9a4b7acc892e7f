package repo

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zjrosen/splice/internal/log"
	"github.com/zjrosen/splice/internal/pubsub"
	"github.com/zjrosen/splice/internal/tracing"
)

// Reset moves HEAD, or the branch it points to, to oid. Mixed also resets
// the index and Hard the working tree. Mixed and Hard end any merge,
// cherry-pick or revert in progress, as git reset does.
func (r *Repo) Reset(ctx context.Context, oid string, mode ResetMode) (ResetResult, error) {
	attrs := []attribute.KeyValue{
		attribute.String(tracing.AttrGitOID, oid),
		attribute.String("reset.mode", mode.String()),
	}
	return run(ctx, r, "reset", attrs, func(ctx context.Context) (ResetResult, error) {
		c, err := r.resolveCommit(oid)
		if err != nil {
			return ResetResult{}, err
		}
		if mode != ResetSoft {
			if err := r.dropConflictEntries(); err != nil {
				return ResetResult{}, err
			}
		}
		w, err := r.worktree()
		if err != nil {
			return ResetResult{}, err
		}
		if err := w.Reset(&gogit.ResetOptions{Commit: c.Hash, Mode: resetMode(mode)}); err != nil {
			return ResetResult{}, fmt.Errorf("reset %s: %w", mode, err)
		}
		if mode != ResetSoft {
			r.removeState(mergeHeadFile, mergeMsgFile, mergeModeFile, cherryPickHeadFile, revertHeadFile)
		}
		scope := ScopeHead
		if mode == ResetHard {
			scope = ScopeWorktree
		}
		r.publish(ctx, pubsub.UpdatedEvent, "reset", scope)
		return ResetResult{OID: c.Hash.String()}, nil
	})
}

func resetMode(m ResetMode) gogit.ResetMode {
	switch m {
	case ResetSoft:
		return gogit.SoftReset
	case ResetHard:
		return gogit.HardReset
	}
	return gogit.MixedReset
}

// ResetFile restores one file in both the index and the working tree to its
// content at oid. A file absent at oid is removed from both.
func (r *Repo) ResetFile(ctx context.Context, path, oid string) error {
	attrs := []attribute.KeyValue{
		attribute.String(tracing.AttrGitPath, path),
		attribute.String(tracing.AttrGitOID, oid),
	}
	return r.exec(ctx, "reset_file", attrs, func(ctx context.Context) error {
		c, err := r.resolveCommit(oid)
		if err != nil {
			return err
		}
		tree, err := c.Tree()
		if err != nil {
			return fmt.Errorf("commit tree: %w", err)
		}
		w, err := r.worktree()
		if err != nil {
			return err
		}

		file, err := tree.File(path)
		switch {
		case errors.Is(err, object.ErrFileNotFound):
			if err := w.Filesystem.Remove(path); err != nil && !notExist(err) {
				return ioErr(path, err)
			}
		case err != nil:
			return fmt.Errorf("lookup %s: %w", path, err)
		default:
			content, err := file.Contents()
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			perm, err := file.Mode.ToOSFileMode()
			if err != nil {
				return fmt.Errorf("mode %s: %w", path, err)
			}
			if err := util.WriteFile(w.Filesystem, path, []byte(content), perm.Perm()); err != nil {
				return ioErr(path, err)
			}
		}
		if err := r.resetIndexPaths(tree, []string{path}); err != nil {
			return err
		}
		r.publish(ctx, pubsub.UpdatedEvent, "reset_file", ScopeWorktree, path)
		return nil
	})
}

// Reflog returns up to limit entries of a ref's reflog, newest first. An
// empty ref means HEAD and a bare name is tried as a local branch.
func (r *Repo) Reflog(ctx context.Context, ref string, limit int) ([]ReflogEntry, error) {
	attrs := []attribute.KeyValue{attribute.String(tracing.AttrGitRef, ref)}
	return run(ctx, r, "reflog", attrs, func(context.Context) ([]ReflogEntry, error) {
		name := ref
		switch {
		case name == "":
			name = "HEAD"
		case name != "HEAD" && !strings.HasPrefix(name, "refs/"):
			name = plumbing.NewBranchReferenceName(name).String()
		}
		entries, err := r.readReflog(name)
		if err != nil {
			return nil, err
		}
		if limit > 0 && len(entries) > limit {
			entries = entries[:limit]
		}
		return entries, nil
	})
}

// readReflog parses .git/logs/<ref>, newest first. A missing log is empty.
func (r *Repo) readReflog(ref string) ([]ReflogEntry, error) {
	if r.dotgit == nil {
		return []ReflogEntry{}, nil
	}
	data, err := util.ReadFile(r.dotgit, "logs/"+ref)
	if notExist(err) {
		return []ReflogEntry{}, nil
	}
	if err != nil {
		return nil, ioErr("logs/"+ref, err)
	}

	var entries []ReflogEntry
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		e, ok := parseReflogLine(sc.Text())
		if !ok {
			log.Debug(log.CatGit, "skipping reflog line", "ref", ref, "line", sc.Text())
			continue
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, ioErr("logs/"+ref, err)
	}

	out := make([]ReflogEntry, len(entries))
	for i, e := range entries {
		e.Index = len(entries) - 1 - i
		out[e.Index] = e
	}
	return out, nil
}

// parseReflogLine reads "<old> <new> <name> <<email>> <unix> <tz>\t<message>".
func parseReflogLine(line string) (ReflogEntry, bool) {
	head, message, _ := strings.Cut(line, "\t")
	fields := strings.SplitN(head, " ", 3)
	if len(fields) < 3 {
		return ReflogEntry{}, false
	}
	ident := fields[2]
	lt := strings.LastIndexByte(ident, '<')
	gt := strings.LastIndexByte(ident, '>')
	if lt < 0 || gt < lt {
		return ReflogEntry{}, false
	}
	when := strings.Fields(ident[gt+1:])
	if len(when) == 0 {
		return ReflogEntry{}, false
	}
	secs, err := strconv.ParseInt(when[0], 10, 64)
	if err != nil {
		return ReflogEntry{}, false
	}
	date := time.Unix(secs, 0)
	if len(when) > 1 {
		if tz, err := time.Parse("-0700", when[1]); err == nil {
			date = date.In(tz.Location())
		}
	}
	return ReflogEntry{
		OldOID:        fields[0],
		OID:           fields[1],
		CommitterName: strings.TrimSpace(ident[:lt]),
		Date:          date,
		Message:       message,
	}, true
}
