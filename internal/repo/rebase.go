package repo

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/splice/internal/git"
	"github.com/zjrosen/splice/internal/log"
	"github.com/zjrosen/splice/internal/pubsub"
	"github.com/zjrosen/splice/internal/tracing"
)

// rebaseTodoFile is written under .git and copied over git's todo list by
// the sequence editor.
const rebaseTodoFile = "splice-rebase-todo"

// nonInteractiveEditor keeps commit messages as they are.
var nonInteractiveEditor = []string{"GIT_EDITOR=true"}

// Rebase replays the current branch onto onto. Conflicts stop the rebase and
// are reported in the result.
func (r *Repo) Rebase(ctx context.Context, onto string) (RebaseResult, error) {
	attrs := []attribute.KeyValue{attribute.String(tracing.AttrGitRef, onto)}
	return run(ctx, r, "rebase", attrs, func(ctx context.Context) (RebaseResult, error) {
		if err := r.requireIdle(); err != nil {
			return RebaseResult{}, err
		}
		_, err := r.runGitWith(ctx, git.RunOptions{Args: []string{"rebase", onto}, Env: nonInteractiveEditor})
		return r.rebaseOutcome(ctx, "rebase", err)
	})
}

// InteractiveRebase rebases onto onto following todo instead of git's
// generated list.
func (r *Repo) InteractiveRebase(ctx context.Context, onto string, todo []RebaseTodoEntry) (RebaseResult, error) {
	attrs := []attribute.KeyValue{
		attribute.String(tracing.AttrGitRef, onto),
		attribute.Int("rebase.todo", len(todo)),
	}
	return run(ctx, r, "interactive_rebase", attrs, func(ctx context.Context) (RebaseResult, error) {
		if err := r.requireIdle(); err != nil {
			return RebaseResult{}, err
		}
		if err := r.writeState(rebaseTodoFile, formatTodo(todo)); err != nil {
			return RebaseResult{}, err
		}
		defer r.removeState(rebaseTodoFile)

		todoPath := filepath.Join(r.dotgit.Root(), rebaseTodoFile)
		editor := "cp '" + strings.ReplaceAll(todoPath, "'", `'\''`) + "'"
		_, err := r.runGitWith(ctx, git.RunOptions{
			Args: []string{"rebase", "-i", onto},
			Env:  append([]string{"GIT_SEQUENCE_EDITOR=" + editor}, nonInteractiveEditor...),
		})
		return r.rebaseOutcome(ctx, "interactive_rebase", err)
	})
}

// formatTodo renders entries as git todo lines.
func formatTodo(todo []RebaseTodoEntry) string {
	var b strings.Builder
	for _, e := range todo {
		oid := e.ShortOID
		if oid == "" {
			oid = e.OID
		}
		fmt.Fprintf(&b, "%s %s %s\n", e.Action, oid, e.Message)
	}
	return b.String()
}

// rebaseOutcome turns the result of a rebase step into a RebaseResult. A
// rebase left in progress without an error stopped at an edit step.
func (r *Repo) rebaseOutcome(ctx context.Context, op string, runErr error) (RebaseResult, error) {
	conflicts, err := r.conflictedPaths()
	if err != nil {
		return RebaseResult{}, err
	}
	inProgress := r.operationKind() == OpRebasing
	if runErr != nil && !(inProgress && len(conflicts) > 0) {
		return RebaseResult{}, runErr
	}
	if len(conflicts) > 0 {
		trace.SpanFromContext(ctx).AddEvent(tracing.EventConflicts,
			trace.WithAttributes(attribute.Int(tracing.AttrConflicts, len(conflicts))))
		log.Info(log.CatRebase, "rebase stopped on conflicts", "op", op, "conflicts", len(conflicts))
	}
	r.publishStep(ctx, op, conflicts)
	return RebaseResult{Completed: !inProgress, Conflicts: conflicts}, nil
}

// IsRebasing reports whether a rebase awaits continue or abort.
func (r *Repo) IsRebasing(ctx context.Context) (bool, error) {
	return run(ctx, r, "is_rebasing", nil, func(context.Context) (bool, error) {
		return r.operationKind() == OpRebasing, nil
	})
}

// AbortRebase restores the branch to its state before the rebase.
func (r *Repo) AbortRebase(ctx context.Context) error {
	return r.exec(ctx, "abort_rebase", nil, func(ctx context.Context) error {
		if r.operationKind() != OpRebasing {
			return ErrNoOperation
		}
		if _, err := r.runGit(ctx, "rebase", "--abort"); err != nil {
			return err
		}
		r.publish(ctx, pubsub.UpdatedEvent, "abort_rebase", ScopeHead)
		return nil
	})
}

// ContinueRebase resumes a rebase once its conflicts are resolved and staged.
func (r *Repo) ContinueRebase(ctx context.Context) (RebaseResult, error) {
	return run(ctx, r, "continue_rebase", nil, func(ctx context.Context) (RebaseResult, error) {
		if r.operationKind() != OpRebasing {
			return RebaseResult{}, ErrNoOperation
		}
		if err := r.requireResolved(); err != nil {
			return RebaseResult{}, err
		}
		_, err := r.runGitWith(ctx, git.RunOptions{Args: []string{"rebase", "--continue"}, Env: nonInteractiveEditor})
		return r.rebaseOutcome(ctx, "continue_rebase", err)
	})
}

// RebaseState describes the rebase in progress, or returns nil when there is
// none. Missing step files read as zero.
func (r *Repo) RebaseState(ctx context.Context) (*RebaseState, error) {
	return run(ctx, r, "rebase_state", nil, func(context.Context) (*RebaseState, error) {
		var dir string
		switch {
		case r.stateExists(rebaseMergeDir):
			dir = rebaseMergeDir
		case r.stateExists(rebaseApplyDir):
			dir = rebaseApplyDir
		default:
			return nil, nil
		}
		read := func(name string) string {
			data, err := util.ReadFile(r.dotgit, path.Join(dir, name))
			if err != nil {
				return ""
			}
			return strings.TrimSpace(string(data))
		}
		number := func(name string) int {
			n, _ := strconv.Atoi(read(name))
			return n
		}

		conflicts, err := r.conflictedPaths()
		if err != nil {
			return nil, err
		}
		st := &RebaseState{
			OntoOID:      read("onto"),
			CurrentStep:  number("msgnum"),
			TotalSteps:   number("end"),
			HasConflicts: len(conflicts) > 0,
		}
		st.OntoBranch = strings.TrimPrefix(read("onto_name"), "refs/heads/")
		if st.OntoBranch == "" {
			st.OntoBranch = st.OntoOID
		}
		return st, nil
	})
}

// RebaseTodo lists, oldest first, the commits a rebase onto onto would
// replay, all as picks. Merge commits are left out as git does.
func (r *Repo) RebaseTodo(ctx context.Context, onto string, limit int) ([]RebaseTodoEntry, error) {
	attrs := []attribute.KeyValue{attribute.String(tracing.AttrGitRef, onto)}
	return run(ctx, r, "rebase_todo", attrs, func(context.Context) ([]RebaseTodoEntry, error) {
		target, err := r.resolveCommit(onto)
		if err != nil {
			return nil, err
		}
		head, err := r.headCommit()
		if err != nil {
			return nil, err
		}
		bases, err := head.MergeBase(target)
		if err != nil {
			return nil, fmt.Errorf("merge base: %w", err)
		}
		hidden := make(map[plumbing.Hash]bool)
		for _, b := range bases {
			for h := range r.ancestors(b.Hash) {
				hidden[h] = true
			}
		}

		var picked []*object.Commit
		err = object.NewCommitPreorderIter(head, hidden, nil).ForEach(func(c *object.Commit) error {
			if c.NumParents() <= 1 {
				picked = append(picked, c)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk: %w", err)
		}

		entries := []RebaseTodoEntry{}
		for i := len(picked) - 1; i >= 0; i-- {
			if limit > 0 && len(entries) >= limit {
				break
			}
			info := commitInfo(picked[i], nil)
			entries = append(entries, RebaseTodoEntry{
				Action:     ActionPick,
				OID:        info.OID,
				ShortOID:   info.ShortOID,
				Message:    info.Message,
				AuthorName: info.AuthorName,
			})
		}
		return entries, nil
	})
}
