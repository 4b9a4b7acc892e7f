package repo

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/splice/internal/git"
	"github.com/zjrosen/splice/internal/log"
	"github.com/zjrosen/splice/internal/pubsub"
	"github.com/zjrosen/splice/internal/tracing"
)

// stepOutcome is the state after one cherry-pick or revert invocation.
type stepOutcome struct {
	completed bool
	conflicts []string
	oid       string
}

// sequence runs a cherry-pick or revert command and inspects the result.
// kind is the state the command leaves behind while it awaits continue.
func (r *Repo) sequence(ctx context.Context, kind OperationKind, committed bool, args ...string) (stepOutcome, error) {
	_, runErr := r.runGitWith(ctx, git.RunOptions{Args: args, Env: nonInteractiveEditor})

	conflicts, err := r.conflictedPaths()
	if err != nil {
		return stepOutcome{}, err
	}
	if runErr != nil && len(conflicts) == 0 {
		return stepOutcome{}, runErr
	}
	out := stepOutcome{completed: r.operationKind() != kind && len(conflicts) == 0, conflicts: conflicts}
	if len(conflicts) > 0 {
		trace.SpanFromContext(ctx).AddEvent(tracing.EventConflicts,
			trace.WithAttributes(attribute.Int(tracing.AttrConflicts, len(conflicts))))
		log.Info(log.CatRebase, args[0]+" stopped on conflicts", "conflicts", len(conflicts))
	}
	if out.completed && committed {
		if head, err := r.repo.Head(); err == nil {
			out.oid = head.Hash().String()
		}
	}
	return out, nil
}

// CherryPick applies the given commits, oldest first, on top of HEAD.
func (r *Repo) CherryPick(ctx context.Context, oids []string, mode CherryPickMode) (CherryPickResult, error) {
	attrs := []attribute.KeyValue{attribute.String(tracing.AttrGitOID, strings.Join(oids, ","))}
	return run(ctx, r, "cherry_pick", attrs, func(ctx context.Context) (CherryPickResult, error) {
		if err := r.requireIdle(); err != nil {
			return CherryPickResult{}, err
		}
		args := []string{"cherry-pick"}
		switch mode {
		case CherryPickNoCommit:
			args = append(args, "--no-commit")
		case CherryPickMerge:
			args = append(args, "-m", "1")
		}
		args = append(args, oids...)

		out, err := r.sequence(ctx, OpCherryPicking, mode != CherryPickNoCommit, args...)
		if err != nil {
			return CherryPickResult{}, err
		}
		r.publishStep(ctx, "cherry_pick", out.conflicts)
		return CherryPickResult{Completed: out.completed, Conflicts: out.conflicts, OID: out.oid}, nil
	})
}

// IsCherryPicking reports whether a cherry-pick awaits continue or abort.
func (r *Repo) IsCherryPicking(ctx context.Context) (bool, error) {
	return run(ctx, r, "is_cherry_picking", nil, func(context.Context) (bool, error) {
		return r.operationKind() == OpCherryPicking, nil
	})
}

// AbortCherryPick returns to the state before the cherry-pick started.
func (r *Repo) AbortCherryPick(ctx context.Context) error {
	return r.abortSequence(ctx, "abort_cherry_pick", OpCherryPicking, "cherry-pick")
}

// ContinueCherryPick commits the resolved pick and applies the remaining ones.
func (r *Repo) ContinueCherryPick(ctx context.Context) (CherryPickResult, error) {
	return run(ctx, r, "continue_cherry_pick", nil, func(ctx context.Context) (CherryPickResult, error) {
		out, err := r.continueSequence(ctx, OpCherryPicking, "cherry-pick")
		if err != nil {
			return CherryPickResult{}, err
		}
		r.publishStep(ctx, "continue_cherry_pick", out.conflicts)
		return CherryPickResult{Completed: out.completed, Conflicts: out.conflicts, OID: out.oid}, nil
	})
}

// Revert creates a commit undoing oid, or only stages the inverse with
// RevertNoCommit.
func (r *Repo) Revert(ctx context.Context, oid string, mode RevertMode) (RevertResult, error) {
	attrs := []attribute.KeyValue{attribute.String(tracing.AttrGitOID, oid)}
	return run(ctx, r, "revert", attrs, func(ctx context.Context) (RevertResult, error) {
		if err := r.requireIdle(); err != nil {
			return RevertResult{}, err
		}
		args := []string{"revert"}
		switch mode {
		case RevertNoCommit:
			args = append(args, "--no-commit")
		case RevertEdit:
			args = append(args, "--edit")
		default:
			args = append(args, "--no-edit")
		}
		args = append(args, oid)

		out, err := r.sequence(ctx, OpReverting, mode != RevertNoCommit, args...)
		if err != nil {
			return RevertResult{}, err
		}
		r.publishStep(ctx, "revert", out.conflicts)
		return RevertResult{Completed: out.completed, Conflicts: out.conflicts, OID: out.oid}, nil
	})
}

// IsReverting reports whether a revert awaits continue or abort.
func (r *Repo) IsReverting(ctx context.Context) (bool, error) {
	return run(ctx, r, "is_reverting", nil, func(context.Context) (bool, error) {
		return r.operationKind() == OpReverting, nil
	})
}

// AbortRevert returns to the state before the revert started.
func (r *Repo) AbortRevert(ctx context.Context) error {
	return r.abortSequence(ctx, "abort_revert", OpReverting, "revert")
}

// ContinueRevert commits the resolved revert.
func (r *Repo) ContinueRevert(ctx context.Context) (RevertResult, error) {
	return run(ctx, r, "continue_revert", nil, func(ctx context.Context) (RevertResult, error) {
		out, err := r.continueSequence(ctx, OpReverting, "revert")
		if err != nil {
			return RevertResult{}, err
		}
		r.publishStep(ctx, "continue_revert", out.conflicts)
		return RevertResult{Completed: out.completed, Conflicts: out.conflicts, OID: out.oid}, nil
	})
}

func (r *Repo) abortSequence(ctx context.Context, op string, kind OperationKind, command string) error {
	return r.exec(ctx, op, nil, func(ctx context.Context) error {
		if r.operationKind() != kind {
			return ErrNoOperation
		}
		if _, err := r.runGit(ctx, command, "--abort"); err != nil {
			return err
		}
		r.publish(ctx, pubsub.UpdatedEvent, op, ScopeHead)
		return nil
	})
}

func (r *Repo) continueSequence(ctx context.Context, kind OperationKind, command string) (stepOutcome, error) {
	if r.operationKind() != kind {
		return stepOutcome{}, ErrNoOperation
	}
	if err := r.requireResolved(); err != nil {
		return stepOutcome{}, err
	}
	return r.sequence(ctx, kind, true, command, "--continue")
}
