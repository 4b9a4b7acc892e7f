package repo

import (
	"context"
	"slices"

	"github.com/zjrosen/splice/internal/pubsub"
	"github.com/zjrosen/splice/internal/tracing"
)

// Scope is the part of the repository a change touched.
type Scope string

const (
	ScopeIndex    Scope = "index"
	ScopeWorktree Scope = "worktree"
	ScopeRefs     Scope = "refs"
	ScopeHead     Scope = "head"
	ScopeConfig   Scope = "config"
	ScopeStash    Scope = "stash"
)

// Change is published after every successful mutation.
type Change struct {
	Op    string   `json:"op"`
	Scope Scope    `json:"scope"`
	Paths []string `json:"paths,omitempty"`
	OpID  string   `json:"op_id"`
}

// publish announces a change. Deletions of refs or entries use DeletedEvent,
// creations CreatedEvent, everything else UpdatedEvent.
func (r *Repo) publish(ctx context.Context, eventType pubsub.EventType, op string, scope Scope, paths ...string) {
	if r.events == nil {
		return
	}
	r.events.Publish(eventType, Change{
		Op:    op,
		Scope: scope,
		Paths: paths,
		OpID:  tracing.OpIDFromContext(ctx),
	})
}

// publishStep announces one step of a merge, rebase, cherry-pick or revert.
// A step that stopped on conflicts is a ConflictedEvent over the worktree
// listing the conflicted paths.
func (r *Repo) publishStep(ctx context.Context, op string, conflicts []string) {
	if len(conflicts) > 0 {
		r.publish(ctx, pubsub.ConflictedEvent, op, ScopeWorktree, conflicts...)
		return
	}
	r.publish(ctx, pubsub.UpdatedEvent, op, ScopeHead)
}

// Subscribe streams change events until ctx is cancelled.
func (r *Repo) Subscribe(ctx context.Context) <-chan pubsub.Event[Change] {
	return r.events.Subscribe(ctx)
}

// SubscribeScopes streams only the changes touching one of scopes.
func (r *Repo) SubscribeScopes(ctx context.Context, scopes ...Scope) <-chan pubsub.Event[Change] {
	return pubsub.Filter(ctx, r.events.Subscribe(ctx), func(ev pubsub.Event[Change]) bool {
		return slices.Contains(scopes, ev.Payload.Scope)
	})
}
