package repo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zjrosen/splice/internal/pubsub"
	"github.com/zjrosen/splice/internal/tracing"
)

// ListBranches returns local branches with upstream tracking counts,
// followed by remote-tracking branches.
func (r *Repo) ListBranches(ctx context.Context) ([]BranchInfo, error) {
	return run(ctx, r, "list_branches", nil, func(context.Context) ([]BranchInfo, error) {
		cfg, err := r.repo.Config()
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		current := r.currentBranch()

		var local, remote []BranchInfo
		refs, err := r.repo.References()
		if err != nil {
			return nil, fmt.Errorf("list refs: %w", err)
		}
		err = refs.ForEach(func(ref *plumbing.Reference) error {
			name := ref.Name()
			switch {
			case name.IsBranch():
				b := BranchInfo{Name: name.Short(), IsHead: name.Short() == current}
				if upstream, ok := upstreamRef(cfg, b.Name); ok {
					b.Upstream = upstream.Short()
					if up, err := r.repo.Reference(upstream, true); err == nil {
						b.Ahead, b.Behind = r.aheadBehind(ref.Hash(), up.Hash())
					}
				}
				local = append(local, b)
			case name.IsRemote():
				if strings.HasSuffix(name.String(), "/HEAD") {
					return nil
				}
				short := name.Short()
				remoteName, _, _ := strings.Cut(short, "/")
				remote = append(remote, BranchInfo{Name: short, IsRemote: true, RemoteName: remoteName})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Slice(local, func(i, j int) bool { return local[i].Name < local[j].Name })
		sort.Slice(remote, func(i, j int) bool { return remote[i].Name < remote[j].Name })
		return append(local, remote...), nil
	})
}

// upstreamRef returns the ref a local branch tracks according to config.
func upstreamRef(cfg *config.Config, branch string) (plumbing.ReferenceName, bool) {
	b, ok := cfg.Branches[branch]
	if !ok || b.Merge == "" {
		return "", false
	}
	if b.Remote == "" || b.Remote == "." {
		return b.Merge, true
	}
	return plumbing.NewRemoteReferenceName(b.Remote, b.Merge.Short()), true
}

// ancestors returns every commit reachable from h, including h.
func (r *Repo) ancestors(h plumbing.Hash) map[plumbing.Hash]bool {
	seen := make(map[plumbing.Hash]bool)
	c, err := r.repo.CommitObject(h)
	if err != nil {
		return seen
	}
	_ = object.NewCommitPreorderIter(c, nil, nil).ForEach(func(c *object.Commit) error {
		seen[c.Hash] = true
		return nil
	})
	return seen
}

// aheadBehind counts commits only reachable from local and only from upstream.
func (r *Repo) aheadBehind(local, upstream plumbing.Hash) (ahead, behind int) {
	if local == upstream {
		return 0, 0
	}
	a := r.ancestors(local)
	b := r.ancestors(upstream)
	for h := range a {
		if !b[h] {
			ahead++
		}
	}
	for h := range b {
		if !a[h] {
			behind++
		}
	}
	return ahead, behind
}

// CreateBranch creates a branch at HEAD without checking it out.
func (r *Repo) CreateBranch(ctx context.Context, name string) error {
	attrs := []attribute.KeyValue{attribute.String(tracing.AttrGitRef, name)}
	return r.exec(ctx, "create_branch", attrs, func(ctx context.Context) error {
		refName := plumbing.NewBranchReferenceName(name)
		if _, err := r.repo.Reference(refName, false); err == nil {
			return fmt.Errorf("%w: %s", ErrBranchExists, name)
		}
		head, err := r.headCommit()
		if err != nil {
			return err
		}
		if err := r.repo.Storer.SetReference(plumbing.NewHashReference(refName, head.Hash)); err != nil {
			return fmt.Errorf("create branch %s: %w", name, err)
		}
		r.publish(ctx, pubsub.CreatedEvent, "create_branch", ScopeRefs, name)
		return nil
	})
}

// CheckoutBranch switches to a local branch, overwriting working tree changes.
func (r *Repo) CheckoutBranch(ctx context.Context, name string) error {
	attrs := []attribute.KeyValue{attribute.String(tracing.AttrGitRef, name)}
	return r.exec(ctx, "checkout_branch", attrs, func(ctx context.Context) error {
		refName := plumbing.NewBranchReferenceName(name)
		if _, err := r.repo.Reference(refName, false); err != nil {
			return fmt.Errorf("%w: %s", ErrBranchNotFound, name)
		}
		w, err := r.worktree()
		if err != nil {
			return err
		}
		if err := w.Checkout(&gogit.CheckoutOptions{Branch: refName, Force: true}); err != nil {
			return fmt.Errorf("checkout %s: %w", name, err)
		}
		r.publish(ctx, pubsub.UpdatedEvent, "checkout_branch", ScopeHead, name)
		return nil
	})
}

// DeleteBranch removes a local branch and its tracking configuration.
func (r *Repo) DeleteBranch(ctx context.Context, name string) error {
	attrs := []attribute.KeyValue{attribute.String(tracing.AttrGitRef, name)}
	return r.exec(ctx, "delete_branch", attrs, func(ctx context.Context) error {
		refName := plumbing.NewBranchReferenceName(name)
		if _, err := r.repo.Reference(refName, false); err != nil {
			return fmt.Errorf("%w: %s", ErrBranchNotFound, name)
		}
		if r.currentBranch() == name {
			return fmt.Errorf("%w: %s", ErrCurrentBranch, name)
		}
		if err := r.repo.Storer.RemoveReference(refName); err != nil {
			return fmt.Errorf("delete branch %s: %w", name, err)
		}
		if err := r.repo.DeleteBranch(name); err != nil && !errors.Is(err, gogit.ErrBranchNotFound) {
			return fmt.Errorf("delete branch config %s: %w", name, err)
		}
		r.publish(ctx, pubsub.DeletedEvent, "delete_branch", ScopeRefs, name)
		return nil
	})
}

// RenameBranch renames a local branch, following HEAD and tracking config.
func (r *Repo) RenameBranch(ctx context.Context, oldName, newName string) error {
	attrs := []attribute.KeyValue{attribute.String(tracing.AttrGitRef, oldName)}
	return r.exec(ctx, "rename_branch", attrs, func(ctx context.Context) error {
		oldRef := plumbing.NewBranchReferenceName(oldName)
		newRef := plumbing.NewBranchReferenceName(newName)

		ref, err := r.repo.Reference(oldRef, false)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrBranchNotFound, oldName)
		}
		if _, err := r.repo.Reference(newRef, false); err == nil {
			return fmt.Errorf("%w: %s", ErrBranchExists, newName)
		}

		if err := r.repo.Storer.SetReference(plumbing.NewHashReference(newRef, ref.Hash())); err != nil {
			return fmt.Errorf("create %s: %w", newName, err)
		}
		if r.currentBranch() == oldName {
			if err := r.repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, newRef)); err != nil {
				return fmt.Errorf("move HEAD: %w", err)
			}
		}
		if err := r.repo.Storer.RemoveReference(oldRef); err != nil {
			return fmt.Errorf("remove %s: %w", oldName, err)
		}

		cfg, err := r.repo.Config()
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if b, ok := cfg.Branches[oldName]; ok {
			delete(cfg.Branches, oldName)
			b.Name = newName
			cfg.Branches[newName] = b
			if err := r.repo.SetConfig(cfg); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
		}
		r.publish(ctx, pubsub.UpdatedEvent, "rename_branch", ScopeRefs, oldName, newName)
		return nil
	})
}

// BranchCommits returns up to limit commits reachable from a local branch,
// newest first.
func (r *Repo) BranchCommits(ctx context.Context, name string, limit int) ([]CommitInfo, error) {
	attrs := []attribute.KeyValue{attribute.String(tracing.AttrGitRef, name)}
	return run(ctx, r, "branch_commits", attrs, func(context.Context) ([]CommitInfo, error) {
		ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), true)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrBranchNotFound, name)
		}
		refs := r.refMap()
		iter, err := r.repo.Log(&gogit.LogOptions{From: ref.Hash(), Order: gogit.LogOrderCommitterTime})
		if err != nil {
			return nil, fmt.Errorf("log %s: %w", name, err)
		}
		defer iter.Close()

		var commits []CommitInfo
		for limit <= 0 || len(commits) < limit {
			c, err := iter.Next()
			if err != nil {
				break
			}
			commits = append(commits, commitInfo(c, refs))
		}
		return commits, nil
	})
}
