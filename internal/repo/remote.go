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
	"go.opentelemetry.io/otel/attribute"

	"github.com/zjrosen/splice/internal/log"
	"github.com/zjrosen/splice/internal/pubsub"
	"github.com/zjrosen/splice/internal/tracing"
)

func remoteAttrs(name string) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String(tracing.AttrGitRemote, name)}
}

// Fetch downloads objects and refs from a remote.
func (r *Repo) Fetch(ctx context.Context, remote string) (FetchResult, error) {
	return run(ctx, r, "fetch", remoteAttrs(remote), func(ctx context.Context) (FetchResult, error) {
		res, err := r.fetch(ctx, remote)
		if err != nil {
			return FetchResult{}, err
		}
		if !res.UpToDate {
			r.publish(ctx, pubsub.UpdatedEvent, "fetch", ScopeRefs, remote)
		}
		return res, nil
	})
}

func (r *Repo) fetch(ctx context.Context, remote string) (FetchResult, error) {
	if _, err := r.repo.Remote(remote); err != nil {
		return FetchResult{}, fmt.Errorf("%w: %s", ErrRemoteNotFound, remote)
	}
	res := FetchResult{Remote: remote}
	err := r.repo.FetchContext(ctx, &gogit.FetchOptions{RemoteName: remote})
	switch {
	case errors.Is(err, gogit.NoErrAlreadyUpToDate):
		res.UpToDate = true
	case err != nil:
		return FetchResult{}, fmt.Errorf("fetch %s: %w", remote, err)
	}
	res.RefsAfter = r.remoteRefCount(remote)
	log.Debug(log.CatGit, "fetched", "remote", remote, "up_to_date", res.UpToDate, "refs", res.RefsAfter)
	return res, nil
}

// remoteRefCount counts remote-tracking refs under refs/remotes/<remote>/.
func (r *Repo) remoteRefCount(remote string) int {
	refs, err := r.repo.References()
	if err != nil {
		return 0
	}
	prefix := "refs/remotes/" + remote + "/"
	n := 0
	_ = refs.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().String()
		if strings.HasPrefix(name, prefix) && !strings.HasSuffix(name, "/HEAD") {
			n++
		}
		return nil
	})
	return n
}

// Pull fetches a remote and integrates <remote>/<current branch> by merge or
// rebase. A rebase that stops on conflicts is aborted and reported as an error.
func (r *Repo) Pull(ctx context.Context, remote string, option PullOption) (MergeResult, error) {
	return run(ctx, r, "pull", remoteAttrs(remote), func(ctx context.Context) (MergeResult, error) {
		if err := r.requireIdle(); err != nil {
			return MergeResult{}, err
		}
		branch := r.currentBranch()
		if branch == "HEAD" {
			return MergeResult{}, ErrDetachedHead
		}
		if _, err := r.fetch(ctx, remote); err != nil {
			return MergeResult{}, err
		}

		label := remote + "/" + branch
		ref, err := r.repo.Reference(plumbing.NewRemoteReferenceName(remote, branch), true)
		if err != nil {
			return MergeResult{}, fmt.Errorf("%w: %s", ErrNoUpstream, label)
		}
		theirs, err := r.repo.CommitObject(ref.Hash())
		if err != nil {
			return MergeResult{}, fmt.Errorf("%s: %w", label, err)
		}

		if option == PullMerge {
			return r.merge(ctx, theirs, label, MergeDefault)
		}

		head, err := r.headCommit()
		if err != nil {
			return MergeResult{}, err
		}
		if upToDate, err := theirs.IsAncestor(head); err != nil {
			return MergeResult{}, fmt.Errorf("merge analysis: %w", err)
		} else if upToDate || head.Hash == theirs.Hash {
			return MergeResult{Kind: MergeUpToDate}, nil
		}

		if _, err := r.runGit(ctx, "rebase", label); err != nil {
			if r.operationKind() == OpRebasing {
				if _, abortErr := r.runGit(ctx, "rebase", "--abort"); abortErr != nil {
					log.Warn(log.CatRebase, "aborting pull rebase failed", "error", abortErr)
				}
			}
			return MergeResult{}, fmt.Errorf("rebase onto %s aborted: %w", label, err)
		}
		newHead, err := r.repo.Head()
		if err != nil {
			return MergeResult{}, fmt.Errorf("resolve HEAD: %w", err)
		}
		r.publish(ctx, pubsub.UpdatedEvent, "pull", ScopeHead, label)
		return MergeResult{Kind: MergeRebase, OID: newHead.Hash().String()}, nil
	})
}

// Push sends the current branch to the same-named branch on remote, setting
// it as upstream when none is configured.
func (r *Repo) Push(ctx context.Context, remote string) (PushResult, error) {
	return run(ctx, r, "push", remoteAttrs(remote), func(ctx context.Context) (PushResult, error) {
		branch := r.currentBranch()
		if branch == "HEAD" {
			return PushResult{}, ErrDetachedHead
		}
		if _, err := r.repo.Remote(remote); err != nil {
			return PushResult{}, fmt.Errorf("%w: %s", ErrRemoteNotFound, remote)
		}

		refName := plumbing.NewBranchReferenceName(branch)
		spec := config.RefSpec(refName.String() + ":" + refName.String())
		res := PushResult{Remote: remote, Branch: branch}
		err := r.repo.PushContext(ctx, &gogit.PushOptions{RemoteName: remote, RefSpecs: []config.RefSpec{spec}})
		switch {
		case errors.Is(err, gogit.NoErrAlreadyUpToDate):
			res.UpToDate = true
		case err != nil:
			return PushResult{}, fmt.Errorf("push %s: %w", branch, err)
		}

		cfg, err := r.repo.Config()
		if err != nil {
			return PushResult{}, fmt.Errorf("read config: %w", err)
		}
		if b, ok := cfg.Branches[branch]; !ok || b.Merge == "" {
			cfg.Branches[branch] = &config.Branch{Name: branch, Remote: remote, Merge: refName}
			if err := r.repo.SetConfig(cfg); err != nil {
				return PushResult{}, fmt.Errorf("set upstream: %w", err)
			}
			res.SetUpstream = true
		}
		r.publish(ctx, pubsub.UpdatedEvent, "push", ScopeRefs, branch)
		return res, nil
	})
}

// ListRemotes returns the configured remotes sorted by name.
func (r *Repo) ListRemotes(ctx context.Context) ([]RemoteInfo, error) {
	return run(ctx, r, "list_remotes", nil, func(context.Context) ([]RemoteInfo, error) {
		cfg, err := r.repo.Config()
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		remotes := make([]RemoteInfo, 0, len(cfg.Remotes))
		for name, rc := range cfg.Remotes {
			info := RemoteInfo{Name: name, Branches: r.remoteRefCount(name)}
			if len(rc.URLs) > 0 {
				info.URL = rc.URLs[0]
			}
			if len(rc.URLs) > 1 {
				info.PushURL = rc.URLs[1]
			}
			remotes = append(remotes, info)
		}
		sort.Slice(remotes, func(i, j int) bool { return remotes[i].Name < remotes[j].Name })
		return remotes, nil
	})
}

// AddRemote configures a new remote with the default fetch refspec.
func (r *Repo) AddRemote(ctx context.Context, name, url string) error {
	return r.exec(ctx, "add_remote", remoteAttrs(name), func(ctx context.Context) error {
		if _, err := r.repo.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{url}}); err != nil {
			return fmt.Errorf("add remote %s: %w", name, err)
		}
		r.publish(ctx, pubsub.CreatedEvent, "add_remote", ScopeConfig, name)
		return nil
	})
}

// RemoveRemote deletes a remote and its remote-tracking refs.
func (r *Repo) RemoveRemote(ctx context.Context, name string) error {
	return r.exec(ctx, "remove_remote", remoteAttrs(name), func(ctx context.Context) error {
		if err := r.repo.DeleteRemote(name); err != nil {
			return fmt.Errorf("remove remote %s: %w", name, err)
		}
		refs, err := r.repo.References()
		if err != nil {
			return fmt.Errorf("list refs: %w", err)
		}
		prefix := "refs/remotes/" + name + "/"
		var stale []plumbing.ReferenceName
		_ = refs.ForEach(func(ref *plumbing.Reference) error {
			if strings.HasPrefix(ref.Name().String(), prefix) {
				stale = append(stale, ref.Name())
			}
			return nil
		})
		for _, n := range stale {
			if err := r.repo.Storer.RemoveReference(n); err != nil {
				log.Warn(log.CatGit, "removing remote-tracking ref failed", "ref", n, "error", err)
			}
		}
		r.publish(ctx, pubsub.DeletedEvent, "remove_remote", ScopeConfig, name)
		return nil
	})
}

// EditRemote replaces a remote's URL.
func (r *Repo) EditRemote(ctx context.Context, name, url string) error {
	return r.exec(ctx, "edit_remote", remoteAttrs(name), func(ctx context.Context) error {
		cfg, err := r.repo.Config()
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		rc, ok := cfg.Remotes[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrRemoteNotFound, name)
		}
		rc.URLs = []string{url}
		if err := r.repo.SetConfig(cfg); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		r.publish(ctx, pubsub.UpdatedEvent, "edit_remote", ScopeConfig, name)
		return nil
	})
}
