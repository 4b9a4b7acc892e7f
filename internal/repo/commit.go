package repo

import (
	"context"
	"fmt"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zjrosen/splice/internal/pubsub"
)

// Commit records the index as a new commit on the current branch. With amend
// the new commit replaces HEAD, keeping HEAD's parents and original author.
func (r *Repo) Commit(ctx context.Context, message string, amend bool) (CommitResult, error) {
	attrs := []attribute.KeyValue{attribute.Bool("commit.amend", amend)}
	return run(ctx, r, "commit", attrs, func(ctx context.Context) (CommitResult, error) {
		if strings.TrimSpace(message) == "" {
			return CommitResult{}, ErrEmptyMessage
		}
		if err := r.requireResolved(); err != nil {
			return CommitResult{}, err
		}

		opts := &gogit.CommitOptions{}
		if amend {
			head, err := r.headCommit()
			if err != nil {
				return CommitResult{}, err
			}
			opts.Parents = head.ParentHashes
			author := head.Author
			opts.Author = &author
			opts.AllowEmptyCommits = true
		}

		h, err := r.commitIndex(message, opts)
		if err != nil {
			return CommitResult{}, err
		}
		r.publish(ctx, pubsub.CreatedEvent, "commit", ScopeHead)
		return CommitResult{OID: h.String()}, nil
	})
}

// commitIndex commits the index with the configured identity. Unset author
// and committer in opts are filled in.
func (r *Repo) commitIndex(message string, opts *gogit.CommitOptions) (plumbing.Hash, error) {
	sig, err := r.signature()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if opts.Author == nil {
		opts.Author = sig
	}
	if opts.Committer == nil {
		committer := *sig
		opts.Committer = &committer
	}
	w, err := r.worktree()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	h, err := w.Commit(message, opts)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("commit: %w", err)
	}
	return h, nil
}

// commitInfo converts a go-git commit. refs may be nil.
func commitInfo(c *object.Commit, refs map[plumbing.Hash][]CommitRef) CommitInfo {
	subject, body, _ := strings.Cut(strings.TrimRight(c.Message, "\n"), "\n")
	parents := make([]string, 0, len(c.ParentHashes))
	for _, p := range c.ParentHashes {
		parents = append(parents, p.String())
	}
	oid := c.Hash.String()
	return CommitInfo{
		OID:         oid,
		ShortOID:    shortOID(oid),
		Message:     strings.TrimSpace(subject),
		Body:        strings.TrimSpace(body),
		AuthorName:  c.Author.Name,
		AuthorEmail: c.Author.Email,
		AuthorDate:  c.Author.When,
		ParentOIDs:  parents,
		Refs:        refs[c.Hash],
	}
}
