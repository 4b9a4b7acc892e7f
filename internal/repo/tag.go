package repo

import (
	"context"
	"fmt"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zjrosen/splice/internal/pubsub"
	"github.com/zjrosen/splice/internal/tracing"
)

// ListTags returns tags sorted by name, peeled to the commit they mark.
func (r *Repo) ListTags(ctx context.Context) ([]TagInfo, error) {
	return run(ctx, r, "list_tags", nil, func(context.Context) ([]TagInfo, error) {
		iter, err := r.repo.Tags()
		if err != nil {
			return nil, fmt.Errorf("list tags: %w", err)
		}
		tags := []TagInfo{}
		err = iter.ForEach(func(ref *plumbing.Reference) error {
			info := TagInfo{Name: ref.Name().Short()}
			target := ref.Hash()
			if tag, err := r.repo.TagObject(ref.Hash()); err == nil {
				c, err := tag.Commit()
				if err != nil {
					// Tags of trees or blobs have no commit to show.
					return nil
				}
				target = c.Hash
				info.IsAnnotated = true
				info.TaggerName = tag.Tagger.Name
				info.TaggerDate = tag.Tagger.When
				info.Message = strings.TrimSpace(tag.Message)
			}
			info.TargetOID = target.String()
			info.TargetShortOID = shortOID(info.TargetOID)
			tags = append(tags, info)
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
		return tags, nil
	})
}

// CreateTag tags HEAD. A non-empty message makes an annotated tag.
func (r *Repo) CreateTag(ctx context.Context, name, message string) error {
	attrs := []attribute.KeyValue{attribute.String(tracing.AttrGitRef, name)}
	return r.exec(ctx, "create_tag", attrs, func(ctx context.Context) error {
		head, err := r.headCommit()
		if err != nil {
			return err
		}
		var opts *gogit.CreateTagOptions
		if message != "" {
			sig, err := r.signature()
			if err != nil {
				return err
			}
			opts = &gogit.CreateTagOptions{Tagger: sig, Message: message}
		}
		if _, err := r.repo.CreateTag(name, head.Hash, opts); err != nil {
			return fmt.Errorf("create tag %s: %w", name, err)
		}
		r.publish(ctx, pubsub.CreatedEvent, "create_tag", ScopeRefs, name)
		return nil
	})
}

// DeleteTag removes refs/tags/<name>.
func (r *Repo) DeleteTag(ctx context.Context, name string) error {
	attrs := []attribute.KeyValue{attribute.String(tracing.AttrGitRef, name)}
	return r.exec(ctx, "delete_tag", attrs, func(ctx context.Context) error {
		if err := r.repo.DeleteTag(name); err != nil {
			return fmt.Errorf("delete tag %s: %w", name, err)
		}
		r.publish(ctx, pubsub.DeletedEvent, "delete_tag", ScopeRefs, name)
		return nil
	})
}

// CheckoutTag detaches HEAD at the tagged commit, overwriting working tree
// changes.
func (r *Repo) CheckoutTag(ctx context.Context, name string) error {
	attrs := []attribute.KeyValue{attribute.String(tracing.AttrGitRef, name)}
	return r.exec(ctx, "checkout_tag", attrs, func(ctx context.Context) error {
		ref, err := r.repo.Tag(name)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrTagNotFound, name)
		}
		target := ref.Hash()
		if tag, err := r.repo.TagObject(target); err == nil {
			c, err := tag.Commit()
			if err != nil {
				return fmt.Errorf("tag %s: %w", name, err)
			}
			target = c.Hash
		}
		w, err := r.worktree()
		if err != nil {
			return err
		}
		if err := w.Checkout(&gogit.CheckoutOptions{Hash: target, Force: true}); err != nil {
			return fmt.Errorf("checkout %s: %w", name, err)
		}
		r.publish(ctx, pubsub.UpdatedEvent, "checkout_tag", ScopeHead, name)
		return nil
	})
}
