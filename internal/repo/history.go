package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zjrosen/splice/internal/diff"
	"github.com/zjrosen/splice/internal/graph"
	"github.com/zjrosen/splice/internal/tracing"
)

// CommitLog walks history from HEAD in committer-time order, applies filter,
// then skip and limit, and lays out the graph for the returned page.
func (r *Repo) CommitLog(ctx context.Context, filter LogFilter, limit, skip int) (CommitLogResult, error) {
	return run(ctx, r, "commit_log", nil, func(context.Context) (CommitLogResult, error) {
		commits, err := r.walk(filter, limit, skip)
		if err != nil {
			return CommitLogResult{}, err
		}
		nodes := make([]graph.Commit, len(commits))
		for i, c := range commits {
			nodes[i] = graph.Commit{OID: c.OID, Parents: c.ParentOIDs}
		}
		return CommitLogResult{Commits: commits, Graph: graph.Build(nodes)}, nil
	})
}

// FileHistory returns commits that changed path, newest first.
func (r *Repo) FileHistory(ctx context.Context, path string, limit, skip int) ([]CommitInfo, error) {
	attrs := []attribute.KeyValue{attribute.String(tracing.AttrGitPath, path)}
	return run(ctx, r, "file_history", attrs, func(context.Context) ([]CommitInfo, error) {
		return r.walk(LogFilter{Path: path}, limit, skip)
	})
}

// walk collects matching commits reachable from HEAD. An unborn HEAD yields
// no commits.
func (r *Repo) walk(filter LogFilter, limit, skip int) ([]CommitInfo, error) {
	head, err := r.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	iter, err := r.repo.Log(&gogit.LogOptions{From: head.Hash(), Order: gogit.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	defer iter.Close()

	refs := r.refMap()
	author := strings.ToLower(filter.Author)
	message := strings.ToLower(filter.Message)

	commits := []CommitInfo{}
	matched := 0
	for limit <= 0 || len(commits) < limit {
		c, err := iter.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("log: %w", err)
		}
		when := c.Committer.When.Unix()
		switch {
		case author != "" && !strings.Contains(strings.ToLower(c.Author.Name), author),
			filter.Since != 0 && when < filter.Since,
			filter.Until != 0 && when > filter.Until,
			message != "" && !strings.Contains(strings.ToLower(c.Message), message),
			filter.Path != "" && !touchesPath(c, filter.Path):
			continue
		}
		matched++
		if matched <= skip {
			continue
		}
		commits = append(commits, commitInfo(c, refs))
	}
	return commits, nil
}

// touchesPath reports whether c changed path relative to its first parent.
// A root commit touches every path it contains.
func touchesPath(c *object.Commit, path string) bool {
	entry := func(c *object.Commit) (plumbing.Hash, bool) {
		t, err := c.Tree()
		if err != nil {
			return plumbing.ZeroHash, false
		}
		e, err := t.FindEntry(path)
		if err != nil {
			return plumbing.ZeroHash, false
		}
		return e.Hash, true
	}
	mine, ok := entry(c)
	if c.NumParents() == 0 {
		return ok
	}
	parent, err := c.Parent(0)
	if err != nil {
		return ok
	}
	theirs, parentOK := entry(parent)
	return ok != parentOK || mine != theirs
}

// refMap maps commit hashes to the refs decorating them. Annotated tags are
// peeled to their commit.
func (r *Repo) refMap() map[plumbing.Hash][]CommitRef {
	refs := make(map[plumbing.Hash][]CommitRef)
	if head, err := r.repo.Head(); err == nil {
		refs[head.Hash()] = append(refs[head.Hash()], CommitRef{Name: "HEAD", Kind: RefHead})
	}
	iter, err := r.repo.References()
	if err != nil {
		return refs
	}
	_ = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		name := ref.Name()
		h := ref.Hash()
		var kind CommitRefKind
		switch {
		case name.IsBranch():
			kind = RefLocalBranch
		case name.IsRemote():
			if strings.HasSuffix(name.String(), "/HEAD") {
				return nil
			}
			kind = RefRemoteBranch
		case name.IsTag():
			kind = RefTag
			if tag, err := r.repo.TagObject(h); err == nil {
				c, err := tag.Commit()
				if err != nil {
					return nil
				}
				h = c.Hash
			}
		default:
			return nil
		}
		refs[h] = append(refs[h], CommitRef{Name: name.Short(), Kind: kind})
		return nil
	})
	return refs
}

// CommitDetail returns a commit with its changed files relative to its first
// parent. Results are cached per commit.
func (r *Repo) CommitDetail(ctx context.Context, oid string) (CommitDetail, error) {
	attrs := []attribute.KeyValue{attribute.String(tracing.AttrGitOID, oid)}
	return run(ctx, r, "commit_detail", attrs, func(ctx context.Context) (CommitDetail, error) {
		c, err := r.resolveCommit(oid)
		if err != nil {
			return CommitDetail{}, err
		}
		detail, err := r.details.Get(ctx, "detail:"+c.Hash.String(), c.Hash, r.cacheTTL)
		if err != nil {
			return CommitDetail{}, err
		}
		detail.Info.Refs = r.refMap()[c.Hash]
		return detail, nil
	})
}

func (r *Repo) loadCommitDetail(ctx context.Context, h plumbing.Hash) (CommitDetail, error) {
	c, err := r.repo.CommitObject(h)
	if err != nil {
		return CommitDetail{}, fmt.Errorf("%w: %s", ErrCommitNotFound, h)
	}
	tree, err := c.Tree()
	if err != nil {
		return CommitDetail{}, fmt.Errorf("commit tree: %w", err)
	}
	parentTree := &object.Tree{}
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return CommitDetail{}, fmt.Errorf("parent: %w", err)
		}
		if parentTree, err = parent.Tree(); err != nil {
			return CommitDetail{}, fmt.Errorf("parent tree: %w", err)
		}
	}

	changes, err := object.DiffTreeWithOptions(ctx, parentTree, tree, &object.DiffTreeOptions{DetectRenames: true})
	if err != nil {
		return CommitDetail{}, fmt.Errorf("diff tree: %w", err)
	}

	detail := CommitDetail{Info: commitInfo(c, nil), Files: []CommitFile{}}
	for _, ch := range changes {
		f, err := commitFile(ctx, ch)
		if err != nil {
			return CommitDetail{}, err
		}
		detail.Files = append(detail.Files, f)
		detail.Stats.Additions += f.Additions
		detail.Stats.Deletions += f.Deletions
	}
	detail.Stats.FilesChanged = len(detail.Files)
	return detail, nil
}

func commitFile(ctx context.Context, ch *object.Change) (CommitFile, error) {
	action, err := ch.Action()
	if err != nil {
		return CommitFile{}, fmt.Errorf("change action: %w", err)
	}
	f := CommitFile{Path: ch.To.Name}
	switch {
	case action == merkletrie.Insert:
		f.Status = ChangeAdded
	case action == merkletrie.Delete:
		f.Status = ChangeDeleted
		f.Path = ch.From.Name
	case ch.From.Name != ch.To.Name:
		f.Status = ChangeRenamed
		f.OldPath = ch.From.Name
	default:
		f.Status = ChangeModified
	}

	patch, err := ch.PatchContext(ctx)
	if err != nil {
		return CommitFile{}, fmt.Errorf("patch %s: %w", f.Path, err)
	}
	for _, s := range patch.Stats() {
		f.Additions += s.Addition
		f.Deletions += s.Deletion
	}
	return f, nil
}

// CommitFileDiff returns the diff of one path in a commit against its first
// parent, with word highlights.
func (r *Repo) CommitFileDiff(ctx context.Context, oid, path string) (diff.FileDiff, error) {
	attrs := []attribute.KeyValue{
		attribute.String(tracing.AttrGitOID, oid),
		attribute.String(tracing.AttrGitPath, path),
	}
	return run(ctx, r, "commit_file_diff", attrs, func(ctx context.Context) (diff.FileDiff, error) {
		c, err := r.resolveCommit(oid)
		if err != nil {
			return diff.FileDiff{}, err
		}
		unified := "-U" + strconv.Itoa(r.contextLines)
		args := []string{"show", "--format=", "--no-color", "--no-ext-diff", unified, c.Hash.String(), "--", path}
		if c.NumParents() > 0 {
			args = []string{"diff", "--no-color", "--no-ext-diff", unified, c.ParentHashes[0].String(), c.Hash.String(), "--", path}
		}
		out, err := r.runGitDiff(ctx, args...)
		if err != nil {
			return diff.FileDiff{}, err
		}
		files, err := diff.Parse(out)
		if err != nil {
			return diff.FileDiff{}, err
		}
		if len(files) == 0 {
			return diff.FileDiff{}, fmt.Errorf("%w: %s in %s", ErrPathNotFound, path, shortOID(c.Hash.String()))
		}
		diff.ApplyWordDiff(files)
		return files[0], nil
	})
}

// blameInput identifies a blame computation.
type blameInput struct {
	commit plumbing.Hash
	path   string
}

// Blame attributes every line of path at rev, HEAD when rev is empty.
// Results are cached per commit and path.
func (r *Repo) Blame(ctx context.Context, path, rev string) (BlameResult, error) {
	attrs := []attribute.KeyValue{attribute.String(tracing.AttrGitPath, path)}
	return run(ctx, r, "blame", attrs, func(ctx context.Context) (BlameResult, error) {
		if rev == "" {
			rev = "HEAD"
		}
		c, err := r.resolveCommit(rev)
		if err != nil {
			return BlameResult{}, err
		}
		key := "blame:" + c.Hash.String() + ":" + path
		return r.blames.Get(ctx, key, blameInput{commit: c.Hash, path: path}, r.cacheTTL)
	})
}

func (r *Repo) loadBlame(_ context.Context, in blameInput) (BlameResult, error) {
	c, err := r.repo.CommitObject(in.commit)
	if err != nil {
		return BlameResult{}, fmt.Errorf("%w: %s", ErrCommitNotFound, in.commit)
	}
	if _, err := c.File(in.path); err != nil {
		return BlameResult{}, fmt.Errorf("%w: %s", ErrPathNotFound, in.path)
	}
	b, err := gogit.Blame(c, in.path)
	if err != nil {
		return BlameResult{}, fmt.Errorf("blame %s: %w", in.path, err)
	}

	res := BlameResult{Path: in.path, OID: in.commit.String(), Lines: make([]BlameLine, 0, len(b.Lines))}
	var prev plumbing.Hash
	for i, l := range b.Lines {
		oid := l.Hash.String()
		res.Lines = append(res.Lines, BlameLine{
			LineNumber:   i + 1,
			Content:      l.Text,
			CommitOID:    oid,
			ShortOID:     shortOID(oid),
			AuthorName:   l.AuthorName,
			AuthorDate:   l.Date,
			IsBlockStart: i == 0 || l.Hash != prev,
		})
		prev = l.Hash
	}
	return res, nil
}
