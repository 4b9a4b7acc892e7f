package repo

import (
	"context"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/splice/internal/pubsub"
)

func branchNames(branches []BranchInfo) []string {
	out := make([]string, len(branches))
	for i, b := range branches {
		out[i] = b.Name
	}
	return out
}

func TestBranchLifecycle(t *testing.T) {
	r, gr := newMemRepo(t, Options{})
	ctx := context.Background()
	commitFiles(t, gr, "init", "alice", epoch, map[string]string{"a.txt": "a\n"})

	require.NoError(t, r.CreateBranch(ctx, "feature"))
	requireKind(t, r.CreateBranch(ctx, "feature"), KindPrecondition, ErrBranchExists)

	branches, err := r.ListBranches(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"feature", "master"}, branchNames(branches))
	require.False(t, branches[0].IsHead)
	require.True(t, branches[1].IsHead)

	requireKind(t, r.DeleteBranch(ctx, "master"), KindPrecondition, ErrCurrentBranch)

	require.NoError(t, r.RenameBranch(ctx, "feature", "topic"))
	require.NoError(t, r.RenameBranch(ctx, "master", "main"))
	current, err := r.CurrentBranch(ctx)
	require.NoError(t, err)
	require.Equal(t, "main", current)

	branches, err = r.ListBranches(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"main", "topic"}, branchNames(branches))

	require.NoError(t, r.DeleteBranch(ctx, "topic"))
	requireKind(t, r.DeleteBranch(ctx, "topic"), KindNotFound, ErrBranchNotFound)
	requireKind(t, r.CheckoutBranch(ctx, "topic"), KindNotFound, ErrBranchNotFound)
}

func TestListBranches_AheadBehind(t *testing.T) {
	r, gr := newMemRepo(t, Options{})
	ctx := context.Background()
	commitFiles(t, gr, "base", "alice", epoch, map[string]string{"a.txt": "a\n"})
	require.NoError(t, r.CreateBranch(ctx, "upstream"))
	commitFiles(t, gr, "local 1", "alice", epoch.Add(time.Minute), map[string]string{"a.txt": "b\n"})
	commitFiles(t, gr, "local 2", "alice", epoch.Add(2*time.Minute), map[string]string{"a.txt": "c\n"})

	checkout(t, r, "upstream")
	commitFiles(t, gr, "remote 1", "bob", epoch.Add(3*time.Minute), map[string]string{"b.txt": "b\n"})
	checkout(t, r, "master")

	cfg, err := gr.Config()
	require.NoError(t, err)
	cfg.Branches["master"] = &config.Branch{Name: "master", Remote: ".", Merge: plumbing.NewBranchReferenceName("upstream")}
	require.NoError(t, gr.SetConfig(cfg))

	branches, err := r.ListBranches(ctx)
	require.NoError(t, err)
	require.Equal(t, "master", branches[0].Name)
	require.Equal(t, "upstream", branches[0].Upstream)
	require.Equal(t, 2, branches[0].Ahead)
	require.Equal(t, 1, branches[0].Behind)
}

func TestListBranches_RemoteTracking(t *testing.T) {
	r, gr := newMemRepo(t, Options{})
	h := commitFiles(t, gr, "init", "alice", epoch, map[string]string{"a.txt": "a\n"})
	require.NoError(t, gr.Storer.SetReference(plumbing.NewHashReference(plumbing.NewRemoteReferenceName("origin", "main"), h)))
	require.NoError(t, gr.Storer.SetReference(plumbing.NewSymbolicReference(
		plumbing.NewRemoteReferenceName("origin", "HEAD"), plumbing.NewRemoteReferenceName("origin", "main"))))

	branches, err := r.ListBranches(context.Background())
	require.NoError(t, err)
	require.Len(t, branches, 2)
	require.Equal(t, BranchInfo{Name: "origin/main", IsRemote: true, RemoteName: "origin"}, branches[1])
}

func TestMergeBranch_FastForward(t *testing.T) {
	r, gr := newMemRepo(t, Options{})
	ctx := context.Background()
	commitFiles(t, gr, "base", "alice", epoch, map[string]string{"a.txt": "a\n"})
	require.NoError(t, r.CreateBranch(ctx, "feature"))
	checkout(t, r, "feature")
	tip := commitFiles(t, gr, "feature work", "alice", epoch.Add(time.Minute), map[string]string{"a.txt": "b\n"})
	checkout(t, r, "master")

	res, err := r.MergeBranch(ctx, "feature", FastForwardOnly)
	require.NoError(t, err)
	require.Equal(t, MergeResult{Kind: MergeFastForward, OID: tip.String()}, res)
	require.Equal(t, "b\n", readFile(t, gr, "a.txt"))

	head, err := gr.Head()
	require.NoError(t, err)
	require.Equal(t, plumbing.NewBranchReferenceName("master"), head.Name())
	require.Equal(t, tip, head.Hash())

	res, err = r.MergeBranch(ctx, "feature", MergeDefault)
	require.NoError(t, err)
	require.Equal(t, MergeUpToDate, res.Kind)
	require.Empty(t, res.OID)
}

func TestMergeBranch_FastForwardOnlyDiverged(t *testing.T) {
	r, gr := newMemRepo(t, Options{})
	ctx := context.Background()
	commitFiles(t, gr, "base", "alice", epoch, map[string]string{"a.txt": "a\n"})
	require.NoError(t, r.CreateBranch(ctx, "side"))
	checkout(t, r, "side")
	commitFiles(t, gr, "side", "alice", epoch.Add(time.Minute), map[string]string{"b.txt": "b\n"})
	checkout(t, r, "master")
	commitFiles(t, gr, "main", "alice", epoch.Add(2*time.Minute), map[string]string{"c.txt": "c\n"})

	_, err := r.MergeBranch(ctx, "side", FastForwardOnly)
	requireKind(t, err, KindPrecondition, ErrFastForwardImpossible)

	_, err = r.MergeBranch(ctx, "nope", MergeDefault)
	requireKind(t, err, KindNotFound, ErrBranchNotFound)
}

func TestCommit_Amend(t *testing.T) {
	r, gr := newMemRepo(t, Options{})
	ctx := context.Background()
	first := commitFiles(t, gr, "first", "alice", epoch, map[string]string{"a.txt": "a\n"})
	commitFiles(t, gr, "second", "alice", epoch.Add(time.Minute), map[string]string{"a.txt": "b\n"})

	writeFile(t, gr, "a.txt", "c\n")
	require.NoError(t, r.Stage(ctx, "a.txt"))
	res, err := r.Commit(ctx, "second, amended", true)
	require.NoError(t, err)

	c, err := gr.CommitObject(plumbing.NewHash(res.OID))
	require.NoError(t, err)
	require.Equal(t, []plumbing.Hash{first}, c.ParentHashes)
	require.Equal(t, "alice", c.Author.Name)
	require.NotEmpty(t, c.Committer.Name)
	require.Equal(t, "second, amended", c.Message)

	msg, err := r.HeadCommitMessage(ctx)
	require.NoError(t, err)
	require.Equal(t, "second, amended", msg)
}

func TestCommit_Rejections(t *testing.T) {
	r, gr := newMemRepo(t, Options{})
	commitFiles(t, gr, "first", "alice", epoch, map[string]string{"a.txt": "a\n"})
	_, err := r.Commit(context.Background(), "  \n", false)
	requireKind(t, err, KindPrecondition, ErrEmptyMessage)
}

func TestTags(t *testing.T) {
	r, gr := newMemRepo(t, Options{})
	ctx := context.Background()
	head := commitFiles(t, gr, "first", "alice", epoch, map[string]string{"a.txt": "a\n"})

	require.NoError(t, r.CreateTag(ctx, "v1", ""))
	require.NoError(t, r.CreateTag(ctx, "v2", "release two"))
	requireKind(t, r.CreateTag(ctx, "v2", ""), KindPrecondition, gogit.ErrTagExists)

	tags, err := r.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	require.Equal(t, "v1", tags[0].Name)
	require.False(t, tags[0].IsAnnotated)
	require.Equal(t, head.String(), tags[0].TargetOID)
	require.Equal(t, "v2", tags[1].Name)
	require.True(t, tags[1].IsAnnotated)
	require.Equal(t, head.String(), tags[1].TargetOID)
	require.Equal(t, "release two", tags[1].Message)
	require.NotEmpty(t, tags[1].TaggerName)

	commitFiles(t, gr, "second", "alice", epoch.Add(time.Minute), map[string]string{"a.txt": "b\n"})
	require.NoError(t, r.CheckoutTag(ctx, "v2"))
	current, err := r.CurrentBranch(ctx)
	require.NoError(t, err)
	require.Equal(t, "HEAD", current)
	require.Equal(t, "a\n", readFile(t, gr, "a.txt"))

	require.NoError(t, r.DeleteTag(ctx, "v1"))
	tags, err = r.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	requireKind(t, r.CheckoutTag(ctx, "v1"), KindNotFound, ErrTagNotFound)
}

func TestRemotes(t *testing.T) {
	r, _ := newMemRepo(t, Options{})
	ctx := context.Background()

	require.NoError(t, r.AddRemote(ctx, "origin", "https://example.com/a.git"))
	require.NoError(t, r.AddRemote(ctx, "backup", "https://example.com/b.git"))
	requireKind(t, r.AddRemote(ctx, "origin", "https://example.com/c.git"), KindPrecondition, gogit.ErrRemoteExists)

	require.NoError(t, r.EditRemote(ctx, "backup", "https://example.com/moved.git"))
	requireKind(t, r.EditRemote(ctx, "nope", "x"), KindNotFound, ErrRemoteNotFound)

	remotes, err := r.ListRemotes(ctx)
	require.NoError(t, err)
	require.Equal(t, []RemoteInfo{
		{Name: "backup", URL: "https://example.com/moved.git"},
		{Name: "origin", URL: "https://example.com/a.git"},
	}, remotes)

	require.NoError(t, r.RemoveRemote(ctx, "backup"))
	remotes, err = r.ListRemotes(ctx)
	require.NoError(t, err)
	require.Len(t, remotes, 1)

	_, err = r.Fetch(ctx, "nope")
	requireKind(t, err, KindNotFound, ErrRemoteNotFound)
}

func TestEvents_PublishedAfterMutation(t *testing.T) {
	r, gr := newMemRepo(t, Options{})
	commitFiles(t, gr, "first", "alice", epoch, map[string]string{"a.txt": "a\n"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := r.Subscribe(ctx)

	require.NoError(t, r.CreateBranch(ctx, "feature"))
	select {
	case ev := <-sub:
		require.Equal(t, pubsub.CreatedEvent, ev.Type)
		require.Equal(t, "create_branch", ev.Payload.Op)
		require.Equal(t, ScopeRefs, ev.Payload.Scope)
		require.Equal(t, []string{"feature"}, ev.Payload.Paths)
		require.NotEmpty(t, ev.Payload.OpID)
	case <-time.After(time.Second):
		t.Fatal("no change event")
	}

	// Rejected operations publish nothing.
	require.Error(t, r.CreateBranch(ctx, "feature"))
	select {
	case ev := <-sub:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}
