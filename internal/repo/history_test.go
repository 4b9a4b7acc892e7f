package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func seedHistory(t *testing.T, opts Options) (*Repo, []string) {
	t.Helper()
	r, gr := newMemRepo(t, opts)
	c1 := commitFiles(t, gr, "first", "alice", epoch, map[string]string{"a.txt": "one\n"})
	c2 := commitFiles(t, gr, "second fix", "bob", epoch.Add(time.Hour), map[string]string{"a.txt": "one\ntwo\n", "b.txt": "x\n"})
	c3 := commitFiles(t, gr, "third\n\nwith a body", "alice", epoch.Add(2*time.Hour), map[string]string{"c.txt": "c\n"})
	return r, []string{c1.String(), c2.String(), c3.String()}
}

func messages(commits []CommitInfo) []string {
	out := make([]string, len(commits))
	for i, c := range commits {
		out[i] = c.Message
	}
	return out
}

func TestCommitLog(t *testing.T) {
	r, oids := seedHistory(t, Options{})
	ctx := context.Background()

	res, err := r.CommitLog(ctx, LogFilter{}, 0, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"third", "second fix", "first"}, messages(res.Commits))
	require.Equal(t, "with a body", res.Commits[0].Body)
	require.Equal(t, []string{oids[1]}, res.Commits[0].ParentOIDs)
	require.Contains(t, res.Commits[0].Refs, CommitRef{Name: "HEAD", Kind: RefHead})
	require.Contains(t, res.Commits[0].Refs, CommitRef{Name: "master", Kind: RefLocalBranch})

	require.Len(t, res.Graph, 3)
	for i, row := range res.Graph {
		require.Equal(t, res.Commits[i].OID, row.OID)
		require.Equal(t, 0, row.Column)
	}
}

func TestCommitLog_Filters(t *testing.T) {
	r, _ := seedHistory(t, Options{})
	ctx := context.Background()

	tests := []struct {
		name   string
		filter LogFilter
		limit  int
		skip   int
		want   []string
	}{
		{"author case-insensitive", LogFilter{Author: "ALICE"}, 0, 0, []string{"third", "first"}},
		{"message", LogFilter{Message: "FIX"}, 0, 0, []string{"second fix"}},
		{"since", LogFilter{Since: epoch.Add(time.Hour).Unix()}, 0, 0, []string{"third", "second fix"}},
		{"until", LogFilter{Until: epoch.Unix()}, 0, 0, []string{"first"}},
		{"path", LogFilter{Path: "a.txt"}, 0, 0, []string{"second fix", "first"}},
		{"skip and limit", LogFilter{}, 1, 1, []string{"second fix"}},
		{"no match", LogFilter{Author: "carol"}, 0, 0, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.CommitLog(ctx, tt.filter, tt.limit, tt.skip)
			require.NoError(t, err)
			require.Equal(t, tt.want, messages(res.Commits))
			require.Len(t, res.Graph, len(tt.want))
		})
	}
}

func TestCommitLog_UnbornHead(t *testing.T) {
	r, _ := newMemRepo(t, Options{})
	res, err := r.CommitLog(context.Background(), LogFilter{}, 10, 0)
	require.NoError(t, err)
	require.Empty(t, res.Commits)
	require.Empty(t, res.Graph)
}

func TestFileHistory(t *testing.T) {
	r, _ := seedHistory(t, Options{})
	commits, err := r.FileHistory(context.Background(), "b.txt", 10, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"second fix"}, messages(commits))
}

func TestCommitDetail(t *testing.T) {
	for _, cached := range []bool{false, true} {
		r, oids := seedHistory(t, Options{CacheEnabled: cached})
		ctx := context.Background()

		detail, err := r.CommitDetail(ctx, oids[1])
		require.NoError(t, err)
		require.Equal(t, "second fix", detail.Info.Message)
		require.ElementsMatch(t, []CommitFile{
			{Path: "a.txt", Status: ChangeModified, Additions: 1},
			{Path: "b.txt", Status: ChangeAdded, Additions: 1},
		}, detail.Files)
		require.Equal(t, CommitStats{FilesChanged: 2, Additions: 2}, detail.Stats)

		again, err := r.CommitDetail(ctx, oids[1])
		require.NoError(t, err)
		require.Equal(t, detail, again)

		root, err := r.CommitDetail(ctx, oids[0])
		require.NoError(t, err)
		require.Equal(t, []CommitFile{{Path: "a.txt", Status: ChangeAdded, Additions: 1}}, root.Files)
	}
}

func TestCommitDetail_UnknownCommit(t *testing.T) {
	r, _ := seedHistory(t, Options{})
	_, err := r.CommitDetail(context.Background(), "0123456789abcdef0123456789abcdef01234567")
	requireKind(t, err, KindNotFound, ErrCommitNotFound)
}

func TestBlame(t *testing.T) {
	r, oids := seedHistory(t, Options{CacheEnabled: true})
	ctx := context.Background()

	res, err := r.Blame(ctx, "a.txt", "")
	require.NoError(t, err)
	require.Equal(t, oids[2], res.OID)
	require.Len(t, res.Lines, 2)

	require.Equal(t, 1, res.Lines[0].LineNumber)
	require.Equal(t, "one", res.Lines[0].Content)
	require.Equal(t, oids[0], res.Lines[0].CommitOID)
	require.Equal(t, "alice", res.Lines[0].AuthorName)
	require.True(t, res.Lines[0].IsBlockStart)

	require.Equal(t, oids[1], res.Lines[1].CommitOID)
	require.Equal(t, oids[1][:7], res.Lines[1].ShortOID)
	require.True(t, res.Lines[1].IsBlockStart)

	atFirst, err := r.Blame(ctx, "a.txt", oids[0])
	require.NoError(t, err)
	require.Len(t, atFirst.Lines, 1)

	_, err = r.Blame(ctx, "missing.txt", "")
	requireKind(t, err, KindNotFound, ErrPathNotFound)
}

func TestBranchCommits(t *testing.T) {
	r, _ := seedHistory(t, Options{})
	commits, err := r.BranchCommits(context.Background(), "master", 2)
	require.NoError(t, err)
	require.Equal(t, []string{"third", "second fix"}, messages(commits))

	_, err = r.BranchCommits(context.Background(), "nope", 2)
	requireKind(t, err, KindNotFound, ErrBranchNotFound)
}
