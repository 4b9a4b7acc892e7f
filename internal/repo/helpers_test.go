package repo

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not available")
	}
}

func withIdentity(opts Options) Options {
	if opts.AuthorName == "" {
		opts.AuthorName = "Test User"
		opts.AuthorEmail = "test@example.com"
	}
	return opts
}

// newMemRepo returns a Repo on in-memory storage. It supports everything
// that needs neither the git executable nor state files.
func newMemRepo(t *testing.T, opts Options) (*Repo, *gogit.Repository) {
	t.Helper()
	gr, err := gogit.Init(memory.NewStorage(), memfs.New())
	require.NoError(t, err)
	r, err := FromRepository(gr, withIdentity(opts))
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r, gr
}

// newDiskRepo initializes a repository in a temp dir and opens it.
func newDiskRepo(t *testing.T) (*Repo, *gogit.Repository) {
	t.Helper()
	dir := t.TempDir()
	gr, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	r, err := Open(dir, withIdentity(Options{}))
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r, gr
}

func writeFile(t *testing.T, gr *gogit.Repository, path, content string) {
	t.Helper()
	w, err := gr.Worktree()
	require.NoError(t, err)
	require.NoError(t, util.WriteFile(w.Filesystem, path, []byte(content), 0o644))
}

func readFile(t *testing.T, gr *gogit.Repository, path string) string {
	t.Helper()
	w, err := gr.Worktree()
	require.NoError(t, err)
	data, err := util.ReadFile(w.Filesystem, path)
	require.NoError(t, err)
	return string(data)
}

// commitFiles writes files and commits them directly through go-git with a
// fixed author and time.
func commitFiles(t *testing.T, gr *gogit.Repository, msg, author string, when time.Time, files map[string]string) plumbing.Hash {
	t.Helper()
	w, err := gr.Worktree()
	require.NoError(t, err)
	for path, content := range files {
		writeFile(t, gr, path, content)
		_, err := w.Add(path)
		require.NoError(t, err)
	}
	sig := &object.Signature{Name: author, Email: author + "@example.com", When: when}
	h, err := w.Commit(msg, &gogit.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)
	return h
}

func checkout(t *testing.T, r *Repo, branch string) {
	t.Helper()
	require.NoError(t, r.CheckoutBranch(context.Background(), branch))
}

func requireKind(t *testing.T, err error, kind Kind, target error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "error: %v", err)
	if target != nil {
		require.ErrorIs(t, err, target)
	}
}
