package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/splice/internal/config"
	"github.com/zjrosen/splice/internal/conflict"
	"github.com/zjrosen/splice/internal/diff"
	"github.com/zjrosen/splice/internal/repo"
)

func TestParseHunkID(t *testing.T) {
	id, err := parseHunkID("1, 2,3,4")
	require.NoError(t, err)
	require.Equal(t, diff.HunkIdentifier{OldStart: 1, OldLines: 2, NewStart: 3, NewLines: 4}, id)

	for _, bad := range []string{"", "1,2,3", "1,2,3,x", "1,-2,3,4", "1,2,3,4,5"} {
		_, err := parseHunkID(bad)
		require.Error(t, err, bad)
	}
}

func TestParseIndices(t *testing.T) {
	tests := []struct {
		in   string
		want []int
		err  bool
	}{
		{in: "0", want: []int{0}},
		{in: "1,3-5", want: []int{1, 3, 4, 5}},
		{in: " 2 , 7 ", want: []int{2, 7}},
		{in: "5-3", err: true},
		{in: "a", err: true},
		{in: "-1", err: true},
		{in: ",", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseIndices(tt.in)
			if tt.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseResolution(t *testing.T) {
	res, err := parseResolution("theirs", "")
	require.NoError(t, err)
	require.Equal(t, conflict.Theirs, res.Kind)

	_, err = parseResolution("ours", "x.txt")
	require.Error(t, err, "--file only applies to manual")

	_, err = parseResolution("manual", "")
	require.Error(t, err)

	_, err = parseResolution("mine", "")
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "merged.txt")
	require.NoError(t, os.WriteFile(file, []byte("merged\n"), 0o600))
	res, err = parseResolution("manual", file)
	require.NoError(t, err)
	require.Equal(t, conflict.ResolveManual("merged\n"), res)
}

func TestParseTodo(t *testing.T) {
	todo, err := parseTodo(`# rebase onto main
pick abc123 first change
s def456

f 789abc fixup message
drop 000111 gone
`)
	require.NoError(t, err)
	require.Equal(t, []repo.RebaseTodoEntry{
		{Action: repo.ActionPick, OID: "abc123", ShortOID: "abc123", Message: "first change"},
		{Action: repo.ActionSquash, OID: "def456", ShortOID: "def456"},
		{Action: repo.ActionFixup, OID: "789abc", ShortOID: "789abc", Message: "fixup message"},
		{Action: repo.ActionDrop, OID: "000111", ShortOID: "000111", Message: "gone"},
	}, todo)

	_, err = parseTodo("# nothing\n")
	require.Error(t, err)
	_, err = parseTodo("pick\n")
	require.ErrorContains(t, err, "line 1")
	_, err = parseTodo("pick a\nsplat b\n")
	require.ErrorContains(t, err, "line 2")
}

func TestParseResetMode(t *testing.T) {
	mode, err := parseResetMode(false, false)
	require.NoError(t, err)
	require.Equal(t, repo.ResetMixed, mode)

	mode, err = parseResetMode(true, false)
	require.NoError(t, err)
	require.Equal(t, repo.ResetSoft, mode)

	mode, err = parseResetMode(false, true)
	require.NoError(t, err)
	require.Equal(t, repo.ResetHard, mode)

	_, err = parseResetMode(true, true)
	require.Error(t, err)
}

func TestParseStashIndex(t *testing.T) {
	for in, want := range map[string]int{"0": 0, "3": 3, "stash@{2}": 2} {
		got, err := parseStashIndex([]string{in})
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	got, err := parseStashIndex(nil)
	require.NoError(t, err)
	require.Equal(t, 0, got)

	_, err = parseStashIndex([]string{"stash@{x}"})
	require.Error(t, err)
}

func TestParseWhen(t *testing.T) {
	got, err := parseWhen("")
	require.NoError(t, err)
	require.Zero(t, got)

	got, err = parseWhen("1700000000")
	require.NoError(t, err)
	require.Equal(t, int64(1700000000), got)

	got, err = parseWhen("2024-03-01T12:00:00Z")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).Unix(), got)

	_, err = parseWhen("yesterday")
	require.Error(t, err)
}

func TestInitConfig_WritesDefaultToUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	work := t.TempDir()
	t.Chdir(work)
	prev := cfgFile
	cfgFile = ""
	t.Cleanup(func() {
		cfgFile = prev
		viper.Reset()
	})
	viper.Reset()

	initConfig()

	want := filepath.Join(home, ".config", "splice", "config.yaml")
	require.FileExists(t, want)
	require.NoDirExists(t, filepath.Join(work, ".splice"))
	require.Equal(t, want, configPath())
	require.Equal(t, 3, cfg.Diff.ContextLines)
}

// execute runs the root command against dir with a throwaway config and
// returns stdout.
func execute(t *testing.T, cfgPath, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", cfgPath, "-C", dir, "--json"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI_StageAndCommit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not available")
	}

	dir := t.TempDir()
	gr, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one\n"), 0o600))
	w, err := gr.Worktree()
	require.NoError(t, err)
	_, err = w.Add("a.txt")
	require.NoError(t, err)
	sig := &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()}
	_, err = w.Commit("initial", &gogit.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, config.WriteDefaultConfig(cfgPath))
	require.NoError(t, config.SetValue(cfgPath, "author.name", "Test User"))
	require.NoError(t, config.SetValue(cfgPath, "author.email", "test@example.com"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one\ntwo\n"), 0o600))

	out, err := execute(t, cfgPath, dir, "status")
	require.NoError(t, err)
	var st repo.RepoStatus
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	require.Equal(t, "master", st.Branch)
	require.Equal(t, []repo.FileStatus{{Path: "a.txt", Kind: repo.StatusModified, Staging: repo.Unstaged}}, st.Files)

	_, err = execute(t, cfgPath, dir, "stage", "a.txt")
	require.NoError(t, err)

	out, err = execute(t, cfgPath, dir, "commit", "-m", "add two")
	require.NoError(t, err)
	require.Contains(t, out, "committed ")

	head, err := gr.Head()
	require.NoError(t, err)
	c, err := gr.CommitObject(head.Hash())
	require.NoError(t, err)
	require.Equal(t, "add two", c.Message)

	_, err = execute(t, cfgPath, dir, "merge", "continue")
	require.ErrorIs(t, err, repo.ErrNoOperation)
}
