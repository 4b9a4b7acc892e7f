package presentation

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/splice/internal/conflict"
	"github.com/zjrosen/splice/internal/diff"
	"github.com/zjrosen/splice/internal/graph"
	"github.com/zjrosen/splice/internal/repo"
)

func TestFormatter_JSON(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, true)

	st := repo.RepoStatus{
		Branch: "main",
		Files:  []repo.FileStatus{{Path: "a.txt", Kind: repo.StatusModified, Staging: repo.Staged}},
		State:  repo.OperationState{Kind: repo.OpMerging, HasConflicts: true},
	}
	require.NoError(t, f.FormatStatus(st))

	var got repo.RepoStatus
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, st, got)
	require.Contains(t, buf.String(), "\n  \"branch\"", "output is indented")
}

func TestFormatter_Message(t *testing.T) {
	var text, js bytes.Buffer
	require.NoError(t, NewFormatter(&text, false).Message("created branch %s", "feature"))
	require.Equal(t, "created branch feature\n", text.String())

	require.NoError(t, NewFormatter(&js, true).Message("created branch %s", "feature"))
	require.JSONEq(t, `{"message":"created branch feature"}`, js.String())
}

func TestFormatStatus_Text(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, false)
	require.NoError(t, f.FormatStatus(repo.RepoStatus{
		Branch: "main",
		Files: []repo.FileStatus{
			{Path: "a.txt", Kind: repo.StatusModified, Staging: repo.Staged},
			{Path: "b.txt", Kind: repo.StatusConflicted, Staging: repo.Unstaged},
		},
		State: repo.OperationState{Kind: repo.OpRebasing, HasConflicts: true},
	}))

	out := buf.String()
	require.Contains(t, out, "On branch main")
	require.Contains(t, out, "rebasing with unresolved conflicts")
	require.Less(t, strings.Index(out, "Staged changes:"), strings.Index(out, "Unstaged changes:"))
	require.Contains(t, out, "a.txt")
	require.Contains(t, out, "conflicted")

	buf.Reset()
	require.NoError(t, f.FormatStatus(repo.RepoStatus{Branch: "main"}))
	require.Contains(t, buf.String(), "working tree clean")
}

func TestFormatDiff_Text(t *testing.T) {
	files := []diff.FileDiff{{
		OldPath: "a.txt",
		NewPath: "a.txt",
		Hunks: []diff.Hunk{{
			Header:   "@@ -1,2 +1,2 @@",
			OldStart: 1, OldLines: 2, NewStart: 1, NewLines: 2,
			Lines: []diff.Line{
				{Kind: diff.LineContext, Content: "same\n"},
				{Kind: diff.LineDeletion, Content: "old word\n"},
				{Kind: diff.LineAddition, Content: "new word\n"},
			},
		}},
	}}
	diff.ApplyWordDiff(files)

	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf, false).FormatDiff(files))
	out := buf.String()
	require.Contains(t, out, "--- a.txt")
	require.Contains(t, out, "@@ -1,2 +1,2 @@")
	require.Contains(t, out, " same\n")
	require.Contains(t, out, "word")
	require.Equal(t, 6, strings.Count(out, "\n"))
}

func TestGraphLanes(t *testing.T) {
	// c merges b into a's line; b and a share parent root.
	rows := graph.Build([]graph.Commit{
		{OID: "c", Parents: []string{"a", "b"}},
		{OID: "b", Parents: []string{"root"}},
		{OID: "a", Parents: []string{"root"}},
		{OID: "root"},
	})
	lanes := GraphLanes(rows)
	require.Len(t, lanes, 4)
	require.Equal(t, "◆  ", lanes[0])
	require.Equal(t, "│ ●", lanes[1])
	require.Equal(t, "● │", lanes[2])
	require.Equal(t, "● │", lanes[3])
}

func TestFormatLog_Text(t *testing.T) {
	when := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	res := repo.CommitLogResult{
		Commits: []repo.CommitInfo{
			{OID: "bbbbbbbbbb", ShortOID: "bbbbbbb", Message: "second", AuthorName: "bob", AuthorDate: when,
				Refs: []repo.CommitRef{{Name: "HEAD", Kind: repo.RefHead}, {Name: "main", Kind: repo.RefLocalBranch}, {Name: "v1", Kind: repo.RefTag}}},
			{OID: "aaaaaaaaaa", ShortOID: "aaaaaaa", Message: "first", AuthorName: "alice", AuthorDate: when},
		},
	}
	res.Graph = graph.Build([]graph.Commit{{OID: "bbbbbbbbbb", Parents: []string{"aaaaaaaaaa"}}, {OID: "aaaaaaaaaa"}})

	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf, false).FormatLog(res, true))
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "● bbbbbbb second (HEAD, main, tag: v1)"), lines[0])
	require.True(t, strings.HasPrefix(lines[1], "● aaaaaaa first (alice"), lines[1])
}

func TestFormatConflicts_Text(t *testing.T) {
	text := "top\n<<<<<<< HEAD\nours\n||||||| base\norig\n=======\ntheirs\n>>>>>>> feature\n"
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf, false).FormatConflicts([]conflict.File{conflict.NewFile("a.txt", text)}))
	out := buf.String()
	require.Contains(t, out, "a.txt (1 blocks)")
	require.Contains(t, out, "[0] lines 2-8")
	require.Less(t, strings.Index(out, "ours"), strings.Index(out, "base:"))
	require.Less(t, strings.Index(out, "base:"), strings.Index(out, "theirs:"))

	buf.Reset()
	require.NoError(t, NewFormatter(&buf, false).FormatConflicts(nil))
	require.Equal(t, "no conflicts\n", buf.String())
}

func TestFormatStepResult(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, false)
	require.NoError(t, f.FormatStepResult(nil, "rebase", false, "", []string{"a.txt"}))
	require.Equal(t, "rebase stopped on conflicts:\n  a.txt\n", buf.String())

	buf.Reset()
	require.NoError(t, f.FormatStepResult(nil, "cherry-pick", true, "0123456789", nil))
	require.Equal(t, "cherry-pick complete 0123456\n", buf.String())
}

func TestTruncateString(t *testing.T) {
	require.Equal(t, "hello", TruncateString("hello", 10))
	require.Equal(t, "hel...", TruncateString("hello world", 6))
	require.Equal(t, "..", TruncateString("hello", 2))
	require.Equal(t, "", TruncateString("hello", 0))
}

func TestFormatSettings(t *testing.T) {
	settings := map[string]any{"diff": map[string]any{"context_lines": 3}}

	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf, false).FormatSettings(settings))
	require.Equal(t, "diff:\n  context_lines: 3\n", buf.String())

	buf.Reset()
	require.NoError(t, NewFormatter(&buf, true).FormatSettings(settings))
	require.JSONEq(t, `{"diff":{"context_lines":3}}`, buf.String())
}
