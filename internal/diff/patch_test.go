package diff

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func sampleHunk() Hunk {
	return Hunk{
		Header:   "@@ -5,3 +5,4 @@",
		OldStart: 5, OldLines: 3, NewStart: 5, NewLines: 4,
		Lines: []Line{
			{Kind: LineContext, Content: "a\n", OldLineNo: 5, NewLineNo: 5},
			{Kind: LineDeletion, Content: "b\n", OldLineNo: 6},
			{Kind: LineAddition, Content: "B\n", NewLineNo: 6},
			{Kind: LineAddition, Content: "B2\n", NewLineNo: 7},
			{Kind: LineContext, Content: "c\n", OldLineNo: 7, NewLineNo: 8},
		},
	}
}

func TestFindHunk(t *testing.T) {
	file := FileDiff{OldPath: "f", NewPath: "f", Hunks: []Hunk{sampleHunk()}}

	h, err := FindHunk(file, HunkIdentifier{OldStart: 5, OldLines: 3, NewStart: 5, NewLines: 4})
	require.NoError(t, err)
	require.Equal(t, sampleHunk(), h)

	_, err = FindHunk(file, HunkIdentifier{OldStart: 5, OldLines: 3, NewStart: 5, NewLines: 3})
	require.True(t, errors.Is(err, ErrHunkNotFound))
}

func TestHunkPatch(t *testing.T) {
	want := "diff --git a/f.txt b/f.txt\n" +
		"--- a/f.txt\n" +
		"+++ b/f.txt\n" +
		"@@ -5,3 +5,4 @@\n" +
		" a\n" +
		"-b\n" +
		"+B\n" +
		"+B2\n" +
		" c\n"
	require.Equal(t, want, HunkPatch("f.txt", sampleHunk()))
}

func TestLinePatch_SelectedAdditionOnly(t *testing.T) {
	want := "diff --git a/f.txt b/f.txt\n" +
		"--- a/f.txt\n" +
		"+++ b/f.txt\n" +
		"@@ -5,3 +5,4 @@\n" +
		" a\n" +
		" b\n" +
		"+B2\n" +
		" c\n"
	require.Equal(t, want, LinePatch("f.txt", sampleHunk(), []int{3}))
}

func TestLinePatch_SelectedDeletionOnly(t *testing.T) {
	want := "diff --git a/f.txt b/f.txt\n" +
		"--- a/f.txt\n" +
		"+++ b/f.txt\n" +
		"@@ -5,3 +5,2 @@\n" +
		" a\n" +
		"-b\n" +
		" c\n"
	require.Equal(t, want, LinePatch("f.txt", sampleHunk(), []int{1}))
}

func TestLinePatch_NoNewlineMarker(t *testing.T) {
	h := Hunk{
		OldStart: 1, OldLines: 1, NewStart: 1, NewLines: 1,
		Lines: []Line{
			{Kind: LineDeletion, Content: "old"},
			{Kind: LineAddition, Content: "new"},
		},
	}
	want := "diff --git a/f b/f\n--- a/f\n+++ b/f\n@@ -1,1 +1,1 @@\n" +
		"-old\n\\ No newline at end of file\n" +
		"+new\n\\ No newline at end of file\n"
	require.Equal(t, want, LinePatch("f", h, []int{0, 1}))
}

var patchHeaderRegex = regexp.MustCompile(`(?m)^@@ -(\d+),(\d+) \+(\d+),(\d+) @@$`)

func TestLinePatch_Totals(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 30).Draw(t, "lines")
		var h Hunk
		h.OldStart = rapid.IntRange(1, 100).Draw(t, "oldStart")
		h.NewStart = rapid.IntRange(1, 100).Draw(t, "newStart")
		var ctx, adds, dels []int
		for i := 0; i < n; i++ {
			kind := LineKind(rapid.IntRange(0, 2).Draw(t, "kind"))
			h.Lines = append(h.Lines, Line{Kind: kind, Content: fmt.Sprintf("line %d\n", i)})
			switch kind {
			case LineContext:
				ctx = append(ctx, i)
			case LineAddition:
				adds = append(adds, i)
			case LineDeletion:
				dels = append(dels, i)
			}
		}

		var selected []int
		var selAdds, selDels int
		for _, i := range adds {
			if rapid.Bool().Draw(t, "pickAdd") {
				selected = append(selected, i)
				selAdds++
			}
		}
		for _, i := range dels {
			if rapid.Bool().Draw(t, "pickDel") {
				selected = append(selected, i)
				selDels++
			}
		}

		m := patchHeaderRegex.FindStringSubmatch(LinePatch("p", h, selected))
		if m == nil {
			t.Fatalf("no hunk header")
		}
		oldStart, _ := strconv.Atoi(m[1])
		oldLen, _ := strconv.Atoi(m[2])
		newStart, _ := strconv.Atoi(m[3])
		newLen, _ := strconv.Atoi(m[4])

		// Unselected deletions are demoted to context and count on both sides.
		if want := len(ctx) + len(dels); oldLen != want {
			t.Fatalf("old length %d, want %d", oldLen, want)
		}
		if want := len(ctx) + (len(dels) - selDels) + selAdds; newLen != want {
			t.Fatalf("new length %d, want %d", newLen, want)
		}
		if oldStart != h.OldStart || newStart != h.NewStart {
			t.Fatalf("start numbers changed")
		}
	})
}

func TestLinePatch_NoDeletionsSelected(t *testing.T) {
	// With no deletions present the old length is the context count only.
	h := Hunk{
		OldStart: 1, OldLines: 2, NewStart: 1, NewLines: 4,
		Lines: []Line{
			{Kind: LineContext, Content: "a\n"},
			{Kind: LineAddition, Content: "x\n"},
			{Kind: LineAddition, Content: "y\n"},
			{Kind: LineContext, Content: "b\n"},
		},
	}
	m := patchHeaderRegex.FindStringSubmatch(LinePatch("p", h, []int{2}))
	require.Equal(t, []string{"@@ -1,2 +1,3 @@", "1", "2", "1", "3"}, m)
}
