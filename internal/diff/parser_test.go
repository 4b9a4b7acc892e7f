package diff

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_SingleFile(t *testing.T) {
	input := `diff --git a/file.go b/file.go
index abc1234..def5678 100644
--- a/file.go
+++ b/file.go
@@ -10,3 +10,4 @@ func example() {
 	context line
-	deleted line
+	added line
+	another line
 	more context
`

	files, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, files, 1)

	f := files[0]
	require.Equal(t, "file.go", f.OldPath)
	require.Equal(t, "file.go", f.NewPath)
	require.False(t, f.IsAdded())
	require.False(t, f.IsDeleted())
	require.Len(t, f.Hunks, 1)

	h := f.Hunks[0]
	require.Equal(t, HunkIdentifier{OldStart: 10, OldLines: 3, NewStart: 10, NewLines: 4}, h.ID())
	require.Equal(t, "@@ -10,3 +10,4 @@ func example() {", h.Header)
	require.Len(t, h.Lines, 5)

	require.Equal(t, Line{Kind: LineContext, Content: "\tcontext line\n", OldLineNo: 10, NewLineNo: 10}, h.Lines[0])
	require.Equal(t, Line{Kind: LineDeletion, Content: "\tdeleted line\n", OldLineNo: 11}, h.Lines[1])
	require.Equal(t, Line{Kind: LineAddition, Content: "\tadded line\n", NewLineNo: 11}, h.Lines[2])
	require.Equal(t, Line{Kind: LineAddition, Content: "\tanother line\n", NewLineNo: 12}, h.Lines[3])
	require.Equal(t, Line{Kind: LineContext, Content: "\tmore context\n", OldLineNo: 12, NewLineNo: 13}, h.Lines[4])

	adds, dels := f.Stats()
	require.Equal(t, 2, adds)
	require.Equal(t, 1, dels)
}

func TestParse_HunkInvariant(t *testing.T) {
	input := `diff --git a/a.txt b/a.txt
--- a/a.txt
+++ b/a.txt
@@ -1,4 +1,3 @@
 one
-two
-three
+TWO
 four
@@ -20 +19,2 @@
 twenty
+twenty-one
`
	files, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Len(t, files[0].Hunks, 2)

	for _, h := range files[0].Hunks {
		var ctx, add, del int
		for _, l := range h.Lines {
			switch l.Kind {
			case LineContext:
				ctx++
			case LineAddition:
				add++
			case LineDeletion:
				del++
			}
		}
		require.Equal(t, h.OldLines, ctx+del, h.Header)
		require.Equal(t, h.NewLines, ctx+add, h.Header)
	}

	// Omitted counts default to one.
	require.Equal(t, HunkIdentifier{OldStart: 20, OldLines: 1, NewStart: 19, NewLines: 2}, files[0].Hunks[1].ID())
}

func TestParse_NewAndDeletedFiles(t *testing.T) {
	input := `diff --git a/new.txt b/new.txt
new file mode 100644
index 0000000..e69de29
--- /dev/null
+++ b/new.txt
@@ -0,0 +1,2 @@
+hello
+world
diff --git a/old.txt b/old.txt
deleted file mode 100644
index e69de29..0000000
--- a/old.txt
+++ /dev/null
@@ -1 +0,0 @@
-bye
`
	files, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, files, 2)

	require.Empty(t, files[0].OldPath)
	require.Equal(t, "new.txt", files[0].NewPath)
	require.True(t, files[0].IsAdded())
	require.Equal(t, "new.txt", files[0].Path())

	require.Equal(t, "old.txt", files[1].OldPath)
	require.Empty(t, files[1].NewPath)
	require.True(t, files[1].IsDeleted())
	require.Equal(t, "old.txt", files[1].Path())
}

func TestParse_Rename(t *testing.T) {
	input := `diff --git a/before.go b/after.go
similarity index 92%
rename from before.go
rename to after.go
index 1111111..2222222 100644
--- a/before.go
+++ b/after.go
@@ -1 +1 @@
-package before
+package after
`
	files, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.True(t, files[0].IsRenamed())
	require.Equal(t, 92, files[0].Similarity)
	require.Equal(t, "before.go", files[0].OldPath)
	require.Equal(t, "after.go", files[0].NewPath)
}

func TestParse_QuotedPaths(t *testing.T) {
	input := `diff --git a/a.txt b/a.txt
--- a/a.txt
+++ b/a.txt
@@ -1 +1 @@
-one
+two
diff --git "a/\303\251.txt" "b/\303\251.txt"
index 1111111..2222222 100644
--- "a/\303\251.txt"
+++ "b/\303\251.txt"
@@ -1 +1 @@
-un
+deux
diff --git a/plain.txt "b/tab\there.txt"
similarity index 100%
rename from plain.txt
rename to "tab\there.txt"
diff --git a/with space.txt b/with space.txt
--- a/with space.txt	
+++ b/with space.txt	
@@ -1 +1 @@
-x
+y
`
	files, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, files, 4)

	require.Equal(t, "a.txt", files[0].NewPath)
	require.Len(t, files[0].Hunks, 1)

	require.Equal(t, "\u00e9.txt", files[1].OldPath)
	require.Equal(t, "\u00e9.txt", files[1].NewPath)
	require.Len(t, files[1].Hunks, 1)
	require.Equal(t, "deux\n", files[1].Hunks[0].Lines[1].Content)

	require.True(t, files[2].IsRenamed())
	require.Equal(t, "plain.txt", files[2].OldPath)
	require.Equal(t, "tab\there.txt", files[2].NewPath)

	require.Equal(t, "with space.txt", files[3].OldPath)
	require.Equal(t, "with space.txt", files[3].NewPath)
}

func TestParse_Binary(t *testing.T) {
	input := `diff --git a/logo.png b/logo.png
new file mode 100644
index 0000000..1234567
Binary files /dev/null and b/logo.png differ
`
	files, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.True(t, files[0].Binary)
	require.True(t, files[0].IsAdded())
	require.Empty(t, files[0].Hunks)
}

func TestParse_NoNewlineAtEOF(t *testing.T) {
	input := `diff --git a/a.txt b/a.txt
--- a/a.txt
+++ b/a.txt
@@ -1,2 +1,2 @@
 keep
-last
\ No newline at end of file
+last line
\ No newline at end of file
`
	files, err := Parse(input)
	require.NoError(t, err)
	lines := files[0].Hunks[0].Lines
	require.Len(t, lines, 3)
	require.Equal(t, "keep\n", lines[0].Content)
	require.Equal(t, "last", lines[1].Content)
	require.Equal(t, "last line", lines[2].Content)
}

func TestParse_Empty(t *testing.T) {
	files, err := Parse("")
	require.NoError(t, err)
	require.Nil(t, files)
}

func TestParse_MalformedHunkHeader(t *testing.T) {
	input := "diff --git a/a b/a\n--- a/a\n+++ b/a\n@@ -99999999999999999999,1 +1,1 @@\n"
	_, err := Parse(input)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformedDiff))
}
