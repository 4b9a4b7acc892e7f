package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func join(segs []WordSegment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Text)
	}
	return b.String()
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"foo", []string{"foo"}},
		{"foo.bar(x)", []string{"foo", ".", "bar", "(", "x", ")"}},
		{"a  b\n", []string{"a", " ", " ", "b", "\n"}},
		{"snake_case", []string{"snake", "_", "case"}},
		{"héllo wörld", []string{"héllo", " ", "wörld"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, tokenize(tt.in))
		})
	}
}

func TestWordDiff_HighlightsChangedWord(t *testing.T) {
	del, add := WordDiff("let x = 1;\n", "let x = 2;\n")

	require.Equal(t, []WordSegment{
		{Text: "let x = ", Highlighted: false},
		{Text: "1", Highlighted: true},
		{Text: ";\n", Highlighted: false},
	}, del)
	require.Equal(t, []WordSegment{
		{Text: "let x = ", Highlighted: false},
		{Text: "2", Highlighted: true},
		{Text: ";\n", Highlighted: false},
	}, add)
}

func TestWordDiff_EmptySides(t *testing.T) {
	del, add := WordDiff("", "new\n")
	require.Empty(t, del)
	require.Equal(t, []WordSegment{{Text: "new\n", Highlighted: true}}, add)

	del, add = WordDiff("", "")
	require.Empty(t, del)
	require.Empty(t, add)
}

func TestWordDiff_Identical(t *testing.T) {
	del, add := WordDiff("same text\n", "same text\n")
	require.Equal(t, []WordSegment{{Text: "same text\n"}}, del)
	require.Equal(t, []WordSegment{{Text: "same text\n"}}, add)
}

func TestWordDiff_Lossless(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.String().Draw(t, "deleted")
		b := rapid.String().Draw(t, "added")

		del, add := WordDiff(a, b)
		if join(del) != a {
			t.Fatalf("deleted side not reconstructed: %q", a)
		}
		if join(add) != b {
			t.Fatalf("added side not reconstructed: %q", b)
		}
		for _, segs := range [][]WordSegment{del, add} {
			for i := 1; i < len(segs); i++ {
				if segs[i].Highlighted == segs[i-1].Highlighted {
					t.Fatalf("adjacent segments share highlight state")
				}
			}
		}
	})
}

func TestApplyWordDiff_PairsFirstMinLines(t *testing.T) {
	files := []FileDiff{{
		NewPath: "a.txt",
		OldPath: "a.txt",
		Hunks: []Hunk{{
			Lines: []Line{
				{Kind: LineContext, Content: "ctx\n"},
				{Kind: LineDeletion, Content: "one\n"},
				{Kind: LineDeletion, Content: "two\n"},
				{Kind: LineDeletion, Content: "three\n"},
				{Kind: LineAddition, Content: "uno\n"},
				{Kind: LineContext, Content: "ctx\n"},
				{Kind: LineAddition, Content: "orphan\n"},
			},
		}},
	}}

	ApplyWordDiff(files)
	lines := files[0].Hunks[0].Lines

	require.Nil(t, lines[0].WordDiff)
	require.NotNil(t, lines[1].WordDiff)
	require.Nil(t, lines[2].WordDiff)
	require.Nil(t, lines[3].WordDiff)
	require.NotNil(t, lines[4].WordDiff)
	require.Nil(t, lines[5].WordDiff)
	require.Nil(t, lines[6].WordDiff)

	require.Equal(t, "one\n", join(lines[1].WordDiff))
	require.Equal(t, "uno\n", join(lines[4].WordDiff))
}
