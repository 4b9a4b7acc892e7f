package diff

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrHunkNotFound is returned when no hunk matches an identifier exactly.
// Callers re-run the diff and retry rather than caching identifiers across
// repository mutations.
var ErrHunkNotFound = errors.New("hunk not found")

// FindHunk returns the hunk of file whose four range numbers equal id.
func FindHunk(file FileDiff, id HunkIdentifier) (Hunk, error) {
	for _, h := range file.Hunks {
		if h.ID() == id {
			return h, nil
		}
	}
	return Hunk{}, fmt.Errorf("%w: %s in %s", ErrHunkNotFound, id, file.Path())
}

// HunkPatch renders a single-hunk unified diff carrying every line of hunk.
func HunkPatch(path string, hunk Hunk) string {
	var body strings.Builder
	for _, l := range hunk.Lines {
		writeLine(&body, l.Kind.prefix(), l.Content)
	}
	return patchHeader(path, hunk.OldStart, hunk.OldLines, hunk.NewStart, hunk.NewLines) + body.String()
}

// LinePatch renders a single-hunk unified diff restricted to the selected
// line indices of hunk:
// - context lines are always emitted as context
// - a selected deletion is emitted as "-", an unselected one as context
// - a selected addition is emitted as "+", an unselected one is dropped
//
// Old and new totals are recomputed from the emitted lines; start numbers are
// the hunk's own.
func LinePatch(path string, hunk Hunk, indices []int) string {
	var (
		body     strings.Builder
		oldCount int
		newCount int
	)
	for i, l := range hunk.Lines {
		selected := slices.Contains(indices, i)
		switch l.Kind {
		case LineContext:
			writeLine(&body, ' ', l.Content)
			oldCount++
			newCount++
		case LineDeletion:
			if selected {
				writeLine(&body, '-', l.Content)
				oldCount++
			} else {
				writeLine(&body, ' ', l.Content)
				oldCount++
				newCount++
			}
		case LineAddition:
			if selected {
				writeLine(&body, '+', l.Content)
				newCount++
			}
		}
	}
	return patchHeader(path, hunk.OldStart, oldCount, hunk.NewStart, newCount) + body.String()
}

func patchHeader(path string, oldStart, oldLines, newStart, newLines int) string {
	return fmt.Sprintf("diff --git a/%s b/%s\n--- a/%s\n+++ b/%s\n@@ -%d,%d +%d,%d @@\n",
		path, path, path, path, oldStart, oldLines, newStart, newLines)
}

func writeLine(b *strings.Builder, prefix byte, content string) {
	b.WriteByte(prefix)
	b.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		b.WriteString("\n" + noNewlineMarker + "\n")
	}
}
