// Package diff holds the diff data model and the pure algorithms built on it:
// unified-diff parsing, word-level highlighting, partial patch synthesis and
// in-memory text comparison.
package diff

import "fmt"

// LineKind classifies a line within a hunk.
type LineKind int

const (
	// LineContext is an unchanged line present on both sides.
	LineContext LineKind = iota
	// LineAddition is present only on the new side.
	LineAddition
	// LineDeletion is present only on the old side.
	LineDeletion
)

// String returns the lowercase kind name.
func (k LineKind) String() string {
	switch k {
	case LineContext:
		return "context"
	case LineAddition:
		return "addition"
	case LineDeletion:
		return "deletion"
	default:
		return fmt.Sprintf("LineKind(%d)", int(k))
	}
}

// prefix returns the unified-diff prefix byte for the kind.
func (k LineKind) prefix() byte {
	switch k {
	case LineAddition:
		return '+'
	case LineDeletion:
		return '-'
	default:
		return ' '
	}
}

// FileDiff is the diff of a single file.
// An empty OldPath means the file was added; an empty NewPath means it was deleted.
type FileDiff struct {
	OldPath    string `json:"old_path,omitempty"`
	NewPath    string `json:"new_path,omitempty"`
	Hunks      []Hunk `json:"hunks"`
	Binary     bool   `json:"binary,omitempty"`
	Similarity int    `json:"similarity,omitempty"` // Rename similarity percentage
}

// Path returns the new path, or the old path for deletions.
func (f FileDiff) Path() string {
	if f.NewPath != "" {
		return f.NewPath
	}
	return f.OldPath
}

// IsAdded reports whether the file did not exist on the old side.
func (f FileDiff) IsAdded() bool { return f.OldPath == "" && f.NewPath != "" }

// IsDeleted reports whether the file does not exist on the new side.
func (f FileDiff) IsDeleted() bool { return f.NewPath == "" && f.OldPath != "" }

// IsRenamed reports whether both paths exist and differ.
func (f FileDiff) IsRenamed() bool {
	return f.OldPath != "" && f.NewPath != "" && f.OldPath != f.NewPath
}

// Stats counts added and deleted lines across all hunks.
func (f FileDiff) Stats() (additions, deletions int) {
	for _, h := range f.Hunks {
		for _, l := range h.Lines {
			switch l.Kind {
			case LineAddition:
				additions++
			case LineDeletion:
				deletions++
			}
		}
	}
	return additions, deletions
}

// Hunk is one contiguous region of change. Ranges are 1-based per git convention.
type Hunk struct {
	Header   string `json:"header"`
	OldStart int    `json:"old_start"`
	OldLines int    `json:"old_lines"`
	NewStart int    `json:"new_start"`
	NewLines int    `json:"new_lines"`
	Lines    []Line `json:"lines"`
}

// ID returns the four range numbers used to re-locate this hunk.
func (h Hunk) ID() HunkIdentifier {
	return HunkIdentifier{
		OldStart: h.OldStart,
		OldLines: h.OldLines,
		NewStart: h.NewStart,
		NewLines: h.NewLines,
	}
}

// Line is a single diff line. Content keeps its trailing newline unless the
// diff reported "\ No newline at end of file". Line numbers are 0 when absent.
type Line struct {
	Kind      LineKind      `json:"kind"`
	Content   string        `json:"content"`
	OldLineNo int           `json:"old_lineno,omitempty"`
	NewLineNo int           `json:"new_lineno,omitempty"`
	WordDiff  []WordSegment `json:"word_diff,omitempty"`
}

// WordSegment is a run of text within a line. Concatenating every segment of
// a line reproduces the line exactly.
type WordSegment struct {
	Text        string `json:"text"`
	Highlighted bool   `json:"highlighted"`
}

// HunkIdentifier addresses a hunk within a single-file diff computed with a
// fixed context size.
type HunkIdentifier struct {
	OldStart int `json:"old_start"`
	OldLines int `json:"old_lines"`
	NewStart int `json:"new_start"`
	NewLines int `json:"new_lines"`
}

// String renders the identifier the way a hunk header does.
func (id HunkIdentifier) String() string {
	return fmt.Sprintf("-%d,%d +%d,%d", id.OldStart, id.OldLines, id.NewStart, id.NewLines)
}

// LineRange selects lines of one hunk by 0-based index into Hunk.Lines.
// Context lines are always included regardless of selection.
type LineRange struct {
	Hunk        HunkIdentifier `json:"hunk"`
	LineIndices []int          `json:"line_indices"`
}
