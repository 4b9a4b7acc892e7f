// Package conflict parses and resolves git conflict markers in file text.
//
// Block indices are positional: they are recomputed from the current text on
// every call and are not stable across edits.
package conflict

import (
	"errors"
	"fmt"
	"strings"
)

// Marker prefixes as written by git.
const (
	MarkerOurs   = "<<<<<<<"
	MarkerBase   = "|||||||"
	MarkerSplit  = "======="
	MarkerTheirs = ">>>>>>>"
)

var (
	// ErrBlockOutOfRange is returned when a block index is not below the block count.
	ErrBlockOutOfRange = errors.New("conflict block index out of range")
	// ErrMalformedMarkers is returned when the selected block has no closing marker.
	ErrMalformedMarkers = errors.New("malformed conflict markers")
)

// Block is one conflicted region. StartLine and EndLine are 1-based line
// numbers of the opening and closing markers. Base is nil unless the merge
// was run with diff3-style markers.
type Block struct {
	Ours      string  `json:"ours"`
	Base      *string `json:"base,omitempty"`
	Theirs    string  `json:"theirs"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
}

// File describes the conflicts of one path.
type File struct {
	Path          string  `json:"path"`
	ConflictCount int     `json:"conflict_count"`
	Conflicts     []Block `json:"conflicts"`
}

// NewFile parses text and returns the File for path.
func NewFile(path, text string) File {
	blocks := ParseBlocks(text)
	return File{Path: path, ConflictCount: len(blocks), Conflicts: blocks}
}

// ResolutionKind selects which side of a block is kept.
type ResolutionKind int

const (
	// Ours keeps the current branch side.
	Ours ResolutionKind = iota
	// Theirs keeps the incoming side.
	Theirs
	// Both keeps ours followed by theirs.
	Both
	// Manual replaces the block with caller-supplied content.
	Manual
)

// String returns the lowercase resolution name.
func (k ResolutionKind) String() string {
	switch k {
	case Ours:
		return "ours"
	case Theirs:
		return "theirs"
	case Both:
		return "both"
	case Manual:
		return "manual"
	default:
		return fmt.Sprintf("ResolutionKind(%d)", int(k))
	}
}

// ParseResolutionKind maps a name from String back to its kind.
func ParseResolutionKind(s string) (ResolutionKind, error) {
	switch strings.ToLower(s) {
	case "ours":
		return Ours, nil
	case "theirs":
		return Theirs, nil
	case "both":
		return Both, nil
	case "manual":
		return Manual, nil
	}
	return 0, fmt.Errorf("unknown resolution %q", s)
}

// Resolution is how a conflict is settled. Content is used only by Manual.
type Resolution struct {
	Kind    ResolutionKind
	Content string
}

// ResolveOurs, ResolveTheirs and ResolveBoth are the content-free resolutions.
var (
	ResolveOurs   = Resolution{Kind: Ours}
	ResolveTheirs = Resolution{Kind: Theirs}
	ResolveBoth   = Resolution{Kind: Both}
)

// ResolveManual returns a Manual resolution with the given content.
func ResolveManual(content string) Resolution {
	return Resolution{Kind: Manual, Content: content}
}

// Text returns the replacement text for a block under r. Manual content is
// newline-terminated.
func (r Resolution) Text(b Block) string {
	switch r.Kind {
	case Theirs:
		return b.Theirs
	case Both:
		return b.Ours + b.Theirs
	case Manual:
		if r.Content != "" && !strings.HasSuffix(r.Content, "\n") {
			return r.Content + "\n"
		}
		return r.Content
	default:
		return b.Ours
	}
}

// splitLines returns the lines of text without terminators. A trailing CR is
// dropped so CRLF files parse like LF files.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// parseBlock reads one block whose opening marker is lines[start]. It returns
// the block, the index just past the closing marker, and whether the closing
// marker was found.
func parseBlock(lines []string, start int) (Block, int, bool) {
	var b Block
	var sb strings.Builder

	i := start + 1
	for i < len(lines) && !strings.HasPrefix(lines[i], MarkerSplit) && !strings.HasPrefix(lines[i], MarkerBase) {
		sb.WriteString(lines[i])
		sb.WriteByte('\n')
		i++
	}
	b.Ours = sb.String()

	if i < len(lines) && strings.HasPrefix(lines[i], MarkerBase) {
		sb.Reset()
		i++
		for i < len(lines) && !strings.HasPrefix(lines[i], MarkerSplit) {
			sb.WriteString(lines[i])
			sb.WriteByte('\n')
			i++
		}
		base := sb.String()
		b.Base = &base
	}
	i++ // =======

	sb.Reset()
	for i < len(lines) && !strings.HasPrefix(lines[i], MarkerTheirs) {
		sb.WriteString(lines[i])
		sb.WriteByte('\n')
		i++
	}
	b.Theirs = sb.String()

	closed := i < len(lines)
	i++ // >>>>>>>

	b.StartLine = start + 1
	b.EndLine = i
	if !closed {
		b.EndLine = len(lines)
	}
	return b, i, closed
}

// ParseBlocks returns every conflict block in text in document order.
// Ours, base and theirs sections are newline-terminated line by line.
func ParseBlocks(text string) []Block {
	var blocks []Block
	lines := splitLines(text)
	for i := 0; i < len(lines); {
		if !strings.HasPrefix(lines[i], MarkerOurs) {
			i++
			continue
		}
		b, next, _ := parseBlock(lines, i)
		blocks = append(blocks, b)
		i = next
	}
	return blocks
}

// CountBlocks returns the number of conflict blocks in text.
func CountBlocks(text string) int {
	return len(ParseBlocks(text))
}

// ResolveBlock replaces the marker span of the index-th block with the text
// chosen by r. Everything outside that span, including other blocks, is kept
// byte for byte.
func ResolveBlock(text string, index int, r Resolution) (string, error) {
	if index < 0 {
		return "", fmt.Errorf("%w: %d", ErrBlockOutOfRange, index)
	}

	raw := strings.SplitAfter(text, "\n")
	if raw[len(raw)-1] == "" {
		raw = raw[:len(raw)-1]
	}
	lines := splitLines(text)

	seen := 0
	for i := 0; i < len(lines); {
		if !strings.HasPrefix(lines[i], MarkerOurs) {
			i++
			continue
		}
		b, next, closed := parseBlock(lines, i)
		if seen < index {
			seen++
			i = next
			continue
		}
		if !closed {
			return "", fmt.Errorf("%w: block %d opened at line %d is not closed", ErrMalformedMarkers, index, b.StartLine)
		}

		var out strings.Builder
		out.Grow(len(text))
		for _, l := range raw[:i] {
			out.WriteString(l)
		}
		out.WriteString(r.Text(b))
		for _, l := range raw[next:] {
			out.WriteString(l)
		}
		return out.String(), nil
	}

	return "", fmt.Errorf("%w: %d (file has %d)", ErrBlockOutOfRange, index, seen)
}
