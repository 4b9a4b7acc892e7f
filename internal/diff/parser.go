package diff

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformedDiff is returned when unified-diff text cannot be parsed.
var ErrMalformedDiff = errors.New("malformed diff")

const noNewlineMarker = `\ No newline at end of file`

var (
	diffHeaderRegex      = regexp.MustCompile(`^diff --git a/(.+) b/(.+)$`)
	hunkHeaderRegex      = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@(.*)$`)
	oldFileNullRegex     = regexp.MustCompile(`^--- /dev/null$`)
	newFileNullRegex     = regexp.MustCompile(`^\+\+\+ /dev/null$`)
	similarityRegex      = regexp.MustCompile(`^similarity index (\d+)%$`)
	binaryFilesRegex     = regexp.MustCompile(`^Binary files .+ and .+ differ$`)
	newFileModeRegex     = regexp.MustCompile(`^new file mode \d+$`)
	deletedFileModeRegex = regexp.MustCompile(`^deleted file mode \d+$`)
)

// fileState tracks the file being parsed until its paths are final.
type fileState struct {
	diff    FileDiff
	added   bool
	deleted bool
}

func (s *fileState) finish() FileDiff {
	f := s.diff
	if s.added {
		f.OldPath = ""
	}
	if s.deleted {
		f.NewPath = ""
	}
	return f
}

// Parse parses `git diff` output into one FileDiff per file.
// Handled beyond plain hunks:
// - new and deleted files (/dev/null sides, file mode lines)
// - renames with similarity index
// - binary files
// - "\ No newline at end of file", which strips the newline from the previous line
func Parse(output string) ([]FileDiff, error) {
	if output == "" {
		return nil, nil
	}

	var (
		files   []FileDiff
		current *fileState
		hunk    *Hunk
		oldNo   int
		newNo   int
	)

	flushHunk := func() {
		if current != nil && hunk != nil {
			current.diff.Hunks = append(current.diff.Hunks, *hunk)
		}
		hunk = nil
	}
	flushFile := func() {
		flushHunk()
		if current != nil {
			files = append(files, current.finish())
		}
		current = nil
	}

	lines := strings.Split(strings.TrimSuffix(output, "\n"), "\n")
	for _, line := range lines {
		if oldPath, newPath, ok := parseDiffHeader(line); ok {
			flushFile()
			current = &fileState{diff: FileDiff{OldPath: oldPath, NewPath: newPath}}
			continue
		}

		if current == nil {
			continue
		}

		if hunk == nil {
			if consumeFileHeader(current, line) {
				continue
			}
		}

		if matches := hunkHeaderRegex.FindStringSubmatch(line); matches != nil {
			flushHunk()
			h, err := parseHunkHeader(line, matches)
			if err != nil {
				return nil, err
			}
			hunk = &h
			oldNo = h.OldStart
			newNo = h.NewStart
			continue
		}

		if hunk == nil {
			continue
		}

		if line == "" {
			// Some tools strip the leading space from blank context lines.
			hunk.Lines = append(hunk.Lines, Line{Kind: LineContext, Content: "\n", OldLineNo: oldNo, NewLineNo: newNo})
			oldNo++
			newNo++
			continue
		}

		content := line[1:] + "\n"
		switch line[0] {
		case ' ':
			hunk.Lines = append(hunk.Lines, Line{Kind: LineContext, Content: content, OldLineNo: oldNo, NewLineNo: newNo})
			oldNo++
			newNo++
		case '-':
			hunk.Lines = append(hunk.Lines, Line{Kind: LineDeletion, Content: content, OldLineNo: oldNo})
			oldNo++
		case '+':
			hunk.Lines = append(hunk.Lines, Line{Kind: LineAddition, Content: content, NewLineNo: newNo})
			newNo++
		case '\\':
			if n := len(hunk.Lines); n > 0 {
				hunk.Lines[n-1].Content = strings.TrimSuffix(hunk.Lines[n-1].Content, "\n")
			}
		default:
			// Anything else ends the hunk body.
			flushHunk()
		}
	}
	flushFile()

	return files, nil
}

// consumeFileHeader applies extended header lines that precede the first hunk.
func consumeFileHeader(s *fileState, line string) bool {
	switch {
	case oldFileNullRegex.MatchString(line):
		s.added = true
	case newFileNullRegex.MatchString(line):
		s.deleted = true
	case newFileModeRegex.MatchString(line):
		s.added = true
	case deletedFileModeRegex.MatchString(line):
		s.deleted = true
	case binaryFilesRegex.MatchString(line):
		s.diff.Binary = true
	default:
		if p, ok := headerPath(line, "--- ", "a/"); ok {
			s.diff.OldPath = p
		} else if p, ok := headerPath(line, "+++ ", "b/"); ok {
			s.diff.NewPath = p
		} else if m := similarityRegex.FindStringSubmatch(line); m != nil {
			s.diff.Similarity, _ = strconv.Atoi(m[1])
		} else if p, ok := headerPath(line, "rename from ", ""); ok {
			s.diff.OldPath = p
		} else if p, ok := headerPath(line, "rename to ", ""); ok {
			s.diff.NewPath = p
		} else {
			// index, mode and other headers carry nothing we keep
			return strings.HasPrefix(line, "index ") ||
				strings.HasPrefix(line, "old mode ") ||
				strings.HasPrefix(line, "new mode ") ||
				strings.HasPrefix(line, "dissimilarity index ") ||
				strings.HasPrefix(line, "copy from ") ||
				strings.HasPrefix(line, "copy to ")
		}
	}
	return true
}

// parseDiffHeader splits a "diff --git" line into its two paths. Either side
// may be C-quoted, as git does for paths with control or non-ASCII bytes.
func parseDiffHeader(line string) (oldPath, newPath string, ok bool) {
	rest, found := strings.CutPrefix(line, "diff --git ")
	if !found {
		return "", "", false
	}
	var oldRaw, newRaw string
	switch {
	case strings.HasPrefix(rest, `"`):
		q, err := strconv.QuotedPrefix(rest)
		if err != nil {
			return "", "", false
		}
		oldRaw, newRaw = q, strings.TrimPrefix(rest[len(q):], " ")
	case strings.HasSuffix(rest, `"`):
		i := strings.LastIndex(rest, ` "b/`)
		if i < 0 {
			return "", "", false
		}
		oldRaw, newRaw = rest[:i], rest[i+1:]
	default:
		m := diffHeaderRegex.FindStringSubmatch(line)
		if m == nil {
			return "", "", false
		}
		return m[1], m[2], true
	}
	if oldPath, ok = gitPath(oldRaw, "a/"); !ok {
		return "", "", false
	}
	if newPath, ok = gitPath(newRaw, "b/"); !ok {
		return "", "", false
	}
	return oldPath, newPath, true
}

// headerPath extracts the path from an extended header line such as
// "--- a/x" or "rename from x".
func headerPath(line, header, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(line, header)
	if !ok {
		return "", false
	}
	// git appends a tab to ---/+++ names that contain a space
	return gitPath(strings.TrimSuffix(rest, "\t"), prefix)
}

// gitPath decodes a possibly C-quoted path and strips its a/ or b/ prefix.
func gitPath(s, prefix string) (string, bool) {
	if strings.HasPrefix(s, `"`) {
		u, err := strconv.Unquote(s)
		if err != nil {
			return "", false
		}
		s = u
	}
	p, ok := strings.CutPrefix(s, prefix)
	if !ok || p == "" {
		return "", false
	}
	return p, true
}

func parseHunkHeader(line string, matches []string) (Hunk, error) {
	nums := [4]int{0, 1, 0, 1}
	for i, idx := range []int{1, 2, 3, 4} {
		if matches[idx] == "" {
			continue
		}
		n, err := strconv.Atoi(matches[idx])
		if err != nil {
			return Hunk{}, fmt.Errorf("%w: invalid hunk header %q", ErrMalformedDiff, line)
		}
		nums[i] = n
	}
	return Hunk{
		Header:   line,
		OldStart: nums[0],
		OldLines: nums[1],
		NewStart: nums[2],
		NewLines: nums[3],
	}, nil
}
