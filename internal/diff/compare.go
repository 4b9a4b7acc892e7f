package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

type lineOp struct {
	kind    LineKind
	content string
	oldNo   int
	newNo   int
}

// Compare builds a FileDiff between two in-memory texts with the given number
// of context lines. An empty oldPath marks the file as added and an empty
// newPath as deleted.
func Compare(oldPath, newPath, oldText, newText string, context int) FileDiff {
	if context < 0 {
		context = 0
	}
	fd := FileDiff{OldPath: oldPath, NewPath: newPath}
	if oldText == newText {
		return fd
	}

	ops := lineOps(oldText, newText)

	i := 0
	for i < len(ops) {
		if ops[i].kind == LineContext {
			i++
			continue
		}
		start := max(0, i-context)
		end := i + 1
		j := i
		for j < len(ops) {
			if ops[j].kind != LineContext {
				end = j + 1
				j++
				continue
			}
			k := j
			for k < len(ops) && ops[k].kind == LineContext {
				k++
			}
			if k < len(ops) && k-j <= 2*context {
				j = k
				continue
			}
			break
		}
		stop := min(len(ops), end+context)
		fd.Hunks = append(fd.Hunks, buildHunk(ops[start:stop]))
		i = stop
	}
	return fd
}

// lineOps runs a line-mode diff and flattens it to one op per line.
func lineOps(oldText, newText string) []lineOp {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var ops []lineOp
	oldNo, newNo := 1, 1
	for _, d := range diffs {
		for _, text := range splitLines(d.Text) {
			op := lineOp{content: text}
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				op.kind = LineContext
				op.oldNo, op.newNo = oldNo, newNo
				oldNo++
				newNo++
			case diffmatchpatch.DiffDelete:
				op.kind = LineDeletion
				op.oldNo, op.newNo = oldNo, newNo
				oldNo++
			case diffmatchpatch.DiffInsert:
				op.kind = LineAddition
				op.oldNo, op.newNo = oldNo, newNo
				newNo++
			}
			ops = append(ops, op)
		}
	}
	return ops
}

func buildHunk(ops []lineOp) Hunk {
	h := Hunk{OldStart: ops[0].oldNo, NewStart: ops[0].newNo}
	for _, op := range ops {
		l := Line{Kind: op.kind, Content: op.content}
		switch op.kind {
		case LineContext:
			l.OldLineNo, l.NewLineNo = op.oldNo, op.newNo
			h.OldLines++
			h.NewLines++
		case LineDeletion:
			l.OldLineNo = op.oldNo
			h.OldLines++
		case LineAddition:
			l.NewLineNo = op.newNo
			h.NewLines++
		}
		h.Lines = append(h.Lines, l)
	}
	// An empty side points at the line before the change.
	if h.OldLines == 0 {
		h.OldStart--
	}
	if h.NewLines == 0 {
		h.NewStart--
	}
	h.Header = fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldLines, h.NewStart, h.NewLines)
	return h
}

// splitLines splits text after each newline, keeping the newline.
func splitLines(text string) []string {
	parts := strings.SplitAfter(text, "\n")
	if n := len(parts); n > 0 && parts[n-1] == "" {
		parts = parts[:n-1]
	}
	return parts
}
