package presentation

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/splice/internal/conflict"
	"github.com/zjrosen/splice/internal/graph"
	"github.com/zjrosen/splice/internal/repo"
)

// Graph glyphs.
const (
	glyphNode  = "●"
	glyphMerge = "◆"
	glyphLane  = "│"
)

// FormatLog renders one line per commit. With showGraph the lane layout is
// drawn to the left of each commit.
func (f *Formatter) FormatLog(res repo.CommitLogResult, showGraph bool) error {
	return f.emit(res, func(b *strings.Builder) {
		var lanes []string
		if showGraph {
			lanes = GraphLanes(res.Graph)
		}
		for i, c := range res.Commits {
			prefix := ""
			if i < len(lanes) {
				prefix = lanes[i] + " "
			}
			line(b, fmt.Sprintf("%s%s %s%s %s", prefix,
				HunkStyle.Render(c.ShortOID),
				c.Message,
				refLabels(c.Refs),
				MutedStyle.Render(fmt.Sprintf("(%s, %s)", c.AuthorName, formatDate(c.AuthorDate)))))
		}
	})
}

// GraphLanes draws each row's lanes as text. A lane stays drawn from the row
// that opened it until the row that emits it; lane colors follow the edge
// color index.
func GraphLanes(rows []graph.Row) []string {
	width := graph.Width(rows)
	open := make([]int, width) // color per column, -1 when free
	for i := range open {
		open[i] = -1
	}

	out := make([]string, 0, len(rows))
	for _, row := range rows {
		var b strings.Builder
		for col := 0; col < width; col++ {
			switch {
			case col == row.Column:
				glyph := glyphNode
				if row.NodeType == graph.Merge {
					glyph = glyphMerge
				}
				b.WriteString(LaneStyle(col).Render(glyph))
			case open[col] >= 0:
				b.WriteString(LaneStyle(open[col]).Render(glyphLane))
			default:
				b.WriteString(" ")
			}
			if col < width-1 {
				b.WriteString(" ")
			}
		}
		out = append(out, b.String())

		open[row.Column] = -1
		for _, e := range row.Edges {
			open[e.ToColumn] = e.ColorIndex
		}
	}
	return out
}

// FormatConflicts renders each conflicted file and its blocks.
func (f *Formatter) FormatConflicts(files []conflict.File) error {
	return f.emit(files, func(b *strings.Builder) {
		if len(files) == 0 {
			line(b, MutedStyle.Render("no conflicts"))
			return
		}
		for _, cf := range files {
			line(b, fmt.Sprintf("%s %s", ConflictStyle.Render(cf.Path),
				MutedStyle.Render(fmt.Sprintf("(%d blocks)", cf.ConflictCount))))
			for i, blk := range cf.Conflicts {
				line(b, HunkStyle.Render(fmt.Sprintf("  [%d] lines %d-%d", i, blk.StartLine, blk.EndLine)))
				writeSide(b, "ours", blk.Ours, DeletionStyle)
				if blk.Base != nil {
					writeSide(b, "base", *blk.Base, MutedStyle)
				}
				writeSide(b, "theirs", blk.Theirs, AdditionStyle)
			}
		}
	})
}

func writeSide(b *strings.Builder, label, text string, style lipgloss.Style) {
	line(b, "    "+BoldStyle.Render(label+":"))
	for _, l := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		line(b, "      "+style.Render(l))
	}
}

// FormatMergeBase renders the three index stages of a conflicted path.
func (f *Formatter) FormatMergeBase(mb repo.MergeBaseContent) error {
	return f.emit(mb, func(b *strings.Builder) {
		line(b, ConflictStyle.Render(mb.Path))
		for _, side := range []struct {
			label string
			text  *string
		}{
			{"base", mb.Base},
			{"ours", mb.Ours},
			{"theirs", mb.Theirs},
		} {
			if side.text == nil {
				line(b, "    "+BoldStyle.Render(side.label+":")+" "+MutedStyle.Render("(absent)"))
				continue
			}
			writeSide(b, side.label, *side.text, SecondaryStyle)
		}
	})
}
