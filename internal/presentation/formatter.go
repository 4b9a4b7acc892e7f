// Package presentation renders orchestrator results for the terminal, either
// as indented JSON or as lipgloss-styled text.
package presentation

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/splice/internal/diff"
	"github.com/zjrosen/splice/internal/repo"
)

// dateLayout is used for every timestamp in text output.
const dateLayout = "2006-01-02 15:04"

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
	json   bool
}

// NewFormatter creates a new formatter. With asJSON every result is written
// as one indented JSON document.
func NewFormatter(writer io.Writer, asJSON bool) *Formatter {
	return &Formatter{
		writer: writer,
		json:   asJSON,
	}
}

// emit writes v as JSON or calls text to render it.
func (f *Formatter) emit(v any, text func(b *strings.Builder)) error {
	if f.json {
		encoder := json.NewEncoder(f.writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	}
	var b strings.Builder
	text(&b)
	_, err := io.WriteString(f.writer, b.String())
	return err
}

// Message reports a completed action that returns no data.
func (f *Formatter) Message(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return f.emit(map[string]string{"message": msg}, func(b *strings.Builder) {
		b.WriteString(msg)
		b.WriteByte('\n')
	})
}

// FormatState renders the operation state.
func (f *Formatter) FormatState(st repo.OperationState) error {
	return f.emit(st, func(b *strings.Builder) {
		writeState(b, st)
	})
}

func writeState(b *strings.Builder, st repo.OperationState) {
	if !st.InProgress() {
		line(b, MutedStyle.Render("no operation in progress"))
		return
	}
	s := ConflictStyle.Render(st.Kind.String())
	if st.HasConflicts {
		s += " with unresolved conflicts"
	}
	line(b, s)
}

func line(b *strings.Builder, s string) {
	b.WriteString(s)
	b.WriteByte('\n')
}

// FormatStatus renders the branch, operation state and changed paths.
func (f *Formatter) FormatStatus(st repo.RepoStatus) error {
	return f.emit(st, func(b *strings.Builder) {
		line(b, "On branch "+BranchRefStyle.Render(st.Branch))
		if st.State.InProgress() {
			writeState(b, st.State)
		}
		if len(st.Files) == 0 {
			line(b, MutedStyle.Render("nothing to commit, working tree clean"))
			return
		}
		for _, section := range []struct {
			title   string
			staging repo.StagingState
		}{
			{"Staged changes:", repo.Staged},
			{"Unstaged changes:", repo.Unstaged},
		} {
			var entries []string
			for _, fs := range st.Files {
				if fs.Staging == section.staging {
					entries = append(entries, statusLine(fs))
				}
			}
			if len(entries) == 0 {
				continue
			}
			line(b, BoldStyle.Render(section.title))
			for _, e := range entries {
				line(b, "  "+e)
			}
		}
	})
}

func statusLine(fs repo.FileStatus) string {
	label := fmt.Sprintf("%-11s", fs.Kind.String())
	switch fs.Kind {
	case repo.StatusConflicted:
		label = ConflictStyle.Render(label)
	case repo.StatusDeleted:
		label = DeletionStyle.Render(label)
	case repo.StatusUntracked:
		label = MutedStyle.Render(label)
	default:
		label = AdditionStyle.Render(label)
	}
	return label + " " + fs.Path
}

// FormatDiff renders file diffs with word highlights where present.
func (f *Formatter) FormatDiff(files []diff.FileDiff) error {
	return f.emit(files, func(b *strings.Builder) {
		for _, fd := range files {
			writeFileDiff(b, fd)
		}
	})
}

// FormatFileDiff renders a single file diff.
func (f *Formatter) FormatFileDiff(fd diff.FileDiff) error {
	return f.emit(fd, func(b *strings.Builder) {
		writeFileDiff(b, fd)
	})
}

func writeFileDiff(b *strings.Builder, fd diff.FileDiff) {
	oldPath, newPath := fd.OldPath, fd.NewPath
	if oldPath == "" {
		oldPath = "/dev/null"
	}
	if newPath == "" {
		newPath = "/dev/null"
	}
	line(b, BoldStyle.Render("--- "+oldPath))
	plus := "+++ " + newPath
	if fd.Similarity > 0 {
		plus += fmt.Sprintf(" (%d%% similar)", fd.Similarity)
	}
	line(b, BoldStyle.Render(plus))
	if fd.Binary {
		line(b, MutedStyle.Render("binary file"))
		return
	}
	for _, h := range fd.Hunks {
		line(b, HunkStyle.Render(h.Header))
		for _, l := range h.Lines {
			writeDiffLine(b, l)
		}
	}
}

func writeDiffLine(b *strings.Builder, l diff.Line) {
	switch l.Kind {
	case diff.LineAddition:
		b.WriteString(AdditionStyle.Render("+"))
		writeSegments(b, l, AdditionStyle, WordAddStyle)
	case diff.LineDeletion:
		b.WriteString(DeletionStyle.Render("-"))
		writeSegments(b, l, DeletionStyle, WordDelStyle)
	default:
		b.WriteString(" ")
		b.WriteString(strings.TrimSuffix(l.Content, "\n"))
	}
	b.WriteByte('\n')
}

// writeSegments renders a changed line, highlighting word-diff segments when
// the line has them.
func writeSegments(b *strings.Builder, l diff.Line, plain, highlight lipgloss.Style) {
	if len(l.WordDiff) == 0 {
		b.WriteString(plain.Render(strings.TrimSuffix(l.Content, "\n")))
		return
	}
	for _, seg := range l.WordDiff {
		text := strings.TrimSuffix(seg.Text, "\n")
		if text == "" {
			continue
		}
		if seg.Highlighted {
			b.WriteString(highlight.Render(text))
		} else {
			b.WriteString(plain.Render(text))
		}
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(dateLayout)
}

// refLabels renders commit decorations as " (HEAD, main, origin/main, v1)".
func refLabels(refs []repo.CommitRef) string {
	if len(refs) == 0 {
		return ""
	}
	labels := make([]string, 0, len(refs))
	for _, r := range refs {
		switch r.Kind {
		case repo.RefHead:
			labels = append(labels, HeadRefStyle.Render(r.Name))
		case repo.RefLocalBranch:
			labels = append(labels, BranchRefStyle.Render(r.Name))
		case repo.RefRemoteBranch:
			labels = append(labels, RemoteRefStyle.Render(r.Name))
		case repo.RefTag:
			labels = append(labels, TagRefStyle.Render("tag: "+r.Name))
		}
	}
	return " (" + strings.Join(labels, ", ") + ")"
}

// FormatCommitDetail renders a commit header, its message and changed files.
func (f *Formatter) FormatCommitDetail(d repo.CommitDetail) error {
	return f.emit(d, func(b *strings.Builder) {
		info := d.Info
		line(b, HunkStyle.Render("commit "+info.OID)+refLabels(info.Refs))
		if len(info.ParentOIDs) > 1 {
			short := make([]string, len(info.ParentOIDs))
			for i, p := range info.ParentOIDs {
				short[i] = TruncateString(p, 7)
			}
			line(b, "Merge:  "+strings.Join(short, " "))
		}
		line(b, fmt.Sprintf("Author: %s <%s>", info.AuthorName, info.AuthorEmail))
		line(b, "Date:   "+formatDate(info.AuthorDate))
		b.WriteByte('\n')
		line(b, "    "+info.Message)
		if info.Body != "" {
			b.WriteByte('\n')
			for _, l := range strings.Split(info.Body, "\n") {
				line(b, "    "+l)
			}
		}
		b.WriteByte('\n')
		for _, cf := range d.Files {
			name := cf.Path
			if cf.Status == repo.ChangeRenamed && cf.OldPath != "" {
				name = cf.OldPath + " -> " + cf.Path
			}
			line(b, fmt.Sprintf(" %-9s %s %s %s", cf.Status,
				AdditionStyle.Render(fmt.Sprintf("+%d", cf.Additions)),
				DeletionStyle.Render(fmt.Sprintf("-%d", cf.Deletions)),
				name))
		}
		line(b, MutedStyle.Render(fmt.Sprintf(" %d files changed, %d insertions(+), %d deletions(-)",
			d.Stats.FilesChanged, d.Stats.Additions, d.Stats.Deletions)))
	})
}

// FormatBlame renders one line per source line, printing the commit only at
// the start of each block.
func (f *Formatter) FormatBlame(res repo.BlameResult) error {
	return f.emit(res, func(b *strings.Builder) {
		width := len(fmt.Sprint(len(res.Lines)))
		for _, l := range res.Lines {
			attribution := strings.Repeat(" ", 7+1+16+1+10)
			if l.IsBlockStart {
				attribution = fmt.Sprintf("%s %-16s %s",
					HunkStyle.Render(l.ShortOID),
					TruncateString(l.AuthorName, 16),
					MutedStyle.Render(l.AuthorDate.Local().Format("2006-01-02")))
			}
			line(b, fmt.Sprintf("%s %*d │ %s", attribution, width, l.LineNumber, strings.TrimSuffix(l.Content, "\n")))
		}
	})
}

// FormatBranches renders local branches then remote-tracking ones.
func (f *Formatter) FormatBranches(branches []repo.BranchInfo) error {
	return f.emit(branches, func(b *strings.Builder) {
		for _, br := range branches {
			marker := "  "
			name := br.Name
			switch {
			case br.IsHead:
				marker = HeadRefStyle.Render("* ")
				name = BranchRefStyle.Render(name)
			case br.IsRemote:
				name = RemoteRefStyle.Render(name)
			}
			s := marker + name
			if br.Upstream != "" {
				s += MutedStyle.Render(fmt.Sprintf(" [%s", br.Upstream))
				if br.Ahead > 0 || br.Behind > 0 {
					s += MutedStyle.Render(fmt.Sprintf(": ahead %d, behind %d", br.Ahead, br.Behind))
				}
				s += MutedStyle.Render("]")
			}
			line(b, s)
		}
	})
}

// FormatRemotes renders configured remotes.
func (f *Formatter) FormatRemotes(remotes []repo.RemoteInfo) error {
	return f.emit(remotes, func(b *strings.Builder) {
		for _, r := range remotes {
			line(b, fmt.Sprintf("%s\t%s (fetch)", BoldStyle.Render(r.Name), r.URL))
			push := r.PushURL
			if push == "" {
				push = r.URL
			}
			line(b, fmt.Sprintf("%s\t%s (push)", BoldStyle.Render(r.Name), push))
		}
	})
}

// FormatTags renders tags with their targets.
func (f *Formatter) FormatTags(tags []repo.TagInfo) error {
	return f.emit(tags, func(b *strings.Builder) {
		for _, t := range tags {
			s := fmt.Sprintf("%s %s", TagRefStyle.Render(t.Name), HunkStyle.Render(t.TargetShortOID))
			if t.IsAnnotated {
				s += MutedStyle.Render(fmt.Sprintf(" %s %s", t.TaggerName, formatDate(t.TaggerDate)))
				if t.Message != "" {
					s += " " + TruncateString(t.Message, 60)
				}
			}
			line(b, s)
		}
	})
}

// FormatStashes renders the stash list.
func (f *Formatter) FormatStashes(stashes []repo.StashEntry) error {
	return f.emit(stashes, func(b *strings.Builder) {
		for _, s := range stashes {
			line(b, fmt.Sprintf("%s %s", HunkStyle.Render(fmt.Sprintf("stash@{%d}:", s.Index)), s.Message))
		}
	})
}

// FormatReflog renders reflog entries newest first.
func (f *Formatter) FormatReflog(entries []repo.ReflogEntry) error {
	return f.emit(entries, func(b *strings.Builder) {
		for _, e := range entries {
			line(b, fmt.Sprintf("%s %s %s %s",
				HunkStyle.Render(TruncateString(e.OID, 7)),
				MutedStyle.Render(fmt.Sprintf("@{%d}", e.Index)),
				e.Message,
				MutedStyle.Render(formatDate(e.Date))))
		}
	})
}

// FormatMergeResult renders a merge or pull outcome.
func (f *Formatter) FormatMergeResult(res repo.MergeResult) error {
	return f.emit(res, func(b *strings.Builder) {
		switch res.Kind {
		case repo.MergeUpToDate:
			line(b, "Already up to date.")
		case repo.MergeConflict:
			writeConflictList(b, "Merge stopped on conflicts:", res.Conflicts)
		default:
			line(b, fmt.Sprintf("%s %s", res.Kind, HunkStyle.Render(TruncateString(res.OID, 7))))
		}
	})
}

func writeConflictList(b *strings.Builder, title string, paths []string) {
	line(b, ConflictStyle.Render(title))
	for _, p := range paths {
		line(b, "  "+p)
	}
}

// FormatStepResult renders a rebase, cherry-pick or revert outcome.
func (f *Formatter) FormatStepResult(v any, op string, completed bool, oid string, conflicts []string) error {
	return f.emit(v, func(b *strings.Builder) {
		switch {
		case len(conflicts) > 0:
			writeConflictList(b, op+" stopped on conflicts:", conflicts)
		case !completed:
			line(b, op+" paused")
		case oid != "":
			line(b, fmt.Sprintf("%s complete %s", op, HunkStyle.Render(TruncateString(oid, 7))))
		default:
			line(b, op+" complete")
		}
	})
}

// FormatRebaseState renders the rebase in progress, if any.
func (f *Formatter) FormatRebaseState(st *repo.RebaseState) error {
	return f.emit(st, func(b *strings.Builder) {
		if st == nil {
			line(b, MutedStyle.Render("no rebase in progress"))
			return
		}
		s := fmt.Sprintf("rebasing onto %s (step %d/%d)", BranchRefStyle.Render(st.OntoBranch), st.CurrentStep, st.TotalSteps)
		if st.HasConflicts {
			s += " " + ConflictStyle.Render("with conflicts")
		}
		line(b, s)
	})
}

// FormatTodo renders a rebase todo list in git's format.
func (f *Formatter) FormatTodo(todo []repo.RebaseTodoEntry) error {
	return f.emit(todo, func(b *strings.Builder) {
		for _, e := range todo {
			line(b, fmt.Sprintf("%-6s %s %s", e.Action, HunkStyle.Render(e.ShortOID), e.Message))
		}
	})
}

// FormatContentMatches renders grep-style matches.
func (f *Formatter) FormatContentMatches(matches []repo.ContentMatch) error {
	return f.emit(matches, func(b *strings.Builder) {
		for _, m := range matches {
			line(b, fmt.Sprintf("%s:%s:%s", BoldStyle.Render(m.Path), HunkStyle.Render(fmt.Sprint(m.LineNumber)), m.Line))
		}
	})
}

// FormatCommitMatches renders commits found by a search.
func (f *Formatter) FormatCommitMatches(matches []repo.CommitMatch) error {
	return f.emit(matches, func(b *strings.Builder) {
		for _, m := range matches {
			line(b, fmt.Sprintf("%s %s %s", HunkStyle.Render(m.ShortOID), m.Message,
				MutedStyle.Render(fmt.Sprintf("(%s, %s)", m.AuthorName, formatDate(m.AuthorDate)))))
		}
	})
}

// FormatPaths renders one path per line.
func (f *Formatter) FormatPaths(paths []string) error {
	return f.emit(paths, func(b *strings.Builder) {
		for _, p := range paths {
			line(b, p)
		}
	})
}

// FormatSettings renders nested config settings, as YAML in text mode.
func (f *Formatter) FormatSettings(settings map[string]any) error {
	var err error
	emitErr := f.emit(settings, func(b *strings.Builder) {
		enc := yaml.NewEncoder(b)
		enc.SetIndent(2)
		if err = enc.Encode(settings); err == nil {
			err = enc.Close()
		}
	})
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	return emitErr
}
