package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/zjrosen/splice/internal/conflict"
	"github.com/zjrosen/splice/internal/diff"
	"github.com/zjrosen/splice/internal/repo"
)

// parseHunkID reads "old_start,old_lines,new_start,new_lines".
func parseHunkID(s string) (diff.HunkIdentifier, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return diff.HunkIdentifier{}, fmt.Errorf("hunk %q: want old_start,old_lines,new_start,new_lines", s)
	}
	var n [4]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 {
			return diff.HunkIdentifier{}, fmt.Errorf("hunk %q: %q is not a non-negative number", s, p)
		}
		n[i] = v
	}
	return diff.HunkIdentifier{OldStart: n[0], OldLines: n[1], NewStart: n[2], NewLines: n[3]}, nil
}

// parseIndices reads a comma separated list of line indices. Ranges like
// "3-5" expand inclusively.
func parseIndices(s string) ([]int, error) {
	var out []int
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(p, "-")
		start, err := strconv.Atoi(lo)
		if err != nil || start < 0 {
			return nil, fmt.Errorf("line index %q is not a non-negative number", p)
		}
		end := start
		if isRange {
			end, err = strconv.Atoi(hi)
			if err != nil || end < start {
				return nil, fmt.Errorf("line range %q is invalid", p)
			}
		}
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no line indices in %q", s)
	}
	return out, nil
}

// parseResolution builds a conflict resolution. Manual content comes from
// file, where "-" is stdin.
func parseResolution(kind, file string) (conflict.Resolution, error) {
	k, err := conflict.ParseResolutionKind(kind)
	if err != nil {
		return conflict.Resolution{}, err
	}
	if k != conflict.Manual {
		if file != "" {
			return conflict.Resolution{}, fmt.Errorf("--file only applies to manual resolutions")
		}
		return conflict.Resolution{Kind: k}, nil
	}
	if file == "" {
		return conflict.Resolution{}, fmt.Errorf("manual resolution needs --file")
	}
	content, err := readInput(file)
	if err != nil {
		return conflict.Resolution{}, err
	}
	return conflict.ResolveManual(content), nil
}

func readInput(file string) (string, error) {
	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(file) //nolint:gosec // G304: user-supplied input file
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", file, err)
	}
	return string(data), nil
}

// parseTodo reads a rebase todo list in git's format. Blank lines and
// comments are skipped; the message is optional.
func parseTodo(text string) ([]repo.RebaseTodoEntry, error) {
	var todo []repo.RebaseTodoEntry
	for n, raw := range strings.Split(text, "\n") {
		l := strings.TrimSpace(raw)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		fields := strings.SplitN(l, " ", 3)
		if len(fields) < 2 {
			return nil, fmt.Errorf("todo line %d: want \"action oid [message]\"", n+1)
		}
		action, err := repo.ParseRebaseAction(fields[0])
		if err != nil {
			return nil, fmt.Errorf("todo line %d: %w", n+1, err)
		}
		e := repo.RebaseTodoEntry{Action: action, OID: fields[1], ShortOID: fields[1]}
		if len(fields) == 3 {
			e.Message = fields[2]
		}
		todo = append(todo, e)
	}
	if len(todo) == 0 {
		return nil, fmt.Errorf("todo list is empty")
	}
	return todo, nil
}

func parseResetMode(soft, hard bool) (repo.ResetMode, error) {
	switch {
	case soft && hard:
		return 0, fmt.Errorf("--soft and --hard are mutually exclusive")
	case soft:
		return repo.ResetSoft, nil
	case hard:
		return repo.ResetHard, nil
	}
	return repo.ResetMixed, nil
}

func parseStashIndex(args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	s := strings.TrimSuffix(strings.TrimPrefix(args[0], "stash@{"), "}")
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("stash %q: want an index or stash@{n}", args[0])
	}
	return i, nil
}
