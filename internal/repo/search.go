package repo

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zjrosen/splice/internal/git"
)

// searchLimit caps commit and file search results.
const searchLimit = 100

func searchAttrs(query string) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String("search.query", query)}
}

// SearchContent finds lines in tracked files matching query, literally or as
// an extended regular expression.
func (r *Repo) SearchContent(ctx context.Context, query string, regex bool) ([]ContentMatch, error) {
	return run(ctx, r, "search_content", searchAttrs(query), func(ctx context.Context) ([]ContentMatch, error) {
		if query == "" {
			return []ContentMatch{}, nil
		}
		mode := "-F"
		if regex {
			mode = "-E"
		}
		out, err := r.runGit(ctx, "grep", "-n", "-I", mode, "--", query)
		if err != nil {
			// git grep exits 1 when nothing matched.
			if git.ExitCode(err) == 1 {
				return []ContentMatch{}, nil
			}
			return nil, err
		}
		return parseGrepOutput(out), nil
	})
}

// parseGrepOutput reads "path:line:content" lines, skipping malformed ones.
func parseGrepOutput(out string) []ContentMatch {
	matches := []ContentMatch{}
	for _, line := range strings.Split(out, "\n") {
		path, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		num, content, ok := strings.Cut(rest, ":")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		matches = append(matches, ContentMatch{Path: path, LineNumber: n, Line: content})
	}
	return matches
}

// SearchCommits finds up to 100 commits whose message contains query, or with
// byDiff whose changes add or remove it.
func (r *Repo) SearchCommits(ctx context.Context, query string, byDiff bool) ([]CommitMatch, error) {
	return run(ctx, r, "search_commits", searchAttrs(query), func(ctx context.Context) ([]CommitMatch, error) {
		if query == "" {
			return []CommitMatch{}, nil
		}
		filter := "--grep=" + query
		if byDiff {
			filter = "-S" + query
		}
		out, err := r.runGit(ctx, "log", filter, "--format=%H%n%h%n%s%n%an%n%at", "-"+strconv.Itoa(searchLimit))
		if err != nil {
			return nil, err
		}
		return parseCommitSearch(out), nil
	})
}

// parseCommitSearch reads five-line records: oid, short oid, subject,
// author, author time.
func parseCommitSearch(out string) []CommitMatch {
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	matches := []CommitMatch{}
	for i := 0; i+4 < len(lines); i += 5 {
		secs, err := strconv.ParseInt(lines[i+4], 10, 64)
		if err != nil {
			continue
		}
		matches = append(matches, CommitMatch{
			OID:        lines[i],
			ShortOID:   lines[i+1],
			Message:    lines[i+2],
			AuthorName: lines[i+3],
			AuthorDate: time.Unix(secs, 0),
		})
	}
	return matches
}

// SearchFiles returns up to 100 tracked paths matching query
// case-insensitively, as a substring or as an in-order subsequence.
func (r *Repo) SearchFiles(ctx context.Context, query string) ([]string, error) {
	return run(ctx, r, "search_files", searchAttrs(query), func(ctx context.Context) ([]string, error) {
		if query == "" {
			return []string{}, nil
		}
		out, err := r.runGit(ctx, "ls-files")
		if err != nil {
			return nil, err
		}
		q := strings.ToLower(query)
		paths := []string{}
		for _, p := range strings.Split(out, "\n") {
			if p == "" || !fuzzyMatch(p, q) {
				continue
			}
			paths = append(paths, p)
			if len(paths) == searchLimit {
				break
			}
		}
		return paths, nil
	})
}

// fuzzyMatch reports whether the lowercase query is a substring of path or
// its characters appear in path in order.
func fuzzyMatch(path, query string) bool {
	p := strings.ToLower(path)
	if strings.Contains(p, query) {
		return true
	}
	q := []rune(query)
	i := 0
	for _, ch := range p {
		if i < len(q) && ch == q[i] {
			i++
		}
		if i == len(q) {
			return true
		}
	}
	return false
}
