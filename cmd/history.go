package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/splice/internal/repo"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show commit history from HEAD",
	Long: `Show commit history from HEAD, newest first.

--since and --until take a date (2006-01-02), an RFC 3339 timestamp or
unix seconds.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var filter repo.LogFilter
		filter.Author, _ = cmd.Flags().GetString("author")
		filter.Message, _ = cmd.Flags().GetString("grep")
		filter.Path, _ = cmd.Flags().GetString("path")
		limit, _ := cmd.Flags().GetInt("limit")
		skip, _ := cmd.Flags().GetInt("skip")
		showGraph, _ := cmd.Flags().GetBool("graph")

		var err error
		since, _ := cmd.Flags().GetString("since")
		if filter.Since, err = parseWhen(since); err != nil {
			return err
		}
		until, _ := cmd.Flags().GetString("until")
		if filter.Until, err = parseWhen(until); err != nil {
			return err
		}

		return run(cmd, func(ctx context.Context, s *session) error {
			res, err := s.repo.CommitLog(ctx, filter, limit, skip)
			if err != nil {
				return err
			}
			return s.out.FormatLog(res, showGraph)
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show <oid> [path]",
	Short: "Show a commit's changed files, or one file's diff in it",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			if len(args) == 2 {
				fd, err := s.repo.CommitFileDiff(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return s.out.FormatFileDiff(fd)
			}
			detail, err := s.repo.CommitDetail(ctx, args[0])
			if err != nil {
				return err
			}
			return s.out.FormatCommitDetail(detail)
		})
	},
}

var blameCmd = &cobra.Command{
	Use:   "blame <path>",
	Short: "Show the commit that last changed each line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rev, _ := cmd.Flags().GetString("rev")
		return run(cmd, func(ctx context.Context, s *session) error {
			res, err := s.repo.Blame(ctx, args[0], rev)
			if err != nil {
				return err
			}
			return s.out.FormatBlame(res)
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <path>",
	Short: "Show the commits that touched a path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		skip, _ := cmd.Flags().GetInt("skip")
		return run(cmd, func(ctx context.Context, s *session) error {
			commits, err := s.repo.FileHistory(ctx, args[0], limit, skip)
			if err != nil {
				return err
			}
			return s.out.FormatLog(repo.CommitLogResult{Commits: commits}, false)
		})
	},
}

var reflogCmd = &cobra.Command{
	Use:   "reflog [ref]",
	Short: "Show where a ref has pointed, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := "HEAD"
		if len(args) == 1 {
			ref = args[0]
		}
		limit, _ := cmd.Flags().GetInt("limit")
		return run(cmd, func(ctx context.Context, s *session) error {
			entries, err := s.repo.Reflog(ctx, ref, limit)
			if err != nil {
				return err
			}
			return s.out.FormatReflog(entries)
		})
	},
}

// parseWhen reads a date, an RFC 3339 timestamp or unix seconds. Empty
// means no bound.
func parseWhen(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, fmt.Errorf("time %q: want 2006-01-02, RFC 3339 or unix seconds", s)
}

func init() {
	logCmd.Flags().String("author", "", "only commits whose author contains this text")
	logCmd.Flags().String("grep", "", "only commits whose message contains this text")
	logCmd.Flags().String("path", "", "only commits touching this path")
	logCmd.Flags().String("since", "", "only commits at or after this time")
	logCmd.Flags().String("until", "", "only commits at or before this time")
	logCmd.Flags().IntP("limit", "n", 50, "maximum commits to show")
	logCmd.Flags().Int("skip", 0, "commits to skip before showing")
	logCmd.Flags().Bool("graph", false, "draw the commit graph")

	blameCmd.Flags().String("rev", "", "blame as of this revision (default: HEAD)")

	historyCmd.Flags().IntP("limit", "n", 50, "maximum commits to show")
	historyCmd.Flags().Int("skip", 0, "commits to skip before showing")

	reflogCmd.Flags().IntP("limit", "n", 50, "maximum entries to show")

	rootCmd.AddCommand(logCmd, showCmd, blameCmd, historyCmd, reflogCmd)
}
