package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/splice/internal/diff"
	"github.com/zjrosen/splice/internal/repo"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the branch, operation state and changed paths",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			st, err := s.repo.Status(ctx)
			if err != nil {
				return err
			}
			return s.out.FormatStatus(st)
		})
	},
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show which merge, rebase, cherry-pick or revert is in progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			st, err := s.repo.OperationState(ctx)
			if err != nil {
				return err
			}
			return s.out.FormatState(st)
		})
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff [path]",
	Short: "Show unstaged or staged changes",
	Long: `Show unstaged changes, or with --staged the changes in the index.

Hunk headers carry the four numbers that stage, unstage and discard take
with --hunk.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		staged, _ := cmd.Flags().GetBool("staged")
		ctxLines, _ := cmd.Flags().GetInt("unified")
		untracked, _ := cmd.Flags().GetBool("untracked")
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		return run(cmd, func(ctx context.Context, s *session) error {
			files, err := s.repo.Diff(ctx, path, repo.DiffOptions{
				Staged:           staged,
				ContextLines:     ctxLines,
				IncludeUntracked: untracked || cfg.Diff.IncludeUntracked,
				WordDiff:         cfg.Diff.WordDiff,
			})
			if err != nil {
				return err
			}
			return s.out.FormatDiff(files)
		})
	},
}

// partialSide runs one of the stage, unstage or discard families.
type partialSide struct {
	all   func(r *repo.Repo, ctx context.Context, paths []string) error
	hunk  func(r *repo.Repo, ctx context.Context, path string, id diff.HunkIdentifier) error
	lines func(r *repo.Repo, ctx context.Context, path string, lr diff.LineRange) error
	verb  string
}

func newPartialCmd(use, short string, side partialSide) *cobra.Command {
	c := &cobra.Command{
		Use:   use + " <path>...",
		Short: short,
		Long: short + `.

With --hunk only the hunk with that header range is affected, and with
--lines as well only the listed line indices (0-based into the hunk's lines,
ranges like 2-4 allowed).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hunk, _ := cmd.Flags().GetString("hunk")
			lines, _ := cmd.Flags().GetString("lines")
			if hunk == "" && lines != "" {
				return fmt.Errorf("--lines needs --hunk")
			}
			if hunk != "" && len(args) != 1 {
				return fmt.Errorf("--hunk takes exactly one path")
			}
			return run(cmd, func(ctx context.Context, s *session) error {
				switch {
				case hunk == "":
					if err := side.all(s.repo, ctx, args); err != nil {
						return err
					}
					return s.out.Message("%s %d path(s)", side.verb, len(args))
				case lines == "":
					id, err := parseHunkID(hunk)
					if err != nil {
						return err
					}
					if err := side.hunk(s.repo, ctx, args[0], id); err != nil {
						return err
					}
					return s.out.Message("%s hunk %s of %s", side.verb, id, args[0])
				default:
					id, err := parseHunkID(hunk)
					if err != nil {
						return err
					}
					idx, err := parseIndices(lines)
					if err != nil {
						return err
					}
					if err := side.lines(s.repo, ctx, args[0], diff.LineRange{Hunk: id, LineIndices: idx}); err != nil {
						return err
					}
					return s.out.Message("%s %d line(s) of %s", side.verb, len(idx), args[0])
				}
			})
		},
	}
	c.Flags().String("hunk", "", "hunk range as old_start,old_lines,new_start,new_lines")
	c.Flags().String("lines", "", "line indices within the hunk, e.g. 1,3-4")
	return c
}

var stageCmd = newPartialCmd("stage", "Stage whole files, one hunk, or single lines", partialSide{
	verb: "staged",
	all: func(r *repo.Repo, ctx context.Context, paths []string) error {
		if len(paths) == 1 && paths[0] == "." {
			return r.StageAll(ctx)
		}
		return r.Stage(ctx, paths...)
	},
	hunk:  (*repo.Repo).StageHunk,
	lines: (*repo.Repo).StageLines,
})

var unstageCmd = newPartialCmd("unstage", "Unstage whole files, one hunk, or single lines", partialSide{
	verb: "unstaged",
	all: func(r *repo.Repo, ctx context.Context, paths []string) error {
		if len(paths) == 1 && paths[0] == "." {
			return r.UnstageAll(ctx)
		}
		return r.Unstage(ctx, paths...)
	},
	hunk:  (*repo.Repo).UnstageHunk,
	lines: (*repo.Repo).UnstageLines,
})

var discardCmd = newPartialCmd("discard", "Discard working tree changes of files, one hunk, or single lines", partialSide{
	verb: "discarded",
	all: func(r *repo.Repo, ctx context.Context, paths []string) error {
		for _, p := range paths {
			if err := r.ResetFile(ctx, p, "HEAD"); err != nil {
				return err
			}
		}
		return nil
	},
	hunk:  (*repo.Repo).DiscardHunk,
	lines: (*repo.Repo).DiscardLines,
})

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Commit the index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		message, _ := cmd.Flags().GetString("message")
		amend, _ := cmd.Flags().GetBool("amend")
		return run(cmd, func(ctx context.Context, s *session) error {
			if amend && message == "" {
				prev, err := s.repo.HeadCommitMessage(ctx)
				if err != nil {
					return err
				}
				message = prev
			}
			res, err := s.repo.Commit(ctx, message, amend)
			if err != nil {
				return err
			}
			return s.out.Message("committed %s", res.OID)
		})
	},
}

func init() {
	diffCmd.Flags().Bool("staged", false, "show changes in the index")
	diffCmd.Flags().IntP("unified", "U", 0, "context lines (0 for diff.context_lines)")
	diffCmd.Flags().Bool("untracked", false, "include untracked files")

	commitCmd.Flags().StringP("message", "m", "", "commit message")
	commitCmd.Flags().Bool("amend", false, "replace the HEAD commit (keeps its message when -m is empty)")

	rootCmd.AddCommand(statusCmd, stateCmd, diffCmd, stageCmd, unstageCmd, discardCmd, commitCmd)
}
