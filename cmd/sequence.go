package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/splice/internal/repo"
)

var rebaseCmd = &cobra.Command{
	Use:   "rebase <onto>",
	Short: "Replay the current branch onto another commit",
	Long: `Replay the current branch onto another commit.

With --interactive-todo the replay follows a todo list in git's format
(pick, reword, edit, squash, fixup, drop). "splice rebase todo <onto>" prints
the default list to start from.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		todoFile, _ := cmd.Flags().GetString("interactive-todo")
		var todo []repo.RebaseTodoEntry
		if todoFile != "" {
			text, err := readInput(todoFile)
			if err != nil {
				return err
			}
			if todo, err = parseTodo(text); err != nil {
				return err
			}
		}
		return run(cmd, func(ctx context.Context, s *session) error {
			var (
				res repo.RebaseResult
				err error
			)
			if todo != nil {
				res, err = s.repo.InteractiveRebase(ctx, args[0], todo)
			} else {
				res, err = s.repo.Rebase(ctx, args[0])
			}
			if err != nil {
				return err
			}
			return s.out.FormatStepResult(res, "rebase", res.Completed, "", res.Conflicts)
		})
	},
}

var rebaseContinueCmd = &cobra.Command{
	Use:   "continue",
	Short: "Continue a rebase after resolving conflicts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			res, err := s.repo.ContinueRebase(ctx)
			if err != nil {
				return err
			}
			return s.out.FormatStepResult(res, "rebase", res.Completed, "", res.Conflicts)
		})
	},
}

var rebaseAbortCmd = &cobra.Command{
	Use:   "abort",
	Short: "Abandon the rebase and restore the original branch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			if err := s.repo.AbortRebase(ctx); err != nil {
				return err
			}
			return s.out.Message("rebase aborted")
		})
	},
}

var rebaseStateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the progress of the rebase in progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			st, err := s.repo.RebaseState(ctx)
			if err != nil {
				return err
			}
			return s.out.FormatRebaseState(st)
		})
	},
}

var rebaseTodoCmd = &cobra.Command{
	Use:   "todo <onto>",
	Short: "Print the todo list a rebase onto <onto> would start with",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return run(cmd, func(ctx context.Context, s *session) error {
			todo, err := s.repo.RebaseTodo(ctx, args[0], limit)
			if err != nil {
				return err
			}
			return s.out.FormatTodo(todo)
		})
	},
}

var cherryPickCmd = &cobra.Command{
	Use:   "cherry-pick <oid>...",
	Short: "Apply commits on top of HEAD, oldest first",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		noCommit, _ := cmd.Flags().GetBool("no-commit")
		mainline, _ := cmd.Flags().GetBool("mainline")
		if noCommit && mainline {
			return fmt.Errorf("--no-commit and --mainline are mutually exclusive")
		}
		mode := repo.CherryPickNormal
		switch {
		case noCommit:
			mode = repo.CherryPickNoCommit
		case mainline:
			mode = repo.CherryPickMerge
		}
		return run(cmd, func(ctx context.Context, s *session) error {
			res, err := s.repo.CherryPick(ctx, args, mode)
			if err != nil {
				return err
			}
			return s.out.FormatStepResult(res, "cherry-pick", res.Completed, res.OID, res.Conflicts)
		})
	},
}

var cherryPickContinueCmd = &cobra.Command{
	Use:   "continue",
	Short: "Continue a cherry-pick after resolving conflicts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			res, err := s.repo.ContinueCherryPick(ctx)
			if err != nil {
				return err
			}
			return s.out.FormatStepResult(res, "cherry-pick", res.Completed, res.OID, res.Conflicts)
		})
	},
}

var cherryPickAbortCmd = &cobra.Command{
	Use:   "abort",
	Short: "Abandon the cherry-pick in progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			if err := s.repo.AbortCherryPick(ctx); err != nil {
				return err
			}
			return s.out.Message("cherry-pick aborted")
		})
	},
}

var revertCmd = &cobra.Command{
	Use:   "revert <oid>",
	Short: "Create a commit undoing another",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		noCommit, _ := cmd.Flags().GetBool("no-commit")
		edit, _ := cmd.Flags().GetBool("edit")
		if noCommit && edit {
			return fmt.Errorf("--no-commit and --edit are mutually exclusive")
		}
		mode := repo.RevertAuto
		switch {
		case noCommit:
			mode = repo.RevertNoCommit
		case edit:
			mode = repo.RevertEdit
		}
		return run(cmd, func(ctx context.Context, s *session) error {
			res, err := s.repo.Revert(ctx, args[0], mode)
			if err != nil {
				return err
			}
			return s.out.FormatStepResult(res, "revert", res.Completed, res.OID, res.Conflicts)
		})
	},
}

var revertContinueCmd = &cobra.Command{
	Use:   "continue",
	Short: "Continue a revert after resolving conflicts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			res, err := s.repo.ContinueRevert(ctx)
			if err != nil {
				return err
			}
			return s.out.FormatStepResult(res, "revert", res.Completed, res.OID, res.Conflicts)
		})
	},
}

var revertAbortCmd = &cobra.Command{
	Use:   "abort",
	Short: "Abandon the revert in progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			if err := s.repo.AbortRevert(ctx); err != nil {
				return err
			}
			return s.out.Message("revert aborted")
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset <oid>",
	Short: "Move HEAD, and with it the index and working tree per mode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		soft, _ := cmd.Flags().GetBool("soft")
		hard, _ := cmd.Flags().GetBool("hard")
		mode, err := parseResetMode(soft, hard)
		if err != nil {
			return err
		}
		return run(cmd, func(ctx context.Context, s *session) error {
			res, err := s.repo.Reset(ctx, args[0], mode)
			if err != nil {
				return err
			}
			return s.out.Message("HEAD is now at %s", res.OID)
		})
	},
}

var resetFileCmd = &cobra.Command{
	Use:   "reset-file <path> [oid]",
	Short: "Restore one path in the index and working tree from a commit",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		oid := "HEAD"
		if len(args) == 2 {
			oid = args[1]
		}
		return run(cmd, func(ctx context.Context, s *session) error {
			if err := s.repo.ResetFile(ctx, args[0], oid); err != nil {
				return err
			}
			return s.out.Message("restored %s from %s", args[0], oid)
		})
	},
}

func init() {
	rebaseCmd.Flags().String("interactive-todo", "", "todo list file (- for stdin)")
	rebaseTodoCmd.Flags().IntP("limit", "n", 0, "maximum entries (0 for all)")
	rebaseCmd.AddCommand(rebaseContinueCmd, rebaseAbortCmd, rebaseStateCmd, rebaseTodoCmd)

	cherryPickCmd.Flags().Bool("no-commit", false, "apply to the index and working tree only")
	cherryPickCmd.Flags().Bool("mainline", false, "pick merge commits relative to their first parent")
	cherryPickCmd.AddCommand(cherryPickContinueCmd, cherryPickAbortCmd)

	revertCmd.Flags().Bool("no-commit", false, "apply the inverse without committing")
	revertCmd.Flags().Bool("edit", false, "commit with the default message for later amending")
	revertCmd.AddCommand(revertContinueCmd, revertAbortCmd)

	resetCmd.Flags().Bool("soft", false, "move HEAD only")
	resetCmd.Flags().Bool("mixed", false, "move HEAD and reset the index (default)")
	resetCmd.Flags().Bool("hard", false, "move HEAD and reset the index and working tree")

	rootCmd.AddCommand(rebaseCmd, cherryPickCmd, revertCmd, resetCmd, resetFileCmd)
}
